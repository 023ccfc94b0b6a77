package bookgen

import (
	"encoding/json"
	"strings"

	"bookforge-api/pkg/errors"
)

// ExtractJSONObject 从模型输出中提取第一个配平的顶层 JSON 对象
// 忽略对象前后的叙述文字与代码块围栏，跟踪字符串与转义状态
func ExtractJSONObject(raw string) (string, bool) {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		c := raw[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return raw[start : i+1], true
				}
			}
		}
	}
	return "", false
}

// DecodeJSONObject 提取并反序列化模型输出中的 JSON 对象
func DecodeJSONObject(raw string, v any) error {
	obj, ok := ExtractJSONObject(raw)
	if !ok {
		return errors.New(errors.CodeMalformedOutput, "no JSON object found in model output")
	}
	if err := json.Unmarshal([]byte(obj), v); err != nil {
		return errors.Wrap(err, errors.CodeMalformedOutput, "failed to parse model output")
	}
	return nil
}
