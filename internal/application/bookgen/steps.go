package bookgen

import (
	"context"
	"time"
	"unicode/utf8"

	"bookforge-api/pkg/errors"
	"bookforge-api/pkg/logger"
	"bookforge-api/pkg/metrics"
)

// 各阶段文本补全的 token 预算
const (
	outlineTokenBudget  = 3000
	chapterTokenBudget  = 4000
	fullBookTokenBudget = 2800
	listingTokenBudget  = 1500
)

// continuityExcerptRunes 后续章节携带的上一章尾部摘录长度
const continuityExcerptRunes = 1200

// StepLibrary 单步生成能力集合，按服务商名称路由文本补全
type StepLibrary struct {
	providers map[string]TextProvider
}

// NewStepLibrary 创建步骤库
// providers 键为请求中的服务商名（claude / gpt-5）
func NewStepLibrary(providers map[string]TextProvider) *StepLibrary {
	return &StepLibrary{providers: providers}
}

// provider 按名称解析服务商，空名回落到 claude
func (s *StepLibrary) provider(name string) (TextProvider, error) {
	if name == "" {
		name = ProviderClaude
	}
	p, ok := s.providers[name]
	if !ok {
		return nil, errors.New(errors.CodeInvalidParam, "unknown text provider: "+name)
	}
	return p, nil
}

// ModelLabel 返回服务商的对外模型标识
func (s *StepLibrary) ModelLabel(name string) string {
	p, err := s.provider(name)
	if err != nil {
		return "unknown"
	}
	return p.Label()
}

// CallAI 路由一次文本补全并记录调用指标
func (s *StepLibrary) CallAI(ctx context.Context, prompt, providerName string, maxTokens int) (string, error) {
	p, err := s.provider(providerName)
	if err != nil {
		return "", err
	}

	start := time.Now()
	text, err := p.Complete(ctx, prompt, maxTokens)
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.LLMCallsTotal.WithLabelValues(providerName, p.Label(), status).Inc()
	metrics.LLMCallDuration.WithLabelValues(providerName, p.Label()).Observe(time.Since(start).Seconds())
	if err != nil {
		return "", errors.Wrap(err, errors.CodeProviderError, "text generation failed")
	}
	return text, nil
}

// GenerateOutline 生成图书大纲
// 模型输出缺少可解析 JSON 对象时返回 MalformedOutput（致命）
func (s *StepLibrary) GenerateOutline(ctx context.Context, req *BookRequest) (*BookOutline, error) {
	raw, err := s.CallAI(ctx, outlinePrompt(req), req.Provider, outlineTokenBudget)
	if err != nil {
		return nil, err
	}

	var outline BookOutline
	if err := DecodeJSONObject(raw, &outline); err != nil {
		return nil, errors.ErrOutlineFailed.WithError(err)
	}
	if outline.Title == "" {
		return nil, errors.ErrOutlineFailed.WithDetail("outline has no title")
	}
	outline.normalizeChapters()
	return &outline, nil
}

// WriteFirstChapter 生成带开篇钩子的第一章
func (s *StepLibrary) WriteFirstChapter(ctx context.Context, outline *BookOutline, req *BookRequest) (string, error) {
	return s.CallAI(ctx, firstChapterPrompt(outline, req), req.Provider, chapterTokenBudget)
}

// WriteFullBookChapters 生成全书章节草稿
// 第一章复用已生成文本；后续每章携带上一章尾部摘录保持连贯；
// 大纲无章节时返回包裹第一章的单章
func (s *StepLibrary) WriteFullBookChapters(ctx context.Context, outline *BookOutline, req *BookRequest, chapter1 string) ([]GeneratedChapter, error) {
	if len(outline.Chapters) == 0 {
		return []GeneratedChapter{{Number: 1, Title: "Chapter 1", Content: chapter1}}, nil
	}

	first := outline.Chapters[0]
	chapters := []GeneratedChapter{{
		Number:  first.Number,
		Title:   first.Title,
		Summary: first.Summary,
		Content: chapter1,
	}}

	for _, stub := range outline.Chapters[1:] {
		excerpt := tailRunes(chapters[len(chapters)-1].Content, continuityExcerptRunes)
		content, err := s.CallAI(ctx, continuationChapterPrompt(outline, req, stub, excerpt), req.Provider, fullBookTokenBudget)
		if err != nil {
			return nil, err
		}
		chapters = append(chapters, GeneratedChapter{
			Number:  stub.Number,
			Title:   stub.Title,
			Summary: stub.Summary,
			Content: content,
		})
	}
	return chapters, nil
}

// GenerateListing 生成 Amazon 商品信息
// 解析失败降级为空对象，不中断流水线
func (s *StepLibrary) GenerateListing(ctx context.Context, outline *BookOutline, req *BookRequest) map[string]any {
	raw, err := s.CallAI(ctx, listingPrompt(outline, req), req.Provider, listingTokenBudget)
	if err != nil {
		logger.Warn(ctx, "listing generation degraded to empty object", "error", err.Error())
		return map[string]any{}
	}

	var listing map[string]any
	if err := DecodeJSONObject(raw, &listing); err != nil {
		logger.Warn(ctx, "listing output unparseable, degraded to empty object", "error", err.Error())
		return map[string]any{}
	}
	return listing
}

// tailRunes 返回字符串最后 n 个字符
func tailRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[len(runes)-n:])
}
