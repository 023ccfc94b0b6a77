package bookgen

import (
	"context"
	"strings"
	"unicode/utf8"

	"bookforge-api/pkg/errors"
	"bookforge-api/pkg/metrics"
)

// DefaultMaxChunkChars 语音服务商单次请求的文本上限
const DefaultMaxChunkChars = 4500

// ChunkText 将长文本切分为不超过 maxChars 个字符（rune）的块
// 按空行段落边界切分并贪心合并；单段超限时按 rune 边界硬切为 maxChars 大小的片段，
// 多字节文本不会被切在字符中间。所有块按顺序拼接可还原原文（边界空白除外）
func ChunkText(text string, maxChars int) []string {
	if maxChars <= 0 {
		maxChars = DefaultMaxChunkChars
	}

	var chunks []string
	var current strings.Builder
	currentChars := 0
	flush := func() {
		if currentChars > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
			currentChars = 0
		}
	}

	for _, para := range splitParagraphs(text) {
		paraChars := utf8.RuneCountInString(para)
		if paraChars > maxChars {
			flush()
			runes := []rune(para)
			for start := 0; start < len(runes); start += maxChars {
				end := start + maxChars
				if end > len(runes) {
					end = len(runes)
				}
				chunks = append(chunks, string(runes[start:end]))
			}
			continue
		}

		need := paraChars
		if currentChars > 0 {
			need += 2
		}
		if currentChars+need > maxChars {
			flush()
		}
		if currentChars > 0 {
			current.WriteString("\n\n")
			currentChars += 2
		}
		current.WriteString(para)
		currentChars += paraChars
	}
	flush()
	return chunks
}

// splitParagraphs 按空行切分段落，丢弃空段
func splitParagraphs(text string) []string {
	var paras []string
	for _, p := range strings.Split(text, "\n\n") {
		p = strings.TrimSpace(p)
		if p != "" {
			paras = append(paras, p)
		}
	}
	return paras
}

// AudiobookResult 有声书合成结果
type AudiobookResult struct {
	Audio    []byte
	MimeType string
	Chunks   int
}

// AudiobookSynthesizer 分块语音合成器
// 逐块顺序调用语音服务商并按块序拼接音频字节流，不做重编码
type AudiobookSynthesizer struct {
	speech   SpeechSynthesizer
	maxChars int
}

// NewAudiobookSynthesizer 创建合成器，maxChars 非正时取缺省上限
func NewAudiobookSynthesizer(speech SpeechSynthesizer, maxChars int) *AudiobookSynthesizer {
	if maxChars <= 0 {
		maxChars = DefaultMaxChunkChars
	}
	return &AudiobookSynthesizer{speech: speech, maxChars: maxChars}
}

// Synthesize 合成整段文本的有声书
// 任一块合成失败即中止并返回错误，由调用方决定失败策略
func (a *AudiobookSynthesizer) Synthesize(ctx context.Context, text, voiceID string) (*AudiobookResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New(errors.CodeInvalidParam, "text cannot be empty")
	}

	chunks := ChunkText(text, a.maxChars)
	var merged []byte
	mimeType := ""
	for _, chunk := range chunks {
		audio, mime, err := a.speech.Synthesize(ctx, chunk, voiceID)
		if err != nil {
			metrics.AudioChunksTotal.WithLabelValues("error").Inc()
			return nil, errors.Wrap(err, errors.CodeAudioSynthFailed, "audiobook synthesis failed")
		}
		metrics.AudioChunksTotal.WithLabelValues("ok").Inc()
		merged = append(merged, audio...)
		if mimeType == "" {
			mimeType = mime
		}
	}

	return &AudiobookResult{Audio: merged, MimeType: mimeType, Chunks: len(chunks)}, nil
}

// BuildAudiobookScript 构建有声书朗读脚本
// 有全书章节时拼接全部章节正文，否则使用第一章；开头加入书名与标语
func BuildAudiobookScript(outline *BookOutline, chapter1 string, fullChapters []GeneratedChapter) string {
	var compiled string
	if len(fullChapters) > 0 {
		var parts []string
		for _, ch := range fullChapters {
			if ch.Content != "" {
				parts = append(parts, ch.Content)
			}
		}
		compiled = strings.Join(parts, "\n\n")
	} else {
		compiled = chapter1
	}

	return outline.Title + ". " + outline.Tagline + "\n\n" + compiled
}
