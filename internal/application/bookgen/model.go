// Package bookgen 实现图书生成流水线
package bookgen

import (
	"bookforge-api/internal/application/plan"
)

// ProviderClaude 默认文本生成服务商
const ProviderClaude = "claude"

// ProviderGPT5 备选文本生成服务商
const ProviderGPT5 = "gpt-5"

// BookRequest 一次流水线运行的不可变输入
type BookRequest struct {
	Genre     string   `json:"genre" binding:"required"`
	Subgenre  string   `json:"subgenre,omitempty"`
	TitleIdea string   `json:"title_idea,omitempty"`
	Audience  string   `json:"target_audience,omitempty"`
	PageCount int      `json:"page_count,omitempty"`
	Tone      string   `json:"tone,omitempty"`
	Keywords  []string `json:"keywords,omitempty"`
	Language  string   `json:"language,omitempty"`
	Provider  string   `json:"ai_model,omitempty"`

	Plan              plan.Tier `json:"plan,omitempty"`
	GenerateFullBook  bool      `json:"generate_full_book,omitempty"`
	GenerateCover     bool      `json:"generate_cover_image,omitempty"`
	GenerateAudiobook bool      `json:"generate_audiobook,omitempty"`

	RecipientEmail string `json:"recipient_email,omitempty"`
	AuthorName     string `json:"author_name,omitempty"`
	VoiceID        string `json:"voice_id,omitempty"`
}

// Normalize 填充缺省字段
func (r *BookRequest) Normalize() {
	if r.Audience == "" {
		r.Audience = "adults"
	}
	if r.PageCount <= 0 {
		r.PageCount = 200
	}
	if r.Tone == "" {
		r.Tone = "engaging"
	}
	if r.Language == "" {
		r.Language = "en"
	}
	if r.Provider == "" {
		r.Provider = ProviderClaude
	}
	if r.Plan == "" {
		r.Plan = plan.TierStarter
	}
	if r.AuthorName == "" {
		r.AuthorName = "BOOKFORGE AI"
	}
}

// RequestedCapabilities 返回请求勾选的可选能力
func (r *BookRequest) RequestedCapabilities() []plan.Capability {
	var caps []plan.Capability
	if r.GenerateFullBook {
		caps = append(caps, plan.CapabilityFullBook)
	}
	if r.GenerateCover {
		caps = append(caps, plan.CapabilityCover)
	}
	if r.GenerateAudiobook {
		caps = append(caps, plan.CapabilityAudiobook)
	}
	return caps
}

// ChapterStub 大纲中的章节占位
type ChapterStub struct {
	Number  int    `json:"number"`
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

// BookOutline 图书大纲
// 章节编号从 1 开始严格递增；第 1 章为钩子章节
type BookOutline struct {
	Title                string         `json:"title"`
	Subtitle             string         `json:"subtitle,omitempty"`
	Tagline              string         `json:"tagline"`
	BackCoverDescription string         `json:"back_cover_description"`
	Chapters             []ChapterStub  `json:"chapters"`
	Protagonist          map[string]any `json:"protagonist,omitempty"`
	Themes               []string       `json:"themes,omitempty"`
	Categories           []string       `json:"amazon_categories,omitempty"`
	Keywords             []string       `json:"amazon_keywords,omitempty"`
}

// normalizeChapters 保证章节编号从 1 开始严格递增
func (o *BookOutline) normalizeChapters() {
	for i := range o.Chapters {
		if o.Chapters[i].Number != i+1 {
			o.Chapters[i].Number = i + 1
		}
	}
}

// GeneratedChapter 已生成正文的章节
type GeneratedChapter struct {
	Number  int    `json:"number"`
	Title   string `json:"title"`
	Summary string `json:"summary,omitempty"`
	Content string `json:"content"`
}

// GenerationResult 一次流水线运行的完整结果
type GenerationResult struct {
	BookID          string         `json:"book_id,omitempty"`
	Outline         *BookOutline   `json:"outline"`
	Chapter1Preview string         `json:"chapter_1_preview"`
	Listing         map[string]any `json:"amazon_listing"`
	CoverPrompt     string         `json:"cover_prompt"`
	ModelUsed       string         `json:"model_used"`

	FullChapters     []GeneratedChapter `json:"full_chapters,omitempty"`
	CoverImageBase64 string             `json:"cover_image_base64,omitempty"`
	CoverImageMime   string             `json:"cover_image_mime_type,omitempty"`
	AudiobookBase64  string             `json:"audiobook_base64,omitempty"`
	AudiobookMime    string             `json:"audiobook_mime_type,omitempty"`
	AudiobookChunks  int                `json:"audiobook_chunk_count,omitempty"`

	DocumentURL string `json:"document_url,omitempty"`
	EbookURL    string `json:"ebook_url,omitempty"`
	CoverURL    string `json:"cover_url,omitempty"`
	AudioURL    string `json:"audio_url,omitempty"`

	NotificationSent bool     `json:"notification_sent"`
	Notes            []string `json:"generation_notes"`
}

// AddNote 追加一条非致命失败说明
func (r *GenerationResult) AddNote(note string) {
	r.Notes = append(r.Notes, note)
}
