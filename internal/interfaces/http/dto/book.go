package dto

import (
	"time"

	"bookforge-api/internal/application/plan"
	"bookforge-api/internal/domain/entity"
)

// CoverRequest 封面生成请求
type CoverRequest struct {
	Prompt string    `json:"prompt" binding:"required"`
	Plan   plan.Tier `json:"plan,omitempty"`
}

// CoverResponse 封面生成结果
type CoverResponse struct {
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// AudiobookRequest 有声书试听请求
type AudiobookRequest struct {
	Title   string    `json:"title,omitempty"`
	Text    string    `json:"text" binding:"required"`
	Plan    plan.Tier `json:"plan,omitempty"`
	VoiceID string    `json:"voice_id,omitempty"`
}

// JobAccepted 异步任务受理响应
type JobAccepted struct {
	JobID    string `json:"job_id"`
	Status   string `json:"status"`
	Progress int    `json:"progress"`
	Step     string `json:"step"`
}

// NewJobAccepted 从任务记录构建受理响应
func NewJobAccepted(job *entity.GenerationJob) JobAccepted {
	return JobAccepted{
		JobID:    job.ID,
		Status:   string(job.Status),
		Progress: job.Progress,
		Step:     job.Step,
	}
}

// BookSummary 图书列表项
type BookSummary struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Genre       string    `json:"genre"`
	Plan        string    `json:"plan"`
	Status      string    `json:"status"`
	DocumentURL string    `json:"document_url,omitempty"`
	EbookURL    string    `json:"ebook_url,omitempty"`
	CoverURL    string    `json:"cover_url,omitempty"`
	AudioURL    string    `json:"audio_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewBookSummaries 从图书记录构建列表响应
func NewBookSummaries(books []*entity.Book) []BookSummary {
	out := make([]BookSummary, 0, len(books))
	for _, b := range books {
		out = append(out, BookSummary{
			ID:          b.ID,
			Title:       b.Title,
			Genre:       b.Genre,
			Plan:        b.Plan,
			Status:      string(b.Status),
			DocumentURL: b.DocumentURL,
			EbookURL:    b.EbookURL,
			CoverURL:    b.CoverURL,
			AudioURL:    b.AudioURL,
			CreatedAt:   b.CreatedAt,
		})
	}
	return out
}
