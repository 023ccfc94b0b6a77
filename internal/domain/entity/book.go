// Package entity 定义领域实体
package entity

import (
	"time"
)

// BookStatus 图书状态
type BookStatus string

const (
	BookStatusGenerating BookStatus = "generating"
	BookStatusReady      BookStatus = "ready"
	BookStatusFailed     BookStatus = "failed"
)

// ArtifactURLs 成品文件地址
type ArtifactURLs struct {
	Document string `json:"document_url,omitempty"`
	Ebook    string `json:"ebook_url,omitempty"`
	Cover    string `json:"cover_url,omitempty"`
	Audio    string `json:"audio_url,omitempty"`
}

// Book 图书记录
// 在任何生成服务商调用之前创建，成功或失败时各更新一次
type Book struct {
	ID          string     `json:"id" gorm:"primaryKey"`
	UserID      string     `json:"user_id" gorm:"index"`
	Title       string     `json:"title"`
	Genre       string     `json:"genre"`
	Plan        string     `json:"plan"`
	Status      BookStatus `json:"status"`
	DocumentURL string     `json:"document_url,omitempty"`
	EbookURL    string     `json:"ebook_url,omitempty"`
	CoverURL    string     `json:"cover_url,omitempty"`
	AudioURL    string     `json:"audio_url,omitempty"`
	ErrorMsg    string     `json:"error_message,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NewBook 创建生成中的图书记录
func NewBook(id, userID, genre, plan string) *Book {
	now := time.Now()
	return &Book{
		ID:        id,
		UserID:    userID,
		Title:     "Untitled",
		Genre:     genre,
		Plan:      plan,
		Status:    BookStatusGenerating,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// MarkReady 标记生成完成并记录成品地址
func (b *Book) MarkReady(title string, urls ArtifactURLs) {
	b.Title = title
	b.Status = BookStatusReady
	b.DocumentURL = urls.Document
	b.EbookURL = urls.Ebook
	b.CoverURL = urls.Cover
	b.AudioURL = urls.Audio
	b.UpdatedAt = time.Now()
}

// MarkFailed 标记生成失败
func (b *Book) MarkFailed(errMsg string) {
	b.Status = BookStatusFailed
	b.ErrorMsg = errMsg
	b.UpdatedAt = time.Now()
}
