package dto

import (
	"bookforge-api/internal/application/export"
)

// ExportChapter 导出请求中的章节
type ExportChapter struct {
	Number  int    `json:"number"`
	Title   string `json:"title"`
	Summary string `json:"summary,omitempty"`
	Content string `json:"content,omitempty"`
}

// ExportRequest 文档导出请求
// 携带完整图书内容，可独立于生成流水线使用
type ExportRequest struct {
	Title       string          `json:"title" binding:"required"`
	Subtitle    string          `json:"subtitle,omitempty"`
	Author      string          `json:"author,omitempty"`
	Genre       string          `json:"genre,omitempty"`
	Language    string          `json:"language,omitempty"`
	Description string          `json:"description,omitempty"`
	Chapters    []ExportChapter `json:"chapters,omitempty"`
}

// ToModel 转换为导出模型
func (r *ExportRequest) ToModel() *export.BookModel {
	m := &export.BookModel{
		Title:       r.Title,
		Subtitle:    r.Subtitle,
		Author:      r.Author,
		Genre:       r.Genre,
		Language:    r.Language,
		Description: r.Description,
	}
	for _, ch := range r.Chapters {
		m.Chapters = append(m.Chapters, export.Chapter{
			Number:  ch.Number,
			Title:   ch.Title,
			Summary: ch.Summary,
			Content: ch.Content,
		})
	}
	return m
}
