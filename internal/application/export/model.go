// Package export 将规范图书模型编译为 PDF 与 EPUB 成品
package export

import (
	"strings"
)

// Chapter 规范模型中的章节
// Content 为空时渲染摘要占位文本
type Chapter struct {
	Number  int    `json:"number"`
	Title   string `json:"title"`
	Summary string `json:"summary,omitempty"`
	Content string `json:"content,omitempty"`
}

// BookModel 导出用规范图书模型，两种输出格式共享同一份结构
type BookModel struct {
	Title       string         `json:"title" binding:"required"`
	Subtitle    string         `json:"subtitle,omitempty"`
	Author      string         `json:"author,omitempty"`
	Genre       string         `json:"genre,omitempty"`
	Language    string         `json:"language,omitempty"`
	Description string         `json:"description,omitempty"`
	Chapters    []Chapter      `json:"chapters"`
	Listing     map[string]any `json:"listing,omitempty"`
}

// normalize 填充缺省字段
func (m *BookModel) normalize() {
	if m.Author == "" {
		m.Author = "BOOKFORGE AI"
	}
	if m.Language == "" {
		m.Language = "en"
	}
}

// sectionKind 章节区块类型
type sectionKind int

const (
	sectionIntro sectionKind = iota
	sectionChapter
)

// section 渲染区块，PDF 与 EPUB 共用同一份区块计划保证结构一致
type section struct {
	kind        sectionKind
	number      int
	title       string
	body        string
	placeholder bool
}

// sectionPlan 构建渲染区块计划：简介区块在前，章节按模型顺序排列
func sectionPlan(m *BookModel) []section {
	intro := m.Description
	if intro == "" {
		intro = "Generated with BOOKFORGE."
	}
	sections := []section{{kind: sectionIntro, title: "About This Book", body: intro}}

	for _, ch := range m.Chapters {
		body := ch.Content
		placeholder := false
		if body == "" {
			placeholder = true
			if ch.Summary != "" {
				body = "[Summary] " + ch.Summary
			} else {
				body = "No content available."
			}
		}
		sections = append(sections, section{
			kind:        sectionChapter,
			number:      ch.Number,
			title:       ch.Title,
			body:        body,
			placeholder: placeholder,
		})
	}
	return sections
}

// bodyParagraphs 按空行切分区块正文
func bodyParagraphs(body string) []string {
	var paras []string
	for _, p := range strings.Split(body, "\n\n") {
		p = strings.TrimSpace(p)
		if p != "" {
			paras = append(paras, p)
		}
	}
	if len(paras) == 0 {
		paras = []string{""}
	}
	return paras
}

// Slugify 将标题转换为文件名安全的 slug
func Slugify(title string) string {
	var b strings.Builder
	prevDash := true
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	slug := strings.Trim(b.String(), "-")
	if len(slug) > 80 {
		slug = strings.Trim(slug[:80], "-")
	}
	if slug == "" {
		return "bookforge-book"
	}
	return slug
}
