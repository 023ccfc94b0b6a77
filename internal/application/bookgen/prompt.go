package bookgen

import (
	"fmt"
	"strings"
)

// genreCoverStyles 封面风格查找表，键为小写类型名
var genreCoverStyles = map[string]string{
	"romance":   "romantic couple, soft lighting, warm colors, elegant typography",
	"thriller":  "dark atmosphere, silhouette, urban background, suspenseful mood",
	"fantasy":   "magical landscape, vibrant colors, epic scale, mystical elements",
	"self-help": "clean minimalist design, bold typography, inspiring imagery",
	"children":  "bright colors, cute illustration style, playful characters",
	"mystery":   "dark moody atmosphere, shadows, vintage aesthetic",
}

const defaultCoverStyle = "professional book cover, high quality"

// outlinePrompt 构建大纲生成提示词
func outlinePrompt(req *BookRequest) string {
	subgenre := req.Subgenre
	if subgenre == "" {
		subgenre = "general"
	}
	keywords := "none specified"
	if len(req.Keywords) > 0 {
		keywords = strings.Join(req.Keywords, ", ")
	}

	return fmt.Sprintf(`You are a bestselling author and Amazon KDP expert.

Create a complete, commercially optimized book outline for:
- Genre: %s / %s
- Target audience: %s
- Length: ~%d pages
- Tone: %s
- Target keywords: %s
- Language: %s

The outline must be designed to SELL on Amazon. Study what makes bestsellers work.
The "chapters" array must include enough entries for the target length:
- Fiction: usually 20-25 chapters
- Non-fiction: usually 10-15 chapters

Return JSON with this exact structure:
{
  "title": "Compelling, SEO-optimized title",
  "subtitle": "Optional subtitle that adds value and keywords",
  "tagline": "One powerful sentence that makes people want to read",
  "back_cover_description": "150-word compelling description that sells the book. Use emotional hooks, raise questions, end with a call-to-read.",
  "chapters": [
    {"number": 1, "title": "Chapter title", "summary": "What happens/is taught in 2-3 sentences"}
  ],
  "protagonist": {"name": "Character name", "age": "30s", "core_conflict": "What they want vs what they fear"},
  "themes": ["Theme 1", "Theme 2"],
  "amazon_categories": ["Kindle Store > Kindle eBooks > Romance > Paranormal"],
  "amazon_keywords": ["7 specific keywords for Amazon search"]
}`,
		req.Genre, subgenre, req.Audience, req.PageCount, req.Tone, keywords, req.Language)
}

// firstChapterPrompt 构建第一章生成提示词
func firstChapterPrompt(outline *BookOutline, req *BookRequest) string {
	ch1 := ChapterStub{Number: 1, Title: "Chapter 1"}
	if len(outline.Chapters) > 0 {
		ch1 = outline.Chapters[0]
	}

	return fmt.Sprintf(`You are a bestselling %s author. Write Chapter 1 of this book.

Book: "%s"
Tagline: %s
Chapter 1: "%s"
What should happen: %s
Tone: %s
Target reader: %s

CRITICAL RULES:
1. Hook the reader in the FIRST SENTENCE
2. Introduce conflict/tension quickly
3. Show character voice through action and dialogue
4. End with a hook into Chapter 2
5. Avoid generic AI phrasing
6. Target length: 2,500-3,500 words

Write the full chapter now:`,
		req.Genre, outline.Title, outline.Tagline, ch1.Title, ch1.Summary, req.Tone, req.Audience)
}

// continuationChapterPrompt 构建后续章节提示词，携带上一章尾部摘录保证连贯
func continuationChapterPrompt(outline *BookOutline, req *BookRequest, stub ChapterStub, previousExcerpt string) string {
	subgenre := req.Subgenre
	if subgenre == "" {
		subgenre = "general"
	}

	return fmt.Sprintf(`Write a complete chapter for this book.

Book title: %s
Genre: %s / %s
Tone: %s
Target audience: %s

Current chapter number: %d
Current chapter title: %s
Current chapter objective: %s

Previous chapter excerpt (for continuity):
%s

Rules:
1. Keep continuity with prior chapter events and tone.
2. Advance plot or knowledge clearly.
3. End with forward momentum.
4. Write 900-1,400 words.
5. Natural prose only, no meta comments.

Write the full chapter content now:`,
		outline.Title, req.Genre, subgenre, req.Tone, req.Audience,
		stub.Number, stub.Title, stub.Summary, previousExcerpt)
}

// listingPrompt 构建 Amazon 商品信息提示词
func listingPrompt(outline *BookOutline, req *BookRequest) string {
	return fmt.Sprintf(`Create a complete Amazon KDP listing for:
Title: %s
Genre: %s
Description: %s
Keywords: %s

Return JSON:
{
  "title": "Exact title for KDP",
  "subtitle": "Subtitle if applicable",
  "description_html": "Full description with <b>bold</b> and <br> tags for Amazon formatting, 400-600 words",
  "keywords": ["keyword1", "keyword7"],
  "categories": ["Primary category path", "Secondary category path"],
  "price_ebook": 3.99,
  "price_paperback": 14.99,
  "age_range": "18+",
  "series_info": null
}`,
		outline.Title, req.Genre, outline.BackCoverDescription, strings.Join(outline.Keywords, ", "))
}

// CoverPrompt 根据大纲与请求构建封面图提示词
// 风格按类型小写匹配查找表，未命中使用通用风格
func CoverPrompt(outline *BookOutline, req *BookRequest) string {
	style, ok := genreCoverStyles[strings.ToLower(req.Genre)]
	if !ok {
		style = defaultCoverStyle
	}

	return fmt.Sprintf(`Create a professional 6:9 book cover for "%s".
Style reference: %s
Mood hook: %s
Audience: %s
Requirements: Bestseller-ready composition, title-safe spacing at top, author-safe spacing at bottom,
high contrast focal point, print-quality detail.`,
		outline.Title, style, outline.Tagline, req.Audience)
}
