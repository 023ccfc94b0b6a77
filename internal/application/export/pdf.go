package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"

	"bookforge-api/pkg/errors"
)

// BuildPDF 将规范模型渲染为 A4 版式 PDF
// 首页为封面与简介，随后每个章节独占起始页
func BuildPDF(m *BookModel) ([]byte, error) {
	m.normalize()
	sections := sectionPlan(m)

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(m.Title, true)
	pdf.SetAuthor(m.Author, true)
	if m.Genre != "" {
		pdf.SetSubject(m.Genre, true)
	} else {
		pdf.SetSubject("Book", true)
	}
	pdf.SetMargins(30, 30, 30)
	pdf.SetAutoPageBreak(true, 30)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	// 封面页
	pdf.AddPage()
	pdf.Ln(30)
	pdf.SetFont("Helvetica", "B", 28)
	pdf.SetTextColor(0x1a, 0x1a, 0x2e)
	pdf.MultiCell(0, 12, tr(m.Title), "", "C", false)

	if m.Subtitle != "" {
		pdf.SetFont("Helvetica", "", 14)
		pdf.SetTextColor(0x44, 0x44, 0x66)
		pdf.MultiCell(0, 7, tr(m.Subtitle), "", "C", false)
	}

	pdf.Ln(10)
	drawRule(pdf, 0.6)
	pdf.Ln(6)

	if m.Genre != "" {
		pdf.SetFont("Helvetica", "", 8)
		pdf.SetTextColor(0xaa, 0xaa, 0xcc)
		pdf.MultiCell(0, 5, tr(strings.ToUpper(m.Genre)), "", "C", false)
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "I", 12)
	pdf.SetTextColor(0x66, 0x66, 0x88)
	pdf.MultiCell(0, 6, tr(m.Author), "", "C", false)

	// 简介区块渲染在封面页下半部
	intro := sections[0]
	pdf.Ln(30)
	drawRule(pdf, 0.8)
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(0xaa, 0xaa, 0xcc)
	pdf.MultiCell(0, 5, tr(strings.ToUpper(intro.title)), "", "C", false)
	pdf.Ln(3)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.SetTextColor(0x33, 0x33, 0x55)
	for _, para := range bodyParagraphs(intro.body) {
		pdf.MultiCell(0, 6, tr(para), "", "J", false)
		pdf.Ln(2)
	}

	// 章节页
	for _, sec := range sections[1:] {
		pdf.AddPage()
		pdf.SetFont("Helvetica", "", 10)
		pdf.SetTextColor(0x99, 0x99, 0xbb)
		pdf.MultiCell(0, 5, tr(fmt.Sprintf("CHAPTER %d", sec.number)), "", "L", false)

		pdf.SetFont("Helvetica", "B", 20)
		pdf.SetTextColor(0x1a, 0x1a, 0x2e)
		pdf.MultiCell(0, 10, tr(sec.title), "", "L", false)
		pdf.Ln(5)

		if sec.placeholder {
			pdf.SetFont("Helvetica", "I", 10)
			pdf.SetTextColor(0x33, 0x33, 0x55)
		} else {
			pdf.SetFont("Helvetica", "", 11)
			pdf.SetTextColor(0x1c, 0x1c, 0x1c)
		}
		for _, para := range bodyParagraphs(sec.body) {
			pdf.MultiCell(0, 7, tr(para), "", "J", false)
			pdf.Ln(2)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, errors.Wrap(err, errors.CodeCompileFailed, "PDF generation failed")
	}
	return buf.Bytes(), nil
}

// drawRule 绘制水平分隔线
func drawRule(pdf *fpdf.Fpdf, thickness float64) {
	pageWidth, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	usable := pageWidth - left - right
	y := pdf.GetY()
	pdf.SetLineWidth(thickness * 0.35)
	pdf.SetDrawColor(0xcc, 0xcc, 0xee)
	pdf.Line(left+usable*0.2, y, left+usable*0.8, y)
}
