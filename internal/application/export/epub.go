package export

import (
	"archive/zip"
	"bytes"
	"fmt"
	"html"
	"strings"

	"bookforge-api/pkg/errors"
)

const containerXML = `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>
`

const epubCSS = `body { font-family: Georgia, serif; line-height: 1.55; margin: 5%; }
h1 { font-size: 1.8em; margin-bottom: 0.4em; }
h2 { font-size: 1.2em; margin-bottom: 1.2em; color: #444; }
p { margin: 0 0 1em; text-align: justify; }
em { color: #666; }
`

// BuildEPUB 将规范模型打包为 EPUB 3.0 文件
// 简介文档排在书脊首位，章节文档按模型顺序排列
func BuildEPUB(m *BookModel) ([]byte, error) {
	m.normalize()
	sections := sectionPlan(m)

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	// mimetype 必须是首个条目且不压缩
	mimeWriter, err := w.CreateHeader(&zip.FileHeader{Name: "mimetype", Method: zip.Store})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeCompileFailed, "EPUB generation failed")
	}
	if _, err := mimeWriter.Write([]byte("application/epub+zip")); err != nil {
		return nil, errors.Wrap(err, errors.CodeCompileFailed, "EPUB generation failed")
	}

	files := []struct {
		name    string
		content string
	}{
		{"META-INF/container.xml", containerXML},
		{"OEBPS/content.opf", buildOPF(m, sections)},
		{"OEBPS/nav.xhtml", buildNav(m, sections)},
		{"OEBPS/style/nav.css", epubCSS},
		{"OEBPS/about.xhtml", buildIntroDoc(m, sections[0])},
	}
	for i, sec := range sections[1:] {
		files = append(files, struct {
			name    string
			content string
		}{sectionFileName(i + 1), buildChapterDoc(sec)})
	}

	for _, f := range files {
		fw, err := w.Create(f.name)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeCompileFailed, "EPUB generation failed")
		}
		if _, err := fw.Write([]byte(f.content)); err != nil {
			return nil, errors.Wrap(err, errors.CodeCompileFailed, "EPUB generation failed")
		}
	}

	if err := w.Close(); err != nil {
		return nil, errors.Wrap(err, errors.CodeCompileFailed, "EPUB generation failed")
	}
	return buf.Bytes(), nil
}

// sectionFileName 章节文档路径，序号从 1 开始
func sectionFileName(idx int) string {
	return fmt.Sprintf("OEBPS/chapter-%02d.xhtml", idx)
}

// buildOPF 构建包文档：元数据、清单与书脊
func buildOPF(m *BookModel, sections []section) string {
	var manifest, spine strings.Builder
	manifest.WriteString(`    <item id="nav" href="nav.xhtml" media-type="application/xhtml+xml" properties="nav"/>` + "\n")
	manifest.WriteString(`    <item id="css" href="style/nav.css" media-type="text/css"/>` + "\n")
	manifest.WriteString(`    <item id="about" href="about.xhtml" media-type="application/xhtml+xml"/>` + "\n")
	spine.WriteString(`    <itemref idref="about"/>` + "\n")
	for i := range sections[1:] {
		id := fmt.Sprintf("chapter-%02d", i+1)
		manifest.WriteString(fmt.Sprintf(`    <item id="%s" href="%s.xhtml" media-type="application/xhtml+xml"/>`+"\n", id, id))
		spine.WriteString(fmt.Sprintf(`    <itemref idref="%s"/>`+"\n", id))
	}

	subject := ""
	if m.Genre != "" {
		subject = fmt.Sprintf("    <dc:subject>%s</dc:subject>\n", html.EscapeString(m.Genre))
	}

	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0" unique-identifier="book-id">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:identifier id="book-id">bookforge-%s</dc:identifier>
    <dc:title>%s</dc:title>
    <dc:language>%s</dc:language>
    <dc:creator>%s</dc:creator>
%s  </metadata>
  <manifest>
%s  </manifest>
  <spine>
%s  </spine>
</package>
`,
		Slugify(m.Title),
		html.EscapeString(m.Title),
		html.EscapeString(m.Language),
		html.EscapeString(m.Author),
		subject,
		manifest.String(),
		spine.String(),
	)
}

// buildNav 构建 EPUB3 导航文档
func buildNav(m *BookModel, sections []section) string {
	var items strings.Builder
	items.WriteString(`      <li><a href="about.xhtml">About This Book</a></li>` + "\n")
	for i, sec := range sections[1:] {
		items.WriteString(fmt.Sprintf(`      <li><a href="chapter-%02d.xhtml">%s</a></li>`+"\n", i+1, html.EscapeString(sec.title)))
	}

	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml" xmlns:epub="http://www.idpf.org/2007/ops">
<head><title>%s</title><link rel="stylesheet" type="text/css" href="style/nav.css"/></head>
<body>
  <nav epub:type="toc">
    <h1>Contents</h1>
    <ol>
%s    </ol>
  </nav>
</body>
</html>
`, html.EscapeString(m.Title), items.String())
}

// buildIntroDoc 构建简介文档
func buildIntroDoc(m *BookModel, intro section) string {
	subtitle := ""
	if m.Subtitle != "" {
		subtitle = "<h2>" + html.EscapeString(m.Subtitle) + "</h2>\n  "
	}
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml">
<head><title>%s</title><link rel="stylesheet" type="text/css" href="style/nav.css"/></head>
<body>
  <h1>%s</h1>
  %s<p><em>%s</em></p>
  <hr/>
  %s
</body>
</html>
`,
		html.EscapeString(intro.title),
		html.EscapeString(m.Title),
		subtitle,
		html.EscapeString(m.Author),
		htmlParagraphs(intro.body),
	)
}

// buildChapterDoc 构建单章文档
func buildChapterDoc(sec section) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml">
<head><title>%s</title><link rel="stylesheet" type="text/css" href="style/nav.css"/></head>
<body>
  <h1>Chapter %d</h1>
  <h2>%s</h2>
  %s
</body>
</html>
`,
		html.EscapeString(sec.title),
		sec.number,
		html.EscapeString(sec.title),
		htmlParagraphs(sec.body),
	)
}

// htmlParagraphs 将正文段落转换为转义后的 <p> 块
func htmlParagraphs(body string) string {
	var b strings.Builder
	for _, para := range bodyParagraphs(body) {
		b.WriteString("<p>")
		b.WriteString(html.EscapeString(para))
		b.WriteString("</p>")
	}
	return b.String()
}
