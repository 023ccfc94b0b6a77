package export

import (
	"archive/zip"
	"bytes"
	"io"
	"regexp"
	"strings"
	"testing"
)

func sampleModel() *BookModel {
	return &BookModel{
		Title:       "The Glass Harbor",
		Subtitle:    "A Novel",
		Author:      "J. Mercer",
		Genre:       "mystery",
		Language:    "en",
		Description: "A town with a secret.\n\nA detective with a past.",
		Chapters: []Chapter{
			{Number: 1, Title: "Arrival", Content: "The ferry cut through fog.\n\nNobody met her at the dock."},
			{Number: 2, Title: "The Lighthouse", Summary: "She finds the first clue."},
			{Number: 3, Title: "Undertow", Summary: "The past resurfaces."},
		},
	}
}

func TestSectionPlan(t *testing.T) {
	m := sampleModel()
	sections := sectionPlan(m)

	if len(sections) != 4 {
		t.Fatalf("sections = %d, want intro + 3 chapters", len(sections))
	}
	if sections[0].kind != sectionIntro || sections[0].title != "About This Book" {
		t.Errorf("first section = %+v, want intro", sections[0])
	}
	if sections[1].placeholder {
		t.Error("chapter with content marked placeholder")
	}
	if !sections[2].placeholder || !strings.HasPrefix(sections[2].body, "[Summary] ") {
		t.Errorf("summary chapter body = %q", sections[2].body)
	}
	for i, sec := range sections[1:] {
		if sec.number != i+1 {
			t.Errorf("section %d has chapter number %d", i+1, sec.number)
		}
	}
}

func TestSectionPlanEmptyChapter(t *testing.T) {
	m := &BookModel{Title: "T", Chapters: []Chapter{{Number: 1, Title: "One"}}}
	sections := sectionPlan(m)
	if sections[1].body != "No content available." {
		t.Errorf("body = %q", sections[1].body)
	}
}

func TestBuildPDF(t *testing.T) {
	pdf, err := BuildPDF(sampleModel())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Errorf("output does not start with PDF header: %q", pdf[:8])
	}
	if len(pdf) < 1000 {
		t.Errorf("suspiciously small PDF: %d bytes", len(pdf))
	}
}

// readEPUB 解包 EPUB 并返回条目名顺序与内容
func readEPUB(t *testing.T, data []byte) ([]string, map[string]string) {
	t.Helper()
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("not a valid zip: %v", err)
	}
	var names []string
	contents := map[string]string{}
	for _, f := range r.File {
		names = append(names, f.Name)
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", f.Name, err)
		}
		b, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("read %s: %v", f.Name, err)
		}
		contents[f.Name] = string(b)
	}
	return names, contents
}

func TestBuildEPUB(t *testing.T) {
	data, err := BuildEPUB(sampleModel())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	names, contents := readEPUB(t, data)

	// OCF 容器要求 mimetype 为首个不压缩条目
	if names[0] != "mimetype" {
		t.Fatalf("first entry = %q, want mimetype", names[0])
	}
	if contents["mimetype"] != "application/epub+zip" {
		t.Errorf("mimetype = %q", contents["mimetype"])
	}
	r, _ := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if r.File[0].Method != zip.Store {
		t.Error("mimetype entry is compressed")
	}

	if _, ok := contents["META-INF/container.xml"]; !ok {
		t.Error("missing container.xml")
	}

	opf := contents["OEBPS/content.opf"]
	for _, want := range []string{
		"<dc:title>The Glass Harbor</dc:title>",
		"<dc:language>en</dc:language>",
		"<dc:creator>J. Mercer</dc:creator>",
		"<dc:subject>mystery</dc:subject>",
	} {
		if !strings.Contains(opf, want) {
			t.Errorf("opf missing %q", want)
		}
	}

	// 书脊：简介在前，章节按模型顺序
	spineRe := regexp.MustCompile(`<itemref idref="([^"]+)"/>`)
	var spine []string
	for _, m := range spineRe.FindAllStringSubmatch(opf, -1) {
		spine = append(spine, m[1])
	}
	wantSpine := []string{"about", "chapter-01", "chapter-02", "chapter-03"}
	if len(spine) != len(wantSpine) {
		t.Fatalf("spine = %v, want %v", spine, wantSpine)
	}
	for i := range wantSpine {
		if spine[i] != wantSpine[i] {
			t.Errorf("spine[%d] = %q, want %q", i, spine[i], wantSpine[i])
		}
	}

	if !strings.Contains(contents["OEBPS/chapter-01.xhtml"], "The ferry cut through fog.") {
		t.Error("chapter 1 content missing")
	}
	if !strings.Contains(contents["OEBPS/chapter-02.xhtml"], "[Summary] She finds the first clue.") {
		t.Error("chapter 2 placeholder missing")
	}
	if !strings.Contains(contents["OEBPS/nav.xhtml"], `<a href="chapter-03.xhtml">Undertow</a>`) {
		t.Error("nav missing chapter 3 entry")
	}
}

func TestBuildEPUBEscapesMarkup(t *testing.T) {
	m := &BookModel{
		Title:    "Tom & Jerry <Unabridged>",
		Chapters: []Chapter{{Number: 1, Title: "A <b>Chapter</b>", Content: "1 < 2 & 3 > 2"}},
	}
	data, err := BuildEPUB(m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, contents := readEPUB(t, data)
	if !strings.Contains(contents["OEBPS/content.opf"], "Tom &amp; Jerry &lt;Unabridged&gt;") {
		t.Error("title not escaped in opf")
	}
	if !strings.Contains(contents["OEBPS/chapter-01.xhtml"], "1 &lt; 2 &amp; 3 &gt; 2") {
		t.Error("body not escaped")
	}
}

func TestCompileFormatsStayConsistent(t *testing.T) {
	// 两种格式共享同一份区块计划：章节数量与顺序一致
	c := NewCompiler()
	m := sampleModel()

	first, err := c.Compile(m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := c.Compile(m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if first.Sections != 4 || second.Sections != first.Sections {
		t.Errorf("sections = %d/%d, want 4", first.Sections, second.Sections)
	}
	if !bytes.Equal(first.EPUB, second.EPUB) {
		// EPUB 打包不含时间戳字段以外的可变内容，条目集合必须一致
		firstNames, _ := readEPUB(t, first.EPUB)
		secondNames, _ := readEPUB(t, second.EPUB)
		if strings.Join(firstNames, ",") != strings.Join(secondNames, ",") {
			t.Errorf("epub entries differ: %v vs %v", firstNames, secondNames)
		}
	}
}

func TestCompileRequiresTitle(t *testing.T) {
	_, err := NewCompiler().Compile(&BookModel{})
	if err == nil {
		t.Fatal("expected error for missing title")
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"The Glass Harbor", "the-glass-harbor"},
		{"  Spaces  &  Symbols!  ", "spaces-symbols"},
		{"Ünïcödé Títle", "n-c-d-t-tle"},
		{"", "bookforge-book"},
		{"!!!", "bookforge-book"},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
