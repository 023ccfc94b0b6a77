package bookgen

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"bookforge-api/pkg/errors"
)

// fakeTextProvider 记录提示词并按脚本返回补全结果
type fakeTextProvider struct {
	label     string
	prompts   []string
	responses []string // 按调用次序消费，耗尽后重复最后一个
	err       error
	errAt     int // 第 N 次调用失败（1 起），0 表示按 err 全部失败
}

func (f *fakeTextProvider) Complete(_ context.Context, prompt string, _ int) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.errAt > 0 {
		if len(f.prompts) == f.errAt {
			return "", f.err
		}
	} else if f.err != nil {
		return "", f.err
	}
	if len(f.responses) == 0 {
		return "", nil
	}
	idx := len(f.prompts) - 1
	if idx >= len(f.responses) {
		idx = len(f.responses) - 1
	}
	return f.responses[idx], nil
}

func (f *fakeTextProvider) Label() string { return f.label }

func outlineJSON(title string, chapterCount int) string {
	var chapters []string
	for i := 1; i <= chapterCount; i++ {
		chapters = append(chapters, fmt.Sprintf(`{"number":%d,"title":"Chapter %d","summary":"Summary %d."}`, i, i, i))
	}
	return fmt.Sprintf(`{"title":%q,"tagline":"A tagline.","back_cover_description":"A description.","chapters":[%s],"amazon_keywords":["k1","k2"]}`,
		title, strings.Join(chapters, ","))
}

func newTestSteps(p *fakeTextProvider) *StepLibrary {
	return NewStepLibrary(map[string]TextProvider{ProviderClaude: p})
}

func baseRequest() *BookRequest {
	req := &BookRequest{Genre: "romance"}
	req.Normalize()
	return req
}

func TestGenerateOutline(t *testing.T) {
	provider := &fakeTextProvider{
		label:     "Claude Opus 4.6",
		responses: []string{"Here is your outline:\n" + outlineJSON("Ocean Hearts", 3)},
	}
	steps := newTestSteps(provider)

	outline, err := steps.GenerateOutline(context.Background(), baseRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outline.Title != "Ocean Hearts" {
		t.Errorf("title = %q", outline.Title)
	}
	if len(outline.Chapters) != 3 {
		t.Fatalf("chapters = %d, want 3", len(outline.Chapters))
	}
	for i, ch := range outline.Chapters {
		if ch.Number != i+1 {
			t.Errorf("chapter %d has number %d", i, ch.Number)
		}
	}
	if !strings.Contains(provider.prompts[0], "Genre: romance / general") {
		t.Errorf("outline prompt missing genre line:\n%s", provider.prompts[0])
	}
}

func TestGenerateOutlineNormalizesChapterNumbers(t *testing.T) {
	raw := `{"title":"T","tagline":"x","back_cover_description":"d","chapters":[{"number":0,"title":"A","summary":"s"},{"number":0,"title":"B","summary":"s"},{"number":7,"title":"C","summary":"s"}]}`
	steps := newTestSteps(&fakeTextProvider{responses: []string{raw}})

	outline, err := steps.GenerateOutline(context.Background(), baseRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, ch := range outline.Chapters {
		if ch.Number != i+1 {
			t.Errorf("chapter %d renumbered to %d, want %d", i, ch.Number, i+1)
		}
	}
}

func TestGenerateOutlineMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "prose only", raw: "I am unable to produce an outline today."},
		{name: "missing title", raw: `{"tagline":"x","chapters":[]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			steps := newTestSteps(&fakeTextProvider{responses: []string{tt.raw}})
			_, err := steps.GenerateOutline(context.Background(), baseRequest())
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.IsCode(err, errors.CodeMalformedOutput) {
				t.Errorf("expected CodeMalformedOutput, got %v", err)
			}
		})
	}
}

func TestGenerateOutlineProviderError(t *testing.T) {
	steps := newTestSteps(&fakeTextProvider{err: fmt.Errorf("rate limited")})
	_, err := steps.GenerateOutline(context.Background(), baseRequest())
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.IsCode(err, errors.CodeProviderError) {
		t.Errorf("expected CodeProviderError, got %v", err)
	}
}

func TestCallAIUnknownProvider(t *testing.T) {
	steps := newTestSteps(&fakeTextProvider{})
	_, err := steps.CallAI(context.Background(), "p", "mistral", 100)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.IsCode(err, errors.CodeInvalidParam) {
		t.Errorf("expected CodeInvalidParam, got %v", err)
	}
}

func TestWriteFullBookChapters(t *testing.T) {
	chapter1 := strings.Repeat("First chapter prose. ", 100)
	provider := &fakeTextProvider{responses: []string{"Chapter two prose.", "Chapter three prose."}}
	steps := newTestSteps(provider)

	outline := &BookOutline{Title: "T", Tagline: "x"}
	for i := 1; i <= 3; i++ {
		outline.Chapters = append(outline.Chapters, ChapterStub{Number: i, Title: fmt.Sprintf("Chapter %d", i), Summary: "s"})
	}

	chapters, err := steps.WriteFullBookChapters(context.Background(), outline, baseRequest(), chapter1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chapters) != 3 {
		t.Fatalf("chapters = %d, want 3", len(chapters))
	}
	// 第一章复用已生成文本，不触发补全调用
	if chapters[0].Content != chapter1 {
		t.Error("chapter 1 content not reused")
	}
	if len(provider.prompts) != 2 {
		t.Fatalf("provider calls = %d, want 2", len(provider.prompts))
	}

	// 第二章提示词携带第一章尾部 1200 字符摘录
	excerpt := tailRunes(chapter1, continuityExcerptRunes)
	if !strings.Contains(provider.prompts[0], excerpt) {
		t.Error("chapter 2 prompt missing continuity excerpt from chapter 1")
	}
	// 第三章摘录来自第二章内容
	if !strings.Contains(provider.prompts[1], "Chapter two prose.") {
		t.Error("chapter 3 prompt missing continuity excerpt from chapter 2")
	}
}

func TestWriteFullBookChaptersEmptyOutline(t *testing.T) {
	steps := newTestSteps(&fakeTextProvider{})
	chapters, err := steps.WriteFullBookChapters(context.Background(), &BookOutline{Title: "T"}, baseRequest(), "only text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chapters) != 1 || chapters[0].Number != 1 || chapters[0].Content != "only text" {
		t.Errorf("chapters = %+v", chapters)
	}
}

func TestWriteFullBookChaptersMidFailure(t *testing.T) {
	provider := &fakeTextProvider{
		responses: []string{"two"},
		err:       fmt.Errorf("timeout"),
		errAt:     2,
	}
	steps := newTestSteps(provider)

	outline := &BookOutline{Title: "T"}
	for i := 1; i <= 3; i++ {
		outline.Chapters = append(outline.Chapters, ChapterStub{Number: i, Title: fmt.Sprintf("Chapter %d", i)})
	}

	_, err := steps.WriteFullBookChapters(context.Background(), outline, baseRequest(), "one")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.IsCode(err, errors.CodeProviderError) {
		t.Errorf("expected CodeProviderError, got %v", err)
	}
}

func TestGenerateListingDegradesToEmpty(t *testing.T) {
	tests := []struct {
		name     string
		provider *fakeTextProvider
	}{
		{name: "provider failure", provider: &fakeTextProvider{err: fmt.Errorf("down")}},
		{name: "unparseable output", provider: &fakeTextProvider{responses: []string{"no json here"}}},
	}
	outline := &BookOutline{Title: "T", BackCoverDescription: "d", Keywords: []string{"k"}}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			steps := newTestSteps(tt.provider)
			listing := steps.GenerateListing(context.Background(), outline, baseRequest())
			if listing == nil {
				t.Fatal("listing is nil, want empty map")
			}
			if len(listing) != 0 {
				t.Errorf("listing = %v, want empty", listing)
			}
		})
	}
}

func TestGenerateListingParsesOutput(t *testing.T) {
	steps := newTestSteps(&fakeTextProvider{responses: []string{`{"title":"KDP Title","price_ebook":3.99}`}})
	listing := steps.GenerateListing(context.Background(), &BookOutline{Title: "T"}, baseRequest())
	if listing["title"] != "KDP Title" {
		t.Errorf("listing = %v", listing)
	}
}

func TestCoverPrompt(t *testing.T) {
	outline := &BookOutline{Title: "Shadow Lane", Tagline: "Nothing stays buried."}

	tests := []struct {
		name      string
		genre     string
		wantStyle string
	}{
		{name: "known genre", genre: "thriller", wantStyle: "dark atmosphere, silhouette, urban background, suspenseful mood"},
		{name: "case insensitive", genre: "Mystery", wantStyle: "dark moody atmosphere, shadows, vintage aesthetic"},
		{name: "unknown genre falls back", genre: "cookbook", wantStyle: defaultCoverStyle},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &BookRequest{Genre: tt.genre}
			req.Normalize()
			prompt := CoverPrompt(outline, req)
			if !strings.Contains(prompt, "Style reference: "+tt.wantStyle) {
				t.Errorf("prompt missing style %q:\n%s", tt.wantStyle, prompt)
			}
			if !strings.Contains(prompt, `"Shadow Lane"`) {
				t.Error("prompt missing title")
			}
		})
	}
}

func TestTailRunes(t *testing.T) {
	if got := tailRunes("hello", 10); got != "hello" {
		t.Errorf("got %q", got)
	}
	if got := tailRunes("hello", 3); got != "llo" {
		t.Errorf("got %q", got)
	}
	// 多字节字符按字符数而非字节数截取
	if got := tailRunes("héllo wörld", 5); got != "wörld" {
		t.Errorf("got %q", got)
	}
}
