package bookgen

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"bookforge-api/pkg/errors"
)

func TestChunkTextSingleChunk(t *testing.T) {
	text := "First paragraph.\n\nSecond paragraph."
	chunks := ChunkText(text, 100)
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	if chunks[0] != text {
		t.Errorf("chunk = %q", chunks[0])
	}
}

func TestChunkTextGreedyAccumulation(t *testing.T) {
	// 每段 10 字符，上限 25：两段加分隔符 22 字符装入一块，第三段溢出开新块
	p := strings.Repeat("a", 10)
	text := p + "\n\n" + p + "\n\n" + p
	chunks := ChunkText(text, 25)
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2: %q", len(chunks), chunks)
	}
	if chunks[0] != p+"\n\n"+p {
		t.Errorf("first chunk = %q", chunks[0])
	}
	if chunks[1] != p {
		t.Errorf("second chunk = %q", chunks[1])
	}
}

func TestChunkTextRespectsLimit(t *testing.T) {
	var paras []string
	for i := 0; i < 30; i++ {
		paras = append(paras, fmt.Sprintf("Paragraph %02d with a reasonable amount of narrative text in it.", i))
	}
	text := strings.Join(paras, "\n\n")

	chunks := ChunkText(text, 200)
	for i, c := range chunks {
		if n := utf8.RuneCountInString(c); n > 200 {
			t.Errorf("chunk %d exceeds limit: %d chars", i, n)
		}
	}
}

func TestChunkTextHardSplitsOversizedParagraph(t *testing.T) {
	long := strings.Repeat("x", 95)
	text := "intro\n\n" + long + "\n\noutro"
	chunks := ChunkText(text, 40)

	// 超限段被硬切为 40/40/15，前后段各自成块
	want := []string{"intro", strings.Repeat("x", 40), strings.Repeat("x", 40), strings.Repeat("x", 15), "outro"}
	if len(chunks) != len(want) {
		t.Fatalf("got %d chunks, want %d: %q", len(chunks), len(want), chunks)
	}
	for i := range want {
		if chunks[i] != want[i] {
			t.Errorf("chunk %d = %q, want %q", i, chunks[i], want[i])
		}
	}
}

func TestChunkTextHardSplitKeepsRuneBoundaries(t *testing.T) {
	long := strings.Repeat("海", 120)
	chunks := ChunkText(long, 50)

	want := []string{strings.Repeat("海", 50), strings.Repeat("海", 50), strings.Repeat("海", 20)}
	if len(chunks) != len(want) {
		t.Fatalf("got %d chunks, want %d: %q", len(chunks), len(want), chunks)
	}
	for i := range want {
		if !utf8.ValidString(chunks[i]) {
			t.Errorf("chunk %d is not valid UTF-8: %q", i, chunks[i])
		}
		if chunks[i] != want[i] {
			t.Errorf("chunk %d = %q, want %q", i, chunks[i], want[i])
		}
	}
	if strings.Join(chunks, "") != long {
		t.Error("concatenated chunks do not reassemble the paragraph")
	}
}

func TestChunkTextCountsCharactersNotBytes(t *testing.T) {
	// 40 个三字节字符共 120 字节，上限 50 字符：整段放入单块，不触发硬切
	text := strings.Repeat("海", 40)
	chunks := ChunkText(text, 50)
	if len(chunks) != 1 || chunks[0] != text {
		t.Fatalf("chunks = %q, want the paragraph intact", chunks)
	}
}

func TestChunkTextReassembly(t *testing.T) {
	text := "Alpha paragraph.\n\n\nBeta paragraph.\n\nGamma paragraph with more words than the others.\n\nDelta."
	chunks := ChunkText(text, 50)

	joined := strings.Join(chunks, "\n\n")
	normalize := func(s string) string {
		return strings.Join(splitParagraphs(s), "\n\n")
	}
	if normalize(joined) != normalize(text) {
		t.Errorf("reassembled text differs:\n got %q\nwant %q", normalize(joined), normalize(text))
	}
}

func TestChunkTextEmpty(t *testing.T) {
	if chunks := ChunkText("", 100); len(chunks) != 0 {
		t.Errorf("got %d chunks for empty text", len(chunks))
	}
	if chunks := ChunkText("\n\n\n\n", 100); len(chunks) != 0 {
		t.Errorf("got %d chunks for whitespace text", len(chunks))
	}
}

// fakeSpeech 按块记录输入并返回可辨识的音频片段
type fakeSpeech struct {
	calls  []string
	voices []string
	failAt int // 第 N 次调用失败（1 起），0 表示不失败
	mime   string
}

func (f *fakeSpeech) Synthesize(_ context.Context, text, voiceID string) ([]byte, string, error) {
	f.calls = append(f.calls, text)
	f.voices = append(f.voices, voiceID)
	if f.failAt > 0 && len(f.calls) == f.failAt {
		return nil, "", errors.New(errors.CodeProviderError, "voice provider unavailable")
	}
	mime := f.mime
	if mime == "" {
		mime = "audio/mpeg"
	}
	return []byte(fmt.Sprintf("<%d>", len(f.calls))), mime, nil
}

func TestSynthesizeConcatenatesInChunkOrder(t *testing.T) {
	speech := &fakeSpeech{}
	synth := NewAudiobookSynthesizer(speech, 30)

	text := strings.Repeat("a", 25) + "\n\n" + strings.Repeat("b", 25) + "\n\n" + strings.Repeat("c", 25)
	res, err := synth.Synthesize(context.Background(), text, "voice-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Chunks != 3 {
		t.Errorf("chunks = %d, want 3", res.Chunks)
	}
	if got := string(res.Audio); got != "<1><2><3>" {
		t.Errorf("audio = %q, want concatenation in chunk order", got)
	}
	if res.MimeType != "audio/mpeg" {
		t.Errorf("mime = %q", res.MimeType)
	}
	for _, v := range speech.voices {
		if v != "voice-1" {
			t.Errorf("voice = %q", v)
		}
	}
}

func TestSynthesizeChunkFailureAborts(t *testing.T) {
	speech := &fakeSpeech{failAt: 2}
	synth := NewAudiobookSynthesizer(speech, 30)

	text := strings.Repeat("a", 25) + "\n\n" + strings.Repeat("b", 25) + "\n\n" + strings.Repeat("c", 25)
	_, err := synth.Synthesize(context.Background(), text, "")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.IsCode(err, errors.CodeAudioSynthFailed) {
		t.Errorf("expected CodeAudioSynthFailed, got %v", err)
	}
	// 失败后不再继续合成后续块
	if len(speech.calls) != 2 {
		t.Errorf("calls = %d, want 2", len(speech.calls))
	}
}

func TestSynthesizeEmptyText(t *testing.T) {
	synth := NewAudiobookSynthesizer(&fakeSpeech{}, 0)
	_, err := synth.Synthesize(context.Background(), "   \n\n  ", "")
	if err == nil {
		t.Fatal("expected error for empty text")
	}
	if !errors.IsCode(err, errors.CodeInvalidParam) {
		t.Errorf("expected CodeInvalidParam, got %v", err)
	}
}

func TestBuildAudiobookScript(t *testing.T) {
	outline := &BookOutline{Title: "Tides", Tagline: "The sea remembers."}

	t.Run("chapter one only", func(t *testing.T) {
		got := BuildAudiobookScript(outline, "It began at dawn.", nil)
		want := "Tides. The sea remembers.\n\nIt began at dawn."
		if got != want {
			t.Errorf("script = %q, want %q", got, want)
		}
	})

	t.Run("full chapters joined", func(t *testing.T) {
		chapters := []GeneratedChapter{
			{Number: 1, Content: "One."},
			{Number: 2, Content: ""},
			{Number: 3, Content: "Three."},
		}
		got := BuildAudiobookScript(outline, "ignored", chapters)
		want := "Tides. The sea remembers.\n\nOne.\n\nThree."
		if got != want {
			t.Errorf("script = %q, want %q", got, want)
		}
	})
}
