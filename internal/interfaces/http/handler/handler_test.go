package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"bookforge-api/internal/application/bookgen"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeCover struct {
	err error
}

func (f *fakeCover) Render(_ context.Context, _ string) (string, string, error) {
	if f.err != nil {
		return "", "", f.err
	}
	return "aW1hZ2U=", "image/png", nil
}

type fakeSpeech struct{}

func (f *fakeSpeech) Synthesize(_ context.Context, _ string, _ string) ([]byte, string, error) {
	return []byte("audio-bytes"), "audio/mpeg", nil
}

// newTestRouter 以固定身份挂载图书与导出路由
func newTestRouter(userID string) *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if userID != "" {
			c.Set("user_id", userID)
		}
		c.Next()
	})

	books := NewBookHandler(nil, nil, nil, &fakeCover{}, bookgen.NewAudiobookSynthesizer(&fakeSpeech{}, 100), nil)
	exports := NewExportHandler()

	r.POST("/v1/books/cover", books.Cover)
	r.POST("/v1/books/audiobook", books.Audiobook)
	r.POST("/v1/export/pdf", exports.PDF)
	r.POST("/v1/export/epub", exports.EPUB)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCoverRequiresAuthentication(t *testing.T) {
	r := newTestRouter("")
	w := doJSON(t, r, "/v1/books/cover", `{"prompt":"a lighthouse","plan":"pro"}`)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestCoverPlanGate(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"starter denied", `{"prompt":"a lighthouse"}`, http.StatusForbidden},
		{"explicit starter denied", `{"prompt":"a lighthouse","plan":"starter"}`, http.StatusForbidden},
		{"pro allowed", `{"prompt":"a lighthouse","plan":"pro"}`, http.StatusOK},
		{"enterprise allowed", `{"prompt":"a lighthouse","plan":"enterprise"}`, http.StatusOK},
		{"missing prompt", `{"plan":"pro"}`, http.StatusBadRequest},
	}

	r := newTestRouter("user-1")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, r, "/v1/books/cover", tt.body)
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d; body = %s", w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}
}

func TestCoverResponsePayload(t *testing.T) {
	r := newTestRouter("user-1")
	w := doJSON(t, r, "/v1/books/cover", `{"prompt":"a lighthouse","plan":"pro"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var resp struct {
		Data struct {
			ImageBase64 string `json:"image_base64"`
			MimeType    string `json:"mime_type"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Data.ImageBase64 != "aW1hZ2U=" || resp.Data.MimeType != "image/png" {
		t.Errorf("data = %+v", resp.Data)
	}
}

func TestAudiobookEnterpriseOnly(t *testing.T) {
	r := newTestRouter("user-1")

	w := doJSON(t, r, "/v1/books/audiobook", `{"title":"My Book","text":"hello world","plan":"pro"}`)
	if w.Code != http.StatusForbidden {
		t.Errorf("pro plan status = %d, want 403", w.Code)
	}

	w = doJSON(t, r, "/v1/books/audiobook", `{"title":"My Book","text":"hello world","plan":"enterprise"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("enterprise status = %d; body = %s", w.Code, w.Body.String())
	}
	if got := w.Header().Get("Content-Type"); got != "audio/mpeg" {
		t.Errorf("content type = %q", got)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "my-book.mp3") {
		t.Errorf("content disposition = %q", cd)
	}
	if w.Header().Get("X-Audio-Chunks") != "1" {
		t.Errorf("chunk header = %q", w.Header().Get("X-Audio-Chunks"))
	}
	if w.Body.String() != "audio-bytes" {
		t.Errorf("body = %q", w.Body.String())
	}
}

func TestExportPDF(t *testing.T) {
	r := newTestRouter("user-1")
	body := `{"title":"Starlight Atlas","author":"J. Doe","chapters":[{"number":1,"title":"Dawn","content":"First light."}]}`

	w := doJSON(t, r, "/v1/export/pdf", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body = %s", w.Code, w.Body.String())
	}
	if !strings.HasPrefix(w.Body.String(), "%PDF") {
		t.Error("response is not a PDF document")
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "starlight-atlas.pdf") {
		t.Errorf("content disposition = %q", cd)
	}
}

func TestExportEPUB(t *testing.T) {
	r := newTestRouter("user-1")
	body := `{"title":"Starlight Atlas","chapters":[{"number":1,"title":"Dawn","content":"First light."}]}`

	w := doJSON(t, r, "/v1/export/epub", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body = %s", w.Code, w.Body.String())
	}
	if !strings.HasPrefix(w.Body.String(), "PK") {
		t.Error("response is not a zip container")
	}
	if got := w.Header().Get("Content-Type"); got != "application/epub+zip" {
		t.Errorf("content type = %q", got)
	}
}

func TestExportRejectsMissingTitle(t *testing.T) {
	r := newTestRouter("user-1")
	w := doJSON(t, r, "/v1/export/pdf", `{"chapters":[]}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}
