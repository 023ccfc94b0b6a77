// Package imagegen 提供封面图生成客户端
package imagegen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"bookforge-api/internal/config"
	"bookforge-api/pkg/errors"
)

// GeminiClient Gemini 图像生成客户端
// 先用携带 responseModalities 的请求形态，失败后回落到精简形态
type GeminiClient struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				InlineData  *geminiInlineData `json:"inlineData,omitempty"`
				InlineData2 *geminiInlineData `json:"inline_data,omitempty"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data"`
}

// NewGeminiClient 创建 Gemini 客户端
func NewGeminiClient(cfg *config.GeminiConfig) *GeminiClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &GeminiClient{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// candidatePayloads 按优先级排列的请求形态
func (c *GeminiClient) candidatePayloads(prompt string) []map[string]any {
	contents := []map[string]any{
		{"parts": []map[string]any{{"text": prompt}}},
	}
	return []map[string]any{
		{
			"contents":         contents,
			"generationConfig": map[string]any{"responseModalities": []string{"TEXT", "IMAGE"}},
		},
		{"contents": contents},
	}
}

// Render 生成封面图，返回 base64 数据与 MIME 类型
func (c *GeminiClient) Render(ctx context.Context, prompt string) (string, string, error) {
	if c.apiKey == "" {
		return "", "", errors.ConfigMissing("GEMINI_API_KEY")
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model)
	lastError := ""

	for _, payload := range c.candidatePayloads(prompt) {
		reqBody, err := json.Marshal(payload)
		if err != nil {
			return "", "", fmt.Errorf("failed to marshal gemini request: %w", err)
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(reqBody))
		if err != nil {
			return "", "", fmt.Errorf("failed to create gemini request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("x-goog-api-key", c.apiKey)

		httpResp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return "", "", errors.Wrap(err, errors.CodeProviderError, "gemini request failed")
		}

		body, err := io.ReadAll(httpResp.Body)
		httpResp.Body.Close()
		if err != nil {
			return "", "", errors.Wrap(err, errors.CodeProviderError, "failed to read gemini response")
		}

		if httpResp.StatusCode >= 400 {
			lastError = string(body)
			continue
		}

		var resp geminiResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			lastError = err.Error()
			continue
		}

		for _, candidate := range resp.Candidates {
			for _, part := range candidate.Content.Parts {
				inline := part.InlineData
				if inline == nil {
					inline = part.InlineData2
				}
				if inline != nil && inline.Data != "" {
					mimeType := inline.MimeType
					if mimeType == "" {
						mimeType = "image/png"
					}
					return inline.Data, mimeType, nil
				}
			}
		}
		lastError = "no inline image data returned by Gemini"
	}

	return "", "", errors.New(errors.CodeProviderError, "Gemini image generation failed").WithDetail(lastError)
}
