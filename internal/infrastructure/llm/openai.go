package llm

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

// OpenAIClient OpenAI Chat Completions API 客户端
type OpenAIClient struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

type openaiRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	Messages  []openaiMessage `json:"messages"`
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// NewOpenAIClient 创建 OpenAI 客户端
func NewOpenAIClient(cfg *config.OpenAIConfig) *OpenAIClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &OpenAIClient{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Label 对外展示的模型标识
func (c *OpenAIClient) Label() string {
	return "GPT-5"
}

// Complete 执行一次文本补全
func (c *OpenAIClient) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if c.apiKey == "" {
		return "", errors.ConfigMissing("OPENAI_API_KEY")
	}

	reqBody, err := json.Marshal(&openaiRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
		Messages:  []openaiMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal openai request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create openai request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", errors.Wrap(err, errors.CodeProviderError, "openai request failed")
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return "", errors.Wrap(err, errors.CodeProviderError, "failed to read openai response")
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return "", errors.New(errors.CodeProviderError,
			fmt.Sprintf("openai request failed: status=%d", httpResp.StatusCode)).WithDetail(string(body))
	}

	var resp openaiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", errors.Wrap(err, errors.CodeProviderError, "failed to decode openai response")
	}
	if len(resp.Choices) == 0 {
		return "", errors.New(errors.CodeProviderError, "openai response has no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
