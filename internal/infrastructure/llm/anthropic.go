// Package llm 提供文本生成服务商客户端
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

const anthropicVersion = "2023-06-01"

// AnthropicClient Anthropic Messages API 客户端
// token 预算超过阈值的请求路由到大模型，其余走快速模型
type AnthropicClient struct {
	apiKey         string
	baseURL        string
	model          string
	largeModel     string
	tokenThreshold int
	httpClient     *http.Client
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewAnthropicClient 创建 Anthropic 客户端
func NewAnthropicClient(cfg *config.AnthropicConfig) *AnthropicClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &AnthropicClient{
		apiKey:         cfg.APIKey,
		baseURL:        strings.TrimRight(baseURL, "/"),
		model:          cfg.Model,
		largeModel:     cfg.LargeModel,
		tokenThreshold: cfg.TokenThreshold,
		httpClient:     &http.Client{Timeout: timeout},
	}
}

// Label 对外展示的模型标识
func (c *AnthropicClient) Label() string {
	return "Claude Opus 4.6"
}

// selectModel 根据 token 预算选择模型
func (c *AnthropicClient) selectModel(maxTokens int) string {
	if maxTokens > c.tokenThreshold {
		return c.largeModel
	}
	return c.model
}

// Complete 执行一次文本补全
func (c *AnthropicClient) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if c.apiKey == "" {
		return "", errors.ConfigMissing("ANTHROPIC_API_KEY")
	}

	reqBody, err := json.Marshal(&anthropicRequest{
		Model:     c.selectModel(maxTokens),
		MaxTokens: maxTokens,
		Messages:  []anthropicMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal anthropic request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create anthropic request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", errors.Wrap(err, errors.CodeProviderError, "anthropic request failed")
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return "", errors.Wrap(err, errors.CodeProviderError, "failed to read anthropic response")
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return "", errors.New(errors.CodeProviderError,
			fmt.Sprintf("anthropic request failed: status=%d", httpResp.StatusCode)).WithDetail(string(body))
	}

	var resp anthropicResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", errors.Wrap(err, errors.CodeProviderError, "failed to decode anthropic response")
	}
	if len(resp.Content) == 0 {
		return "", errors.New(errors.CodeProviderError, "anthropic response has no content")
	}
	return resp.Content[0].Text, nil
}
