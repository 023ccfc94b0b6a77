// Package email 提供事务邮件客户端
package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"bookforge-api/internal/application/bookgen"
	"bookforge-api/internal/config"
	"bookforge-api/pkg/errors"
)

// ResendClient Resend 邮件客户端
type ResendClient struct {
	apiKey     string
	baseURL    string
	fromEmail  string
	httpClient *http.Client
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// NewResendClient 创建 Resend 客户端
func NewResendClient(cfg *config.ResendConfig) *ResendClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.resend.com"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &ResendClient{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		fromEmail:  cfg.FromEmail,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Enabled 凭证是否已配置
func (c *ResendClient) Enabled() bool {
	return c.apiKey != ""
}

// SendBookReady 发送图书完成通知
func (c *ResendClient) SendBookReady(ctx context.Context, mail bookgen.BookReadyEmail) error {
	if !c.Enabled() {
		return errors.ConfigMissing("RESEND_API_KEY")
	}

	reqBody, err := json.Marshal(&sendRequest{
		From:    c.fromEmail,
		To:      []string{mail.To},
		Subject: fmt.Sprintf("Your BOOKFORGE book %q is ready", mail.Title),
		HTML:    bookReadyHTML(mail),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal email request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/emails", bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("failed to create email request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return errors.Wrap(err, errors.CodeEmailError, "email dispatch failed")
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode >= 400 {
		body, _ := io.ReadAll(httpResp.Body)
		return errors.New(errors.CodeEmailError,
			fmt.Sprintf("email dispatch failed: status=%d", httpResp.StatusCode)).WithDetail(string(body))
	}
	return nil
}

// bookReadyHTML 构建完成通知正文
func bookReadyHTML(mail bookgen.BookReadyEmail) string {
	var features []string
	if mail.IncludesFullBook {
		features = append(features, "full chapter draft")
	}
	if mail.IncludesCover {
		features = append(features, "cover image")
	}
	if mail.IncludesAudiobook {
		features = append(features, "audiobook preview")
	}
	extras := "standard generation package"
	if len(features) > 0 {
		extras = strings.Join(features, ", ")
	}

	return fmt.Sprintf(`<div style="font-family:Arial,sans-serif;max-width:640px;margin:0 auto;padding:24px;">
  <h2 style="margin:0 0 12px;color:#111827;">Your BOOKFORGE book is ready</h2>
  <p style="color:#374151;line-height:1.6;">Great news — <strong>%s</strong> has finished generating.</p>
  <ul style="color:#374151;line-height:1.7;">
    <li>Plan: <strong>%s</strong></li>
    <li>Model: <strong>%s</strong></li>
    <li>Output: <strong>%s</strong></li>
  </ul>
  <p style="color:#6b7280;line-height:1.6;">Open BOOKFORGE to download your files and continue publishing to Amazon KDP.</p>
</div>`,
		mail.Title, capitalize(mail.Plan), mail.ModelLabel, extras)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
