// Package speech 提供语音合成客户端
package speech

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

// ElevenLabsClient ElevenLabs 文本转语音客户端
type ElevenLabsClient struct {
	apiKey         string
	baseURL        string
	modelID        string
	defaultVoiceID string
	httpClient     *http.Client
}

type ttsRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// NewElevenLabsClient 创建 ElevenLabs 客户端
func NewElevenLabsClient(cfg *config.ElevenLabsConfig) *ElevenLabsClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.elevenlabs.io"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 180 * time.Second
	}
	return &ElevenLabsClient{
		apiKey:         cfg.APIKey,
		baseURL:        strings.TrimRight(baseURL, "/"),
		modelID:        cfg.ModelID,
		defaultVoiceID: cfg.DefaultVoiceID,
		httpClient:     &http.Client{Timeout: timeout},
	}
}

// Synthesize 合成单段文本的语音
func (c *ElevenLabsClient) Synthesize(ctx context.Context, text, voiceID string) ([]byte, string, error) {
	if c.apiKey == "" {
		return nil, "", errors.ConfigMissing("ELEVENLABS_API_KEY")
	}
	if voiceID == "" {
		voiceID = c.defaultVoiceID
	}

	reqBody, err := json.Marshal(&ttsRequest{
		Text:    text,
		ModelID: c.modelID,
		VoiceSettings: voiceSettings{
			Stability:       0.45,
			SimilarityBoost: 0.75,
		},
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal tts request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/text-to-speech/%s", c.baseURL, voiceID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, "", fmt.Errorf("failed to create tts request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("xi-api-key", c.apiKey)
	httpReq.Header.Set("accept", "audio/mpeg")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, "", errors.Wrap(err, errors.CodeProviderError, "ElevenLabs request failed")
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, "", errors.Wrap(err, errors.CodeProviderError, "failed to read ElevenLabs response")
	}
	if httpResp.StatusCode >= 400 {
		return nil, "", errors.New(errors.CodeProviderError,
			fmt.Sprintf("ElevenLabs failed: status=%d", httpResp.StatusCode)).WithDetail(string(body))
	}

	return body, "audio/mpeg", nil
}
