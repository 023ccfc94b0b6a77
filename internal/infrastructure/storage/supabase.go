// Package storage 提供对象存储客户端
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"bookforge-api/internal/config"
	"bookforge-api/pkg/errors"
)

// SupabaseClient Supabase Storage 客户端
// 对象键为 {userID}/{bookID}/{filename}，上传后返回公开访问地址
type SupabaseClient struct {
	endpoint   string
	serviceKey string
	bucket     string
	httpClient *http.Client
}

// NewSupabaseClient 创建存储客户端
func NewSupabaseClient(cfg *config.StorageConfig) *SupabaseClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	bucket := cfg.Bucket
	if bucket == "" {
		bucket = "books"
	}
	return &SupabaseClient{
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		serviceKey: cfg.ServiceKey,
		bucket:     bucket,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Enabled 凭证是否已配置
func (c *SupabaseClient) Enabled() bool {
	return c.endpoint != "" && c.serviceKey != ""
}

// Upload 上传文件并返回公开访问地址
func (c *SupabaseClient) Upload(ctx context.Context, userID, bookID, filename string, content []byte, contentType string) (string, error) {
	if !c.Enabled() {
		return "", errors.ConfigMissing("SUPABASE_SERVICE_KEY")
	}

	objectPath := fmt.Sprintf("%s/%s/%s", userID, bookID, filename)
	uploadURL := fmt.Sprintf("%s/storage/v1/object/%s/%s", c.endpoint, c.bucket, objectPath)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("failed to create upload request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Authorization", "Bearer "+c.serviceKey)
	// 同名对象直接覆盖，重跑任务不会因键冲突失败
	httpReq.Header.Set("x-upsert", "true")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", errors.Wrap(err, errors.CodeStorageError, "artifact upload failed")
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode >= 400 {
		body, _ := io.ReadAll(httpResp.Body)
		return "", errors.New(errors.CodeStorageError,
			fmt.Sprintf("artifact upload failed: status=%d", httpResp.StatusCode)).WithDetail(string(body))
	}

	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", c.endpoint, c.bucket, objectPath), nil
}
