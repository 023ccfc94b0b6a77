package bookgen

import (
	"context"
)

// TextProvider 文本生成服务商客户端
type TextProvider interface {
	// Complete 执行一次文本补全
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)

	// Label 返回对外展示的模型标识
	Label() string
}

// CoverRenderer 封面图生成客户端
type CoverRenderer interface {
	// Render 根据提示词生成封面图，返回 base64 数据与 MIME 类型
	Render(ctx context.Context, prompt string) (imageBase64 string, mimeType string, err error)
}

// SpeechSynthesizer 语音合成客户端
type SpeechSynthesizer interface {
	// Synthesize 合成单段文本的语音
	Synthesize(ctx context.Context, text, voiceID string) (audio []byte, mimeType string, err error)
}

// BookReadyEmail 完成通知内容
type BookReadyEmail struct {
	To                string
	Title             string
	Genre             string
	Plan              string
	ModelLabel        string
	IncludesFullBook  bool
	IncludesCover     bool
	IncludesAudiobook bool
}

// Notifier 完成通知发送方
type Notifier interface {
	// Enabled 凭证是否已配置
	Enabled() bool

	// SendBookReady 发送图书完成通知
	SendBookReady(ctx context.Context, email BookReadyEmail) error
}

// ArtifactStore 成品文件存储
type ArtifactStore interface {
	// Upload 上传文件并返回公开访问地址
	// 对象键为 {userID}/{bookID}/{filename}
	Upload(ctx context.Context, userID, bookID, filename string, content []byte, contentType string) (string, error)
}

// ProgressSink 进度回调，progress 取值 0-100
type ProgressSink func(progress int, step string)
