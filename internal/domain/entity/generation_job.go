// Package entity 定义领域实体
package entity

import (
	"encoding/json"
	"time"
)

// JobStatus 任务状态
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// GenerationJob 生成任务
// 提交时创建，仅由其后台运行修改，进入 completed/failed 后不再变化
type GenerationJob struct {
	ID           string          `json:"id" gorm:"primaryKey"`
	UserID       string          `json:"user_id" gorm:"index"`
	BookID       string          `json:"book_id,omitempty"`
	Status       JobStatus       `json:"status"`
	Progress     int             `json:"progress"` // 任务进度 (0-100)，单次运行内单调不减
	Step         string          `json:"step"`
	InputParams  json.RawMessage `json:"input_params"`
	OutputResult json.RawMessage `json:"output_result,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	StartedAt    *time.Time      `json:"started_at,omitempty"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
}

// NewGenerationJob 创建新任务
func NewGenerationJob(id, userID string, inputParams json.RawMessage) *GenerationJob {
	now := time.Now()
	return &GenerationJob{
		ID:          id,
		UserID:      userID,
		Status:      JobStatusQueued,
		Progress:    0,
		Step:        "queued",
		InputParams: inputParams,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Start 开始执行任务
func (j *GenerationJob) Start() {
	now := time.Now()
	j.Status = JobStatusRunning
	j.StartedAt = &now
	j.UpdatedAt = now
}

// Complete 完成任务
func (j *GenerationJob) Complete(result json.RawMessage) {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.OutputResult = result
	j.Progress = 100
	j.Step = "completed"
	j.CompletedAt = &now
	j.UpdatedAt = now
}

// Fail 任务失败
func (j *GenerationJob) Fail(errMsg string) {
	now := time.Now()
	j.Status = JobStatusFailed
	j.ErrorMessage = errMsg
	j.Step = "failed"
	j.CompletedAt = &now
	j.UpdatedAt = now
}

// IsTerminal 是否已进入终态
func (j *GenerationJob) IsTerminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// UpdateProgress 更新任务进度，保证单调不减
func (j *GenerationJob) UpdateProgress(progress int, step string) {
	if progress < j.Progress {
		progress = j.Progress
	}
	if progress > 100 {
		progress = 100
	}
	j.Progress = progress
	if step != "" {
		j.Step = step
	}
	j.UpdatedAt = time.Now()
}
