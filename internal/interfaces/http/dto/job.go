package dto

import (
	"encoding/json"
	"time"

	"bookforge-api/internal/domain/entity"
)

// JobResponse 任务状态响应
type JobResponse struct {
	ID           string          `json:"id"`
	BookID       string          `json:"book_id,omitempty"`
	Status       string          `json:"status"`
	Progress     int             `json:"progress"`
	Step         string          `json:"step"`
	Result       json.RawMessage `json:"result,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	StartedAt    *time.Time      `json:"started_at,omitempty"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
}

// NewJobResponse 从任务记录构建响应
func NewJobResponse(job *entity.GenerationJob) JobResponse {
	return JobResponse{
		ID:           job.ID,
		BookID:       job.BookID,
		Status:       string(job.Status),
		Progress:     job.Progress,
		Step:         job.Step,
		Result:       job.OutputResult,
		ErrorMessage: job.ErrorMessage,
		CreatedAt:    job.CreatedAt,
		StartedAt:    job.StartedAt,
		CompletedAt:  job.CompletedAt,
	}
}

// NewJobResponses 从任务记录构建列表响应
// 列表视图省略结果正文，避免批量返回大体积载荷
func NewJobResponses(jobs []*entity.GenerationJob) []JobResponse {
	out := make([]JobResponse, 0, len(jobs))
	for _, j := range jobs {
		resp := NewJobResponse(j)
		resp.Result = nil
		out = append(out, resp)
	}
	return out
}
