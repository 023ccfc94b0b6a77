// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"bookforge-api/internal/domain/entity"
)

// JobRepository 生成任务仓储接口
type JobRepository interface {
	// Create 创建任务
	Create(ctx context.Context, job *entity.GenerationJob) error

	// GetByID 根据 ID 获取任务
	GetByID(ctx context.Context, id string) (*entity.GenerationJob, error)

	// Update 更新任务
	Update(ctx context.Context, job *entity.GenerationJob) error

	// UpdateProgress 更新任务进度（0-100）与当前阶段
	UpdateProgress(ctx context.Context, id string, progress int, step string) error

	// ListByUser 获取用户任务列表
	ListByUser(ctx context.Context, userID string, limit int) ([]*entity.GenerationJob, error)
}
