package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"

	"bookforge-api/internal/domain/entity"
	"bookforge-api/pkg/errors"
)

// JobRepository 生成任务仓储实现
type JobRepository struct {
	client *Client
}

// NewJobRepository 创建任务仓储
func NewJobRepository(client *Client) *JobRepository {
	return &JobRepository{client: client}
}

// Create 创建任务
func (r *JobRepository) Create(ctx context.Context, job *entity.GenerationJob) error {
	ctx, span := tracer.Start(ctx, "postgres.JobRepository.Create")
	defer span.End()

	if err := r.client.db.WithContext(ctx).Create(job).Error; err != nil {
		span.RecordError(err)
		return errors.Wrap(err, errors.CodeDatabaseError, "failed to create job")
	}
	return nil
}

// GetByID 根据 ID 获取任务
func (r *JobRepository) GetByID(ctx context.Context, id string) (*entity.GenerationJob, error) {
	ctx, span := tracer.Start(ctx, "postgres.JobRepository.GetByID")
	defer span.End()

	var job entity.GenerationJob
	if err := r.client.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		span.RecordError(err)
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "failed to get job")
	}
	return &job, nil
}

// Update 更新任务
func (r *JobRepository) Update(ctx context.Context, job *entity.GenerationJob) error {
	ctx, span := tracer.Start(ctx, "postgres.JobRepository.Update")
	defer span.End()

	if err := r.client.db.WithContext(ctx).Save(job).Error; err != nil {
		span.RecordError(err)
		return errors.Wrap(err, errors.CodeDatabaseError, "failed to update job")
	}
	return nil
}

// UpdateProgress 更新任务进度与阶段
// 进度单调不减：只在新值不小于当前值时生效
func (r *JobRepository) UpdateProgress(ctx context.Context, id string, progress int, step string) error {
	ctx, span := tracer.Start(ctx, "postgres.JobRepository.UpdateProgress")
	defer span.End()

	if err := r.client.db.WithContext(ctx).
		Model(&entity.GenerationJob{}).
		Where("id = ? AND progress <= ?", id, progress).
		Updates(map[string]interface{}{
			"progress":   progress,
			"step":       step,
			"updated_at": time.Now(),
		}).Error; err != nil {
		span.RecordError(err)
		return errors.Wrap(err, errors.CodeDatabaseError, "failed to update job progress")
	}
	return nil
}

// ListByUser 获取用户任务列表，按创建时间倒序
func (r *JobRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*entity.GenerationJob, error) {
	ctx, span := tracer.Start(ctx, "postgres.JobRepository.ListByUser")
	defer span.End()

	if limit <= 0 {
		limit = 50
	}
	var jobs []*entity.GenerationJob
	if err := r.client.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&jobs).Error; err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "failed to list jobs")
	}
	return jobs, nil
}
