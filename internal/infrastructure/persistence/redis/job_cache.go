package redis

import (
	"context"
	"encoding/json"
	"time"

	"golang.org/x/sync/singleflight"

	"bookforge-api/internal/domain/entity"
	"bookforge-api/internal/domain/repository"
	"bookforge-api/pkg/logger"
)

// jobCacheTTL 任务状态缓存时长
// 轮询场景下短 TTL 即可显著削减数据库压力
const jobCacheTTL = 2 * time.Second

// CachedJobRepository 带旁路缓存的任务仓储装饰器
// 读路径用 singleflight 合并并发回源；写路径直写数据库并失效缓存
type CachedJobRepository struct {
	inner  repository.JobRepository
	client *Client
	group  singleflight.Group
}

// NewCachedJobRepository 创建带缓存的任务仓储
func NewCachedJobRepository(inner repository.JobRepository, client *Client) *CachedJobRepository {
	return &CachedJobRepository{inner: inner, client: client}
}

func jobKey(id string) string {
	return "job:status:" + id
}

// Create 创建任务
func (r *CachedJobRepository) Create(ctx context.Context, job *entity.GenerationJob) error {
	return r.inner.Create(ctx, job)
}

// GetByID 获取任务，优先命中缓存
func (r *CachedJobRepository) GetByID(ctx context.Context, id string) (*entity.GenerationJob, error) {
	if cached, err := r.client.Get(ctx, jobKey(id)); err == nil {
		var job entity.GenerationJob
		if err := json.Unmarshal([]byte(cached), &job); err == nil {
			return &job, nil
		}
	} else if !IsNil(err) {
		logger.Warn(ctx, "job cache read failed, falling through", "error", err.Error())
	}

	v, err, _ := r.group.Do(id, func() (interface{}, error) {
		job, err := r.inner.GetByID(ctx, id)
		if err != nil || job == nil {
			return job, err
		}
		if data, merr := json.Marshal(job); merr == nil {
			if serr := r.client.Set(ctx, jobKey(id), data, jobCacheTTL); serr != nil {
				logger.Warn(ctx, "job cache write failed", "error", serr.Error())
			}
		}
		return job, nil
	})
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	return v.(*entity.GenerationJob), nil
}

// Update 更新任务并失效缓存
func (r *CachedJobRepository) Update(ctx context.Context, job *entity.GenerationJob) error {
	if err := r.inner.Update(ctx, job); err != nil {
		return err
	}
	r.invalidate(ctx, job.ID)
	return nil
}

// UpdateProgress 更新任务进度并失效缓存
func (r *CachedJobRepository) UpdateProgress(ctx context.Context, id string, progress int, step string) error {
	if err := r.inner.UpdateProgress(ctx, id, progress, step); err != nil {
		return err
	}
	r.invalidate(ctx, id)
	return nil
}

// ListByUser 获取用户任务列表
func (r *CachedJobRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*entity.GenerationJob, error) {
	return r.inner.ListByUser(ctx, userID, limit)
}

func (r *CachedJobRepository) invalidate(ctx context.Context, id string) {
	if err := r.client.Del(ctx, jobKey(id)); err != nil {
		logger.Warn(ctx, "job cache invalidation failed", "error", err.Error())
	}
}
