// Package jobs 提供异步生成任务的编排
package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"bookforge-api/internal/application/bookgen"
	"bookforge-api/internal/domain/entity"
	"bookforge-api/internal/domain/repository"
	"bookforge-api/internal/infrastructure/messaging"
	"bookforge-api/pkg/errors"
	"bookforge-api/pkg/logger"
	"bookforge-api/pkg/tracer"
)

// Publisher 任务消息投递接口，由 messaging.Producer 实现
type Publisher interface {
	PublishBookGenJob(ctx context.Context, job *messaging.BookGenJobMessage) (string, error)
}

// Runner 生成执行接口，由 bookgen.Pipeline 实现
type Runner interface {
	Run(ctx context.Context, userID string, req *bookgen.BookRequest, sink bookgen.ProgressSink) (*bookgen.GenerationResult, error)
}

// Service 异步任务服务
// API 侧负责创建任务记录并投递消息，worker 侧负责消费并驱动流水线
type Service struct {
	jobs     repository.JobRepository
	runner   Runner
	producer Publisher
}

// NewService 创建任务服务
func NewService(jobs repository.JobRepository, runner Runner, producer Publisher) *Service {
	return &Service{
		jobs:     jobs,
		runner:   runner,
		producer: producer,
	}
}

// Enqueue 创建任务并投递到生成队列
// 投递失败时任务立即转为 failed，不会留下永远停在 queued 的记录
func (s *Service) Enqueue(ctx context.Context, userID string, req *bookgen.BookRequest) (*entity.GenerationJob, error) {
	ctx, span := tracer.Start(ctx, "jobs.Enqueue")
	defer span.End()

	if s.producer == nil {
		return nil, errors.New(errors.CodeServiceUnavailable, "async generation is not configured")
	}

	rawReq, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job input: %w", err)
	}

	job := entity.NewGenerationJob(uuid.NewString(), userID, rawReq)
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, err
	}

	_, err = s.producer.PublishBookGenJob(ctx, &messaging.BookGenJobMessage{
		JobID:   job.ID,
		UserID:  userID,
		Request: rawReq,
	})
	if err != nil {
		job.Fail("failed to enqueue generation job")
		if uerr := s.jobs.Update(ctx, job); uerr != nil {
			logger.Error(ctx, "failed to mark unpublishable job failed", uerr, "job_id", job.ID)
		}
		return nil, errors.Wrap(err, errors.CodeServiceUnavailable, "failed to enqueue generation job")
	}

	logger.Info(ctx, "generation job enqueued", "job_id", job.ID)
	return job, nil
}

// GetForUser 获取任务，带归属校验
// 他人任务与不存在的任务返回同样的 not found，不暴露任务是否存在
func (s *Service) GetForUser(ctx context.Context, jobID, userID string) (*entity.GenerationJob, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil || job.UserID != userID {
		return nil, errors.ErrJobNotFound
	}
	return job, nil
}

// ListForUser 获取用户任务列表
func (s *Service) ListForUser(ctx context.Context, userID string, limit int) ([]*entity.GenerationJob, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.jobs.ListByUser(ctx, userID, limit)
}

// HandleMessage worker 侧的消息处理入口
// 业务失败记录在任务上并确认消息；返回错误仅用于基础设施故障的重投
func (s *Service) HandleMessage(ctx context.Context, msg *messaging.Message) error {
	ctx, span := tracer.Start(ctx, "jobs.HandleMessage")
	defer span.End()

	var payload messaging.BookGenJobMessage
	if err := msg.UnmarshalPayload(&payload); err != nil {
		return fmt.Errorf("failed to decode job payload: %w", err)
	}

	job, err := s.jobs.GetByID(ctx, payload.JobID)
	if err != nil {
		return err
	}
	if job == nil {
		return fmt.Errorf("job not found: %s", payload.JobID)
	}
	// 重投的终态任务直接确认，保证重复消费无副作用
	if job.IsTerminal() {
		logger.Warn(ctx, "skipping redelivered terminal job", "job_id", job.ID, "status", string(job.Status))
		return nil
	}

	var req bookgen.BookRequest
	if err := json.Unmarshal(payload.Request, &req); err != nil {
		job.Fail("malformed job input")
		if uerr := s.jobs.Update(ctx, job); uerr != nil {
			return uerr
		}
		return nil
	}

	job.Start()
	if err := s.jobs.Update(ctx, job); err != nil {
		return err
	}

	sink := func(progress int, step string) {
		if perr := s.jobs.UpdateProgress(ctx, job.ID, progress, step); perr != nil {
			logger.Warn(ctx, "failed to update job progress", "job_id", job.ID, "step", step, "error", perr.Error())
		}
	}

	result, runErr := s.runner.Run(ctx, payload.UserID, &req, sink)
	if runErr != nil {
		job.Fail(errors.AsAppError(runErr).Message)
		if uerr := s.jobs.Update(ctx, job); uerr != nil {
			return uerr
		}
		logger.Warn(ctx, "generation job failed", "job_id", job.ID, "error", runErr.Error())
		return nil
	}

	rawResult, err := json.Marshal(result)
	if err != nil {
		job.Fail("failed to encode generation result")
		if uerr := s.jobs.Update(ctx, job); uerr != nil {
			return uerr
		}
		return nil
	}

	job.BookID = result.BookID
	job.Complete(rawResult)
	if err := s.jobs.Update(ctx, job); err != nil {
		return err
	}

	logger.Info(ctx, "generation job completed", "job_id", job.ID, "book_id", result.BookID)
	return nil
}
