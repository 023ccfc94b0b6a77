package postgres

import (
	"context"

	"gorm.io/gorm"

	"bookforge-api/internal/domain/entity"
	"bookforge-api/pkg/errors"
)

// ProfileRepository 用户档案仓储实现
type ProfileRepository struct {
	client *Client
}

// NewProfileRepository 创建用户档案仓储
func NewProfileRepository(client *Client) *ProfileRepository {
	return &ProfileRepository{client: client}
}

// GetByID 根据用户 ID 获取档案
func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*entity.Profile, error) {
	ctx, span := tracer.Start(ctx, "postgres.ProfileRepository.GetByID")
	defer span.End()

	var profile entity.Profile
	if err := r.client.db.WithContext(ctx).First(&profile, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		span.RecordError(err)
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "failed to get profile")
	}
	return &profile, nil
}

// DecrementCredit 扣减一个生成额度
// 条件更新保证余额不会为负；余额已空时返回 InsufficientCredit
func (r *ProfileRepository) DecrementCredit(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "postgres.ProfileRepository.DecrementCredit")
	defer span.End()

	result := r.client.db.WithContext(ctx).
		Model(&entity.Profile{}).
		Where("id = ? AND credits_remaining > 0", id).
		UpdateColumn("credits_remaining", gorm.Expr("credits_remaining - 1"))
	if result.Error != nil {
		span.RecordError(result.Error)
		return errors.Wrap(result.Error, errors.CodeDatabaseError, "failed to decrement credit")
	}
	if result.RowsAffected == 0 {
		return errors.ErrInsufficientCredit
	}
	return nil
}

// UpdatePlan 更新订阅计划
func (r *ProfileRepository) UpdatePlan(ctx context.Context, id string, plan string) error {
	ctx, span := tracer.Start(ctx, "postgres.ProfileRepository.UpdatePlan")
	defer span.End()

	if err := r.client.db.WithContext(ctx).
		Model(&entity.Profile{}).
		Where("id = ?", id).
		Update("plan", plan).Error; err != nil {
		span.RecordError(err)
		return errors.Wrap(err, errors.CodeDatabaseError, "failed to update plan")
	}
	return nil
}
