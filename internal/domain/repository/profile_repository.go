// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"bookforge-api/internal/domain/entity"
)

// ProfileRepository 用户档案仓储接口
type ProfileRepository interface {
	// GetByID 根据用户 ID 获取档案
	GetByID(ctx context.Context, id string) (*entity.Profile, error)

	// DecrementCredit 扣减一个生成额度
	// 余额为零时返回错误，不产生负值
	DecrementCredit(ctx context.Context, id string) error

	// UpdatePlan 更新订阅计划
	UpdatePlan(ctx context.Context, id string, plan string) error
}
