// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"bookforge-api/internal/domain/entity"
)

// BookRepository 图书记录仓储接口
type BookRepository interface {
	// Create 创建图书记录
	Create(ctx context.Context, book *entity.Book) error

	// GetByID 根据 ID 获取图书记录
	GetByID(ctx context.Context, id string) (*entity.Book, error)

	// Update 更新图书记录
	Update(ctx context.Context, book *entity.Book) error

	// ListByUser 获取用户的图书列表
	ListByUser(ctx context.Context, userID string, limit int) ([]*entity.Book, error)
}
