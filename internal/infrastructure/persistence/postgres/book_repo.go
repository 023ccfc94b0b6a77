package postgres

import (
	"context"

	"gorm.io/gorm"

	"bookforge-api/internal/domain/entity"
	"bookforge-api/pkg/errors"
)

// BookRepository 图书仓储实现
type BookRepository struct {
	client *Client
}

// NewBookRepository 创建图书仓储
func NewBookRepository(client *Client) *BookRepository {
	return &BookRepository{client: client}
}

// Create 创建图书记录
func (r *BookRepository) Create(ctx context.Context, book *entity.Book) error {
	ctx, span := tracer.Start(ctx, "postgres.BookRepository.Create")
	defer span.End()

	if err := r.client.db.WithContext(ctx).Create(book).Error; err != nil {
		span.RecordError(err)
		return errors.Wrap(err, errors.CodeDatabaseError, "failed to create book")
	}
	return nil
}

// GetByID 根据 ID 获取图书
func (r *BookRepository) GetByID(ctx context.Context, id string) (*entity.Book, error) {
	ctx, span := tracer.Start(ctx, "postgres.BookRepository.GetByID")
	defer span.End()

	var book entity.Book
	if err := r.client.db.WithContext(ctx).First(&book, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		span.RecordError(err)
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "failed to get book")
	}
	return &book, nil
}

// Update 更新图书记录
func (r *BookRepository) Update(ctx context.Context, book *entity.Book) error {
	ctx, span := tracer.Start(ctx, "postgres.BookRepository.Update")
	defer span.End()

	if err := r.client.db.WithContext(ctx).Save(book).Error; err != nil {
		span.RecordError(err)
		return errors.Wrap(err, errors.CodeDatabaseError, "failed to update book")
	}
	return nil
}

// ListByUser 获取用户图书列表，按创建时间倒序
func (r *BookRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*entity.Book, error) {
	ctx, span := tracer.Start(ctx, "postgres.BookRepository.ListByUser")
	defer span.End()

	if limit <= 0 {
		limit = 50
	}
	var books []*entity.Book
	if err := r.client.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&books).Error; err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "failed to list books")
	}
	return books, nil
}
