package gormdb

import (
	"context"
	"errors"
	"fmt"

	"cinesync/internal/core/domain"
	"cinesync/internal/core/ports"

	"gorm.io/gorm"
)

type GormCommentRepository struct {
	db *gorm.DB
}

func NewGormCommentRepository(db *gorm.DB) ports.CommentRepository {
	return &GormCommentRepository{db: db}
}

func (r *GormCommentRepository) Add(ctx context.Context, comment *domain.Comment) error {
	if err := r.db.WithContext(ctx).Create(comment).Error; err != nil {
		return fmt.Errorf("gorm: add comment: %w", err)
	}
	return nil
}

func (r *GormCommentRepository) GetByID(ctx context.Context, id uint) (*domain.Comment, error) {
	var comment domain.Comment
	err := r.db.WithContext(ctx).First(&comment, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrCommentNotFound
		}
		return nil, fmt.Errorf("gorm: find comment %d: %w", id, err)
	}
	return &comment, nil
}

func (r *GormCommentRepository) GetByUserAndMovie(ctx context.Context, userID domain.UserID, movieSlug string) (*domain.Comment, error) {
	var comment domain.Comment
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND movie_slug = ?", userID, movieSlug).
		First(&comment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrCommentNotFound
		}
		return nil, fmt.Errorf("gorm: find comment by user and movie: %w", err)
	}
	return &comment, nil
}

func (r *GormCommentRepository) ListByMovie(ctx context.Context, movieSlug string) ([]*domain.Comment, error) {
	var comments []*domain.Comment
	err := r.db.WithContext(ctx).
		Where("movie_slug = ?", movieSlug).
		Order("created_at DESC").
		Find(&comments).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list comments for movie %s: %w", movieSlug, err)
	}
	return comments, nil
}

func (r *GormCommentRepository) Update(ctx context.Context, comment *domain.Comment) error {
	if err := r.db.WithContext(ctx).Save(comment).Error; err != nil {
		return fmt.Errorf("gorm: update comment %d: %w", comment.ID, err)
	}
	return nil
}

func (r *GormCommentRepository) Delete(ctx context.Context, userID domain.UserID, id uint) error {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND id = ?", userID, id).
		Delete(&domain.Comment{})
	if result.Error != nil {
		return fmt.Errorf("gorm: delete comment %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrCommentNotFound
	}
	return nil
}
