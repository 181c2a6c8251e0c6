package gormdb

import (
	"context"
	"errors"
	"fmt"

	"cinesync/internal/core/domain"
	"cinesync/internal/core/ports"

	"gorm.io/gorm"
)

type GormMovieRepository struct {
	db *gorm.DB
}

func NewGormMovieRepository(db *gorm.DB) ports.MovieRepository {
	return &GormMovieRepository{db: db}
}

func (r *GormMovieRepository) Add(ctx context.Context, movie *domain.FavoriteMovie) error {
	if err := r.db.WithContext(ctx).Create(movie).Error; err != nil {
		return fmt.Errorf("gorm: add favorite: %w", err)
	}
	return nil
}

func (r *GormMovieRepository) GetByExternalID(ctx context.Context, userID domain.UserID, externalID string) (*domain.FavoriteMovie, error) {
	var movie domain.FavoriteMovie
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND external_id = ?", userID, externalID).
		First(&movie).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrMovieNotFound
		}
		return nil, fmt.Errorf("gorm: find favorite by external id: %w", err)
	}
	return &movie, nil
}

func (r *GormMovieRepository) CountByUser(ctx context.Context, userID domain.UserID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.FavoriteMovie{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("gorm: count favorites: %w", err)
	}
	return count, nil
}

func (r *GormMovieRepository) ListByUser(ctx context.Context, userID domain.UserID) ([]*domain.FavoriteMovie, error) {
	var movies []*domain.FavoriteMovie
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&movies).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list favorites: %w", err)
	}
	return movies, nil
}

func (r *GormMovieRepository) Delete(ctx context.Context, userID domain.UserID, movieID uint) error {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND id = ?", userID, movieID).
		Delete(&domain.FavoriteMovie{})
	if result.Error != nil {
		return fmt.Errorf("gorm: delete favorite %d: %w", movieID, result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrMovieNotFound
	}
	return nil
}
