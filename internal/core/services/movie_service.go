package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cinesync/internal/core/domain"
	"cinesync/internal/core/ports"

	"go.uber.org/zap"
)

type movieService struct {
	movies        ports.MovieRepository
	favoriteLimit int
	logger        *zap.SugaredLogger
}

// NewMovieService builds the favorites catalog service. favoriteLimit bounds
// how many favorites a single user may hold.
func NewMovieService(movies ports.MovieRepository, favoriteLimit int, logger *zap.SugaredLogger) ports.MovieService {
	if favoriteLimit <= 0 {
		favoriteLimit = 20
	}
	return &movieService{movies: movies, favoriteLimit: favoriteLimit, logger: logger}
}

func (s *movieService) AddFavorite(ctx context.Context, userID domain.UserID, movie *domain.FavoriteMovie) (*domain.FavoriteMovie, error) {
	if movie == nil || strings.TrimSpace(movie.ExternalID) == "" || strings.TrimSpace(movie.Name) == "" {
		return nil, fmt.Errorf("%w: movie external id and name are required", domain.ErrInvalidInput)
	}

	if existing, err := s.movies.GetByExternalID(ctx, userID, movie.ExternalID); err == nil && existing != nil {
		return nil, fmt.Errorf("%w: movie already in favorites", domain.ErrAlreadyExists)
	} else if err != nil && !errors.Is(err, domain.ErrMovieNotFound) {
		return nil, err
	}

	count, err := s.movies.CountByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count favorites: %w", err)
	}
	if count >= int64(s.favoriteLimit) {
		return nil, fmt.Errorf("%w: favorite list is full (max %d)", domain.ErrInvalidInput, s.favoriteLimit)
	}

	movie.UserID = userID
	movie.CreatedAt = time.Now()
	if err := s.movies.Add(ctx, movie); err != nil {
		return nil, fmt.Errorf("failed to add favorite: %w", err)
	}

	s.logger.Infow("favorite added", "user_id", userID, "external_id", movie.ExternalID)
	return movie, nil
}

func (s *movieService) DeleteFavorite(ctx context.Context, userID domain.UserID, movieID uint) error {
	return s.movies.Delete(ctx, userID, movieID)
}

func (s *movieService) ListFavorites(ctx context.Context, userID domain.UserID) ([]*domain.FavoriteMovie, error) {
	return s.movies.ListByUser(ctx, userID)
}
