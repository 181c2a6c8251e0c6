package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cinesync/internal/core/domain"
	"cinesync/internal/core/ports"
	"cinesync/pkg/validation"

	"go.uber.org/zap"
)

type commentService struct {
	comments ports.CommentRepository
	logger   *zap.SugaredLogger
}

// NewCommentService builds the movie review service. A user gets at most one
// comment per movie; further posts for the same movie are rejected.
func NewCommentService(comments ports.CommentRepository, logger *zap.SugaredLogger) ports.CommentService {
	return &commentService{comments: comments, logger: logger}
}

func (s *commentService) AddComment(ctx context.Context, userID domain.UserID, comment *domain.Comment) (*domain.Comment, error) {
	if comment == nil || strings.TrimSpace(comment.MovieSlug) == "" || strings.TrimSpace(comment.Content) == "" {
		return nil, fmt.Errorf("%w: movie slug and content are required", domain.ErrInvalidInput)
	}
	if err := validation.ValidateRating(comment.Rating); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidInput, err)
	}

	if existing, err := s.comments.GetByUserAndMovie(ctx, userID, comment.MovieSlug); err == nil && existing != nil {
		return nil, fmt.Errorf("%w: already commented on this movie", domain.ErrAlreadyExists)
	} else if err != nil && !errors.Is(err, domain.ErrCommentNotFound) {
		return nil, err
	}

	now := time.Now()
	comment.UserID = userID
	comment.CreatedAt = now
	comment.UpdatedAt = now
	if err := s.comments.Add(ctx, comment); err != nil {
		return nil, fmt.Errorf("failed to add comment: %w", err)
	}

	s.logger.Infow("comment added", "user_id", userID, "movie_slug", comment.MovieSlug)
	return comment, nil
}

func (s *commentService) UpdateComment(ctx context.Context, userID domain.UserID, id uint, content string, rating float64) (*domain.Comment, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: content is required", domain.ErrInvalidInput)
	}
	if err := validation.ValidateRating(rating); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidInput, err)
	}

	comment, err := s.comments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if domain.NormalizeID(comment.UserID) != domain.NormalizeID(userID) {
		return nil, domain.ErrForbidden
	}

	comment.Content = content
	comment.Rating = rating
	comment.UpdatedAt = time.Now()
	if err := s.comments.Update(ctx, comment); err != nil {
		return nil, fmt.Errorf("failed to update comment: %w", err)
	}
	return comment, nil
}

func (s *commentService) DeleteComment(ctx context.Context, userID domain.UserID, id uint) error {
	comment, err := s.comments.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if domain.NormalizeID(comment.UserID) != domain.NormalizeID(userID) {
		return domain.ErrForbidden
	}
	return s.comments.Delete(ctx, userID, id)
}

func (s *commentService) ListByMovie(ctx context.Context, movieSlug string) ([]*domain.Comment, error) {
	return s.comments.ListByMovie(ctx, movieSlug)
}
