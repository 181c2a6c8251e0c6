package memory

import (
	"context"
	"sort"
	"sync"

	"cinesync/internal/core/domain"
	"cinesync/internal/core/ports"
)

type MemoryCommentRepository struct {
	comments map[uint]*domain.Comment
	nextID   uint
	mu       sync.RWMutex
}

func NewMemoryCommentRepository() ports.CommentRepository {
	return &MemoryCommentRepository{
		comments: make(map[uint]*domain.Comment),
		nextID:   1,
	}
}

func (r *MemoryCommentRepository) Add(ctx context.Context, comment *domain.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	comment.ID = r.nextID
	r.nextID++
	r.comments[comment.ID] = comment
	return nil
}

func (r *MemoryCommentRepository) GetByID(ctx context.Context, id uint) (*domain.Comment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	comment, exists := r.comments[id]
	if !exists {
		return nil, domain.ErrCommentNotFound
	}
	return comment, nil
}

func (r *MemoryCommentRepository) GetByUserAndMovie(ctx context.Context, userID domain.UserID, movieSlug string) (*domain.Comment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, comment := range r.comments {
		if comment.UserID == userID && comment.MovieSlug == movieSlug {
			return comment, nil
		}
	}
	return nil, domain.ErrCommentNotFound
}

func (r *MemoryCommentRepository) ListByMovie(ctx context.Context, movieSlug string) ([]*domain.Comment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Comment, 0)
	for _, comment := range r.comments {
		if comment.MovieSlug == movieSlug {
			out = append(out, comment)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryCommentRepository) Update(ctx context.Context, comment *domain.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.comments[comment.ID]; !exists {
		return domain.ErrCommentNotFound
	}
	r.comments[comment.ID] = comment
	return nil
}

func (r *MemoryCommentRepository) Delete(ctx context.Context, userID domain.UserID, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	comment, exists := r.comments[id]
	if !exists || comment.UserID != userID {
		return domain.ErrCommentNotFound
	}
	delete(r.comments, id)
	return nil
}
