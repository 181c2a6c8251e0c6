package memory

import (
	"context"
	"sort"
	"sync"

	"cinesync/internal/core/domain"
	"cinesync/internal/core/ports"
)

type MemoryMovieRepository struct {
	favorites map[uint]*domain.FavoriteMovie
	nextID    uint
	mu        sync.RWMutex
}

func NewMemoryMovieRepository() ports.MovieRepository {
	return &MemoryMovieRepository{
		favorites: make(map[uint]*domain.FavoriteMovie),
		nextID:    1,
	}
}

func (r *MemoryMovieRepository) Add(ctx context.Context, movie *domain.FavoriteMovie) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	movie.ID = r.nextID
	r.nextID++
	r.favorites[movie.ID] = movie
	return nil
}

func (r *MemoryMovieRepository) GetByExternalID(ctx context.Context, userID domain.UserID, externalID string) (*domain.FavoriteMovie, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, movie := range r.favorites {
		if movie.UserID == userID && movie.ExternalID == externalID {
			return movie, nil
		}
	}
	return nil, domain.ErrMovieNotFound
}

func (r *MemoryMovieRepository) CountByUser(ctx context.Context, userID domain.UserID) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var n int64
	for _, movie := range r.favorites {
		if movie.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (r *MemoryMovieRepository) ListByUser(ctx context.Context, userID domain.UserID) ([]*domain.FavoriteMovie, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.FavoriteMovie, 0)
	for _, movie := range r.favorites {
		if movie.UserID == userID {
			out = append(out, movie)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryMovieRepository) Delete(ctx context.Context, userID domain.UserID, movieID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	movie, exists := r.favorites[movieID]
	if !exists || movie.UserID != userID {
		return domain.ErrMovieNotFound
	}
	delete(r.favorites, movieID)
	return nil
}
