package services

import (
	"context"

	"cinesync/internal/core/domain"
	"cinesync/internal/core/ports"
)

type userService struct {
	users ports.UserRepository
}

func NewUserService(users ports.UserRepository) ports.UserService {
	return &userService{users: users}
}

func (s *userService) GetUser(ctx context.Context, id domain.UserID) (*domain.User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *userService) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.users.GetByEmail(ctx, email)
}

// GetUsers resolves a batch of ids. Unknown ids are skipped rather than
// failing the whole lookup.
func (s *userService) GetUsers(ctx context.Context, ids []domain.UserID) ([]*domain.User, error) {
	return s.users.GetByIDs(ctx, ids)
}
