package ports

import (
	"context"

	"cinesync/internal/core/domain"
)

// RoomRepository is the durable room catalog. GetByID and GetByCode return
// only active rooms; a deactivated room is indistinguishable from one that
// never existed at this layer.
type RoomRepository interface {
	Create(ctx context.Context, room *domain.Room) error
	GetByID(ctx context.Context, id domain.RoomID) (*domain.Room, error)
	GetByCode(ctx context.Context, code string) (*domain.Room, error)
	CodeExists(ctx context.Context, code string) (bool, error)
	Save(ctx context.Context, room *domain.Room) error
	ListActive(ctx context.Context) ([]*domain.Room, error)
	ListByHost(ctx context.Context, hostID domain.UserID) ([]*domain.Room, error)
}

// SessionRepository is the ephemeral presence store: who is connected to
// which room right now. Every write refreshes the row's expiry.
type SessionRepository interface {
	InitRoom(ctx context.Context, roomID domain.RoomID, hostID domain.UserID) error
	AddMember(ctx context.Context, roomID domain.RoomID, member domain.Member) error
	RemoveMember(ctx context.Context, roomID domain.RoomID, userID domain.UserID) error
	ListMembers(ctx context.Context, roomID domain.RoomID) ([]domain.Member, error)
	// CurrentRoomOf returns "" when the user is not in any room.
	CurrentRoomOf(ctx context.Context, userID domain.UserID) (domain.RoomID, error)
	ClearRoom(ctx context.Context, roomID domain.RoomID) error
}

// ChatRepository is a bounded, ordered, per-room message log.
type ChatRepository interface {
	Append(ctx context.Context, roomID domain.RoomID, msg domain.ChatMessage) error
	History(ctx context.Context, roomID domain.RoomID) ([]domain.ChatMessage, error)
	Clear(ctx context.Context, roomID domain.RoomID) error
}

type UserRepository interface {
	GetByID(ctx context.Context, id domain.UserID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByIDs(ctx context.Context, ids []domain.UserID) ([]*domain.User, error)
}

type MovieRepository interface {
	Add(ctx context.Context, movie *domain.FavoriteMovie) error
	GetByExternalID(ctx context.Context, userID domain.UserID, externalID string) (*domain.FavoriteMovie, error)
	CountByUser(ctx context.Context, userID domain.UserID) (int64, error)
	ListByUser(ctx context.Context, userID domain.UserID) ([]*domain.FavoriteMovie, error)
	Delete(ctx context.Context, userID domain.UserID, movieID uint) error
}

type CommentRepository interface {
	Add(ctx context.Context, comment *domain.Comment) error
	GetByID(ctx context.Context, id uint) (*domain.Comment, error)
	GetByUserAndMovie(ctx context.Context, userID domain.UserID, movieSlug string) (*domain.Comment, error)
	ListByMovie(ctx context.Context, movieSlug string) ([]*domain.Comment, error)
	Update(ctx context.Context, comment *domain.Comment) error
	Delete(ctx context.Context, userID domain.UserID, id uint) error
}

// RoomLocker serializes read-modify-write sequences per room id. Operations
// on different rooms proceed in parallel; operations on the same room are a
// critical section.
type RoomLocker interface {
	// Lock blocks until the room's lock is held and returns the release
	// function. Release must be called exactly once.
	Lock(ctx context.Context, roomID domain.RoomID) (func(), error)
}
