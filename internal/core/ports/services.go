package ports

import (
	"context"

	"cinesync/internal/core/domain"
)

type CreateRoomParams struct {
	Name       string
	MovieURL   string
	MovieTitle string
	Capacity   int
}

// RoomService is the session synchronization engine: it validates actions
// against the capability model, mutates the playback snapshot, keeps the
// presence store and chat log in step, and tells the transport what changed.
type RoomService interface {
	CreateRoom(ctx context.Context, hostID domain.UserID, params CreateRoomParams) (*domain.Room, error)
	GetRoom(ctx context.Context, roomID domain.RoomID) (*domain.Room, error)
	GetRoomByCode(ctx context.Context, code string) (*domain.Room, error)
	ListRooms(ctx context.Context, userID domain.UserID, filter domain.RoomFilter) ([]*domain.Room, error)

	JoinRoom(ctx context.Context, roomID domain.RoomID, userID domain.UserID, connID domain.ConnectionID) (*domain.JoinResult, error)
	LeaveRoom(ctx context.Context, roomID domain.RoomID, userID domain.UserID) (*domain.LeaveResult, error)
	UpdatePlayerState(ctx context.Context, roomID domain.RoomID, userID domain.UserID, upd domain.PlayerUpdate) (*domain.Room, error)
	SetPermissions(ctx context.Context, roomID domain.RoomID, hostID, viewerID domain.UserID, perms domain.PermissionSet) (*domain.Room, error)
	KickViewer(ctx context.Context, roomID domain.RoomID, hostID, viewerID domain.UserID) (*domain.LeaveResult, error)

	RoomMembers(ctx context.Context, roomID domain.RoomID) ([]domain.Member, error)
	CurrentRoomOf(ctx context.Context, userID domain.UserID) (domain.RoomID, error)

	AppendChat(ctx context.Context, roomID domain.RoomID, userID domain.UserID, text string) (*domain.ChatMessage, error)
	ChatHistory(ctx context.Context, roomID domain.RoomID) ([]domain.ChatMessage, error)
}

type MovieService interface {
	AddFavorite(ctx context.Context, userID domain.UserID, movie *domain.FavoriteMovie) (*domain.FavoriteMovie, error)
	DeleteFavorite(ctx context.Context, userID domain.UserID, movieID uint) error
	ListFavorites(ctx context.Context, userID domain.UserID) ([]*domain.FavoriteMovie, error)
}

type CommentService interface {
	AddComment(ctx context.Context, userID domain.UserID, comment *domain.Comment) (*domain.Comment, error)
	UpdateComment(ctx context.Context, userID domain.UserID, id uint, content string, rating float64) (*domain.Comment, error)
	DeleteComment(ctx context.Context, userID domain.UserID, id uint) error
	ListByMovie(ctx context.Context, movieSlug string) ([]*domain.Comment, error)
}

type UserService interface {
	GetUser(ctx context.Context, id domain.UserID) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUsers(ctx context.Context, ids []domain.UserID) ([]*domain.User, error)
}
