package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cinesync/internal/core/domain"
	"cinesync/internal/core/ports"

	"github.com/redis/go-redis/v9"
)

// RedisSessionRepository stores each room's presence row as a JSON blob and
// keeps a reverse user->room index for disconnect handling. Every write
// refreshes both keys' expiry; rows for abandoned rooms age out on their own.
// Read-modify-write here is safe because the engine serializes all session
// mutations per room through the room locker.
type RedisSessionRepository struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisSessionRepository(client *redis.Client) ports.SessionRepository {
	return &RedisSessionRepository{
		client: client,
		prefix: "cinesync:",
		ttl:    domain.SessionTTL,
	}
}

func (r *RedisSessionRepository) sessionKey(roomID domain.RoomID) string {
	return r.prefix + "room_session:" + string(roomID)
}

func (r *RedisSessionRepository) userRoomKey(userID domain.UserID) string {
	return r.prefix + "user_room:" + domain.NormalizeID(userID)
}

func (r *RedisSessionRepository) load(ctx context.Context, roomID domain.RoomID) (*domain.Session, error) {
	data, err := r.client.Get(ctx, r.sessionKey(roomID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session from Redis: %w", err)
	}

	var session domain.Session
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &session, nil
}

func (r *RedisSessionRepository) store(ctx context.Context, session *domain.Session) error {
	session.LastActivity = time.Now()
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := r.client.Set(ctx, r.sessionKey(session.RoomID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set session in Redis: %w", err)
	}
	return nil
}

func (r *RedisSessionRepository) InitRoom(ctx context.Context, roomID domain.RoomID, hostID domain.UserID) error {
	existing, err := r.load(ctx, roomID)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	// The host is the session's sole initial member; its live connection
	// attaches later.
	session := &domain.Session{RoomID: roomID}
	session.Members.Upsert(domain.Member{UserID: hostID, Role: domain.RoleHost})
	if err := r.store(ctx, session); err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.userRoomKey(hostID), string(roomID), r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set user room index: %w", err)
	}
	return nil
}

func (r *RedisSessionRepository) AddMember(ctx context.Context, roomID domain.RoomID, member domain.Member) error {
	session, err := r.load(ctx, roomID)
	if err != nil {
		return err
	}
	if session == nil {
		session = &domain.Session{RoomID: roomID}
	}

	session.Members.Upsert(member)
	if err := r.store(ctx, session); err != nil {
		return err
	}

	if err := r.client.Set(ctx, r.userRoomKey(member.UserID), string(roomID), r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set user room index: %w", err)
	}
	return nil
}

func (r *RedisSessionRepository) RemoveMember(ctx context.Context, roomID domain.RoomID, userID domain.UserID) error {
	session, err := r.load(ctx, roomID)
	if err != nil {
		return err
	}
	if session != nil && session.Members.Remove(userID) {
		if err := r.store(ctx, session); err != nil {
			return err
		}
	}

	if err := r.client.Del(ctx, r.userRoomKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to delete user room index: %w", err)
	}
	return nil
}

func (r *RedisSessionRepository) ListMembers(ctx context.Context, roomID domain.RoomID) ([]domain.Member, error) {
	session, err := r.load(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return []domain.Member{}, nil
	}
	return session.Members.Members(), nil
}

func (r *RedisSessionRepository) CurrentRoomOf(ctx context.Context, userID domain.UserID) (domain.RoomID, error) {
	roomID, err := r.client.Get(ctx, r.userRoomKey(userID)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get user room index: %w", err)
	}
	return domain.RoomID(roomID), nil
}

func (r *RedisSessionRepository) ClearRoom(ctx context.Context, roomID domain.RoomID) error {
	session, err := r.load(ctx, roomID)
	if err != nil {
		return err
	}
	if session != nil {
		for _, m := range session.Members.Members() {
			if err := r.client.Del(ctx, r.userRoomKey(m.UserID)).Err(); err != nil {
				return fmt.Errorf("failed to delete user room index: %w", err)
			}
		}
	}
	if err := r.client.Del(ctx, r.sessionKey(roomID)).Err(); err != nil {
		return fmt.Errorf("failed to delete session from Redis: %w", err)
	}
	return nil
}
