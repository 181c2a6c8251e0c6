package redis

import (
	"context"
	"time"

	"cinesync/internal/core/domain"
	"cinesync/internal/core/ports"
	"cinesync/pkg/distributed"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisRoomLocker backs the per-room critical section with a distributed
// lock, so multiple gateway instances can mutate the same room safely.
type RedisRoomLocker struct {
	manager *distributed.LockManager
	ttl     time.Duration
	logger  *zap.SugaredLogger
}

func NewRedisRoomLocker(client *redis.Client, ttl time.Duration, logger *zap.SugaredLogger) ports.RoomLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &RedisRoomLocker{
		manager: distributed.NewLockManager(client, "cinesync:room_lock:"),
		ttl:     ttl,
		logger:  logger,
	}
}

func (l *RedisRoomLocker) Lock(ctx context.Context, roomID domain.RoomID) (func(), error) {
	lock := l.manager.NewLock(string(roomID), l.ttl)
	if err := lock.Lock(ctx); err != nil {
		return nil, err
	}

	release := func() {
		// Release runs after the caller's ctx may already be done.
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := lock.Unlock(ctx); err != nil {
			l.logger.Warnw("failed to release room lock", "room_id", roomID, "error", err)
		}
	}
	return release, nil
}
