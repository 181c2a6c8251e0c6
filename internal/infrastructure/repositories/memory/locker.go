package memory

import (
	"context"
	"hash/fnv"
	"sync"

	"cinesync/internal/core/domain"
	"cinesync/internal/core/ports"
)

const lockShards = 64

// MemoryRoomLocker serializes per-room critical sections with a sharded
// mutex table. Only valid for a single-process deployment; multi-instance
// setups need the Redis locker.
type MemoryRoomLocker struct {
	shards [lockShards]sync.Mutex
}

func NewMemoryRoomLocker() ports.RoomLocker {
	return &MemoryRoomLocker{}
}

func (l *MemoryRoomLocker) Lock(ctx context.Context, roomID domain.RoomID) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	h := fnv.New32a()
	h.Write([]byte(roomID))
	mu := &l.shards[h.Sum32()%lockShards]

	mu.Lock()
	var once sync.Once
	return func() { once.Do(mu.Unlock) }, nil
}
