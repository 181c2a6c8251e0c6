package memory

import (
	"context"
	"sync"

	"cinesync/internal/core/domain"
	"cinesync/internal/core/ports"
)

type MemoryChatRepository struct {
	logs map[domain.RoomID][]domain.ChatMessage
	mu   sync.RWMutex
}

func NewMemoryChatRepository() ports.ChatRepository {
	return &MemoryChatRepository{
		logs: make(map[domain.RoomID][]domain.ChatMessage),
	}
}

func (r *MemoryChatRepository) Append(ctx context.Context, roomID domain.RoomID, msg domain.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	log := append(r.logs[roomID], msg)
	// Keep only the newest messages, oldest dropped first.
	if len(log) > domain.ChatHistoryLimit {
		log = log[len(log)-domain.ChatHistoryLimit:]
	}
	r.logs[roomID] = log
	return nil
}

func (r *MemoryChatRepository) History(ctx context.Context, roomID domain.RoomID) ([]domain.ChatMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	log := r.logs[roomID]
	out := make([]domain.ChatMessage, len(log))
	copy(out, log)
	return out, nil
}

func (r *MemoryChatRepository) Clear(ctx context.Context, roomID domain.RoomID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.logs, roomID)
	return nil
}
