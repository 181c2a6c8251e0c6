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

// RedisChatRepository keeps each room's chat as a capped list: RPUSH appends,
// LTRIM drops the oldest entries past the cap, and the key expires with the
// room's presence window.
type RedisChatRepository struct {
	client *redis.Client
	prefix string
	limit  int64
	ttl    time.Duration
}

func NewRedisChatRepository(client *redis.Client) ports.ChatRepository {
	return &RedisChatRepository{
		client: client,
		prefix: "cinesync:room_chat:",
		limit:  domain.ChatHistoryLimit,
		ttl:    domain.SessionTTL,
	}
}

func (r *RedisChatRepository) chatKey(roomID domain.RoomID) string {
	return r.prefix + string(roomID)
}

func (r *RedisChatRepository) Append(ctx context.Context, roomID domain.RoomID, msg domain.ChatMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal chat message: %w", err)
	}

	key := r.chatKey(roomID)
	pipe := r.client.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.LTrim(ctx, key, -r.limit, -1)
	pipe.Expire(ctx, key, r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append chat message: %w", err)
	}
	return nil
}

func (r *RedisChatRepository) History(ctx context.Context, roomID domain.RoomID) ([]domain.ChatMessage, error) {
	entries, err := r.client.LRange(ctx, r.chatKey(roomID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read chat history: %w", err)
	}

	messages := make([]domain.ChatMessage, 0, len(entries))
	for _, entry := range entries {
		var msg domain.ChatMessage
		if err := json.Unmarshal([]byte(entry), &msg); err != nil {
			// A corrupt entry should not hide the rest of the log.
			continue
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

func (r *RedisChatRepository) Clear(ctx context.Context, roomID domain.RoomID) error {
	if err := r.client.Del(ctx, r.chatKey(roomID)).Err(); err != nil {
		return fmt.Errorf("failed to clear chat history: %w", err)
	}
	return nil
}
