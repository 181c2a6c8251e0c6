package distributed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cinesync/internal/core/domain"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RoomEvent is a room notification fanned out across gateway instances.
// Targets lists the users it is addressed to; each instance delivers it to
// whichever of those users hold a socket there.
type RoomEvent struct {
	Event      string          `json:"event"`
	RoomID     domain.RoomID   `json:"room_id"`
	Targets    []domain.UserID `json:"targets"`
	InstanceID string          `json:"instance_id"`
	Timestamp  time.Time       `json:"timestamp"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// RoomEventBus relays room events between gateway instances over redis
// pub/sub. A single instance never sees its own events back.
type RoomEventBus struct {
	client     *redis.Client
	instanceID string
	channel    string
	logger     *zap.SugaredLogger
	pubsub     *redis.PubSub
}

func NewRoomEventBus(
	client *redis.Client,
	instanceID string,
	logger *zap.SugaredLogger,
) *RoomEventBus {
	return &RoomEventBus{
		client:     client,
		instanceID: instanceID,
		channel:    "cinesync:room_events",
		logger:     logger,
	}
}

// Publish sends a room event to all other gateway instances.
func (b *RoomEventBus) Publish(ctx context.Context, event *RoomEvent) error {
	event.InstanceID = b.instanceID
	event.Timestamp = time.Now()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal room event: %w", err)
	}

	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish room event: %w", err)
	}

	b.logger.Debugw("published room event",
		"event", event.Event,
		"room_id", event.RoomID,
		"targets", len(event.Targets),
	)
	return nil
}

// Subscribe consumes room events from other instances and calls handler for
// each one. Blocks until ctx is cancelled.
func (b *RoomEventBus) Subscribe(ctx context.Context, handler func(*RoomEvent)) error {
	if b.pubsub != nil {
		return fmt.Errorf("already subscribed")
	}

	b.pubsub = b.client.Subscribe(ctx, b.channel)
	defer b.pubsub.Close()

	ch := b.pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			var event RoomEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				b.logger.Warnw("failed to unmarshal room event",
					"error", err,
					"payload", msg.Payload,
				)
				continue
			}

			// Events from this instance were already delivered locally.
			if event.InstanceID == b.instanceID {
				continue
			}

			handler(&event)
		}
	}
}

// Close closes the underlying subscription.
func (b *RoomEventBus) Close() error {
	if b.pubsub != nil {
		return b.pubsub.Close()
	}
	return nil
}
