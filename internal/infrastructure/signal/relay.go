package signal

import (
	"sync"
	"time"

	"cinesync/internal/core/domain"

	"go.uber.org/zap"
)

type syncKey struct {
	roomID    domain.RoomID
	requester domain.UserID
}

type pendingSync struct {
	timer *time.Timer
}

// HostSyncRelay tracks in-flight position requests from late joiners to a
// room's host. A request either resolves when the host reports its live
// clock, or times out and falls back to whatever the caller supplied.
type HostSyncRelay struct {
	pending map[syncKey]*pendingSync
	timeout time.Duration
	mu      sync.Mutex
	logger  *zap.SugaredLogger
}

func NewHostSyncRelay(timeout time.Duration, logger *zap.SugaredLogger) *HostSyncRelay {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HostSyncRelay{
		pending: make(map[syncKey]*pendingSync),
		timeout: timeout,
		logger:  logger,
	}
}

// Register records that requester is waiting for the host of roomID to report
// its position. onTimeout fires once if no response arrives in time. A second
// register for the same requester resets the clock.
func (r *HostSyncRelay) Register(roomID domain.RoomID, requester domain.UserID, onTimeout func()) {
	key := syncKey{roomID: roomID, requester: requester}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.pending[key]; ok {
		existing.timer.Stop()
	}

	timer := time.AfterFunc(r.timeout, func() {
		r.mu.Lock()
		_, stillPending := r.pending[key]
		delete(r.pending, key)
		r.mu.Unlock()

		if stillPending {
			r.logger.Warnw("host position request timed out",
				"room_id", roomID, "requester", requester)
			onTimeout()
		}
	})
	r.pending[key] = &pendingSync{timer: timer}
}

// Resolve consumes every pending request for roomID and returns the waiting
// requesters. One host response serves all of them.
func (r *HostSyncRelay) Resolve(roomID domain.RoomID) []domain.UserID {
	r.mu.Lock()
	defer r.mu.Unlock()

	var requesters []domain.UserID
	for key, entry := range r.pending {
		if key.roomID == roomID {
			entry.timer.Stop()
			delete(r.pending, key)
			requesters = append(requesters, key.requester)
		}
	}
	return requesters
}

// Cancel drops a single pending request, for a requester that left before
// the host answered.
func (r *HostSyncRelay) Cancel(roomID domain.RoomID, requester domain.UserID) {
	key := syncKey{roomID: roomID, requester: requester}

	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, ok := r.pending[key]; ok {
		entry.timer.Stop()
		delete(r.pending, key)
	}
}

// CancelRoom drops every pending request for a room, for when the room closes.
func (r *HostSyncRelay) CancelRoom(roomID domain.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, entry := range r.pending {
		if key.roomID == roomID {
			entry.timer.Stop()
			delete(r.pending, key)
		}
	}
}
