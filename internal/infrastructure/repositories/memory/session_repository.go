package memory

import (
	"context"
	"sync"
	"time"

	"cinesync/internal/core/domain"
	"cinesync/internal/core/ports"
)

type MemorySessionRepository struct {
	sessions map[domain.RoomID]*domain.Session
	userRoom map[string]domain.RoomID
	mu       sync.RWMutex
}

func NewMemorySessionRepository() ports.SessionRepository {
	return &MemorySessionRepository{
		sessions: make(map[domain.RoomID]*domain.Session),
		userRoom: make(map[string]domain.RoomID),
	}
}

func (r *MemorySessionRepository) InitRoom(ctx context.Context, roomID domain.RoomID, hostID domain.UserID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[roomID]; exists {
		return nil
	}
	// The host is the session's sole initial member; its live connection
	// attaches later.
	session := &domain.Session{
		RoomID:       roomID,
		LastActivity: time.Now(),
	}
	session.Members.Upsert(domain.Member{UserID: hostID, Role: domain.RoleHost})
	r.sessions[roomID] = session
	r.userRoom[domain.NormalizeID(hostID)] = roomID
	return nil
}

func (r *MemorySessionRepository) AddMember(ctx context.Context, roomID domain.RoomID, member domain.Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, exists := r.sessions[roomID]
	if !exists {
		session = &domain.Session{RoomID: roomID}
		r.sessions[roomID] = session
	}
	session.Members.Upsert(member)
	session.LastActivity = time.Now()
	r.userRoom[domain.NormalizeID(member.UserID)] = roomID
	return nil
}

func (r *MemorySessionRepository) RemoveMember(ctx context.Context, roomID domain.RoomID, userID domain.UserID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, exists := r.sessions[roomID]
	if !exists {
		return nil
	}
	session.Members.Remove(userID)
	session.LastActivity = time.Now()
	delete(r.userRoom, domain.NormalizeID(userID))
	return nil
}

func (r *MemorySessionRepository) ListMembers(ctx context.Context, roomID domain.RoomID) ([]domain.Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, exists := r.sessions[roomID]
	if !exists {
		return []domain.Member{}, nil
	}
	return session.Members.Members(), nil
}

func (r *MemorySessionRepository) CurrentRoomOf(ctx context.Context, userID domain.UserID) (domain.RoomID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.userRoom[domain.NormalizeID(userID)], nil
}

func (r *MemorySessionRepository) ClearRoom(ctx context.Context, roomID domain.RoomID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, exists := r.sessions[roomID]
	if !exists {
		return nil
	}
	for _, m := range session.Members.Members() {
		delete(r.userRoom, domain.NormalizeID(m.UserID))
	}
	delete(r.sessions, roomID)
	return nil
}
