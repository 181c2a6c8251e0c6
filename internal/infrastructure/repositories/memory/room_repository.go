package memory

import (
	"context"
	"fmt"
	"sync"

	"cinesync/internal/core/domain"
	"cinesync/internal/core/ports"
)

type MemoryRoomRepository struct {
	rooms  map[domain.RoomID]*domain.Room
	byCode map[string]domain.RoomID
	mu     sync.RWMutex
}

func NewMemoryRoomRepository() ports.RoomRepository {
	return &MemoryRoomRepository{
		rooms:  make(map[domain.RoomID]*domain.Room),
		byCode: make(map[string]domain.RoomID),
	}
}

func (r *MemoryRoomRepository) Create(ctx context.Context, room *domain.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.rooms[room.ID]; exists {
		return fmt.Errorf("%w: room %s", domain.ErrAlreadyExists, room.ID)
	}
	if _, exists := r.byCode[room.Code]; exists {
		return fmt.Errorf("%w: code %s", domain.ErrAlreadyExists, room.Code)
	}

	r.rooms[room.ID] = cloneRoom(room)
	r.byCode[room.Code] = room.ID
	return nil
}

func (r *MemoryRoomRepository) GetByID(ctx context.Context, id domain.RoomID) (*domain.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, exists := r.rooms[id]
	if !exists || !room.Active {
		return nil, domain.ErrRoomNotFound
	}
	return cloneRoom(room), nil
}

func (r *MemoryRoomRepository) GetByCode(ctx context.Context, code string) (*domain.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.byCode[code]
	if !exists {
		return nil, domain.ErrRoomNotFound
	}
	room := r.rooms[id]
	if room == nil || !room.Active {
		return nil, domain.ErrRoomNotFound
	}
	return cloneRoom(room), nil
}

func (r *MemoryRoomRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.byCode[code]
	return exists, nil
}

func (r *MemoryRoomRepository) Save(ctx context.Context, room *domain.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.rooms[room.ID]; !exists {
		return domain.ErrRoomNotFound
	}
	r.rooms[room.ID] = cloneRoom(room)
	return nil
}

func (r *MemoryRoomRepository) ListActive(ctx context.Context) ([]*domain.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	active := make([]*domain.Room, 0)
	for _, room := range r.rooms {
		if room.Active {
			active = append(active, cloneRoom(room))
		}
	}
	return active, nil
}

func (r *MemoryRoomRepository) ListByHost(ctx context.Context, hostID domain.UserID) ([]*domain.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	owned := make([]*domain.Room, 0)
	for _, room := range r.rooms {
		if room.Active && room.IsHost(hostID) {
			owned = append(owned, cloneRoom(room))
		}
	}
	return owned, nil
}

// cloneRoom keeps callers from mutating the stored record outside Save.
func cloneRoom(room *domain.Room) *domain.Room {
	c := *room
	c.ViewerIDs = append([]domain.UserID(nil), room.ViewerIDs...)
	c.Permissions = make(map[domain.UserID]domain.PermissionSet, len(room.Permissions))
	for id, perms := range room.Permissions {
		c.Permissions[id] = append(domain.PermissionSet(nil), perms...)
	}
	return &c
}
