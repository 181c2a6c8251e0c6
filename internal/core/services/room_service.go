package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"cinesync/internal/core/domain"
	"cinesync/internal/core/ports"
	"cinesync/pkg/utils"
	"cinesync/pkg/validation"

	"go.uber.org/zap"
)

const (
	codeAlphabet    = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength      = 6
	codeMaxAttempts = 10
)

type roomService struct {
	rooms    ports.RoomRepository
	sessions ports.SessionRepository
	chat     ports.ChatRepository
	locks    ports.RoomLocker

	defaultCapacity int
	logger          *zap.SugaredLogger
}

// NewRoomService builds the session synchronization engine. All mutating
// operations serialize per room id through the locker; reads go straight to
// the repositories.
func NewRoomService(
	rooms ports.RoomRepository,
	sessions ports.SessionRepository,
	chat ports.ChatRepository,
	locks ports.RoomLocker,
	defaultCapacity int,
	logger *zap.SugaredLogger,
) ports.RoomService {
	if defaultCapacity <= 0 {
		defaultCapacity = domain.DefaultCapacity
	}
	return &roomService{
		rooms:           rooms,
		sessions:        sessions,
		chat:            chat,
		locks:           locks,
		defaultCapacity: defaultCapacity,
		logger:          logger,
	}
}

func (s *roomService) CreateRoom(ctx context.Context, hostID domain.UserID, params ports.CreateRoomParams) (*domain.Room, error) {
	if err := validation.ValidateRoomName(params.Name); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidInput, err)
	}
	if err := validation.ValidateMovieURL(params.MovieURL); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidInput, err)
	}
	capacity := params.Capacity
	if capacity == 0 {
		capacity = s.defaultCapacity
	}
	if err := validation.ValidateCapacity(capacity); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidInput, err)
	}

	code, err := s.generateUniqueCode(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to generate join code: %w", err)
	}

	now := time.Now()
	room := &domain.Room{
		ID:         domain.RoomID(utils.GenerateRoomID()),
		Name:       params.Name,
		Code:       code,
		MovieURL:   params.MovieURL,
		MovieTitle: params.MovieTitle,
		HostID:     hostID,
		Playback: domain.PlaybackState{
			Position: 0,
			Playing:  false,
			Rate:     1.0,
			Volume:   1.0,
		},
		Capacity:    capacity,
		ViewerIDs:   []domain.UserID{},
		Permissions: map[domain.UserID]domain.PermissionSet{},
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.rooms.Create(ctx, room); err != nil {
		return nil, fmt.Errorf("failed to create room: %w", err)
	}

	// The host gets a presence session immediately so the room counts as
	// live even before its websocket attaches.
	if err := s.sessions.InitRoom(ctx, room.ID, hostID); err != nil {
		return nil, fmt.Errorf("failed to init room session: %w", err)
	}

	s.logger.Infow("room created", "room_id", room.ID, "code", room.Code, "host_id", hostID)
	return room, nil
}

func (s *roomService) GetRoom(ctx context.Context, roomID domain.RoomID) (*domain.Room, error) {
	return s.rooms.GetByID(ctx, roomID)
}

func (s *roomService) GetRoomByCode(ctx context.Context, code string) (*domain.Room, error) {
	if err := validation.ValidateJoinCode(code); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidInput, err)
	}
	return s.rooms.GetByCode(ctx, code)
}

func (s *roomService) ListRooms(ctx context.Context, userID domain.UserID, filter domain.RoomFilter) ([]*domain.Room, error) {
	switch filter {
	case domain.FilterMyRooms:
		return s.rooms.ListByHost(ctx, userID)

	case domain.FilterJoined:
		all, err := s.rooms.ListActive(ctx)
		if err != nil {
			return nil, err
		}
		joined := make([]*domain.Room, 0)
		for _, room := range all {
			if room.HasViewer(userID) && !room.IsHost(userID) {
				joined = append(joined, room)
			}
		}
		return joined, nil

	case domain.FilterLiveNow:
		all, err := s.rooms.ListActive(ctx)
		if err != nil {
			return nil, err
		}
		live := make([]*domain.Room, 0)
		for _, room := range all {
			members, err := s.sessions.ListMembers(ctx, room.ID)
			if err != nil {
				s.logger.Warnw("failed to read room presence", "room_id", room.ID, "error", err)
				continue
			}
			if len(members) > 0 {
				live = append(live, room)
			}
		}
		return live, nil

	case domain.FilterAll, "":
		return s.rooms.ListActive(ctx)

	default:
		return nil, fmt.Errorf("%w: unknown filter %q", domain.ErrInvalidInput, filter)
	}
}

func (s *roomService) JoinRoom(ctx context.Context, roomID domain.RoomID, userID domain.UserID, connID domain.ConnectionID) (*domain.JoinResult, error) {
	unlock, err := s.locks.Lock(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock room: %w", err)
	}
	defer unlock()

	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}

	// Host attaches without touching the viewer list or capacity.
	if room.IsHost(userID) {
		member := domain.Member{UserID: userID, Role: domain.RoleHost, ConnectionID: connID}
		if err := s.sessions.AddMember(ctx, roomID, member); err != nil {
			return nil, fmt.Errorf("failed to add host to session: %w", err)
		}
		members, err := s.sessions.ListMembers(ctx, roomID)
		if err != nil {
			return nil, err
		}
		return &domain.JoinResult{Room: room, Role: domain.RoleHost, Members: members}, nil
	}

	members, err := s.sessions.ListMembers(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if liveViewerCount(members, room) >= room.Capacity {
		if _, present := findMember(members, userID); !present {
			return nil, domain.ErrRoomFull
		}
	}

	if !room.HasViewer(userID) {
		room.AddViewer(userID)
		if err := s.rooms.Save(ctx, room); err != nil {
			return nil, fmt.Errorf("failed to persist viewer: %w", err)
		}
	}

	member := domain.Member{UserID: userID, Role: domain.RoleViewer, ConnectionID: connID}
	if err := s.sessions.AddMember(ctx, roomID, member); err != nil {
		return nil, fmt.Errorf("failed to add viewer to session: %w", err)
	}

	members, err = s.sessions.ListMembers(ctx, roomID)
	if err != nil {
		return nil, err
	}

	s.logger.Infow("viewer joined room", "room_id", roomID, "user_id", userID)
	return &domain.JoinResult{
		Room:    room,
		Role:    domain.RoleViewer,
		Members: members,
		// While playing, the persisted position lags real elapsed time;
		// the transport must ask the host's live clock.
		NeedsHostSync: room.Playback.Playing,
	}, nil
}

func (s *roomService) LeaveRoom(ctx context.Context, roomID domain.RoomID, userID domain.UserID) (*domain.LeaveResult, error) {
	unlock, err := s.locks.Lock(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock room: %w", err)
	}
	defer unlock()

	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}

	// Host leaving closes the room for good: the record is deactivated,
	// never deleted, and presence and chat are purged.
	if room.IsHost(userID) {
		room.Active = false
		room.UpdatedAt = time.Now()
		if err := s.rooms.Save(ctx, room); err != nil {
			return nil, fmt.Errorf("failed to deactivate room: %w", err)
		}
		if err := s.sessions.ClearRoom(ctx, roomID); err != nil {
			return nil, fmt.Errorf("failed to clear room session: %w", err)
		}
		if err := s.chat.Clear(ctx, roomID); err != nil {
			return nil, fmt.Errorf("failed to clear room chat: %w", err)
		}
		s.logger.Infow("host left, room closed", "room_id", roomID, "host_id", userID)
		return &domain.LeaveResult{RoomClosed: true}, nil
	}

	room.RemoveViewer(userID)
	if err := s.rooms.Save(ctx, room); err != nil {
		return nil, fmt.Errorf("failed to persist viewer removal: %w", err)
	}
	if err := s.sessions.RemoveMember(ctx, roomID, userID); err != nil {
		return nil, fmt.Errorf("failed to remove viewer from session: %w", err)
	}

	members, err := s.sessions.ListMembers(ctx, roomID)
	if err != nil {
		return nil, err
	}

	s.logger.Infow("viewer left room", "room_id", roomID, "user_id", userID)
	return &domain.LeaveResult{Members: members}, nil
}

func (s *roomService) UpdatePlayerState(ctx context.Context, roomID domain.RoomID, userID domain.UserID, upd domain.PlayerUpdate) (*domain.Room, error) {
	unlock, err := s.locks.Lock(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock room: %w", err)
	}
	defer unlock()

	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}

	if !room.IsHost(userID) {
		// All-or-nothing: if any requested field is not permitted, no
		// field is applied.
		if err := domain.Authorize(room.PermissionsOf(userID), upd); err != nil {
			return nil, err
		}
	}

	room.ApplyUpdate(upd)
	if err := s.rooms.Save(ctx, room); err != nil {
		return nil, fmt.Errorf("failed to persist player state: %w", err)
	}
	return room, nil
}

func (s *roomService) SetPermissions(ctx context.Context, roomID domain.RoomID, hostID, viewerID domain.UserID, perms domain.PermissionSet) (*domain.Room, error) {
	for _, p := range perms {
		if !domain.ValidPermission(p) {
			return nil, fmt.Errorf("%w: unknown permission %q", domain.ErrInvalidInput, p)
		}
	}

	unlock, err := s.locks.Lock(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock room: %w", err)
	}
	defer unlock()

	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.IsHost(hostID) {
		return nil, domain.ErrForbidden
	}
	if !room.HasViewer(viewerID) {
		return nil, domain.ErrNotAViewer
	}

	// Replacement, not merge: the new set is exactly what was sent.
	room.Permissions[viewerID] = perms
	room.UpdatedAt = time.Now()
	if err := s.rooms.Save(ctx, room); err != nil {
		return nil, fmt.Errorf("failed to persist permissions: %w", err)
	}

	s.logger.Infow("permissions set", "room_id", roomID, "viewer_id", viewerID, "permissions", perms)
	return room, nil
}

func (s *roomService) KickViewer(ctx context.Context, roomID domain.RoomID, hostID, viewerID domain.UserID) (*domain.LeaveResult, error) {
	unlock, err := s.locks.Lock(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock room: %w", err)
	}
	defer unlock()

	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.IsHost(hostID) {
		return nil, domain.ErrForbidden
	}
	if !room.HasViewer(viewerID) {
		return nil, domain.ErrNotAViewer
	}

	room.RemoveViewer(viewerID)
	if err := s.rooms.Save(ctx, room); err != nil {
		return nil, fmt.Errorf("failed to persist viewer removal: %w", err)
	}
	if err := s.sessions.RemoveMember(ctx, roomID, viewerID); err != nil {
		return nil, fmt.Errorf("failed to remove viewer from session: %w", err)
	}

	members, err := s.sessions.ListMembers(ctx, roomID)
	if err != nil {
		return nil, err
	}

	s.logger.Infow("viewer kicked", "room_id", roomID, "viewer_id", viewerID)
	return &domain.LeaveResult{Members: members}, nil
}

func (s *roomService) RoomMembers(ctx context.Context, roomID domain.RoomID) ([]domain.Member, error) {
	return s.sessions.ListMembers(ctx, roomID)
}

func (s *roomService) CurrentRoomOf(ctx context.Context, userID domain.UserID) (domain.RoomID, error) {
	return s.sessions.CurrentRoomOf(ctx, userID)
}

func (s *roomService) AppendChat(ctx context.Context, roomID domain.RoomID, userID domain.UserID, text string) (*domain.ChatMessage, error) {
	if err := validation.ValidateChatText(text); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidInput, err)
	}

	// Chat is open to every participant; the only gate is that the room
	// is still live.
	if _, err := s.rooms.GetByID(ctx, roomID); err != nil {
		return nil, err
	}

	msg := domain.ChatMessage{
		UserID:    userID,
		Text:      utils.SanitizeString(text),
		CreatedAt: time.Now(),
	}
	if err := s.chat.Append(ctx, roomID, msg); err != nil {
		return nil, fmt.Errorf("failed to append chat message: %w", err)
	}
	return &msg, nil
}

func (s *roomService) ChatHistory(ctx context.Context, roomID domain.RoomID) ([]domain.ChatMessage, error) {
	return s.chat.History(ctx, roomID)
}

// generateUniqueCode draws 6 characters from the 36-character alphabet by
// rejection sampling and retries until no room holds the code.
func (s *roomService) generateUniqueCode(ctx context.Context) (string, error) {
	// Largest multiple of 36 below 256; bytes at or above it would bias
	// the tail of the alphabet.
	const limit = byte(252)

	for attempt := 0; attempt < codeMaxAttempts; attempt++ {
		code := make([]byte, 0, codeLength)
		for len(code) < codeLength {
			var b [1]byte
			if _, err := rand.Read(b[:]); err != nil {
				return "", fmt.Errorf("read random bytes: %w", err)
			}
			if b[0] >= limit {
				continue
			}
			code = append(code, codeAlphabet[b[0]%36])
		}

		exists, err := s.rooms.CodeExists(ctx, string(code))
		if err != nil {
			return "", err
		}
		if !exists {
			return string(code), nil
		}
	}
	return "", fmt.Errorf("could not find a free join code after %d attempts", codeMaxAttempts)
}

func liveViewerCount(members []domain.Member, room *domain.Room) int {
	n := 0
	for _, m := range members {
		if !room.IsHost(m.UserID) {
			n++
		}
	}
	return n
}

func findMember(members []domain.Member, id domain.UserID) (domain.Member, bool) {
	for _, m := range members {
		if domain.NormalizeID(m.UserID) == domain.NormalizeID(id) {
			return m, true
		}
	}
	return domain.Member{}, false
}
