package services

import (
	"context"
	"regexp"
	"testing"

	"cinesync/internal/core/domain"
	"cinesync/internal/core/ports"
	"cinesync/internal/infrastructure/repositories/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestRoomService(t *testing.T) ports.RoomService {
	t.Helper()
	return NewRoomService(
		memory.NewMemoryRoomRepository(),
		memory.NewMemorySessionRepository(),
		memory.NewMemoryChatRepository(),
		memory.NewMemoryRoomLocker(),
		100,
		zaptest.NewLogger(t).Sugar(),
	)
}

func createTestRoom(t *testing.T, svc ports.RoomService, hostID domain.UserID, capacity int) *domain.Room {
	t.Helper()
	room, err := svc.CreateRoom(context.Background(), hostID, ports.CreateRoomParams{
		Name:     "movie night",
		MovieURL: "https://cdn.example.com/movie.m3u8",
		Capacity: capacity,
	})
	require.NoError(t, err)
	return room
}

func f64(v float64) *float64 { return &v }
func b(v bool) *bool         { return &v }

func TestCreateRoom(t *testing.T) {
	svc := newTestRoomService(t)
	ctx := context.Background()

	room := createTestRoom(t, svc, "host-1", 0)

	assert.Regexp(t, regexp.MustCompile(`^[A-Z0-9]{6}$`), room.Code)
	assert.Equal(t, domain.UserID("host-1"), room.HostID)
	assert.Equal(t, 100, room.Capacity)
	assert.True(t, room.Active)
	assert.False(t, room.Playback.Playing)
	assert.Equal(t, 1.0, room.Playback.Rate)
	assert.Empty(t, room.ViewerIDs)

	byCode, err := svc.GetRoomByCode(ctx, room.Code)
	require.NoError(t, err)
	assert.Equal(t, room.ID, byCode.ID)
}

func TestCreateRoom_InvalidInput(t *testing.T) {
	svc := newTestRoomService(t)
	ctx := context.Background()

	_, err := svc.CreateRoom(ctx, "host-1", ports.CreateRoomParams{
		Name:     "",
		MovieURL: "https://cdn.example.com/movie.m3u8",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.CreateRoom(ctx, "host-1", ports.CreateRoomParams{
		Name:     "movie night",
		MovieURL: "not a url",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.CreateRoom(ctx, "host-1", ports.CreateRoomParams{
		Name:     "movie night",
		MovieURL: "https://cdn.example.com/movie.m3u8",
		Capacity: 5000,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestJoinRoom_ViewerGetsEmptyPermissions(t *testing.T) {
	svc := newTestRoomService(t)
	ctx := context.Background()
	room := createTestRoom(t, svc, "host-1", 0)

	result, err := svc.JoinRoom(ctx, room.ID, "viewer-1", "conn-1")
	require.NoError(t, err)

	assert.Equal(t, domain.RoleViewer, result.Role)
	assert.True(t, result.Room.HasViewer("viewer-1"))
	assert.Empty(t, result.Room.PermissionsOf("viewer-1"))
	assert.False(t, result.NeedsHostSync)
}

func TestJoinRoom_HostNotInViewerList(t *testing.T) {
	svc := newTestRoomService(t)
	ctx := context.Background()
	room := createTestRoom(t, svc, "host-1", 0)

	result, err := svc.JoinRoom(ctx, room.ID, "host-1", "conn-h")
	require.NoError(t, err)

	assert.Equal(t, domain.RoleHost, result.Role)
	assert.False(t, result.Room.HasViewer("host-1"))
}

func TestJoinRoom_Idempotent(t *testing.T) {
	svc := newTestRoomService(t)
	ctx := context.Background()
	room := createTestRoom(t, svc, "host-1", 0)

	_, err := svc.JoinRoom(ctx, room.ID, "viewer-1", "conn-1")
	require.NoError(t, err)
	result, err := svc.JoinRoom(ctx, room.ID, "viewer-1", "conn-2")
	require.NoError(t, err)

	assert.Len(t, result.Room.ViewerIDs, 1)

	// Presence holds the seeded host plus one viewer entry; the rejoin
	// replaced the viewer's connection rather than adding a duplicate.
	members, err := svc.RoomMembers(ctx, room.ID)
	require.NoError(t, err)
	assert.Len(t, members, 2)
	viewer, found := findMember(members, "viewer-1")
	require.True(t, found)
	assert.Equal(t, domain.ConnectionID("conn-2"), viewer.ConnectionID)
}

func TestJoinRoom_CapacityExcludesHost(t *testing.T) {
	svc := newTestRoomService(t)
	ctx := context.Background()
	room := createTestRoom(t, svc, "host-1", 2)

	_, err := svc.JoinRoom(ctx, room.ID, "host-1", "conn-h")
	require.NoError(t, err)
	_, err = svc.JoinRoom(ctx, room.ID, "viewer-1", "conn-1")
	require.NoError(t, err)
	_, err = svc.JoinRoom(ctx, room.ID, "viewer-2", "conn-2")
	require.NoError(t, err)

	_, err = svc.JoinRoom(ctx, room.ID, "viewer-3", "conn-3")
	assert.ErrorIs(t, err, domain.ErrRoomFull)
}

func TestJoinRoom_RejoinWhileFull(t *testing.T) {
	svc := newTestRoomService(t)
	ctx := context.Background()
	room := createTestRoom(t, svc, "host-1", 1)

	_, err := svc.JoinRoom(ctx, room.ID, "viewer-1", "conn-1")
	require.NoError(t, err)

	// A member already counted against capacity may reconnect.
	_, err = svc.JoinRoom(ctx, room.ID, "viewer-1", "conn-1b")
	assert.NoError(t, err)
}

func TestJoinRoom_NeedsHostSyncWhilePlaying(t *testing.T) {
	svc := newTestRoomService(t)
	ctx := context.Background()
	room := createTestRoom(t, svc, "host-1", 0)

	_, err := svc.UpdatePlayerState(ctx, room.ID, "host-1", domain.PlayerUpdate{
		Playing: b(true), Position: f64(120),
	})
	require.NoError(t, err)

	result, err := svc.JoinRoom(ctx, room.ID, "viewer-1", "conn-1")
	require.NoError(t, err)
	assert.True(t, result.NeedsHostSync)
}

func TestLeaveRoom_ViewerKeepsRoomOpen(t *testing.T) {
	svc := newTestRoomService(t)
	ctx := context.Background()
	room := createTestRoom(t, svc, "host-1", 0)

	_, err := svc.JoinRoom(ctx, room.ID, "viewer-1", "conn-1")
	require.NoError(t, err)

	result, err := svc.LeaveRoom(ctx, room.ID, "viewer-1")
	require.NoError(t, err)
	assert.False(t, result.RoomClosed)

	got, err := svc.GetRoom(ctx, room.ID)
	require.NoError(t, err)
	assert.False(t, got.HasViewer("viewer-1"))

	current, err := svc.CurrentRoomOf(ctx, "viewer-1")
	require.NoError(t, err)
	assert.Empty(t, current)
}

func TestLeaveRoom_HostClosesRoom(t *testing.T) {
	svc := newTestRoomService(t)
	ctx := context.Background()
	room := createTestRoom(t, svc, "host-1", 0)

	_, err := svc.JoinRoom(ctx, room.ID, "viewer-1", "conn-1")
	require.NoError(t, err)
	_, err = svc.AppendChat(ctx, room.ID, "viewer-1", "hello")
	require.NoError(t, err)

	result, err := svc.LeaveRoom(ctx, room.ID, "host-1")
	require.NoError(t, err)
	assert.True(t, result.RoomClosed)

	// Closed is terminal: the room is gone for reads and joins.
	_, err = svc.GetRoom(ctx, room.ID)
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
	_, err = svc.JoinRoom(ctx, room.ID, "viewer-2", "conn-2")
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)

	members, err := svc.RoomMembers(ctx, room.ID)
	require.NoError(t, err)
	assert.Empty(t, members)
}

func TestUpdatePlayerState_HostBypassesPermissions(t *testing.T) {
	svc := newTestRoomService(t)
	ctx := context.Background()
	room := createTestRoom(t, svc, "host-1", 0)

	got, err := svc.UpdatePlayerState(ctx, room.ID, "host-1", domain.PlayerUpdate{
		Playing:  b(true),
		Position: f64(42.5),
		Rate:     f64(1.5),
		Volume:   f64(0.8),
	})
	require.NoError(t, err)

	assert.True(t, got.Playback.Playing)
	assert.Equal(t, 42.5, got.Playback.Position)
	assert.Equal(t, 1.5, got.Playback.Rate)
	assert.Equal(t, 0.8, got.Playback.Volume)
}

func TestUpdatePlayerState_ViewerNeedsCapability(t *testing.T) {
	svc := newTestRoomService(t)
	ctx := context.Background()
	room := createTestRoom(t, svc, "host-1", 0)

	_, err := svc.JoinRoom(ctx, room.ID, "viewer-1", "conn-1")
	require.NoError(t, err)

	// No permissions: every control action is refused.
	_, err = svc.UpdatePlayerState(ctx, room.ID, "viewer-1", domain.PlayerUpdate{Playing: b(true)})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = svc.SetPermissions(ctx, room.ID, "host-1", "viewer-1", domain.PermissionSet{domain.PermPlay})
	require.NoError(t, err)

	// Play with an accompanying position needs only can_play.
	got, err := svc.UpdatePlayerState(ctx, room.ID, "viewer-1", domain.PlayerUpdate{
		Playing: b(true), Position: f64(10),
	})
	require.NoError(t, err)
	assert.True(t, got.Playback.Playing)
	assert.Equal(t, 10.0, got.Playback.Position)

	// A bare seek still needs can_seek.
	_, err = svc.UpdatePlayerState(ctx, room.ID, "viewer-1", domain.PlayerUpdate{Position: f64(99)})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	// Rate changes stay host-only no matter the grant.
	_, err = svc.SetPermissions(ctx, room.ID, "host-1", "viewer-1", domain.PermissionSet{
		domain.PermPlay, domain.PermPause, domain.PermSeek, domain.PermChangeVolume,
	})
	require.NoError(t, err)
	_, err = svc.UpdatePlayerState(ctx, room.ID, "viewer-1", domain.PlayerUpdate{Rate: f64(2)})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestUpdatePlayerState_RejectedUpdateChangesNothing(t *testing.T) {
	svc := newTestRoomService(t)
	ctx := context.Background()
	room := createTestRoom(t, svc, "host-1", 0)

	_, err := svc.JoinRoom(ctx, room.ID, "viewer-1", "conn-1")
	require.NoError(t, err)
	_, err = svc.SetPermissions(ctx, room.ID, "host-1", "viewer-1", domain.PermissionSet{domain.PermSeek})
	require.NoError(t, err)

	// Seek is allowed, volume is not: the whole update must be refused.
	_, err = svc.UpdatePlayerState(ctx, room.ID, "viewer-1", domain.PlayerUpdate{
		Position: f64(50), Volume: f64(0.2),
	})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	got, err := svc.GetRoom(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got.Playback.Position)
	assert.Equal(t, 1.0, got.Playback.Volume)
}

func TestSetPermissions(t *testing.T) {
	svc := newTestRoomService(t)
	ctx := context.Background()
	room := createTestRoom(t, svc, "host-1", 0)

	_, err := svc.JoinRoom(ctx, room.ID, "viewer-1", "conn-1")
	require.NoError(t, err)

	// Only the host may grant.
	_, err = svc.SetPermissions(ctx, room.ID, "viewer-1", "viewer-1", domain.PermissionSet{domain.PermPlay})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	// Target must be a viewer.
	_, err = svc.SetPermissions(ctx, room.ID, "host-1", "stranger", domain.PermissionSet{domain.PermPlay})
	assert.ErrorIs(t, err, domain.ErrNotAViewer)

	// Unknown permission names are rejected outright.
	_, err = svc.SetPermissions(ctx, room.ID, "host-1", "viewer-1", domain.PermissionSet{"can_fly"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	// Replacement, not merge.
	_, err = svc.SetPermissions(ctx, room.ID, "host-1", "viewer-1", domain.PermissionSet{
		domain.PermPlay, domain.PermPause,
	})
	require.NoError(t, err)
	got, err := svc.SetPermissions(ctx, room.ID, "host-1", "viewer-1", domain.PermissionSet{domain.PermSeek})
	require.NoError(t, err)
	assert.Equal(t, domain.PermissionSet{domain.PermSeek}, got.PermissionsOf("viewer-1"))
}

func TestKickViewer(t *testing.T) {
	svc := newTestRoomService(t)
	ctx := context.Background()
	room := createTestRoom(t, svc, "host-1", 0)

	_, err := svc.JoinRoom(ctx, room.ID, "viewer-1", "conn-1")
	require.NoError(t, err)
	_, err = svc.JoinRoom(ctx, room.ID, "viewer-2", "conn-2")
	require.NoError(t, err)

	_, err = svc.KickViewer(ctx, room.ID, "viewer-2", "viewer-1")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = svc.KickViewer(ctx, room.ID, "host-1", "stranger")
	assert.ErrorIs(t, err, domain.ErrNotAViewer)

	result, err := svc.KickViewer(ctx, room.ID, "host-1", "viewer-1")
	require.NoError(t, err)
	assert.Len(t, result.Members, 2)
	_, found := findMember(result.Members, "viewer-1")
	assert.False(t, found)

	got, err := svc.GetRoom(ctx, room.ID)
	require.NoError(t, err)
	assert.False(t, got.HasViewer("viewer-1"))
	assert.Nil(t, got.Permissions["viewer-1"])

	// A kicked viewer can rejoin; the kick is not a ban.
	_, err = svc.JoinRoom(ctx, room.ID, "viewer-1", "conn-1b")
	assert.NoError(t, err)
}

func TestChat(t *testing.T) {
	svc := newTestRoomService(t)
	ctx := context.Background()
	room := createTestRoom(t, svc, "host-1", 0)

	_, err := svc.AppendChat(ctx, room.ID, "host-1", "first")
	require.NoError(t, err)
	_, err = svc.AppendChat(ctx, room.ID, "viewer-1", "second")
	require.NoError(t, err)

	_, err = svc.AppendChat(ctx, room.ID, "viewer-1", "   ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	history, err := svc.ChatHistory(ctx, room.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "first", history[0].Text)
	assert.Equal(t, "second", history[1].Text)
}

func TestListRooms_Filters(t *testing.T) {
	svc := newTestRoomService(t)
	ctx := context.Background()

	mine := createTestRoom(t, svc, "alice", 0)
	other := createTestRoom(t, svc, "bob", 0)

	_, err := svc.JoinRoom(ctx, other.ID, "alice", "conn-a")
	require.NoError(t, err)

	myRooms, err := svc.ListRooms(ctx, "alice", domain.FilterMyRooms)
	require.NoError(t, err)
	require.Len(t, myRooms, 1)
	assert.Equal(t, mine.ID, myRooms[0].ID)

	joined, err := svc.ListRooms(ctx, "alice", domain.FilterJoined)
	require.NoError(t, err)
	require.Len(t, joined, 1)
	assert.Equal(t, other.ID, joined[0].ID)

	all, err := svc.ListRooms(ctx, "alice", domain.FilterAll)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	// Both rooms have presence (hosts get a session at create time).
	live, err := svc.ListRooms(ctx, "alice", domain.FilterLiveNow)
	require.NoError(t, err)
	assert.Len(t, live, 2)

	_, err = svc.ListRooms(ctx, "alice", domain.RoomFilter("bogus"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestListRooms_LiveNowIncludesFreshRoom(t *testing.T) {
	svc := newTestRoomService(t)
	ctx := context.Background()
	room := createTestRoom(t, svc, "host-1", 0)

	// The host's seeded session makes a just-created room live before any
	// websocket attaches.
	live, err := svc.ListRooms(ctx, "host-1", domain.FilterLiveNow)
	require.NoError(t, err)
	require.Len(t, live, 1)
	assert.Equal(t, room.ID, live[0].ID)

	members, err := svc.RoomMembers(ctx, room.ID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, domain.UserID("host-1"), members[0].UserID)
	assert.Equal(t, domain.RoleHost, members[0].Role)
	assert.Empty(t, members[0].ConnectionID)
}

func TestUniqueJoinCodes(t *testing.T) {
	svc := newTestRoomService(t)

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		room := createTestRoom(t, svc, "host-1", 0)
		assert.False(t, seen[room.Code], "duplicate code %s", room.Code)
		seen[room.Code] = true
	}
}
