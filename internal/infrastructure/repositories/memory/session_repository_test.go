package memory

import (
	"context"
	"fmt"
	"testing"

	"cinesync/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionRepository_MembershipLifecycle(t *testing.T) {
	repo := NewMemorySessionRepository()
	ctx := context.Background()

	require.NoError(t, repo.InitRoom(ctx, "room-1", "host"))

	// The host is the session's sole initial member, before any socket.
	members, err := repo.ListMembers(ctx, "room-1")
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, domain.UserID("host"), members[0].UserID)
	assert.Equal(t, domain.RoleHost, members[0].Role)
	assert.Empty(t, members[0].ConnectionID)

	roomID, err := repo.CurrentRoomOf(ctx, "host")
	require.NoError(t, err)
	assert.Equal(t, domain.RoomID("room-1"), roomID)

	// Attaching replaces the host entry rather than duplicating it.
	require.NoError(t, repo.AddMember(ctx, "room-1", domain.Member{
		UserID: "host", Role: domain.RoleHost, ConnectionID: "c1",
	}))
	require.NoError(t, repo.AddMember(ctx, "room-1", domain.Member{
		UserID: "viewer", Role: domain.RoleViewer, ConnectionID: "c2",
	}))

	members, err = repo.ListMembers(ctx, "room-1")
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, domain.UserID("host"), members[0].UserID)
	assert.Equal(t, domain.ConnectionID("c1"), members[0].ConnectionID)

	roomID, err = repo.CurrentRoomOf(ctx, "viewer")
	require.NoError(t, err)
	assert.Equal(t, domain.RoomID("room-1"), roomID)

	require.NoError(t, repo.RemoveMember(ctx, "room-1", "viewer"))
	roomID, err = repo.CurrentRoomOf(ctx, "viewer")
	require.NoError(t, err)
	assert.Empty(t, roomID)
}

func TestSessionRepository_ClearRoomDropsReverseIndex(t *testing.T) {
	repo := NewMemorySessionRepository()
	ctx := context.Background()

	require.NoError(t, repo.AddMember(ctx, "room-1", domain.Member{
		UserID: "a", Role: domain.RoleHost, ConnectionID: "c1",
	}))
	require.NoError(t, repo.AddMember(ctx, "room-1", domain.Member{
		UserID: "b", Role: domain.RoleViewer, ConnectionID: "c2",
	}))

	require.NoError(t, repo.ClearRoom(ctx, "room-1"))

	members, err := repo.ListMembers(ctx, "room-1")
	require.NoError(t, err)
	assert.Empty(t, members)

	for _, user := range []domain.UserID{"a", "b"} {
		roomID, err := repo.CurrentRoomOf(ctx, user)
		require.NoError(t, err)
		assert.Empty(t, roomID)
	}
}

func TestChatRepository_BoundedKeepsNewestInOrder(t *testing.T) {
	repo := NewMemoryChatRepository()
	ctx := context.Background()

	const overflow = 10
	total := domain.ChatHistoryLimit + overflow
	for i := 0; i < total; i++ {
		require.NoError(t, repo.Append(ctx, "room-1", domain.ChatMessage{
			UserID: "u", Text: fmt.Sprintf("msg-%d", i),
		}))
	}

	history, err := repo.History(ctx, "room-1")
	require.NoError(t, err)
	require.Len(t, history, domain.ChatHistoryLimit)

	// The oldest entries are dropped; the survivors keep their relative
	// order.
	assert.Equal(t, fmt.Sprintf("msg-%d", overflow), history[0].Text)
	assert.Equal(t, fmt.Sprintf("msg-%d", total-1), history[len(history)-1].Text)
	for i, msg := range history {
		require.Equal(t, fmt.Sprintf("msg-%d", overflow+i), msg.Text)
	}

	require.NoError(t, repo.Clear(ctx, "room-1"))
	history, err = repo.History(ctx, "room-1")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestRoomRepository_ActiveOnlyReads(t *testing.T) {
	repo := NewMemoryRoomRepository()
	ctx := context.Background()

	room := &domain.Room{
		ID:     "room-1",
		Code:   "ABC123",
		HostID: "host",
		Active: true,
	}
	require.NoError(t, repo.Create(ctx, room))

	got, err := repo.GetByID(ctx, "room-1")
	require.NoError(t, err)

	got.Active = false
	require.NoError(t, repo.Save(ctx, got))

	_, err = repo.GetByID(ctx, "room-1")
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
	_, err = repo.GetByCode(ctx, "ABC123")
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)

	// The code stays burned even after the room closes.
	exists, err := repo.CodeExists(ctx, "ABC123")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestRoomRepository_CloneIsolation(t *testing.T) {
	repo := NewMemoryRoomRepository()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &domain.Room{
		ID: "room-1", Code: "XYZ789", HostID: "host", Active: true,
	}))

	got, err := repo.GetByID(ctx, "room-1")
	require.NoError(t, err)
	got.AddViewer("viewer")

	// Mutation without Save must not leak into the store.
	fresh, err := repo.GetByID(ctx, "room-1")
	require.NoError(t, err)
	assert.False(t, fresh.HasViewer("viewer"))
}
