package signal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cinesync/internal/core/domain"
	"cinesync/internal/core/ports"
	"cinesync/internal/core/services"
	"cinesync/internal/infrastructure/repositories/memory"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type gatewayFixture struct {
	server *httptest.Server
	rooms  ports.RoomService
	auth   services.AuthService
}

func newGatewayFixture(t *testing.T) *gatewayFixture {
	t.Helper()

	log := zaptest.NewLogger(t).Sugar()
	rooms := services.NewRoomService(
		memory.NewMemoryRoomRepository(),
		memory.NewMemorySessionRepository(),
		memory.NewMemoryChatRepository(),
		memory.NewMemoryRoomLocker(),
		100,
		log,
	)
	auth := services.NewAuthService("gateway-test-secret", time.Hour)
	relay := NewHostSyncRelay(2*time.Second, log)

	ws := NewWebSocketServer(rooms, auth, relay, nil, log)
	server := httptest.NewServer(http.HandlerFunc(ws.HandleWebSocket))
	t.Cleanup(server.Close)

	return &gatewayFixture{server: server, rooms: rooms, auth: auth}
}

func (f *gatewayFixture) dial(t *testing.T, userID domain.UserID) *websocket.Conn {
	t.Helper()

	token, err := f.auth.GenerateToken(userID, string(userID)+"@example.com")
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func (f *gatewayFixture) createRoom(t *testing.T, hostID domain.UserID) *domain.Room {
	t.Helper()

	room, err := f.rooms.CreateRoom(context.Background(), hostID, ports.CreateRoomParams{
		Name:     "movie night",
		MovieURL: "https://cdn.example.com/movie.m3u8",
	})
	require.NoError(t, err)
	return room
}

// awaitEvent reads frames until the wanted event arrives, skipping unrelated
// broadcasts that race with it.
func awaitEvent(t *testing.T, conn *websocket.Conn, want string) json.RawMessage {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		var evt Event
		require.NoError(t, conn.ReadJSON(&evt), "waiting for %q", want)
		if evt.Event == want {
			return evt.Data
		}
	}
}

func sendEvent(t *testing.T, conn *websocket.Conn, event string, data interface{}) {
	t.Helper()

	payload, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(Event{Event: event, Data: payload}))
}

func TestGateway_RejectsMissingToken(t *testing.T) {
	f := newGatewayFixture(t)

	url := "ws" + strings.TrimPrefix(f.server.URL, "http")
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestGateway_JoinRoomDeliversStateAndPresence(t *testing.T) {
	f := newGatewayFixture(t)
	room := f.createRoom(t, "host-1")

	host := f.dial(t, "host-1")
	sendEvent(t, host, "joinRoom", map[string]interface{}{"roomId": room.ID})
	awaitEvent(t, host, "roomJoined")

	viewer := f.dial(t, "viewer-1")
	sendEvent(t, viewer, "joinRoom", map[string]interface{}{"roomId": room.ID})

	var joined struct {
		Room  *domain.Room    `json:"room"`
		Role  domain.Role     `json:"role"`
		Users []domain.Member `json:"users"`
	}
	require.NoError(t, json.Unmarshal(awaitEvent(t, viewer, "roomJoined"), &joined))
	assert.Equal(t, room.ID, joined.Room.ID)
	assert.Equal(t, domain.RoleViewer, joined.Role)
	assert.Len(t, joined.Users, 2)

	// The host hears about the new viewer.
	var userJoined struct {
		UserID domain.UserID `json:"userId"`
	}
	require.NoError(t, json.Unmarshal(awaitEvent(t, host, "userJoined"), &userJoined))
	assert.Equal(t, domain.UserID("viewer-1"), userJoined.UserID)
}

func TestGateway_ChatEchoesToEveryone(t *testing.T) {
	f := newGatewayFixture(t)
	room := f.createRoom(t, "host-1")

	host := f.dial(t, "host-1")
	sendEvent(t, host, "joinRoom", map[string]interface{}{"roomId": room.ID})
	awaitEvent(t, host, "roomJoined")

	viewer := f.dial(t, "viewer-1")
	sendEvent(t, viewer, "joinRoom", map[string]interface{}{"roomId": room.ID})
	awaitEvent(t, viewer, "roomJoined")

	sendEvent(t, viewer, "sendMessage", map[string]interface{}{
		"roomId":  room.ID,
		"message": "hello room",
	})

	for _, conn := range []*websocket.Conn{host, viewer} {
		var msg struct {
			UserID  domain.UserID `json:"userId"`
			Message string        `json:"message"`
		}
		require.NoError(t, json.Unmarshal(awaitEvent(t, conn, "chatMessage"), &msg))
		assert.Equal(t, domain.UserID("viewer-1"), msg.UserID)
		assert.Equal(t, "hello room", msg.Message)
	}
}

func TestGateway_ViewerPlayWithoutPermissionFails(t *testing.T) {
	f := newGatewayFixture(t)
	room := f.createRoom(t, "host-1")

	viewer := f.dial(t, "viewer-1")
	sendEvent(t, viewer, "joinRoom", map[string]interface{}{"roomId": room.ID})
	awaitEvent(t, viewer, "roomJoined")

	sendEvent(t, viewer, "playerAction", map[string]interface{}{
		"roomId":    room.ID,
		"isPlaying": true,
	})
	awaitEvent(t, viewer, "error")

	// Nothing changed.
	got, err := f.rooms.GetRoom(context.Background(), room.ID)
	require.NoError(t, err)
	assert.False(t, got.Playback.Playing)
}

func TestGateway_HostActionBroadcasts(t *testing.T) {
	f := newGatewayFixture(t)
	room := f.createRoom(t, "host-1")

	host := f.dial(t, "host-1")
	sendEvent(t, host, "joinRoom", map[string]interface{}{"roomId": room.ID})
	awaitEvent(t, host, "roomJoined")

	viewer := f.dial(t, "viewer-1")
	sendEvent(t, viewer, "joinRoom", map[string]interface{}{"roomId": room.ID})
	awaitEvent(t, viewer, "roomJoined")

	sendEvent(t, host, "playerAction", map[string]interface{}{
		"roomId":      room.ID,
		"isPlaying":   true,
		"currentTime": 42.5,
	})

	var changed struct {
		State     domain.PlaybackState `json:"state"`
		UpdatedBy domain.UserID        `json:"updatedBy"`
	}
	require.NoError(t, json.Unmarshal(awaitEvent(t, viewer, "playerStateChanged"), &changed))
	assert.True(t, changed.State.Playing)
	assert.Equal(t, 42.5, changed.State.Position)
	assert.Equal(t, domain.UserID("host-1"), changed.UpdatedBy)
}

func TestGateway_HostLeaveClosesRoom(t *testing.T) {
	f := newGatewayFixture(t)
	room := f.createRoom(t, "host-1")

	host := f.dial(t, "host-1")
	sendEvent(t, host, "joinRoom", map[string]interface{}{"roomId": room.ID})
	awaitEvent(t, host, "roomJoined")

	viewer := f.dial(t, "viewer-1")
	sendEvent(t, viewer, "joinRoom", map[string]interface{}{"roomId": room.ID})
	awaitEvent(t, viewer, "roomJoined")
	awaitEvent(t, host, "userJoined")

	sendEvent(t, host, "leaveRoom", map[string]interface{}{"roomId": room.ID})

	awaitEvent(t, viewer, "roomClosed")
	awaitEvent(t, host, "roomLeft")

	_, err := f.rooms.GetRoom(context.Background(), room.ID)
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
}

func TestGateway_LateJoinerGetsHostPosition(t *testing.T) {
	f := newGatewayFixture(t)
	room := f.createRoom(t, "host-1")

	host := f.dial(t, "host-1")
	sendEvent(t, host, "joinRoom", map[string]interface{}{"roomId": room.ID})
	awaitEvent(t, host, "roomJoined")

	sendEvent(t, host, "playerAction", map[string]interface{}{
		"roomId":    room.ID,
		"isPlaying": true,
	})

	viewer := f.dial(t, "viewer-1")
	sendEvent(t, viewer, "joinRoom", map[string]interface{}{"roomId": room.ID})
	awaitEvent(t, viewer, "roomJoined")

	// The host is asked for its live clock and answers.
	var req struct {
		RoomID domain.RoomID `json:"roomId"`
	}
	require.NoError(t, json.Unmarshal(awaitEvent(t, host, "requestCurrentTime"), &req))
	assert.Equal(t, room.ID, req.RoomID)

	sendEvent(t, host, "currentTimeResponse", map[string]interface{}{
		"roomId":      room.ID,
		"currentTime": 123.4,
		"isPlaying":   true,
	})

	var sync struct {
		CurrentTime float64 `json:"currentTime"`
		IsPlaying   bool    `json:"isPlaying"`
	}
	require.NoError(t, json.Unmarshal(awaitEvent(t, viewer, "syncCurrentTime"), &sync))
	assert.Equal(t, 123.4, sync.CurrentTime)
	assert.True(t, sync.IsPlaying)
}

func TestGateway_DisconnectLeavesRoom(t *testing.T) {
	f := newGatewayFixture(t)
	room := f.createRoom(t, "host-1")

	host := f.dial(t, "host-1")
	sendEvent(t, host, "joinRoom", map[string]interface{}{"roomId": room.ID})
	awaitEvent(t, host, "roomJoined")

	viewer := f.dial(t, "viewer-1")
	sendEvent(t, viewer, "joinRoom", map[string]interface{}{"roomId": room.ID})
	awaitEvent(t, viewer, "roomJoined")
	awaitEvent(t, host, "userJoined")

	viewer.Close()

	var left struct {
		UserID domain.UserID `json:"userId"`
	}
	require.NoError(t, json.Unmarshal(awaitEvent(t, host, "userLeft"), &left))
	assert.Equal(t, domain.UserID("viewer-1"), left.UserID)

	assert.Eventually(t, func() bool {
		members, err := f.rooms.RoomMembers(context.Background(), room.ID)
		return err == nil && len(members) == 1
	}, 2*time.Second, 20*time.Millisecond)
}
