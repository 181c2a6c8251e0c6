package signal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"cinesync/internal/core/domain"
	"cinesync/internal/core/ports"
	"cinesync/internal/core/services"
	"cinesync/internal/infrastructure/distributed"
	"cinesync/internal/infrastructure/monitoring"
	"cinesync/pkg/retry"
	"cinesync/pkg/tracing"
	"cinesync/pkg/utils"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Should be configured properly for production
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Event is the wire envelope for both directions.
type Event struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// client wraps a websocket connection with a write lock; broadcasts arrive
// from other members' goroutines.
type client struct {
	conn   *websocket.Conn
	connID domain.ConnectionID
	userID domain.UserID
	mu     sync.Mutex
}

func (c *client) send(writeTimeout time.Duration, event string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", event, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(Event{Event: event, Data: payload})
}

// WebSocketServer is the room gateway: it authenticates sockets, feeds
// inbound events to the room engine, and fans engine results back out to the
// room's live members.
type WebSocketServer struct {
	rooms   ports.RoomService
	auth    services.AuthService
	relay   *HostSyncRelay
	metrics *monitoring.Collector

	// bus fans room events out to members connected to other gateway
	// instances. Optional; nil means single-instance operation.
	bus *distributed.RoomEventBus

	connections map[domain.UserID]*client
	mu          sync.RWMutex

	pingInterval time.Duration
	pongTimeout  time.Duration
	writeTimeout time.Duration

	// allowMessage rate-limits inbound events per user. Defaults to
	// allowing everything.
	allowMessage func(userKey string) bool

	logger *zap.SugaredLogger
}

func NewWebSocketServer(
	rooms ports.RoomService,
	auth services.AuthService,
	relay *HostSyncRelay,
	metrics *monitoring.Collector,
	logger *zap.SugaredLogger,
) *WebSocketServer {
	return &WebSocketServer{
		rooms:        rooms,
		auth:         auth,
		relay:        relay,
		metrics:      metrics,
		connections:  make(map[domain.UserID]*client),
		pingInterval: 30 * time.Second,
		pongTimeout:  60 * time.Second,
		writeTimeout: 10 * time.Second,
		allowMessage: func(string) bool { return true },
		logger:       logger,
	}
}

// SetEventBus installs a cross-instance room event bus. Broadcasts then
// reach members whose sockets live on other gateway instances.
func (s *WebSocketServer) SetEventBus(bus *distributed.RoomEventBus) {
	s.bus = bus
}

// SetMessageLimiter installs a per-user inbound event rate limiter.
func (s *WebSocketServer) SetMessageLimiter(allow func(userKey string) bool) {
	if allow != nil {
		s.allowMessage = allow
	}
}

// SetPingInterval sets ping interval for WebSocket connections
func (s *WebSocketServer) SetPingInterval(interval time.Duration) {
	s.pingInterval = interval
}

// SetPongTimeout sets pong timeout for WebSocket connections
func (s *WebSocketServer) SetPongTimeout(timeout time.Duration) {
	s.pongTimeout = timeout
}

func (s *WebSocketServer) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID, err := s.authenticate(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Errorw("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	c := &client{
		conn:   conn,
		connID: domain.ConnectionID(utils.GenerateID("conn")),
		userID: userID,
	}

	// A reconnect replaces the previous socket for the same user.
	s.mu.Lock()
	if old, exists := s.connections[userID]; exists && old != nil {
		old.conn.Close()
		s.logger.Infow("closing old connection for reconnecting user", "user_id", userID)
	}
	s.connections[userID] = c
	s.mu.Unlock()

	s.metrics.WSConnected()
	s.logger.Infow("user connected", "user_id", userID, "connection_id", c.connID)

	conn.SetReadDeadline(time.Now().Add(s.pongTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(s.pongTimeout))
		return nil
	})

	pingTicker := time.NewTicker(s.pingInterval)
	defer pingTicker.Stop()

	eventChan := make(chan Event, 10)
	errorChan := make(chan error, 1)

	go func() {
		for {
			var evt Event
			if err := conn.ReadJSON(&evt); err != nil {
				errorChan <- err
				return
			}
			conn.SetReadDeadline(time.Now().Add(s.pongTimeout))
			eventChan <- evt
		}
	}()

	for {
		select {
		case evt := <-eventChan:
			if err := s.handleEvent(context.Background(), c, evt); err != nil {
				s.logger.Infow("error handling event",
					"user_id", userID, "event", evt.Event, "error", err)
				s.sendError(c, err)
			}

		case <-pingTicker.C:
			c.mu.Lock()
			conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			err := conn.WriteMessage(websocket.PingMessage, nil)
			c.mu.Unlock()
			if err != nil {
				s.logger.Infow("error sending ping", "user_id", userID, "error", err)
				goto cleanup
			}

		case err := <-errorChan:
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.Infow("error reading from user", "user_id", userID, "error", err)
			}
			goto cleanup
		}
	}

cleanup:
	s.mu.Lock()
	// Only unregister if this socket is still the user's current one; a
	// reconnect may already have replaced it.
	current := s.connections[userID] == c
	if current {
		delete(s.connections, userID)
	}
	s.mu.Unlock()

	s.metrics.WSDisconnected()
	if current {
		s.handleDisconnect(context.Background(), userID)
	}
	s.logger.Infow("user disconnected", "user_id", userID)
}

func (s *WebSocketServer) authenticate(r *http.Request) (domain.UserID, error) {
	token := r.URL.Query().Get("token")
	if token == "" {
		header := r.Header.Get("Authorization")
		token = strings.TrimPrefix(header, "Bearer ")
	}
	if token == "" {
		return "", fmt.Errorf("missing token")
	}

	claims, err := s.auth.ValidateToken(token)
	if err != nil {
		return "", err
	}
	return claims.UserID, nil
}

func (s *WebSocketServer) handleEvent(ctx context.Context, c *client, evt Event) error {
	if evt.Event == "" {
		return fmt.Errorf("event type is required")
	}
	if !s.allowMessage(string(c.userID)) {
		return fmt.Errorf("message rate limit exceeded")
	}

	ctx, span := tracing.TraceGatewayEvent(ctx, evt.Event, string(c.userID))
	defer span.End()
	s.metrics.GatewayEvent(evt.Event)

	var err error
	switch evt.Event {
	case "joinRoom":
		err = s.handleJoinRoom(ctx, c, evt.Data)
	case "leaveRoom":
		err = s.handleLeaveRoom(ctx, c, evt.Data)
	case "playerAction":
		err = s.handlePlayerAction(ctx, c, evt.Data)
	case "sendMessage":
		err = s.handleSendMessage(ctx, c, evt.Data)
	case "setPermissions":
		err = s.handleSetPermissions(ctx, c, evt.Data)
	case "kickViewer":
		err = s.handleKickViewer(ctx, c, evt.Data)
	case "syncRequest":
		err = s.handleSyncRequest(ctx, c, evt.Data)
	case "currentTimeResponse":
		err = s.handleCurrentTimeResponse(ctx, c, evt.Data)
	default:
		err = fmt.Errorf("unknown event type: %s", evt.Event)
	}

	if err != nil {
		tracing.RecordError(ctx, err)
	}
	return err
}

type roomRef struct {
	RoomID domain.RoomID `json:"roomId"`
}

func (s *WebSocketServer) handleJoinRoom(ctx context.Context, c *client, data json.RawMessage) error {
	var payload roomRef
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("invalid joinRoom payload: %w", err)
	}
	if payload.RoomID == "" {
		return fmt.Errorf("roomId is required")
	}

	result, err := s.rooms.JoinRoom(ctx, payload.RoomID, c.userID, c.connID)
	if err != nil {
		return err
	}

	history, err := s.rooms.ChatHistory(ctx, payload.RoomID)
	if err != nil {
		s.logger.Warnw("failed to load chat history", "room_id", payload.RoomID, "error", err)
		history = []domain.ChatMessage{}
	}

	if err := c.send(s.writeTimeout, "roomJoined", map[string]interface{}{
		"room":        result.Room,
		"role":        result.Role,
		"users":       result.Members,
		"chatHistory": history,
	}); err != nil {
		return err
	}

	s.broadcast(payload.RoomID, result.Members, c.userID, "userJoined", map[string]interface{}{
		"roomId": payload.RoomID,
		"userId": c.userID,
		"role":   result.Role,
		"users":  result.Members,
	})

	if result.NeedsHostSync {
		s.requestHostPosition(result.Room, c)
	}
	return nil
}

// requestHostPosition relays a live-clock request to the host for a joiner
// of a playing room. If the host is offline or does not answer in time, the
// joiner gets the persisted snapshot instead.
func (s *WebSocketServer) requestHostPosition(room *domain.Room, joiner *client) {
	fallback := func() {
		if err := joiner.send(s.writeTimeout, "syncCurrentTime", map[string]interface{}{
			"roomId":      room.ID,
			"currentTime": room.Playback.Position,
			"isPlaying":   room.Playback.Playing,
		}); err != nil {
			s.logger.Infow("failed to send fallback position",
				"room_id", room.ID, "user_id", joiner.userID, "error", err)
		}
	}

	s.mu.RLock()
	host, hostOnline := s.connections[room.HostID]
	s.mu.RUnlock()

	if !hostOnline {
		fallback()
		return
	}

	s.relay.Register(room.ID, joiner.userID, fallback)
	if err := host.send(s.writeTimeout, "requestCurrentTime", map[string]interface{}{
		"roomId":      room.ID,
		"requesterId": joiner.userID,
	}); err != nil {
		s.logger.Infow("failed to reach host for position",
			"room_id", room.ID, "error", err)
		s.relay.Cancel(room.ID, joiner.userID)
		fallback()
	}
}

func (s *WebSocketServer) handleLeaveRoom(ctx context.Context, c *client, data json.RawMessage) error {
	var payload roomRef
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("invalid leaveRoom payload: %w", err)
	}
	if payload.RoomID == "" {
		return fmt.Errorf("roomId is required")
	}

	return s.leaveAndNotify(ctx, payload.RoomID, c.userID, true)
}

// leaveAndNotify runs the engine's leave path and tells everyone affected.
// Member snapshot is taken before the leave because a host departure purges
// the whole presence row.
func (s *WebSocketServer) leaveAndNotify(ctx context.Context, roomID domain.RoomID, userID domain.UserID, ack bool) error {
	before, err := s.rooms.RoomMembers(ctx, roomID)
	if err != nil {
		return err
	}

	result, err := s.rooms.LeaveRoom(ctx, roomID, userID)
	if err != nil {
		return err
	}

	s.relay.Cancel(roomID, userID)

	if result.RoomClosed {
		s.relay.CancelRoom(roomID)
		s.metrics.RoomClosed()
		s.broadcast(roomID, before, userID, "roomClosed", map[string]interface{}{
			"roomId": roomID,
		})
	} else {
		s.broadcast(roomID, result.Members, userID, "userLeft", map[string]interface{}{
			"roomId": roomID,
			"userId": userID,
			"users":  result.Members,
		})
	}

	if ack {
		if c := s.clientOf(userID); c != nil {
			return c.send(s.writeTimeout, "roomLeft", map[string]interface{}{
				"roomId": roomID,
			})
		}
	}
	return nil
}

func (s *WebSocketServer) handlePlayerAction(ctx context.Context, c *client, data json.RawMessage) error {
	var payload struct {
		RoomID       domain.RoomID `json:"roomId"`
		CurrentTime  *float64      `json:"currentTime"`
		IsPlaying    *bool         `json:"isPlaying"`
		PlaybackRate *float64      `json:"playbackRate"`
		Volume       *float64      `json:"volume"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("invalid playerAction payload: %w", err)
	}
	if payload.RoomID == "" {
		return fmt.Errorf("roomId is required")
	}

	upd := domain.PlayerUpdate{
		Position: payload.CurrentTime,
		Playing:  payload.IsPlaying,
		Rate:     payload.PlaybackRate,
		Volume:   payload.Volume,
	}

	room, err := s.rooms.UpdatePlayerState(ctx, payload.RoomID, c.userID, upd)
	if err != nil {
		return err
	}

	s.metrics.PlayerAction(actionName(upd))

	members, err := s.rooms.RoomMembers(ctx, payload.RoomID)
	if err != nil {
		return err
	}
	s.broadcast(payload.RoomID, members, c.userID, "playerStateChanged", map[string]interface{}{
		"roomId":    payload.RoomID,
		"state":     room.Playback,
		"updatedBy": c.userID,
	})
	return nil
}

func actionName(upd domain.PlayerUpdate) string {
	switch {
	case upd.Playing != nil && *upd.Playing:
		return "play"
	case upd.Playing != nil:
		return "pause"
	case upd.Position != nil:
		return "seek"
	case upd.Rate != nil:
		return "rate"
	case upd.Volume != nil:
		return "volume"
	default:
		return "noop"
	}
}

func (s *WebSocketServer) handleSendMessage(ctx context.Context, c *client, data json.RawMessage) error {
	var payload struct {
		RoomID  domain.RoomID `json:"roomId"`
		Message string        `json:"message"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("invalid sendMessage payload: %w", err)
	}
	if payload.RoomID == "" {
		return fmt.Errorf("roomId is required")
	}

	msg, err := s.rooms.AppendChat(ctx, payload.RoomID, c.userID, payload.Message)
	if err != nil {
		return err
	}

	s.metrics.ChatMessage()

	members, err := s.rooms.RoomMembers(ctx, payload.RoomID)
	if err != nil {
		return err
	}
	// Chat echoes back to the sender too, so every client renders the
	// same ordered log.
	s.broadcast(payload.RoomID, members, "", "chatMessage", map[string]interface{}{
		"roomId":    payload.RoomID,
		"userId":    msg.UserID,
		"message":   msg.Text,
		"timestamp": msg.CreatedAt,
	})
	return nil
}

func (s *WebSocketServer) handleSetPermissions(ctx context.Context, c *client, data json.RawMessage) error {
	var payload struct {
		RoomID      domain.RoomID      `json:"roomId"`
		ViewerID    domain.UserID      `json:"viewerId"`
		Permissions []domain.Permission `json:"permissions"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("invalid setPermissions payload: %w", err)
	}
	if payload.RoomID == "" || payload.ViewerID == "" {
		return fmt.Errorf("roomId and viewerId are required")
	}

	perms := domain.PermissionSet(payload.Permissions)
	if perms == nil {
		perms = domain.PermissionSet{}
	}

	if _, err := s.rooms.SetPermissions(ctx, payload.RoomID, c.userID, payload.ViewerID, perms); err != nil {
		return err
	}

	s.deliver(payload.RoomID, payload.ViewerID, "permissionsUpdated", map[string]interface{}{
		"roomId":      payload.RoomID,
		"permissions": perms,
	})

	return c.send(s.writeTimeout, "permissionsSet", map[string]interface{}{
		"roomId":      payload.RoomID,
		"viewerId":    payload.ViewerID,
		"permissions": perms,
	})
}

func (s *WebSocketServer) handleKickViewer(ctx context.Context, c *client, data json.RawMessage) error {
	var payload struct {
		RoomID   domain.RoomID `json:"roomId"`
		ViewerID domain.UserID `json:"viewerId"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("invalid kickViewer payload: %w", err)
	}
	if payload.RoomID == "" || payload.ViewerID == "" {
		return fmt.Errorf("roomId and viewerId are required")
	}

	result, err := s.rooms.KickViewer(ctx, payload.RoomID, c.userID, payload.ViewerID)
	if err != nil {
		return err
	}

	s.relay.Cancel(payload.RoomID, payload.ViewerID)

	s.deliver(payload.RoomID, payload.ViewerID, "kicked", map[string]interface{}{
		"roomId": payload.RoomID,
	})

	s.broadcast(payload.RoomID, result.Members, "", "viewerKicked", map[string]interface{}{
		"roomId":   payload.RoomID,
		"viewerId": payload.ViewerID,
		"users":    result.Members,
	})
	return nil
}

func (s *WebSocketServer) handleSyncRequest(ctx context.Context, c *client, data json.RawMessage) error {
	var payload roomRef
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("invalid syncRequest payload: %w", err)
	}
	if payload.RoomID == "" {
		return fmt.Errorf("roomId is required")
	}

	room, err := s.rooms.GetRoom(ctx, payload.RoomID)
	if err != nil {
		return err
	}

	return c.send(s.writeTimeout, "syncResponse", map[string]interface{}{
		"roomId": payload.RoomID,
		"state":  room.Playback,
	})
}

func (s *WebSocketServer) handleCurrentTimeResponse(ctx context.Context, c *client, data json.RawMessage) error {
	var payload struct {
		RoomID      domain.RoomID `json:"roomId"`
		CurrentTime float64       `json:"currentTime"`
		IsPlaying   bool          `json:"isPlaying"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("invalid currentTimeResponse payload: %w", err)
	}
	if payload.RoomID == "" {
		return fmt.Errorf("roomId is required")
	}

	room, err := s.rooms.GetRoom(ctx, payload.RoomID)
	if err != nil {
		return err
	}
	// Only the host's clock is authoritative.
	if !room.IsHost(c.userID) {
		return domain.ErrForbidden
	}

	for _, requester := range s.relay.Resolve(payload.RoomID) {
		s.deliver(payload.RoomID, requester, "syncCurrentTime", map[string]interface{}{
			"roomId":      payload.RoomID,
			"currentTime": payload.CurrentTime,
			"isPlaying":   payload.IsPlaying,
		})
	}
	return nil
}

// handleDisconnect treats a dropped socket as an implicit leave of whatever
// room the user was in. Transient store errors are retried so a blip does
// not leave ghost members behind.
func (s *WebSocketServer) handleDisconnect(ctx context.Context, userID domain.UserID) {
	roomID, err := s.rooms.CurrentRoomOf(ctx, userID)
	if err != nil {
		s.logger.Warnw("failed to resolve room on disconnect", "user_id", userID, "error", err)
		return
	}
	if roomID == "" {
		return
	}

	err = retry.Retry(ctx, retry.DefaultConfig(), func() error {
		return s.leaveAndNotify(ctx, roomID, userID, false)
	})
	if err != nil {
		s.logger.Errorw("failed to clean up room membership on disconnect",
			"user_id", userID, "room_id", roomID, "error", err)
	}
}

func (s *WebSocketServer) clientOf(userID domain.UserID) *client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connections[userID]
}

// broadcast sends an event to every member's live connection except exclude.
// Pass exclude "" to include everyone. Members without a local socket are
// relayed through the event bus when one is installed.
func (s *WebSocketServer) broadcast(roomID domain.RoomID, members []domain.Member, exclude domain.UserID, event string, data interface{}) {
	var remote []domain.UserID
	for _, m := range members {
		if exclude != "" && domain.NormalizeID(m.UserID) == domain.NormalizeID(exclude) {
			continue
		}
		c := s.clientOf(m.UserID)
		if c == nil {
			remote = append(remote, m.UserID)
			continue
		}
		if err := c.send(s.writeTimeout, event, data); err != nil {
			s.logger.Infow("failed to deliver event",
				"event", event, "user_id", m.UserID, "error", err)
		}
	}

	if s.bus != nil && len(remote) > 0 {
		s.publishRemote(roomID, remote, event, data)
	}
}

// deliver sends an event to one user, falling back to the bus when the user
// has no socket on this instance.
func (s *WebSocketServer) deliver(roomID domain.RoomID, userID domain.UserID, event string, data interface{}) {
	if c := s.clientOf(userID); c != nil {
		if err := c.send(s.writeTimeout, event, data); err != nil {
			s.logger.Infow("failed to deliver event",
				"event", event, "user_id", userID, "error", err)
		}
		return
	}
	if s.bus != nil {
		s.publishRemote(roomID, []domain.UserID{userID}, event, data)
	}
}

func (s *WebSocketServer) publishRemote(roomID domain.RoomID, targets []domain.UserID, event string, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		s.logger.Warnw("failed to marshal remote event", "event", event, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := s.bus.Publish(ctx, &distributed.RoomEvent{
		Event:   event,
		RoomID:  roomID,
		Targets: targets,
		Payload: payload,
	}); err != nil {
		s.logger.Warnw("failed to publish remote event",
			"event", event, "room_id", roomID, "error", err)
	}
}

// HandleRemoteEvent delivers a bus event to whichever of its targets hold a
// socket on this instance. Wired as the bus subscription handler.
func (s *WebSocketServer) HandleRemoteEvent(evt *distributed.RoomEvent) {
	for _, target := range evt.Targets {
		c := s.clientOf(target)
		if c == nil {
			continue
		}
		if err := c.send(s.writeTimeout, evt.Event, evt.Payload); err != nil {
			s.logger.Infow("failed to deliver remote event",
				"event", evt.Event, "user_id", target, "error", err)
		}
	}
}

func (s *WebSocketServer) sendError(c *client, err error) {
	if sendErr := c.send(s.writeTimeout, "error", map[string]interface{}{
		"message": err.Error(),
	}); sendErr != nil {
		s.logger.Infow("failed to send error event", "user_id", c.userID, "error", sendErr)
	}
}

// ConnectedUsers returns the users with a live socket.
func (s *WebSocketServer) ConnectedUsers() []domain.UserID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserID, 0, len(s.connections))
	for userID := range s.connections {
		users = append(users, userID)
	}
	return users
}

// IsConnected reports whether the user has a live socket.
func (s *WebSocketServer) IsConnected(userID domain.UserID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.connections[userID]
	return exists
}

func (s *WebSocketServer) HealthCheck(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	connectionCount := len(s.connections)
	s.mu.RUnlock()

	response := map[string]interface{}{
		"status":      "healthy",
		"timestamp":   time.Now().Unix(),
		"connections": connectionCount,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}
