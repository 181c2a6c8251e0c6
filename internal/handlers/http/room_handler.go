package http

import (
	"net/http"

	"cinesync/internal/core/domain"
	"cinesync/internal/core/ports"
	"cinesync/internal/infrastructure/monitoring"
	"cinesync/pkg/errors"

	"github.com/gin-gonic/gin"
)

// RoomHandler exposes the room catalog and, as a REST fallback for clients
// without a socket, the room control operations. The websocket gateway is
// the primary control path.
type RoomHandler struct {
	rooms   ports.RoomService
	metrics *monitoring.Collector
}

func NewRoomHandler(rooms ports.RoomService, metrics *monitoring.Collector) *RoomHandler {
	return &RoomHandler{rooms: rooms, metrics: metrics}
}

func (h *RoomHandler) SetupRoutes(api *gin.RouterGroup) {
	rooms := api.Group("/rooms")
	{
		rooms.POST("", h.CreateRoom)
		rooms.GET("", h.ListRooms)
		rooms.GET("/code/:code", h.GetRoomByCode)
		rooms.GET("/:id", h.GetRoom)
		rooms.GET("/:id/members", h.RoomMembers)
		rooms.GET("/:id/chat", h.ChatHistory)
		rooms.POST("/:id/join", h.JoinRoom)
		rooms.POST("/:id/leave", h.LeaveRoom)
		rooms.PATCH("/:id/player", h.UpdatePlayer)
		rooms.PUT("/:id/permissions", h.SetPermissions)
		rooms.DELETE("/:id/viewers/:viewerId", h.KickViewer)
	}
}

type createRoomRequest struct {
	Name       string `json:"name" binding:"required,min=1,max=100"`
	MovieURL   string `json:"movieUrl" binding:"required,max=2048"`
	MovieTitle string `json:"movieTitle" binding:"max=200"`
	Capacity   int    `json:"capacity" binding:"min=0,max=1000"`
}

func (h *RoomHandler) CreateRoom(c *gin.Context) {
	userID, ok := authedUser(c)
	if !ok {
		fail(c, domain.ErrForbidden)
		return
	}

	var req createRoomRequest
	if err := c.BindJSON(&req); err != nil {
		c.Error(errors.NewInvalidInputError("invalid request format"))
		return
	}

	room, err := h.rooms.CreateRoom(c.Request.Context(), userID, ports.CreateRoomParams{
		Name:       req.Name,
		MovieURL:   req.MovieURL,
		MovieTitle: req.MovieTitle,
		Capacity:   req.Capacity,
	})
	if err != nil {
		fail(c, err)
		return
	}

	h.metrics.RoomCreated()
	c.JSON(http.StatusCreated, gin.H{"room": room})
}

func (h *RoomHandler) ListRooms(c *gin.Context) {
	userID, ok := authedUser(c)
	if !ok {
		fail(c, domain.ErrForbidden)
		return
	}

	filter := domain.RoomFilter(c.DefaultQuery("type", string(domain.FilterAll)))
	rooms, err := h.rooms.ListRooms(c.Request.Context(), userID, filter)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

func (h *RoomHandler) GetRoom(c *gin.Context) {
	room, err := h.rooms.GetRoom(c.Request.Context(), domain.RoomID(c.Param("id")))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"room": room})
}

func (h *RoomHandler) GetRoomByCode(c *gin.Context) {
	room, err := h.rooms.GetRoomByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"room": room})
}

func (h *RoomHandler) RoomMembers(c *gin.Context) {
	members, err := h.rooms.RoomMembers(c.Request.Context(), domain.RoomID(c.Param("id")))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": members})
}

func (h *RoomHandler) ChatHistory(c *gin.Context) {
	history, err := h.rooms.ChatHistory(c.Request.Context(), domain.RoomID(c.Param("id")))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": history})
}

func (h *RoomHandler) JoinRoom(c *gin.Context) {
	userID, ok := authedUser(c)
	if !ok {
		fail(c, domain.ErrForbidden)
		return
	}

	// REST joins carry no live socket; the connection id stays empty
	// until the gateway attaches one.
	result, err := h.rooms.JoinRoom(c.Request.Context(), domain.RoomID(c.Param("id")), userID, "")
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"room":  result.Room,
		"role":  result.Role,
		"users": result.Members,
	})
}

func (h *RoomHandler) LeaveRoom(c *gin.Context) {
	userID, ok := authedUser(c)
	if !ok {
		fail(c, domain.ErrForbidden)
		return
	}

	result, err := h.rooms.LeaveRoom(c.Request.Context(), domain.RoomID(c.Param("id")), userID)
	if err != nil {
		fail(c, err)
		return
	}

	if result.RoomClosed {
		h.metrics.RoomClosed()
	}
	c.JSON(http.StatusOK, gin.H{
		"roomClosed": result.RoomClosed,
		"users":      result.Members,
	})
}

type playerUpdateRequest struct {
	CurrentTime  *float64 `json:"currentTime"`
	IsPlaying    *bool    `json:"isPlaying"`
	PlaybackRate *float64 `json:"playbackRate"`
	Volume       *float64 `json:"volume"`
}

func (h *RoomHandler) UpdatePlayer(c *gin.Context) {
	userID, ok := authedUser(c)
	if !ok {
		fail(c, domain.ErrForbidden)
		return
	}

	var req playerUpdateRequest
	if err := c.BindJSON(&req); err != nil {
		c.Error(errors.NewInvalidInputError("invalid request format"))
		return
	}

	room, err := h.rooms.UpdatePlayerState(c.Request.Context(), domain.RoomID(c.Param("id")), userID, domain.PlayerUpdate{
		Position: req.CurrentTime,
		Playing:  req.IsPlaying,
		Rate:     req.PlaybackRate,
		Volume:   req.Volume,
	})
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"state": room.Playback})
}

type setPermissionsRequest struct {
	ViewerID    domain.UserID       `json:"viewerId" binding:"required"`
	Permissions []domain.Permission `json:"permissions"`
}

func (h *RoomHandler) SetPermissions(c *gin.Context) {
	userID, ok := authedUser(c)
	if !ok {
		fail(c, domain.ErrForbidden)
		return
	}

	var req setPermissionsRequest
	if err := c.BindJSON(&req); err != nil {
		c.Error(errors.NewInvalidInputError("invalid request format"))
		return
	}

	perms := domain.PermissionSet(req.Permissions)
	if perms == nil {
		perms = domain.PermissionSet{}
	}

	room, err := h.rooms.SetPermissions(c.Request.Context(), domain.RoomID(c.Param("id")), userID, req.ViewerID, perms)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"viewerId":    req.ViewerID,
		"permissions": room.PermissionsOf(req.ViewerID),
	})
}

func (h *RoomHandler) KickViewer(c *gin.Context) {
	userID, ok := authedUser(c)
	if !ok {
		fail(c, domain.ErrForbidden)
		return
	}

	result, err := h.rooms.KickViewer(c.Request.Context(),
		domain.RoomID(c.Param("id")), userID, domain.UserID(c.Param("viewerId")))
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"users": result.Members})
}
