package http

import (
	"net/http"

	"cinesync/internal/core/domain"
	"cinesync/internal/core/ports"
	"cinesync/pkg/errors"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	users ports.UserService
}

func NewUserHandler(users ports.UserService) *UserHandler {
	return &UserHandler{users: users}
}

func (h *UserHandler) SetupRoutes(api *gin.RouterGroup) {
	users := api.Group("/users")
	{
		users.GET("/lookup", h.LookupByEmail)
		users.GET("/:id", h.GetUser)
		users.POST("/batch", h.GetUsers)
	}
}

func (h *UserHandler) LookupByEmail(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		c.Error(errors.NewInvalidInputError("email query parameter is required"))
		return
	}

	user, err := h.users.GetUserByEmail(c.Request.Context(), email)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.users.GetUser(c.Request.Context(), domain.UserID(c.Param("id")))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

type batchUsersRequest struct {
	IDs []domain.UserID `json:"ids" binding:"required,max=100"`
}

// GetUsers resolves member lists to display names in one round trip.
func (h *UserHandler) GetUsers(c *gin.Context) {
	var req batchUsersRequest
	if err := c.BindJSON(&req); err != nil {
		c.Error(errors.NewInvalidInputError("invalid request format"))
		return
	}

	users, err := h.users.GetUsers(c.Request.Context(), req.IDs)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"users": users})
}
