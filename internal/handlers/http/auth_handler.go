package http

import (
	"net/http"
	"strings"
	"time"

	"cinesync/internal/core/domain"
	"cinesync/internal/core/services"
	"cinesync/pkg/errors"
	"cinesync/pkg/utils"

	"github.com/gin-gonic/gin"
)

// AuthHandler issues access tokens. Identity here is intentionally thin:
// credential verification happens upstream, this service only needs a stable
// user id to hang room membership on.
type AuthHandler struct {
	authService    services.AuthService
	accessTokenTTL time.Duration
}

func NewAuthHandler(authService services.AuthService, accessTokenTTL time.Duration) *AuthHandler {
	return &AuthHandler{
		authService:    authService,
		accessTokenTTL: accessTokenTTL,
	}
}

func (h *AuthHandler) SetupRoutes(router *gin.Engine) {
	api := router.Group("/api/v1/auth")
	{
		api.POST("/token", h.IssueToken)
	}
}

type tokenRequest struct {
	UserID string `json:"userId" binding:"max=100"`
	Email  string `json:"email" binding:"required,email,max=254"`
}

func (h *AuthHandler) IssueToken(c *gin.Context) {
	var req tokenRequest
	if err := c.BindJSON(&req); err != nil {
		c.Error(errors.NewInvalidInputError("invalid request format"))
		return
	}

	email := utils.NormalizeEmail(req.Email)
	userID := domain.UserID(strings.TrimSpace(req.UserID))
	if userID == "" {
		userID = domain.UserID(utils.GenerateUserID())
	}

	token, err := h.authService.GenerateToken(userID, email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"userId":      userID,
		"email":       email,
		"accessToken": token,
		"expiresIn":   int(h.accessTokenTTL / time.Second),
	})
}
