package http

import (
	"net/http"
	"strconv"

	"cinesync/internal/core/domain"
	"cinesync/internal/core/ports"
	"cinesync/pkg/errors"

	"github.com/gin-gonic/gin"
)

type CommentHandler struct {
	comments ports.CommentService
}

func NewCommentHandler(comments ports.CommentService) *CommentHandler {
	return &CommentHandler{comments: comments}
}

func (h *CommentHandler) SetupRoutes(api *gin.RouterGroup) {
	api.GET("/movies/:slug/comments", h.ListByMovie)

	comments := api.Group("/comments")
	{
		comments.POST("", h.AddComment)
		comments.PATCH("/:id", h.UpdateComment)
		comments.DELETE("/:id", h.DeleteComment)
	}
}

type addCommentRequest struct {
	MovieSlug      string  `json:"movieSlug" binding:"required,max=200"`
	MovieName      string  `json:"movieName" binding:"max=200"`
	MovieThumbnail string  `json:"movieThumbnail" binding:"max=2048"`
	Content        string  `json:"content" binding:"required,max=2000"`
	Rating         float64 `json:"rating" binding:"min=0,max=10"`
}

func (h *CommentHandler) AddComment(c *gin.Context) {
	userID, ok := authedUser(c)
	if !ok {
		fail(c, domain.ErrForbidden)
		return
	}

	var req addCommentRequest
	if err := c.BindJSON(&req); err != nil {
		c.Error(errors.NewInvalidInputError("invalid request format"))
		return
	}

	comment, err := h.comments.AddComment(c.Request.Context(), userID, &domain.Comment{
		MovieSlug:      req.MovieSlug,
		MovieName:      req.MovieName,
		MovieThumbnail: req.MovieThumbnail,
		Content:        req.Content,
		Rating:         req.Rating,
	})
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"comment": comment})
}

type updateCommentRequest struct {
	Content string  `json:"content" binding:"required,max=2000"`
	Rating  float64 `json:"rating" binding:"min=0,max=10"`
}

func (h *CommentHandler) UpdateComment(c *gin.Context) {
	userID, ok := authedUser(c)
	if !ok {
		fail(c, domain.ErrForbidden)
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.Error(errors.NewInvalidInputError("invalid comment id"))
		return
	}

	var req updateCommentRequest
	if err := c.BindJSON(&req); err != nil {
		c.Error(errors.NewInvalidInputError("invalid request format"))
		return
	}

	comment, err := h.comments.UpdateComment(c.Request.Context(), userID, uint(id), req.Content, req.Rating)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"comment": comment})
}

func (h *CommentHandler) DeleteComment(c *gin.Context) {
	userID, ok := authedUser(c)
	if !ok {
		fail(c, domain.ErrForbidden)
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.Error(errors.NewInvalidInputError("invalid comment id"))
		return
	}

	if err := h.comments.DeleteComment(c.Request.Context(), userID, uint(id)); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (h *CommentHandler) ListByMovie(c *gin.Context) {
	comments, err := h.comments.ListByMovie(c.Request.Context(), c.Param("slug"))
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"comments": comments})
}
