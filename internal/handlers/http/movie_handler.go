package http

import (
	"net/http"
	"strconv"

	"cinesync/internal/core/domain"
	"cinesync/internal/core/ports"
	"cinesync/pkg/errors"

	"github.com/gin-gonic/gin"
)

type MovieHandler struct {
	movies ports.MovieService
}

func NewMovieHandler(movies ports.MovieService) *MovieHandler {
	return &MovieHandler{movies: movies}
}

func (h *MovieHandler) SetupRoutes(api *gin.RouterGroup) {
	favorites := api.Group("/movies/favorites")
	{
		favorites.POST("", h.AddFavorite)
		favorites.GET("", h.ListFavorites)
		favorites.DELETE("/:id", h.DeleteFavorite)
	}
}

type addFavoriteRequest struct {
	ExternalID string `json:"externalId" binding:"required,max=100"`
	Slug       string `json:"slug" binding:"max=200"`
	Name       string `json:"name" binding:"required,max=200"`
	ThumbURL   string `json:"thumbUrl" binding:"max=2048"`
	PosterURL  string `json:"posterUrl" binding:"max=2048"`
	OriginName string `json:"originName" binding:"max=200"`
	Quality    string `json:"quality" binding:"max=20"`
	Year       int    `json:"year"`
	Country    string `json:"country" binding:"max=100"`
	Category   string `json:"category" binding:"max=100"`
}

func (h *MovieHandler) AddFavorite(c *gin.Context) {
	userID, ok := authedUser(c)
	if !ok {
		fail(c, domain.ErrForbidden)
		return
	}

	var req addFavoriteRequest
	if err := c.BindJSON(&req); err != nil {
		c.Error(errors.NewInvalidInputError("invalid request format"))
		return
	}

	movie, err := h.movies.AddFavorite(c.Request.Context(), userID, &domain.FavoriteMovie{
		ExternalID: req.ExternalID,
		Slug:       req.Slug,
		Name:       req.Name,
		ThumbURL:   req.ThumbURL,
		PosterURL:  req.PosterURL,
		OriginName: req.OriginName,
		Quality:    req.Quality,
		Year:       req.Year,
		Country:    req.Country,
		Category:   req.Category,
	})
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"movie": movie})
}

func (h *MovieHandler) ListFavorites(c *gin.Context) {
	userID, ok := authedUser(c)
	if !ok {
		fail(c, domain.ErrForbidden)
		return
	}

	movies, err := h.movies.ListFavorites(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"movies": movies})
}

func (h *MovieHandler) DeleteFavorite(c *gin.Context) {
	userID, ok := authedUser(c)
	if !ok {
		fail(c, domain.ErrForbidden)
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.Error(errors.NewInvalidInputError("invalid movie id"))
		return
	}

	if err := h.movies.DeleteFavorite(c.Request.Context(), userID, uint(id)); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
