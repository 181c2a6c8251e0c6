package http

import (
	stderrors "errors"

	"cinesync/internal/core/domain"
	"cinesync/internal/core/services"
	"cinesync/pkg/errors"

	"github.com/gin-gonic/gin"
)

// fail translates engine sentinels into AppErrors and hands them to the
// error handler middleware, which owns the response shape.
func fail(c *gin.Context, err error) {
	var appErr *errors.AppError
	switch {
	case stderrors.Is(err, domain.ErrRoomNotFound):
		appErr = errors.NewNotFoundError("room")
	case stderrors.Is(err, domain.ErrUserNotFound):
		appErr = errors.NewNotFoundError("user")
	case stderrors.Is(err, domain.ErrMovieNotFound):
		appErr = errors.NewNotFoundError("movie")
	case stderrors.Is(err, domain.ErrCommentNotFound):
		appErr = errors.NewNotFoundError("comment")
	case stderrors.Is(err, domain.ErrRoomFull):
		appErr = errors.NewRoomFullError()
	case stderrors.Is(err, domain.ErrForbidden):
		appErr = errors.NewForbiddenError("operation not permitted")
	case stderrors.Is(err, domain.ErrNotAViewer):
		appErr = errors.NewInvalidInputError("user is not a viewer of this room")
	case stderrors.Is(err, domain.ErrAlreadyExists):
		appErr = errors.NewConflictError(err.Error())
	case stderrors.Is(err, domain.ErrInvalidInput):
		appErr = errors.NewInvalidInputError(err.Error())
	case stderrors.Is(err, services.ErrInvalidToken), stderrors.Is(err, services.ErrExpiredToken):
		appErr = errors.NewUnauthorizedError(err.Error())
	default:
		appErr = errors.WrapError(err, errors.ErrCodeInternal, "internal server error", 500)
	}
	c.Error(appErr)
	c.Abort()
}

// authedUser pulls the user id installed by the auth middleware.
func authedUser(c *gin.Context) (domain.UserID, bool) {
	val, exists := c.Get("user_id")
	if !exists {
		return "", false
	}
	userID, ok := val.(domain.UserID)
	if !ok || userID == "" {
		return "", false
	}
	return userID, true
}
