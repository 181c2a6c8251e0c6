package domain

import "errors"

var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrMovieNotFound   = errors.New("movie not found")
	ErrCommentNotFound = errors.New("comment not found")
	ErrRoomFull        = errors.New("room is full")
	ErrForbidden       = errors.New("forbidden")
	ErrNotAViewer      = errors.New("viewer not in room")
	ErrAlreadyExists   = errors.New("already exists")
	ErrInvalidInput    = errors.New("invalid input")
)
