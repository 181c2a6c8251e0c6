package validation

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	// JoinCodeRegex validates room join code format
	JoinCodeRegex = regexp.MustCompile(`^[A-Z0-9]{6}$`)

	// RoomIDRegex validates room ID format
	RoomIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

// ValidateRoomName validates a room's display name.
func ValidateRoomName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("room name is required")
	}
	if utf8.RuneCountInString(name) > 100 {
		return fmt.Errorf("room name is too long (max 100 characters)")
	}
	return nil
}

// ValidateJoinCode validates the 6-character room join code.
func ValidateJoinCode(code string) error {
	if code == "" {
		return fmt.Errorf("join code is required")
	}
	if !JoinCodeRegex.MatchString(code) {
		return fmt.Errorf("join code must be 6 uppercase letters or digits")
	}
	return nil
}

// ValidateCapacity validates a room capacity value.
func ValidateCapacity(capacity int) error {
	if capacity < 1 || capacity > 1000 {
		return fmt.Errorf("capacity must be between 1 and 1000")
	}
	return nil
}

// ValidateMovieURL validates the movie source URL.
func ValidateMovieURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("movie URL is required")
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid movie URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("movie URL must be http or https")
	}
	return nil
}

// ValidateChatText validates a chat message body.
func ValidateChatText(text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("message text is required")
	}
	if utf8.RuneCountInString(text) > 2000 {
		return fmt.Errorf("message is too long (max 2000 characters)")
	}
	return nil
}

// ValidateRating validates a comment rating.
func ValidateRating(rating float64) error {
	if rating < 0 || rating > 10 {
		return fmt.Errorf("rating must be between 0 and 10")
	}
	return nil
}
