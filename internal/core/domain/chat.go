package domain

import "time"

// ChatMessage is immutable once appended to a room's log.
type ChatMessage struct {
	UserID    UserID    `json:"userId"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// ChatHistoryLimit bounds each room's log to the most recent entries.
const ChatHistoryLimit = 1000
