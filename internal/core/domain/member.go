package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

type Role string

const (
	RoleHost   Role = "host"
	RoleViewer Role = "viewer"
)

// Member is a live presence entry: the ephemeral fact that a user is
// currently connected to a room, distinct from the durable viewer list.
type Member struct {
	UserID       UserID       `json:"userId"`
	Role         Role         `json:"role"`
	ConnectionID ConnectionID `json:"connectionId"`
}

// MemberSet is an ordered mapping from user id to presence entry. Upsert
// keeps insertion order and dedupes by user id, which is what makes repeated
// joins and dirty reconnects idempotent. On the wire it is encoded as an
// array of [id, member] pairs; that layout is strictly a serialization
// concern.
type MemberSet struct {
	entries []Member
}

func NewMemberSet(members ...Member) MemberSet {
	var s MemberSet
	for _, m := range members {
		s.Upsert(m)
	}
	return s
}

func (s *MemberSet) Upsert(m Member) {
	for i, existing := range s.entries {
		if NormalizeID(existing.UserID) == NormalizeID(m.UserID) {
			s.entries[i] = m
			return
		}
	}
	s.entries = append(s.entries, m)
}

func (s *MemberSet) Remove(id UserID) bool {
	for i, existing := range s.entries {
		if NormalizeID(existing.UserID) == NormalizeID(id) {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return true
		}
	}
	return false
}

func (s *MemberSet) Get(id UserID) (Member, bool) {
	for _, existing := range s.entries {
		if NormalizeID(existing.UserID) == NormalizeID(id) {
			return existing, true
		}
	}
	return Member{}, false
}

func (s *MemberSet) Len() int {
	return len(s.entries)
}

// Members returns the entries in insertion order. The slice is a copy.
func (s *MemberSet) Members() []Member {
	out := make([]Member, len(s.entries))
	copy(out, s.entries)
	return out
}

func (s MemberSet) MarshalJSON() ([]byte, error) {
	pairs := make([][2]interface{}, 0, len(s.entries))
	for _, m := range s.entries {
		pairs = append(pairs, [2]interface{}{string(m.UserID), m})
	}
	return json.Marshal(pairs)
}

func (s *MemberSet) UnmarshalJSON(data []byte) error {
	var pairs [][2]json.RawMessage
	if err := json.Unmarshal(data, &pairs); err != nil {
		return fmt.Errorf("member set: decode pairs: %w", err)
	}
	s.entries = s.entries[:0]
	for _, pair := range pairs {
		var m Member
		if err := json.Unmarshal(pair[1], &m); err != nil {
			return fmt.Errorf("member set: decode entry: %w", err)
		}
		s.Upsert(m)
	}
	return nil
}

// Session is a room's ephemeral presence row. It expires after a fixed
// inactivity window; every write refreshes the expiry.
type Session struct {
	RoomID       RoomID    `json:"roomId"`
	Members      MemberSet `json:"users"`
	LastActivity time.Time `json:"lastActivity"`
}

// SessionTTL bounds presence and chat rows even if cleanup logic is skipped.
const SessionTTL = 24 * time.Hour
