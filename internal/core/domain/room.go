package domain

import (
	"time"
)

type RoomID string
type UserID string
type ConnectionID string

// NormalizeID reduces an identity to its canonical string form. Host and
// member ids may arrive from different layers (JWT claims, URL params,
// socket payloads); comparisons must always go through this form.
func NormalizeID(id UserID) string {
	return string(id)
}

// PlaybackState is the room's last-known player snapshot. While playing,
// Position drifts from real elapsed time; only the host's live clock is
// authoritative for an in-progress playthrough.
type PlaybackState struct {
	Position float64 `json:"currentTime"`
	Playing  bool    `json:"isPlaying"`
	Rate     float64 `json:"playbackRate"`
	Volume   float64 `json:"volume"`
}

const (
	MinPlaybackRate = 0.25
	MaxPlaybackRate = 2.0

	DefaultCapacity = 100
)

type Room struct {
	ID          RoomID                   `json:"id" gorm:"primaryKey;type:uuid"`
	Name        string                   `json:"name"`
	Code        string                   `json:"code" gorm:"uniqueIndex;size:6"`
	MovieURL    string                   `json:"movieUrl"`
	MovieTitle  string                   `json:"movieTitle"`
	HostID      UserID                   `json:"hostId" gorm:"index"`
	Playback    PlaybackState            `json:"playback" gorm:"embedded"`
	Capacity    int                      `json:"capacity"`
	ViewerIDs   []UserID                 `json:"viewerIds" gorm:"serializer:json"`
	Permissions map[UserID]PermissionSet `json:"viewerPermissions" gorm:"serializer:json"`
	Active      bool                     `json:"isActive"`
	CreatedAt   time.Time                `json:"createdAt"`
	UpdatedAt   time.Time                `json:"updatedAt"`
}

// IsHost reports whether id is the room's host, compared canonically.
func (r *Room) IsHost(id UserID) bool {
	return NormalizeID(r.HostID) == NormalizeID(id)
}

func (r *Room) HasViewer(id UserID) bool {
	for _, v := range r.ViewerIDs {
		if NormalizeID(v) == NormalizeID(id) {
			return true
		}
	}
	return false
}

// AddViewer appends a viewer and initialises its capability set to empty.
// The host is never added to the viewer list.
func (r *Room) AddViewer(id UserID) {
	if r.IsHost(id) || r.HasViewer(id) {
		return
	}
	r.ViewerIDs = append(r.ViewerIDs, id)
	if r.Permissions == nil {
		r.Permissions = make(map[UserID]PermissionSet)
	}
	r.Permissions[id] = PermissionSet{}
}

// RemoveViewer drops a viewer and its capability entry in one step, keeping
// the permission map keyed only by current viewers.
func (r *Room) RemoveViewer(id UserID) {
	filtered := r.ViewerIDs[:0]
	for _, v := range r.ViewerIDs {
		if NormalizeID(v) != NormalizeID(id) {
			filtered = append(filtered, v)
		}
	}
	r.ViewerIDs = filtered
	delete(r.Permissions, id)
}

func (r *Room) PermissionsOf(id UserID) PermissionSet {
	return r.Permissions[id]
}

// ApplyUpdate overwrites snapshot fields named by upd, clamping volume and
// rate into their allowed ranges. Last write wins; there is no merge.
func (r *Room) ApplyUpdate(upd PlayerUpdate) {
	if upd.Position != nil {
		r.Playback.Position = *upd.Position
		if r.Playback.Position < 0 {
			r.Playback.Position = 0
		}
	}
	if upd.Playing != nil {
		r.Playback.Playing = *upd.Playing
	}
	if upd.Volume != nil {
		r.Playback.Volume = clamp(*upd.Volume, 0, 1)
	}
	if upd.Rate != nil {
		r.Playback.Rate = clamp(*upd.Rate, MinPlaybackRate, MaxPlaybackRate)
	}
	r.UpdatedAt = time.Now()
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// RoomFilter selects rooms by their relation to a caller.
type RoomFilter string

const (
	FilterAll     RoomFilter = "all"
	FilterMyRooms RoomFilter = "my-rooms"
	FilterJoined  RoomFilter = "joined"
	FilterLiveNow RoomFilter = "live-now"
)

// JoinResult is what the engine hands back to the transport after a join.
type JoinResult struct {
	Room    *Room
	Role    Role
	Members []Member
	// NeedsHostSync is set when the room is playing and the persisted
	// position cannot be trusted; the transport should relay a position
	// request to the host's live connection.
	NeedsHostSync bool
}

// LeaveResult describes the room after a member left.
type LeaveResult struct {
	RoomClosed bool
	Members    []Member
}
