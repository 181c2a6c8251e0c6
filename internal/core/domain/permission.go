package domain

// Permission is a named capability a host can grant to a viewer. The host
// implicitly holds every permission and is never checked against a set.
type Permission string

const (
	PermPlay         Permission = "can_play"
	PermPause        Permission = "can_pause"
	PermSeek         Permission = "can_seek"
	PermChangeVolume Permission = "can_change_volume"
)

var knownPermissions = map[Permission]struct{}{
	PermPlay:         {},
	PermPause:        {},
	PermSeek:         {},
	PermChangeVolume: {},
}

func ValidPermission(p Permission) bool {
	_, ok := knownPermissions[p]
	return ok
}

type PermissionSet []Permission

func (s PermissionSet) Has(p Permission) bool {
	for _, granted := range s {
		if granted == p {
			return true
		}
	}
	return false
}

// PlayerUpdate names the snapshot fields an action wants to overwrite.
// Nil fields are untouched.
type PlayerUpdate struct {
	Position *float64
	Playing  *bool
	Rate     *float64
	Volume   *float64
}

// Authorize checks a viewer's capability set against an update. It is
// all-or-nothing: if any requested field is not covered, nothing may be
// applied. Rate changes have no viewer capability and always fail here;
// only the host changes rate.
func Authorize(perms PermissionSet, upd PlayerUpdate) error {
	if upd.Playing != nil {
		required := PermPause
		if *upd.Playing {
			required = PermPlay
		}
		if !perms.Has(required) {
			return ErrForbidden
		}
	}
	if upd.Position != nil && upd.Playing == nil {
		// A bare position change is a seek. Position riding along with
		// play/pause is covered by the playback permission above.
		if !perms.Has(PermSeek) {
			return ErrForbidden
		}
	}
	if upd.Volume != nil && !perms.Has(PermChangeVolume) {
		return ErrForbidden
	}
	if upd.Rate != nil {
		return ErrForbidden
	}
	return nil
}
