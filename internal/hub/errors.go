package hub

import "errors"

// Sentinel errors for the hub package. These are the low-level errors the
// command layer (internal/command) wraps into a typed CommandError; see
// SPEC_FULL.md §3.2.
var (
	ErrHubNotFound      = errors.New("hub not found")
	ErrHubCorrupt       = errors.New("hub descriptor is corrupt")
	ErrNotInHub         = errors.New("user is not a member of this hub")
	ErrMemberNotFound   = errors.New("member not found")
	ErrGroupNotFound    = errors.New("permission group not found")
	ErrChannelNotFound  = errors.New("channel not found")
	ErrBanned           = errors.New("user is banned from this hub")
	ErrMuted            = errors.New("user is muted in this hub")
	ErrAlreadyMember    = errors.New("user is already a member of this hub")
	ErrInvalidName      = errors.New("name is invalid")
	ErrInvalidText      = errors.New("text is invalid")
	ErrTooBig           = errors.New("value exceeds the configured size bound")
)
