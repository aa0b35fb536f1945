// Package id defines the opaque 128-bit identifier type shared by every
// domain object (hubs, channels, members, groups, messages).
package id

import "github.com/google/uuid"

// Id is an opaque 128-bit identifier. Two Ids are equal iff their bytes
// are equal; ordering is unspecified but total and stable (string
// comparison of the canonical form), which is all any call site needs.
type Id = uuid.UUID

// Nil is the zero-value Id, used as a sentinel in tests and defaults.
var Nil = uuid.Nil

// New generates a fresh random Id. Collisions are astronomically
// improbable and are not guarded against (see spec's message-id note).
func New() Id {
	return uuid.New()
}

// Parse parses the canonical or hex-only textual form of an Id.
func Parse(s string) (Id, error) {
	return uuid.Parse(s)
}

// MustParse is Parse, panicking on error; reserved for constants in tests.
func MustParse(s string) Id {
	return uuid.MustParse(s)
}

// Hex renders an Id as a bare hex string with no hyphens, the form used
// for on-disk path components (hubs/info/<hub_id_hex>, etc).
func Hex(i Id) string {
	b := [16]byte(i)
	const hexDigits = "0123456789abcdef"
	out := make([]byte, 32)
	for idx, v := range b {
		out[idx*2] = hexDigits[v>>4]
		out[idx*2+1] = hexDigits[v&0x0f]
	}
	return string(out)
}
