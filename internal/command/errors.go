// Package command implements CommandAPI (spec.md §4.8): the operation
// surface the REST/GraphQL collaborator invokes. Every operation follows
// the same shape — load the hub, resolve membership, check permission,
// validate inputs, mutate, save, publish — grounded on the teacher's
// internal/message and internal/auth handler bodies, generalized from
// Postgres-repository calls to internal/hub.Store and internal/fanout.
package command

import (
	"fmt"

	"github.com/uncord-chat/uncord-server/internal/permission"
)

// Kind is the closed error-kind vocabulary of spec.md §7.
type Kind string

const (
	KindMuted                    Kind = "Muted"
	KindBanned                   Kind = "Banned"
	KindHubNotFound              Kind = "HubNotFound"
	KindChannelNotFound          Kind = "ChannelNotFound"
	KindMissingHubPermission     Kind = "MissingHubPermission"
	KindMissingChannelPermission Kind = "MissingChannelPermission"
	KindNotInHub                 Kind = "NotInHub"
	KindMemberNotFound           Kind = "MemberNotFound"
	KindMessageNotFound          Kind = "MessageNotFound"
	KindGroupNotFound            Kind = "GroupNotFound"
	KindInvalidName              Kind = "InvalidName"
	KindInvalidText              Kind = "InvalidText"
	KindTooBig                   Kind = "TooBig"
	KindInvalidTime              Kind = "InvalidTime"
	KindAlreadyTyping            Kind = "AlreadyTyping"
	KindNotTyping                Kind = "NotTyping"
	KindWsNotAuthenticated       Kind = "WsNotAuthenticated"
	KindInvalidMessage           Kind = "InvalidMessage"
	KindBadSignature             Kind = "BadSignature"
	KindPublicKeyNotFound        Kind = "PublicKeyNotFound"
	KindInternalError            Kind = "InternalError"
)

// CommandError is the typed error CommandAPI operations return on
// failure. It wraps a low-level sentinel (from internal/hub,
// internal/message, etc.) and carries the wire Kind plus, for the two
// permission kinds, which permission was missing. The one exception: a
// read or decode failure inside the message store during
// GetMessagesAfter, GetMessagesBetween or GetLastMessages is returned as
// the store's own error, not wrapped in a CommandError.
type CommandError struct {
	ErrKind    Kind
	Permission string // set only for MissingHubPermission/MissingChannelPermission
	Err        error
}

func (e *CommandError) Error() string {
	if e.Permission != "" {
		return fmt.Sprintf("%s(%s)", e.ErrKind, e.Permission)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.ErrKind, e.Err)
	}
	return string(e.ErrKind)
}

func (e *CommandError) Unwrap() error { return e.Err }

// Kind implements the narrow interface internal/gateway's Session uses
// to render a wire ERROR(kind) frame without importing this package.
func (e *CommandError) Kind() string { return string(e.ErrKind) }

func newErr(kind Kind, err error) *CommandError {
	return &CommandError{ErrKind: kind, Err: err}
}

func missingHubPermission(p permission.HubPermission) *CommandError {
	return &CommandError{ErrKind: KindMissingHubPermission, Permission: p.String()}
}

func missingChannelPermission(p permission.ChannelPermission) *CommandError {
	return &CommandError{ErrKind: KindMissingChannelPermission, Permission: p.String()}
}
