package gateway

import (
	"github.com/uncord-chat/uncord-server/internal/fanout"
	"github.com/uncord-chat/uncord-server/internal/id"
)

// Command is a decoded inbound frame, one of the SUBSCRIBE_HUB family
// plus SEND_MESSAGE (spec.md §6).
type Command struct {
	Kind      CommandKind
	HubID     id.Id
	ChannelID id.Id
	Text      string
}

// CommandKind enumerates the inbound command vocabulary.
type CommandKind int

const (
	CmdSubscribeHub CommandKind = iota
	CmdUnsubscribeHub
	CmdSubscribeChannel
	CmdUnsubscribeChannel
	CmdStartTyping
	CmdStopTyping
	CmdSendMessage
)

// DecodeCommand parses a Frame into a Command. Returns ErrMalformedFrame
// for an unrecognized head or a wrong argument count/type; the session
// turns this into an INVALID_COMMAND reply rather than closing.
func DecodeCommand(f Frame) (Command, error) {
	switch f.Head {
	case "SUBSCRIBE_HUB":
		return decodeHubOnly(f, CmdSubscribeHub)
	case "UNSUBSCRIBE_HUB":
		return decodeHubOnly(f, CmdUnsubscribeHub)
	case "SUBSCRIBE_CHANNEL":
		return decodeHubChannel(f, CmdSubscribeChannel)
	case "UNSUBSCRIBE_CHANNEL":
		return decodeHubChannel(f, CmdUnsubscribeChannel)
	case "START_TYPING":
		return decodeHubChannel(f, CmdStartTyping)
	case "STOP_TYPING":
		return decodeHubChannel(f, CmdStopTyping)
	case "SEND_MESSAGE":
		return decodeSendMessage(f)
	default:
		return Command{}, ErrMalformedFrame{Raw: f.String()}
	}
}

func decodeHubOnly(f Frame, kind CommandKind) (Command, error) {
	if len(f.Args) != 1 {
		return Command{}, ErrMalformedFrame{Raw: f.String()}
	}
	hubID, err := id.Parse(f.Args[0])
	if err != nil {
		return Command{}, ErrMalformedFrame{Raw: f.String()}
	}
	return Command{Kind: kind, HubID: hubID}, nil
}

func decodeHubChannel(f Frame, kind CommandKind) (Command, error) {
	if len(f.Args) != 2 {
		return Command{}, ErrMalformedFrame{Raw: f.String()}
	}
	hubID, err := id.Parse(f.Args[0])
	if err != nil {
		return Command{}, ErrMalformedFrame{Raw: f.String()}
	}
	channelID, err := id.Parse(f.Args[1])
	if err != nil {
		return Command{}, ErrMalformedFrame{Raw: f.String()}
	}
	return Command{Kind: kind, HubID: hubID, ChannelID: channelID}, nil
}

func decodeSendMessage(f Frame) (Command, error) {
	if len(f.Args) != 3 {
		return Command{}, ErrMalformedFrame{Raw: f.String()}
	}
	hubID, err := id.Parse(f.Args[0])
	if err != nil {
		return Command{}, ErrMalformedFrame{Raw: f.String()}
	}
	channelID, err := id.Parse(f.Args[1])
	if err != nil {
		return Command{}, ErrMalformedFrame{Raw: f.String()}
	}
	return Command{Kind: CmdSendMessage, HubID: hubID, ChannelID: channelID, Text: f.Args[2]}, nil
}

// ErrorKind is the closed vocabulary of spec.md §7, serialized as its
// String() form: as the sole argument of an ERROR(kind) frame, and as the
// second argument of a RESULT(ERROR,kind) frame. RESULT frames are flat
// argument lists; the kind is not nested inside an ERROR(...) argument.
type ErrorKind int

const (
	ErrKindMuted ErrorKind = iota
	ErrKindBanned
	ErrKindHubNotFound
	ErrKindChannelNotFound
	ErrKindMissingHubPermission
	ErrKindMissingChannelPermission
	ErrKindNotInHub
	ErrKindMemberNotFound
	ErrKindMessageNotFound
	ErrKindGroupNotFound
	ErrKindInvalidName
	ErrKindInvalidText
	ErrKindTooBig
	ErrKindInvalidTime
	ErrKindAlreadyTyping
	ErrKindNotTyping
	ErrKindWsNotAuthenticated
	ErrKindInvalidMessage
	ErrKindBadSignature
	ErrKindPublicKeyNotFound
	ErrKindInternalError
)

var errorKindNames = map[ErrorKind]string{
	ErrKindMuted:                    "Muted",
	ErrKindBanned:                   "Banned",
	ErrKindHubNotFound:              "HubNotFound",
	ErrKindChannelNotFound:          "ChannelNotFound",
	ErrKindMissingHubPermission:     "MissingHubPermission",
	ErrKindMissingChannelPermission: "MissingChannelPermission",
	ErrKindNotInHub:                 "NotInHub",
	ErrKindMemberNotFound:           "MemberNotFound",
	ErrKindMessageNotFound:          "MessageNotFound",
	ErrKindGroupNotFound:            "GroupNotFound",
	ErrKindInvalidName:              "InvalidName",
	ErrKindInvalidText:              "InvalidText",
	ErrKindTooBig:                   "TooBig",
	ErrKindInvalidTime:              "InvalidTime",
	ErrKindAlreadyTyping:            "AlreadyTyping",
	ErrKindNotTyping:                "NotTyping",
	ErrKindWsNotAuthenticated:       "WsNotAuthenticated",
	ErrKindInvalidMessage:           "InvalidMessage",
	ErrKindBadSignature:             "BadSignature",
	ErrKindPublicKeyNotFound:        "PublicKeyNotFound",
	ErrKindInternalError:            "InternalError",
}

func (k ErrorKind) String() string {
	if s, ok := errorKindNames[k]; ok {
		return s
	}
	return "InternalError"
}

// KindForFanoutError maps a fanout sentinel error to its wire ErrorKind,
// so the session doesn't need to know fanout's internals.
func KindForFanoutError(err error) ErrorKind {
	switch err {
	case fanout.ErrNotInHub:
		return ErrKindNotInHub
	case fanout.ErrMissingPermission:
		return ErrKindMissingChannelPermission
	case fanout.ErrAlreadyTyping:
		return ErrKindAlreadyTyping
	case fanout.ErrNotTyping:
		return ErrKindNotTyping
	default:
		return ErrKindInternalError
	}
}

func hubUpdateKindName(k fanout.HubUpdateKind) string {
	names := [...]string{
		"HubDeleted", "HubUpdated", "HubUpdated",
		"UserJoined", "UserLeft", "UserKicked", "UserBanned", "UserUnbanned",
		"UserMuted", "UserUnmuted", "UserHubPermissionChanged", "UserChannelPermissionChanged",
		"ChannelCreated", "ChannelUpdated", "ChannelUpdated", "ChannelDeleted",
	}
	if int(k) < 0 || int(k) >= len(names) {
		return "HubUpdated"
	}
	return names[k]
}

func requiresChannelArg(k fanout.HubUpdateKind) bool {
	switch k {
	case fanout.ChannelCreated, fanout.ChannelRenamed, fanout.ChannelDescriptionChanged, fanout.ChannelDeleted,
		fanout.UserChannelPermissionChanged:
		return true
	default:
		return false
	}
}

func requiresUserArg(k fanout.HubUpdateKind) bool {
	switch k {
	case fanout.UserJoined, fanout.UserLeft, fanout.UserKicked, fanout.UserBanned, fanout.UserUnbanned,
		fanout.UserMuted, fanout.UserUnmuted, fanout.UserHubPermissionChanged, fanout.UserChannelPermissionChanged:
		return true
	default:
		return false
	}
}

// encodeHubUpdated builds the HUB_UPDATED(hub_id, kind[, user][, channel])
// frame for a notification, appending whichever of user/channel that
// notification kind carries.
func encodeHubUpdated(hubID id.Id, n fanout.HubNotification) Frame {
	args := []string{hubID.String(), hubUpdateKindName(n.Kind)}
	if requiresUserArg(n.Kind) {
		args = append(args, n.User.String())
	}
	if requiresChannelArg(n.Kind) {
		args = append(args, n.Channel.String())
	}
	return Frame{Head: "HUB_UPDATED", Args: args}
}
