package fanout

import "github.com/uncord-chat/uncord-server/internal/id"

// OutboundEvent is the set of notifications the FanOutActor delivers
// through a Writer. internal/gateway's Session implements Writer and
// encodes each concrete type into the wire grammar (spec.md §6).
type OutboundEvent interface {
	isOutboundEvent()
}

// ChatMessageEvent announces a new message on (Hub,Channel). Delivery
// carries the id only; the receiving Session is expected to already
// have read access and fetches the body itself if needed.
type ChatMessageEvent struct {
	Hub       id.Id
	Channel   id.Id
	MessageID id.Id
}

func (ChatMessageEvent) isOutboundEvent() {}

// TypingEvent announces a user starting or stopping typing in a channel.
type TypingEvent struct {
	Started bool
	User    id.Id
	Hub     id.Id
	Channel id.Id
}

func (TypingEvent) isOutboundEvent() {}

// HubUpdateKind enumerates the flavors of hub-level change a
// HubUpdatedEvent can carry, grounded on original_source's ServerNotification
// enum (SPEC_FULL.md §5).
type HubUpdateKind int

const (
	HubDeleted HubUpdateKind = iota
	HubRenamed
	HubDescriptionChanged
	UserJoined
	UserLeft
	UserKicked
	UserBanned
	UserUnbanned
	UserMuted
	UserUnmuted
	UserHubPermissionChanged
	UserChannelPermissionChanged
	ChannelCreated
	ChannelRenamed
	ChannelDescriptionChanged
	ChannelDeleted
)

// HubNotification carries a HubUpdateKind plus whichever of User/Channel
// apply to that kind; unused fields are the zero id.Id.
type HubNotification struct {
	Kind    HubUpdateKind
	User    id.Id
	Channel id.Id
}

// HubUpdatedEvent wraps a HubNotification for delivery to a hub's
// subscribers.
type HubUpdatedEvent struct {
	Hub          id.Id
	Notification HubNotification
}

func (HubUpdatedEvent) isOutboundEvent() {}
