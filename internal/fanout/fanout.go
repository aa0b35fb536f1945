// Package fanout implements the FanOutActor (spec.md §4.6): a
// single-threaded cooperative actor owning subscription maps and live
// session handles, grounded on original_source/src/server.rs's actix
// Server actor, extended to per-connection (not per-user) session
// identity, a split hub_subs/channel_subs model, and a typing-TTL map.
package fanout

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/uncord-chat/uncord-server/internal/hub"
	"github.com/uncord-chat/uncord-server/internal/id"
	"github.com/uncord-chat/uncord-server/internal/message"
	"github.com/uncord-chat/uncord-server/internal/permission"
)

// Sentinel errors surfaced by actor operations.
var (
	ErrNotInHub         = errors.New("user is not a member of this hub")
	ErrMissingPermission = errors.New("missing required permission")
	ErrAlreadyTyping    = errors.New("user is already typing")
	ErrNotTyping        = errors.New("user is not typing")
)

// Writer is the per-connection outbound handle the actor delivers
// events through. Implemented by internal/gateway.Session, which
// encodes an OutboundEvent into the wire grammar.
type Writer interface {
	Deliver(event OutboundEvent) error
}

type chanKey struct {
	Hub     id.Id
	Channel id.Id
}

// envelope is the inbound mailbox unit: a closure over actor state,
// executed exclusively by Run's single goroutine. Connect, Disconnect,
// the Subscribe/Unsubscribe methods and the typing methods build one of
// these and wait for it to run; PublishNewMessage and PublishHubUpdated
// enqueue one without waiting. Either way every operation in spec.md
// §4.6's numbered list serializes through one total order.
type envelope func(s *state)

type state struct {
	sessions    map[id.Id]Writer             // connection-id -> writer
	hubSubs     map[id.Id]map[id.Id]struct{} // hub -> set of connection-id
	channelSubs map[chanKey]map[id.Id]struct{}
	typing      map[chanKey]map[id.Id]time.Time // (hub,channel) -> user -> last refresh
	connUser    map[id.Id]id.Id                 // connection-id -> user, recorded at subscribe time
}

func newState() *state {
	return &state{
		sessions:    make(map[id.Id]Writer),
		hubSubs:     make(map[id.Id]map[id.Id]struct{}),
		channelSubs: make(map[chanKey]map[id.Id]struct{}),
		typing:      make(map[chanKey]map[id.Id]time.Time),
		connUser:    make(map[id.Id]id.Id),
	}
}

// Actor is the FanOutActor. Construct with NewActor and start Run in its
// own goroutine before any other method is called.
type Actor struct {
	mailbox   chan envelope
	hubs      *hub.Store
	typingTTL time.Duration
	log       zerolog.Logger
}

// NewActor creates an Actor backed by hubs for membership/permission
// reloads, with typingTTL governing how long a typing entry survives
// without a refresh (spec.md §5: ~10s).
func NewActor(hubs *hub.Store, typingTTL time.Duration, log zerolog.Logger) *Actor {
	return &Actor{
		mailbox:   make(chan envelope, 256),
		hubs:      hubs,
		typingTTL: typingTTL,
		log:       log.With().Str("component", "fanout").Logger(),
	}
}

// Run processes envelopes from the mailbox until ctx is cancelled. It is
// the only goroutine ever allowed to touch state.
func (a *Actor) Run(ctx context.Context) {
	s := newState()
	sweep := time.NewTicker(a.typingTTL)
	defer sweep.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case env := <-a.mailbox:
			env(s)
		case <-sweep.C:
			a.sweepTyping(s)
		}
	}
}

func (a *Actor) send(env envelope) {
	done := make(chan struct{})
	a.mailbox <- func(s *state) {
		env(s)
		close(done)
	}
	<-done
}

// Connect allocates a fresh connection-id, records the writer, and
// returns the id.
func (a *Actor) Connect(w Writer) id.Id {
	var connID id.Id
	a.send(func(s *state) {
		connID = id.New()
		s.sessions[connID] = w
	})
	return connID
}

// Disconnect drops the writer for conn and removes it from every
// subscription set.
func (a *Actor) Disconnect(conn id.Id) {
	a.send(func(s *state) {
		a.removeConnection(s, conn)
	})
}

func (a *Actor) removeConnection(s *state, conn id.Id) {
	delete(s.sessions, conn)
	delete(s.connUser, conn)
	for hubID, set := range s.hubSubs {
		delete(set, conn)
		if len(set) == 0 {
			delete(s.hubSubs, hubID)
		}
	}
	for key, set := range s.channelSubs {
		delete(set, conn)
		if len(set) == 0 {
			delete(s.channelSubs, key)
		}
	}
}

// SubscribeHub verifies user is a member of hubID (reloading the hub)
// and, on success, adds conn to hub_subs[hubID].
func (a *Actor) SubscribeHub(user, hubID, conn id.Id) error {
	h, err := a.hubs.Load(hubID)
	if err != nil {
		return err
	}
	if _, err := h.GetMember(user); err != nil {
		return ErrNotInHub
	}

	a.send(func(s *state) {
		s.connUser[conn] = user
		set, ok := s.hubSubs[hubID]
		if !ok {
			set = make(map[id.Id]struct{})
			s.hubSubs[hubID] = set
		}
		set[conn] = struct{}{}
	})
	return nil
}

// UnsubscribeHub is a best-effort removal of conn from hub_subs[hubID].
func (a *Actor) UnsubscribeHub(hubID, conn id.Id) {
	a.send(func(s *state) {
		if set, ok := s.hubSubs[hubID]; ok {
			delete(set, conn)
			if len(set) == 0 {
				delete(s.hubSubs, hubID)
			}
		}
	})
}

// SubscribeChannel verifies user is a member and has Read on channelID,
// then adds conn to channel_subs[(hubID,channelID)].
func (a *Actor) SubscribeChannel(user, hubID, channelID, conn id.Id) error {
	h, err := a.hubs.Load(hubID)
	if err != nil {
		return err
	}
	m, err := h.GetMember(user)
	if err != nil {
		return ErrNotInHub
	}
	if !permission.ResolveChannel(m, channelID, permission.ChannelRead, h) {
		return ErrMissingPermission
	}

	key := chanKey{Hub: hubID, Channel: channelID}
	a.send(func(s *state) {
		s.connUser[conn] = user
		set, ok := s.channelSubs[key]
		if !ok {
			set = make(map[id.Id]struct{})
			s.channelSubs[key] = set
		}
		set[conn] = struct{}{}
	})
	return nil
}

// UnsubscribeChannel is a best-effort removal of conn.
func (a *Actor) UnsubscribeChannel(hubID, channelID, conn id.Id) {
	key := chanKey{Hub: hubID, Channel: channelID}
	a.send(func(s *state) {
		if set, ok := s.channelSubs[key]; ok {
			delete(set, conn)
			if len(set) == 0 {
				delete(s.channelSubs, key)
			}
		}
	})
}

// StartTyping verifies Write permission, records user in the typing set
// for (hubID,channelID), and publishes UserStartedTyping to channel
// subscribers. Fails with ErrAlreadyTyping if already present.
func (a *Actor) StartTyping(user, hubID, channelID id.Id) error {
	h, err := a.hubs.Load(hubID)
	if err != nil {
		return err
	}
	m, err := h.GetMember(user)
	if err != nil {
		return ErrNotInHub
	}
	if !permission.ResolveChannel(m, channelID, permission.ChannelWrite, h) {
		return ErrMissingPermission
	}

	key := chanKey{Hub: hubID, Channel: channelID}
	var already bool
	a.send(func(s *state) {
		set, ok := s.typing[key]
		if !ok {
			set = make(map[id.Id]time.Time)
			s.typing[key] = set
		}
		if _, ok := set[user]; ok {
			already = true
			return
		}
		set[user] = time.Now()
		a.deliverToChannel(s, key, TypingEvent{Started: true, User: user, Hub: hubID, Channel: channelID})
	})
	if already {
		return ErrAlreadyTyping
	}
	return nil
}

// StopTyping is the symmetric operation to StartTyping.
func (a *Actor) StopTyping(user, hubID, channelID id.Id) error {
	key := chanKey{Hub: hubID, Channel: channelID}
	var missing bool
	a.send(func(s *state) {
		set, ok := s.typing[key]
		if !ok {
			missing = true
			return
		}
		if _, ok := set[user]; !ok {
			missing = true
			return
		}
		delete(set, user)
		if len(set) == 0 {
			delete(s.typing, key)
		}
		a.deliverToChannel(s, key, TypingEvent{Started: false, User: user, Hub: hubID, Channel: channelID})
	})
	if missing {
		return ErrNotTyping
	}
	return nil
}

func (a *Actor) sweepTyping(s *state) {
	cutoff := time.Now().Add(-a.typingTTL)
	for key, set := range s.typing {
		for user, last := range set {
			if last.Before(cutoff) {
				delete(set, user)
				a.deliverToChannel(s, key, TypingEvent{Started: false, User: user, Hub: key.Hub, Channel: key.Channel})
			}
		}
		if len(set) == 0 {
			delete(s.typing, key)
		}
	}
}

// PublishNewMessage delivers NewMessage to every connection subscribed
// to (hubID,channelID). Fire-and-forget: enqueued without blocking on
// processing completion, per spec.md §4.8 step 7.
func (a *Actor) PublishNewMessage(hubID, channelID id.Id, m message.Message) {
	key := chanKey{Hub: hubID, Channel: channelID}
	a.mailbox <- func(s *state) {
		a.deliverToChannel(s, key, ChatMessageEvent{Hub: hubID, Channel: channelID, MessageID: m.ID})
	}
}

// PublishHubUpdated delivers a HubUpdated notification to every
// connection subscribed to hubID. Fire-and-forget.
func (a *Actor) PublishHubUpdated(hubID id.Id, n HubNotification) {
	a.mailbox <- func(s *state) {
		a.deliverToHub(s, hubID, HubUpdatedEvent{Hub: hubID, Notification: n})
	}
}

func (a *Actor) deliverToChannel(s *state, key chanKey, event OutboundEvent) {
	set := s.channelSubs[key]
	a.deliver(s, set, event)
}

func (a *Actor) deliverToHub(s *state, hubID id.Id, event OutboundEvent) {
	set := s.hubSubs[hubID]
	a.deliver(s, set, event)
}

func (a *Actor) deliver(s *state, subscribers map[id.Id]struct{}, event OutboundEvent) {
	var failed []id.Id
	for conn := range subscribers {
		w, ok := s.sessions[conn]
		if !ok {
			failed = append(failed, conn)
			continue
		}
		if err := w.Deliver(event); err != nil {
			a.log.Debug().Err(err).Msg("delivery failed, disconnecting session")
			failed = append(failed, conn)
		}
	}
	for _, conn := range failed {
		a.removeConnection(s, conn)
	}
}
