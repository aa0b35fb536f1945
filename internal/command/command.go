package command

import (
	"regexp"
	"time"

	"github.com/rs/zerolog"

	"github.com/uncord-chat/uncord-server/internal/fanout"
	"github.com/uncord-chat/uncord-server/internal/hub"
	"github.com/uncord-chat/uncord-server/internal/id"
	"github.com/uncord-chat/uncord-server/internal/message"
	"github.com/uncord-chat/uncord-server/internal/permission"
)

// nameAllowedPattern is NAME_ALLOWED_CHARS (spec.md §6): alphanumerics
// plus a small punctuation set.
var nameAllowedPattern = regexp.MustCompile(`^[A-Za-z0-9 _.\-]+$`)

// API is the CommandAPI: the operation surface the REST/GraphQL
// collaborator invokes (spec.md §4.8). Every mutating method acquires
// the hub's per-hub token before load and releases it after save (§5).
type API struct {
	hubs     *hub.Store
	messages *message.Store
	actor    *fanout.Actor
	locks    *hub.Locks

	maxNameSize        int
	maxDescriptionSize int
	messageMaxSize     int

	log zerolog.Logger
}

// NewAPI constructs an API. Bounds come from config (MAX_NAME_SIZE,
// MAX_DESCRIPTION_SIZE, MESSAGE_MAX_SIZE, spec.md §6).
func NewAPI(hubs *hub.Store, messages *message.Store, actor *fanout.Actor, maxNameSize, maxDescriptionSize, messageMaxSize int, log zerolog.Logger) *API {
	return &API{
		hubs:                hubs,
		messages:            messages,
		actor:               actor,
		locks:               hub.NewLocks(),
		maxNameSize:         maxNameSize,
		maxDescriptionSize:  maxDescriptionSize,
		messageMaxSize:      messageMaxSize,
		log:                 log.With().Str("component", "command").Logger(),
	}
}

func validateName(name string, max int) (string, error) {
	if name == "" || len(name) > max || !nameAllowedPattern.MatchString(name) {
		return "", newErr(KindInvalidName, nil)
	}
	return name, nil
}

func validateDescription(description string, max int) (string, error) {
	if len(description) > max {
		return "", newErr(KindTooBig, nil)
	}
	return description, nil
}

func (a *API) loadHub(hubID id.Id) (*hub.Hub, error) {
	h, err := a.hubs.Load(hubID)
	if err != nil {
		return nil, newErr(KindHubNotFound, err)
	}
	return h, nil
}

func (a *API) resolveMember(h *hub.Hub, user id.Id) (*hub.HubMember, error) {
	m, err := h.GetMember(user)
	if err != nil {
		return nil, newErr(KindNotInHub, err)
	}
	return m, nil
}

func (a *API) save(h *hub.Hub) error {
	if err := a.hubs.Save(h); err != nil {
		return newErr(KindInternalError, err)
	}
	return nil
}

func (a *API) publishHubUpdated(hubID id.Id, n fanout.HubNotification) {
	a.actor.PublishHubUpdated(hubID, n)
}

// CreateHub creates a new hub owned by owner, with a default "everyone"
// group and a default channel. Notification publication doesn't apply
// (there are no prior subscribers to a hub that didn't exist).
func (a *API) CreateHub(owner id.Id, name, description string) (*hub.Hub, error) {
	name, err := validateName(name, a.maxNameSize)
	if err != nil {
		return nil, err
	}
	description, err = validateDescription(description, a.maxDescriptionSize)
	if err != nil {
		return nil, err
	}

	h := hub.New(name, description, owner)
	c := h.CreateDefaultChannel("chat", "")

	if err := a.messages.CreateChannelDir(h.ID, c.ID); err != nil {
		return nil, newErr(KindInternalError, err)
	}
	if err := a.save(h); err != nil {
		return nil, err
	}
	return h, nil
}

// JoinHub enrolls user in hubID's default group and publishes
// UserJoined to hub subscribers.
func (a *API) JoinHub(user, hubID id.Id) error {
	unlock := a.locks.Lock(hubID)
	defer unlock()

	h, err := a.loadHub(hubID)
	if err != nil {
		return err
	}
	if _, ok := h.Bans[user]; ok {
		return newErr(KindBanned, nil)
	}
	if _, err := h.Join(user); err != nil {
		return newErr(KindInternalError, err)
	}
	if err := a.save(h); err != nil {
		return err
	}
	a.publishHubUpdated(hubID, fanout.HubNotification{Kind: fanout.UserJoined, User: user})
	return nil
}

// LeaveHub removes user's membership and publishes UserLeft.
func (a *API) LeaveHub(user, hubID id.Id) error {
	unlock := a.locks.Lock(hubID)
	defer unlock()

	h, err := a.loadHub(hubID)
	if err != nil {
		return err
	}
	if _, err := a.resolveMember(h, user); err != nil {
		return err
	}
	if err := h.Leave(user); err != nil {
		return newErr(KindNotInHub, err)
	}
	if err := a.save(h); err != nil {
		return err
	}
	a.publishHubUpdated(hubID, fanout.HubNotification{Kind: fanout.UserLeft, User: user})
	return nil
}

// RenameHub requires HubAdministrate, grounded on original_source's
// rename_hub.
func (a *API) RenameHub(actorID, hubID id.Id, name string) error {
	unlock := a.locks.Lock(hubID)
	defer unlock()

	h, err := a.loadHub(hubID)
	if err != nil {
		return err
	}
	m, err := a.resolveMember(h, actorID)
	if err != nil {
		return err
	}
	if !permission.Resolve(m, permission.HubAdministrate, h) {
		return missingHubPermission(permission.HubAdministrate)
	}
	name, err = validateName(name, a.maxNameSize)
	if err != nil {
		return err
	}

	h.Rename(name)
	if err := a.save(h); err != nil {
		return err
	}
	a.publishHubUpdated(hubID, fanout.HubNotification{Kind: fanout.HubRenamed})
	return nil
}

// SetHubDescription requires HubAdministrate, by analogy with RenameHub
// (original_source has no standalone set_hub_description operation).
func (a *API) SetHubDescription(actorID, hubID id.Id, description string) error {
	unlock := a.locks.Lock(hubID)
	defer unlock()

	h, err := a.loadHub(hubID)
	if err != nil {
		return err
	}
	m, err := a.resolveMember(h, actorID)
	if err != nil {
		return err
	}
	if !permission.Resolve(m, permission.HubAdministrate, h) {
		return missingHubPermission(permission.HubAdministrate)
	}
	description, err = validateDescription(description, a.maxDescriptionSize)
	if err != nil {
		return err
	}

	h.SetDescription(description)
	if err := a.save(h); err != nil {
		return err
	}
	a.publishHubUpdated(hubID, fanout.HubNotification{Kind: fanout.HubDescriptionChanged})
	return nil
}

// DeleteHub requires HubAll (stricter than Administrate), grounded on
// original_source's delete_hub, and cascades to every channel's message
// log.
func (a *API) DeleteHub(actorID, hubID id.Id) error {
	unlock := a.locks.Lock(hubID)
	defer unlock()

	h, err := a.loadHub(hubID)
	if err != nil {
		return err
	}
	m, err := a.resolveMember(h, actorID)
	if err != nil {
		return err
	}
	if !permission.Resolve(m, permission.HubAll, h) {
		return missingHubPermission(permission.HubAll)
	}

	if err := a.hubs.Delete(hubID); err != nil {
		return newErr(KindInternalError, err)
	}
	if err := a.messages.RemoveHubDir(hubID); err != nil {
		return newErr(KindInternalError, err)
	}
	a.publishHubUpdated(hubID, fanout.HubNotification{Kind: fanout.HubDeleted})
	return nil
}

// SetMemberHubPermission requires HubAdministrate, grounded on
// original_source's set_member_hub_permission.
func (a *API) SetMemberHubPermission(actorID, hubID, target id.Id, p permission.HubPermission, value permission.TriState) error {
	unlock := a.locks.Lock(hubID)
	defer unlock()

	h, err := a.loadHub(hubID)
	if err != nil {
		return err
	}
	m, err := a.resolveMember(h, actorID)
	if err != nil {
		return err
	}
	if !permission.Resolve(m, permission.HubAdministrate, h) {
		return missingHubPermission(permission.HubAdministrate)
	}
	targetMember, err := h.GetMember(target)
	if err != nil {
		return newErr(KindMemberNotFound, err)
	}

	targetMember.SetHubPermission(p, value)
	if err := a.save(h); err != nil {
		return err
	}
	a.publishHubUpdated(hubID, fanout.HubNotification{Kind: fanout.UserHubPermissionChanged, User: target})
	return nil
}

// SetMemberChannelPermission requires HubAdministrate, grounded on
// original_source's set_member_channel_permission.
func (a *API) SetMemberChannelPermission(actorID, hubID, target, channelID id.Id, p permission.ChannelPermission, value permission.TriState) error {
	unlock := a.locks.Lock(hubID)
	defer unlock()

	h, err := a.loadHub(hubID)
	if err != nil {
		return err
	}
	m, err := a.resolveMember(h, actorID)
	if err != nil {
		return err
	}
	if !permission.Resolve(m, permission.HubAdministrate, h) {
		return missingHubPermission(permission.HubAdministrate)
	}
	targetMember, err := h.GetMember(target)
	if err != nil {
		return newErr(KindMemberNotFound, err)
	}
	if _, err := h.GetChannel(channelID); err != nil {
		return newErr(KindChannelNotFound, err)
	}

	targetMember.SetChannelPermission(channelID, p, value)
	if err := a.save(h); err != nil {
		return err
	}
	a.publishHubUpdated(hubID, fanout.HubNotification{Kind: fanout.UserChannelPermissionChanged, User: target, Channel: channelID})
	return nil
}

// NewChannel creates an ad-hoc channel (distinct from the hub's default
// channel, SPEC_FULL.md §5): requires CreateChannel, grants the creator
// an explicit Read override.
func (a *API) NewChannel(actorID, hubID id.Id, name, description string) (*hub.Channel, error) {
	unlock := a.locks.Lock(hubID)
	defer unlock()

	h, err := a.loadHub(hubID)
	if err != nil {
		return nil, err
	}
	m, err := a.resolveMember(h, actorID)
	if err != nil {
		return nil, err
	}
	if !permission.Resolve(m, permission.HubCreateChannel, h) {
		return nil, missingHubPermission(permission.HubCreateChannel)
	}
	name, err = validateName(name, a.maxNameSize)
	if err != nil {
		return nil, err
	}
	description, err = validateDescription(description, a.maxDescriptionSize)
	if err != nil {
		return nil, err
	}

	c := h.CreateChannel(name, description)
	m.SetChannelPermission(c.ID, permission.ChannelRead, permission.Allow)

	if err := a.messages.CreateChannelDir(hubID, c.ID); err != nil {
		return nil, newErr(KindInternalError, err)
	}
	if err := a.save(h); err != nil {
		return nil, err
	}
	a.publishHubUpdated(hubID, fanout.HubNotification{Kind: fanout.ChannelCreated, Channel: c.ID})
	return c, nil
}

// RenameChannel requires Read+Configure on the channel.
func (a *API) RenameChannel(actorID, hubID, channelID id.Id, name string) error {
	unlock := a.locks.Lock(hubID)
	defer unlock()

	h, err := a.loadHub(hubID)
	if err != nil {
		return err
	}
	m, err := a.resolveMember(h, actorID)
	if err != nil {
		return err
	}
	if !permission.ResolveChannel(m, channelID, permission.ChannelRead, h) {
		return missingChannelPermission(permission.ChannelRead)
	}
	if !permission.ResolveChannel(m, channelID, permission.ChannelConfigure, h) {
		return missingChannelPermission(permission.ChannelConfigure)
	}
	name, err = validateName(name, a.maxNameSize)
	if err != nil {
		return err
	}

	if _, err := h.RenameChannel(channelID, name); err != nil {
		return newErr(KindChannelNotFound, err)
	}
	if err := a.save(h); err != nil {
		return err
	}
	a.publishHubUpdated(hubID, fanout.HubNotification{Kind: fanout.ChannelRenamed, Channel: channelID})
	return nil
}

// SetChannelDescription requires Read+Configure on the channel.
func (a *API) SetChannelDescription(actorID, hubID, channelID id.Id, description string) error {
	unlock := a.locks.Lock(hubID)
	defer unlock()

	h, err := a.loadHub(hubID)
	if err != nil {
		return err
	}
	m, err := a.resolveMember(h, actorID)
	if err != nil {
		return err
	}
	if !permission.ResolveChannel(m, channelID, permission.ChannelRead, h) {
		return missingChannelPermission(permission.ChannelRead)
	}
	if !permission.ResolveChannel(m, channelID, permission.ChannelConfigure, h) {
		return missingChannelPermission(permission.ChannelConfigure)
	}
	description, err = validateDescription(description, a.maxDescriptionSize)
	if err != nil {
		return err
	}

	if _, err := h.SetChannelDescription(channelID, description); err != nil {
		return newErr(KindChannelNotFound, err)
	}
	if err := a.save(h); err != nil {
		return err
	}
	a.publishHubUpdated(hubID, fanout.HubNotification{Kind: fanout.ChannelDescriptionChanged, Channel: channelID})
	return nil
}

// DeleteChannel requires hub-level DeleteChannel plus channel Read, and
// cascades to the channel's message directory.
func (a *API) DeleteChannel(actorID, hubID, channelID id.Id) error {
	unlock := a.locks.Lock(hubID)
	defer unlock()

	h, err := a.loadHub(hubID)
	if err != nil {
		return err
	}
	m, err := a.resolveMember(h, actorID)
	if err != nil {
		return err
	}
	if !permission.ResolveChannel(m, channelID, permission.ChannelRead, h) {
		return missingChannelPermission(permission.ChannelRead)
	}
	if !permission.Resolve(m, permission.HubDeleteChannel, h) {
		return missingHubPermission(permission.HubDeleteChannel)
	}

	if err := h.DeleteChannel(channelID); err != nil {
		return newErr(KindChannelNotFound, err)
	}
	if err := a.messages.RemoveChannelDir(hubID, channelID); err != nil {
		return newErr(KindInternalError, err)
	}
	if err := a.save(h); err != nil {
		return err
	}
	a.publishHubUpdated(hubID, fanout.HubNotification{Kind: fanout.ChannelDeleted, Channel: channelID})
	return nil
}

// ChannelsVisibleTo answers "list my channels" for the REST collaborator.
func (a *API) ChannelsVisibleTo(user, hubID id.Id) ([]*hub.Channel, error) {
	h, err := a.loadHub(hubID)
	if err != nil {
		return nil, err
	}
	channels, err := h.ChannelsVisibleTo(user)
	if err != nil {
		return nil, newErr(KindNotInHub, err)
	}
	return channels, nil
}

// KickMember requires HubKick; unlike hub.Hub.Kick, reports
// MemberNotFound for a non-member (SPEC_FULL.md §5).
func (a *API) KickMember(actorID, hubID, target id.Id) error {
	unlock := a.locks.Lock(hubID)
	defer unlock()

	h, err := a.loadHub(hubID)
	if err != nil {
		return err
	}
	m, err := a.resolveMember(h, actorID)
	if err != nil {
		return err
	}
	if !permission.Resolve(m, permission.HubKick, h) {
		return missingHubPermission(permission.HubKick)
	}
	if _, err := h.GetMember(target); err != nil {
		return newErr(KindMemberNotFound, err)
	}

	h.Kick(target)
	if err := a.save(h); err != nil {
		return err
	}
	a.publishHubUpdated(hubID, fanout.HubNotification{Kind: fanout.UserKicked, User: target})
	return nil
}

// BanMember requires HubBan.
func (a *API) BanMember(actorID, hubID, target id.Id) error {
	unlock := a.locks.Lock(hubID)
	defer unlock()

	h, err := a.loadHub(hubID)
	if err != nil {
		return err
	}
	m, err := a.resolveMember(h, actorID)
	if err != nil {
		return err
	}
	if !permission.Resolve(m, permission.HubBan, h) {
		return missingHubPermission(permission.HubBan)
	}

	h.Ban(target)
	if err := a.save(h); err != nil {
		return err
	}
	a.publishHubUpdated(hubID, fanout.HubNotification{Kind: fanout.UserBanned, User: target})
	return nil
}

// UnbanMember requires HubUnban.
func (a *API) UnbanMember(actorID, hubID, target id.Id) error {
	unlock := a.locks.Lock(hubID)
	defer unlock()

	h, err := a.loadHub(hubID)
	if err != nil {
		return err
	}
	m, err := a.resolveMember(h, actorID)
	if err != nil {
		return err
	}
	if !permission.Resolve(m, permission.HubUnban, h) {
		return missingHubPermission(permission.HubUnban)
	}

	h.Unban(target)
	if err := a.save(h); err != nil {
		return err
	}
	a.publishHubUpdated(hubID, fanout.HubNotification{Kind: fanout.UserUnbanned, User: target})
	return nil
}

// MuteMember requires HubMute.
func (a *API) MuteMember(actorID, hubID, target id.Id) error {
	unlock := a.locks.Lock(hubID)
	defer unlock()

	h, err := a.loadHub(hubID)
	if err != nil {
		return err
	}
	m, err := a.resolveMember(h, actorID)
	if err != nil {
		return err
	}
	if !permission.Resolve(m, permission.HubMute, h) {
		return missingHubPermission(permission.HubMute)
	}

	h.Mute(target)
	if err := a.save(h); err != nil {
		return err
	}
	a.publishHubUpdated(hubID, fanout.HubNotification{Kind: fanout.UserMuted, User: target})
	return nil
}

// UnmuteMember requires HubUnmute.
func (a *API) UnmuteMember(actorID, hubID, target id.Id) error {
	unlock := a.locks.Lock(hubID)
	defer unlock()

	h, err := a.loadHub(hubID)
	if err != nil {
		return err
	}
	m, err := a.resolveMember(h, actorID)
	if err != nil {
		return err
	}
	if !permission.Resolve(m, permission.HubUnmute, h) {
		return missingHubPermission(permission.HubUnmute)
	}

	h.Unmute(target)
	if err := a.save(h); err != nil {
		return err
	}
	a.publishHubUpdated(hubID, fanout.HubNotification{Kind: fanout.UserUnmuted, User: target})
	return nil
}

// SendMessage is the spec.md §4.8-shaped write path, grounded on
// original_source/src/hub.rs's send_message: Muted is checked before
// Read/Write permission (SPEC_FULL.md §5's mute-before-permission
// ordering).
func (a *API) SendMessage(user, hubID, channelID id.Id, text string) (id.Id, error) {
	unlock := a.locks.Lock(hubID)
	defer unlock()

	h, err := a.loadHub(hubID)
	if err != nil {
		return id.Nil, err
	}
	m, err := a.resolveMember(h, user)
	if err != nil {
		return id.Nil, err
	}
	if h.IsMuted(user) {
		return id.Nil, newErr(KindMuted, nil)
	}
	if !permission.ResolveChannel(m, channelID, permission.ChannelRead, h) {
		return id.Nil, missingChannelPermission(permission.ChannelRead)
	}
	if !permission.ResolveChannel(m, channelID, permission.ChannelWrite, h) {
		return id.Nil, missingChannelPermission(permission.ChannelWrite)
	}
	if _, err := h.GetChannel(channelID); err != nil {
		return id.Nil, newErr(KindChannelNotFound, err)
	}

	cleaned, err := message.ValidateContent(text, a.messageMaxSize)
	if err != nil {
		kind := KindInvalidText
		if err == message.ErrContentTooLong {
			kind = KindTooBig
		}
		return id.Nil, newErr(kind, err)
	}

	msg := message.New(hubID, channelID, user, cleaned)
	if err := a.messages.AddMessage(msg); err != nil {
		return id.Nil, newErr(KindInternalError, err)
	}

	a.actor.PublishNewMessage(hubID, channelID, msg)
	return msg.ID, nil
}

// GetMessage requires Read on the channel.
func (a *API) GetMessage(user, hubID, channelID, messageID id.Id) (*message.Message, error) {
	if _, _, err := a.loadHubAndMemberForRead(user, hubID, channelID); err != nil {
		return nil, err
	}
	msg, err := a.messages.GetMessage(hubID, channelID, messageID)
	if err != nil {
		return nil, newErr(KindMessageNotFound, err)
	}
	return msg, nil
}

// GetMessagesAfter requires Read on the channel.
func (a *API) GetMessagesAfter(user, hubID, channelID, afterID id.Id, max int) ([]message.Message, error) {
	if _, _, err := a.loadHubAndMemberForRead(user, hubID, channelID); err != nil {
		return nil, err
	}
	return a.messages.GetMessagesAfter(hubID, channelID, afterID, max)
}

// GetMessagesBetween requires Read on the channel.
func (a *API) GetMessagesBetween(user, hubID, channelID id.Id, from, to time.Time, invert bool, max int) ([]message.Message, error) {
	if _, _, err := a.loadHubAndMemberForRead(user, hubID, channelID); err != nil {
		return nil, err
	}
	return a.messages.GetMessagesBetween(hubID, channelID, from, to, invert, max)
}

// GetLastMessages requires Read on the channel.
func (a *API) GetLastMessages(user, hubID, channelID id.Id, max int) ([]message.Message, error) {
	if _, _, err := a.loadHubAndMemberForRead(user, hubID, channelID); err != nil {
		return nil, err
	}
	return a.messages.GetLastMessages(hubID, channelID, max)
}

func (a *API) loadHubAndMemberForRead(user, hubID, channelID id.Id) (*hub.Hub, *hub.HubMember, error) {
	h, err := a.loadHub(hubID)
	if err != nil {
		return nil, nil, err
	}
	m, err := a.resolveMember(h, user)
	if err != nil {
		return nil, nil, err
	}
	if !permission.ResolveChannel(m, channelID, permission.ChannelRead, h) {
		return nil, nil, missingChannelPermission(permission.ChannelRead)
	}
	if _, err := h.GetChannel(channelID); err != nil {
		return nil, nil, newErr(KindChannelNotFound, err)
	}
	return h, m, nil
}
