package hub

import (
	"time"

	"github.com/uncord-chat/uncord-server/internal/id"
	"github.com/uncord-chat/uncord-server/internal/permission"
)

// DefaultGroupName is the name given to the group every hub creates for
// itself (spec.md scenario 1: "the server creates a default group
// 'everyone'").
const DefaultGroupName = "everyone"

// Hub is a named container of channels, members, permission groups,
// bans, and mutes. A single serialized descriptor per hub (see store.go)
// is the unit of atomicity for this metadata; message bodies are
// deliberately not part of it (see internal/message).
type Hub struct {
	ID           id.Id
	Name         string
	Description  string
	Owner        id.Id
	Created      time.Time
	Channels     map[id.Id]*Channel
	Members      map[id.Id]*HubMember // keyed by user id
	Bans         map[id.Id]struct{}
	Mutes        map[id.Id]struct{}
	Groups       map[id.Id]*PermissionGroup
	DefaultGroup id.Id
}

// New creates a hub owned by creator, with a default "everyone" group
// the owner belongs to and full (All=Allow) owner permissions recorded
// explicitly (the owner bypass in the resolver makes this redundant for
// correctness, but it documents intent and matches the original's
// behavior of also setting it explicitly).
func New(name, description string, creator id.Id) *Hub {
	h := &Hub{
		ID:          id.New(),
		Name:        name,
		Description: description,
		Owner:       creator,
		Created:     time.Now().UTC(),
		Channels:    make(map[id.Id]*Channel),
		Members:     make(map[id.Id]*HubMember),
		Bans:        make(map[id.Id]struct{}),
		Mutes:       make(map[id.Id]struct{}),
		Groups:      make(map[id.Id]*PermissionGroup),
	}

	everyone := newGroup(DefaultGroupName)
	h.Groups[everyone.ID] = everyone
	h.DefaultGroup = everyone.ID

	owner := newMember(creator, h.ID)
	owner.SetHubPermission(permission.HubAll, permission.Allow)
	h.JoinGroup(owner, everyone)
	h.Members[creator] = owner

	return h
}

// OwnerID and Group implement permission.HubContext.
func (h *Hub) OwnerID() id.Id { return h.Owner }

func (h *Hub) Group(gid id.Id) (permission.Group, bool) {
	g, ok := h.Groups[gid]
	if !ok {
		return nil, false
	}
	return g, true
}

// JoinGroup adds member to group, updating both sides of the
// member<->group backref bijectively (spec.md §9 design note: never
// mutate one side alone).
func (h *Hub) JoinGroup(member *HubMember, group *PermissionGroup) {
	if !containsID(member.GroupList, group.ID) {
		member.GroupList = append(member.GroupList, group.ID)
	}
	if !containsID(group.MemberList, member.User) {
		group.MemberList = append(group.MemberList, member.User)
	}
}

// LeaveGroup removes member from group, updating both sides.
func (h *Hub) LeaveGroup(member *HubMember, group *PermissionGroup) {
	member.GroupList = removeID(member.GroupList, group.ID)
	group.MemberList = removeID(group.MemberList, member.User)
}

// GetMember returns the member record for user, or ErrNotInHub.
func (h *Hub) GetMember(user id.Id) (*HubMember, error) {
	m, ok := h.Members[user]
	if !ok {
		return nil, ErrNotInHub
	}
	return m, nil
}

// GetChannel returns the channel record, or ErrChannelNotFound.
func (h *Hub) GetChannel(channel id.Id) (*Channel, error) {
	c, ok := h.Channels[channel]
	if !ok {
		return nil, ErrChannelNotFound
	}
	return c, nil
}

// GetGroup returns the group record, or ErrGroupNotFound.
func (h *Hub) GetGroup(group id.Id) (*PermissionGroup, error) {
	g, ok := h.Groups[group]
	if !ok {
		return nil, ErrGroupNotFound
	}
	return g, nil
}

// CreateChannel adds a new channel to the hub and returns it. Callers
// (internal/command) are responsible for permission checks and for
// creating the channel's on-disk message directory.
func (h *Hub) CreateChannel(name, description string) *Channel {
	c := &Channel{
		ID:          id.New(),
		HubID:       h.ID,
		Name:        name,
		Description: description,
		Created:     time.Now().UTC(),
	}
	h.Channels[c.ID] = c
	return c
}

// CreateDefaultChannel creates a hub's initial channel and grants the
// default group Read and Write on it, per spec.md scenario 1.
// CreateChannel itself grants nothing; for an ad-hoc channel,
// internal/command's NewChannel grants the creating member Read (see
// SPEC_FULL.md §5).
func (h *Hub) CreateDefaultChannel(name, description string) *Channel {
	c := h.CreateChannel(name, description)
	if everyone, ok := h.Groups[h.DefaultGroup]; ok {
		everyone.SetChannelPermission(c.ID, permission.ChannelRead, permission.Allow)
		everyone.SetChannelPermission(c.ID, permission.ChannelWrite, permission.Allow)
	}
	return c
}

// Rename sets the hub's name and returns the previous value.
func (h *Hub) Rename(name string) string {
	old := h.Name
	h.Name = name
	return old
}

// SetDescription sets the hub's description and returns the previous
// value.
func (h *Hub) SetDescription(description string) string {
	old := h.Description
	h.Description = description
	return old
}

// RenameChannel sets a channel's name and returns the previous value.
func (h *Hub) RenameChannel(channel id.Id, name string) (string, error) {
	c, ok := h.Channels[channel]
	if !ok {
		return "", ErrChannelNotFound
	}
	old := c.Name
	c.Name = name
	return old, nil
}

// SetChannelDescription sets a channel's description and returns the
// previous value.
func (h *Hub) SetChannelDescription(channel id.Id, description string) (string, error) {
	c, ok := h.Channels[channel]
	if !ok {
		return "", ErrChannelNotFound
	}
	old := c.Description
	c.Description = description
	return old, nil
}

// DeleteChannel removes a channel from the hub's descriptor. The caller
// is responsible for deleting the corresponding message directory.
func (h *Hub) DeleteChannel(channel id.Id) error {
	if _, ok := h.Channels[channel]; !ok {
		return ErrChannelNotFound
	}
	delete(h.Channels, channel)
	return nil
}

// ChannelsVisibleTo returns the subset of the hub's channels the given
// member can Read, grounded on original_source's
// get_channels_for_user/strip (SPEC_FULL.md §5).
func (h *Hub) ChannelsVisibleTo(user id.Id) ([]*Channel, error) {
	m, err := h.GetMember(user)
	if err != nil {
		return nil, err
	}
	var visible []*Channel
	for cid, c := range h.Channels {
		if permission.ResolveChannel(m, cid, permission.ChannelRead, h) {
			visible = append(visible, c)
		}
	}
	return visible, nil
}

// Join creates a new member for user, enrolled in the hub's default
// group. Fails with ErrAlreadyMember if user is already a member, and
// ErrGroupNotFound if the hub's default group is missing (a descriptor
// invariant violation).
func (h *Hub) Join(user id.Id) (*HubMember, error) {
	if _, ok := h.Members[user]; ok {
		return nil, ErrAlreadyMember
	}
	group, ok := h.Groups[h.DefaultGroup]
	if !ok {
		return nil, ErrGroupNotFound
	}
	m := newMember(user, h.ID)
	h.JoinGroup(m, group)
	h.Members[user] = m
	return m, nil
}

// Leave removes user's membership, leaving every group they belonged
// to. Fails with ErrNotInHub if user is not a member.
func (h *Hub) Leave(user id.Id) error {
	m, ok := h.Members[user]
	if !ok {
		return ErrNotInHub
	}
	for _, gid := range append([]id.Id{}, m.GroupList...) {
		if g, ok := h.Groups[gid]; ok {
			h.LeaveGroup(m, g)
		}
	}
	delete(h.Members, user)
	return nil
}

// Kick removes user's membership. Unlike Leave, Kick is idempotent on a
// non-member (grounded on original_source's kick_user; see SPEC_FULL.md
// §5 for why the CommandAPI-level KickMember command still reports
// MemberNotFound while this primitive does not).
func (h *Hub) Kick(user id.Id) {
	m, ok := h.Members[user]
	if !ok {
		return
	}
	for _, gid := range append([]id.Id{}, m.GroupList...) {
		if g, ok := h.Groups[gid]; ok {
			h.LeaveGroup(m, g)
		}
	}
	delete(h.Members, user)
}

// Ban kicks user (if a member) and adds them to the ban set, maintaining
// P4 (ban exclusivity: bans ∩ members = ∅).
func (h *Hub) Ban(user id.Id) {
	h.Kick(user)
	h.Bans[user] = struct{}{}
}

// Unban removes user from the ban set. Infallible.
func (h *Hub) Unban(user id.Id) {
	delete(h.Bans, user)
}

// IsBanned reports whether user is in the ban set.
func (h *Hub) IsBanned(user id.Id) bool {
	_, ok := h.Bans[user]
	return ok
}

// Mute adds user to the mute set. Infallible; a muted user need not be a
// member.
func (h *Hub) Mute(user id.Id) {
	h.Mutes[user] = struct{}{}
}

// Unmute removes user from the mute set. Infallible.
func (h *Hub) Unmute(user id.Id) {
	delete(h.Mutes, user)
}

// IsMuted reports whether user is in the mute set.
func (h *Hub) IsMuted(user id.Id) bool {
	_, ok := h.Mutes[user]
	return ok
}
