package hub

import (
	"time"

	"github.com/uncord-chat/uncord-server/internal/id"
	"github.com/uncord-chat/uncord-server/internal/permission"
)

// Channel is a named text stream inside a hub, backed by a day-sharded
// append-only log owned by internal/message.Store. Destroying a Channel
// cascades to that log directory (handled by the command layer, which
// owns both the hub descriptor and the channel store).
type Channel struct {
	ID          id.Id
	HubID       id.Id
	Name        string
	Description string
	Created     time.Time
}

// HubMember is the per-hub projection of a user identity, carrying
// per-hub and per-channel permission settings and group membership.
type HubMember struct {
	User      id.Id
	Hub       id.Id
	Joined    time.Time
	Nickname  string
	GroupList []id.Id
	HubPerms  map[permission.HubPermission]permission.TriState
	ChanPerms map[id.Id]map[permission.ChannelPermission]permission.TriState
}

func newMember(user, hub id.Id) *HubMember {
	return &HubMember{
		User:      user,
		Hub:       hub,
		Joined:    time.Now().UTC(),
		HubPerms:  make(map[permission.HubPermission]permission.TriState),
		ChanPerms: make(map[id.Id]map[permission.ChannelPermission]permission.TriState),
	}
}

// UserID, HubPermission, HasChannelEntry, ChannelPermission, and GroupIDs
// implement permission.Member.
func (m *HubMember) UserID() id.Id { return m.User }

func (m *HubMember) HubPermission(p permission.HubPermission) permission.TriState {
	if m.HubPerms == nil {
		return permission.Unset
	}
	return m.HubPerms[p]
}

func (m *HubMember) HasChannelEntry(channel id.Id) bool {
	_, ok := m.ChanPerms[channel]
	return ok
}

func (m *HubMember) ChannelPermission(channel id.Id, p permission.ChannelPermission) permission.TriState {
	entry, ok := m.ChanPerms[channel]
	if !ok {
		return permission.Unset
	}
	return entry[p]
}

func (m *HubMember) GroupIDs() []id.Id { return m.GroupList }

// SetHubPermission sets (or clears, with Unset) an explicit hub-level
// permission setting for this member.
func (m *HubMember) SetHubPermission(p permission.HubPermission, v permission.TriState) {
	if m.HubPerms == nil {
		m.HubPerms = make(map[permission.HubPermission]permission.TriState)
	}
	if v == permission.Unset {
		delete(m.HubPerms, p)
		return
	}
	m.HubPerms[p] = v
}

// SetChannelPermission sets (or clears) an explicit channel-level
// permission setting for this member.
func (m *HubMember) SetChannelPermission(channel id.Id, p permission.ChannelPermission, v permission.TriState) {
	if m.ChanPerms == nil {
		m.ChanPerms = make(map[id.Id]map[permission.ChannelPermission]permission.TriState)
	}
	entry, ok := m.ChanPerms[channel]
	if !ok {
		entry = make(map[permission.ChannelPermission]permission.TriState)
		m.ChanPerms[channel] = entry
	}
	if v == permission.Unset {
		delete(entry, p)
		if len(entry) == 0 {
			delete(m.ChanPerms, channel)
		}
		return
	}
	entry[p] = v
}

// PermissionGroup is a named collection of members with shared
// permission settings. Its MemberList is kept in sync with every
// member's GroupList by Hub.JoinGroup/Hub.LeaveGroup (see hub.go); never
// mutate one side directly.
type PermissionGroup struct {
	ID         id.Id
	Name       string
	Created    time.Time
	MemberList []id.Id
	HubPerms   map[permission.HubPermission]permission.TriState
	ChanPerms  map[id.Id]map[permission.ChannelPermission]permission.TriState
}

func newGroup(name string) *PermissionGroup {
	return &PermissionGroup{
		ID:        id.New(),
		Name:      name,
		Created:   time.Now().UTC(),
		HubPerms:  make(map[permission.HubPermission]permission.TriState),
		ChanPerms: make(map[id.Id]map[permission.ChannelPermission]permission.TriState),
	}
}

func (g *PermissionGroup) HubPermission(p permission.HubPermission) permission.TriState {
	if g.HubPerms == nil {
		return permission.Unset
	}
	return g.HubPerms[p]
}

func (g *PermissionGroup) HasChannelEntry(channel id.Id) bool {
	_, ok := g.ChanPerms[channel]
	return ok
}

func (g *PermissionGroup) ChannelPermission(channel id.Id, p permission.ChannelPermission) permission.TriState {
	entry, ok := g.ChanPerms[channel]
	if !ok {
		return permission.Unset
	}
	return entry[p]
}

func (g *PermissionGroup) SetHubPermission(p permission.HubPermission, v permission.TriState) {
	if g.HubPerms == nil {
		g.HubPerms = make(map[permission.HubPermission]permission.TriState)
	}
	if v == permission.Unset {
		delete(g.HubPerms, p)
		return
	}
	g.HubPerms[p] = v
}

func (g *PermissionGroup) SetChannelPermission(channel id.Id, p permission.ChannelPermission, v permission.TriState) {
	if g.ChanPerms == nil {
		g.ChanPerms = make(map[id.Id]map[permission.ChannelPermission]permission.TriState)
	}
	entry, ok := g.ChanPerms[channel]
	if !ok {
		entry = make(map[permission.ChannelPermission]permission.TriState)
		g.ChanPerms[channel] = entry
	}
	if v == permission.Unset {
		delete(entry, p)
		if len(entry) == 0 {
			delete(g.ChanPerms, channel)
		}
		return
	}
	entry[p] = v
}

func containsID(list []id.Id, target id.Id) bool {
	for _, v := range list {
		if v == target {
			return true
		}
	}
	return false
}

func removeID(list []id.Id, target id.Id) []id.Id {
	for i, v := range list {
		if v == target {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}
