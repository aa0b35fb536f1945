package permission

import "github.com/uncord-chat/uncord-server/internal/id"

// Member is the minimal view of a hub member the resolver needs. It is
// satisfied by internal/hub.HubMember without this package importing
// internal/hub (which itself imports permission), keeping the resolver
// a pure, dependency-free function as spec.md §4.1 requires.
type Member interface {
	UserID() id.Id
	HubPermission(p HubPermission) TriState
	HasChannelEntry(channel id.Id) bool
	ChannelPermission(channel id.Id, p ChannelPermission) TriState
	GroupIDs() []id.Id
}

// Group is the minimal view of a permission group the resolver needs.
type Group interface {
	HubPermission(p HubPermission) TriState
	HasChannelEntry(channel id.Id) bool
	ChannelPermission(channel id.Id, p ChannelPermission) TriState
}

// HubContext is the minimal view of a hub the resolver needs: who owns
// it, and how to look up a group by id.
type HubContext interface {
	OwnerID() id.Id
	Group(gid id.Id) (Group, bool)
}

// Resolve implements spec.md §4.1's has_permission(member, perm, hub).
func Resolve(member Member, perm HubPermission, hub HubContext) bool {
	// 1. Owner bypass.
	if hub.OwnerID() == member.UserID() {
		return true
	}
	// 2. Member-level All.
	if member.HubPermission(HubAll) == Allow {
		return true
	}
	// 3. Explicit member-level setting.
	switch member.HubPermission(perm) {
	case Allow:
		return true
	case Deny:
		return false
	}
	// 4. Fall back to groups, in declared order.
	for _, gid := range member.GroupIDs() {
		g, ok := hub.Group(gid)
		if !ok {
			continue
		}
		if g.HubPermission(HubAll) == Allow || g.HubPermission(perm) == Allow {
			return true
		}
	}
	// 5.
	return false
}

// ResolveChannel implements spec.md §4.1's
// has_channel_permission(member, channel_id, perm, hub).
func ResolveChannel(member Member, channel id.Id, perm ChannelPermission, hub HubContext) bool {
	// 1. Owner and member-level hub-All short-circuit.
	if hub.OwnerID() == member.UserID() {
		return true
	}
	if member.HubPermission(HubAll) == Allow {
		return true
	}

	if member.HasChannelEntry(channel) {
		// 2. Channel-level All.
		if member.ChannelPermission(channel, ChannelAll) == Allow {
			return true
		}
		// 3. Explicit channel-level setting.
		switch member.ChannelPermission(channel, perm) {
		case Allow:
			return true
		case Deny:
			return false
		}
		// 4. Unset at channel level for the member: widen to hub permission.
		if hubPerm, ok := widen(perm); ok {
			return Resolve(member, hubPerm, hub)
		}
		return false
	}

	// 5. No channel-permission entry at all for the member: iterate groups
	// identically.
	for _, gid := range member.GroupIDs() {
		g, ok := hub.Group(gid)
		if !ok {
			continue
		}
		if groupHasChannelPermission(g, channel, perm, member, hub) {
			return true
		}
	}
	return false
}

// groupHasChannelPermission mirrors ResolveChannel's per-member logic one
// tier down, for a group's channel entry. When that entry leaves perm
// unset, it falls back to Resolve for the member on the widened hub
// permission, not to the group's own hub-level permissions.
func groupHasChannelPermission(g Group, channel id.Id, perm ChannelPermission, member Member, hub HubContext) bool {
	if !g.HasChannelEntry(channel) {
		return false
	}
	if g.ChannelPermission(channel, ChannelAll) == Allow {
		return true
	}
	switch g.ChannelPermission(channel, perm) {
	case Allow:
		return true
	case Deny:
		return false
	}
	if hubPerm, ok := widen(perm); ok {
		return Resolve(member, hubPerm, hub)
	}
	return false
}
