// Package permission implements the hub/channel permission vocabulary and
// the pure resolver described by the hub/channel/member permission
// engine: a three-tier rule (owner -> explicit member setting -> group-
// inherited setting) with per-channel override and "All" wildcard
// semantics.
package permission

// TriState is the value a permission setting holds at a given tier.
// Allow and Deny are explicit settings; Unset means "no opinion at this
// tier, delegate to the next one."
type TriState int

const (
	Unset TriState = iota
	Allow
	Deny
)

// HubPermission enumerates the hub-wide permission vocabulary.
type HubPermission int

const (
	HubAll HubPermission = iota
	HubAdministrate
	HubCreateChannel
	HubDeleteChannel
	HubKick
	HubBan
	HubUnban
	HubMute
	HubUnmute
	HubInvite
	HubReadMeta
	HubWriteMeta
)

var hubPermissionNames = map[HubPermission]string{
	HubAll:           "All",
	HubAdministrate:  "Administrate",
	HubCreateChannel: "CreateChannel",
	HubDeleteChannel: "DeleteChannel",
	HubKick:          "Kick",
	HubBan:           "Ban",
	HubUnban:         "Unban",
	HubMute:          "Mute",
	HubUnmute:        "Unmute",
	HubInvite:        "Invite",
	HubReadMeta:      "Read(HubMeta)",
	HubWriteMeta:     "Write(HubMeta)",
}

func (p HubPermission) String() string {
	if s, ok := hubPermissionNames[p]; ok {
		return s
	}
	return "Unknown(HubPermission)"
}

// ChannelPermission enumerates the per-channel permission vocabulary.
type ChannelPermission int

const (
	ChannelAll ChannelPermission = iota
	ChannelRead
	ChannelWrite
	ChannelManage
	ChannelConfigure
)

var channelPermissionNames = map[ChannelPermission]string{
	ChannelAll:       "All",
	ChannelRead:      "Read",
	ChannelWrite:     "Write",
	ChannelManage:    "Manage",
	ChannelConfigure: "Configure",
}

func (p ChannelPermission) String() string {
	if s, ok := channelPermissionNames[p]; ok {
		return s
	}
	return "Unknown(ChannelPermission)"
}

// widen maps a ChannelPermission to the HubPermission it falls back to
// when unset at the channel tier. Permissions with no natural widening
// (Manage has no hub-level analogue) report ok=false, meaning the
// fallback is simply "false" per spec's §4.1 step 4.
func widen(p ChannelPermission) (HubPermission, bool) {
	switch p {
	case ChannelRead:
		return HubReadMeta, true
	case ChannelWrite:
		return HubWriteMeta, true
	case ChannelConfigure:
		return HubAdministrate, true
	default:
		return 0, false
	}
}
