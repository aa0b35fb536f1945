package gateway

import (
	"testing"

	"github.com/uncord-chat/uncord-server/internal/fanout"
	"github.com/uncord-chat/uncord-server/internal/id"
)

func TestDecodeCommandSubscribeHub(t *testing.T) {
	hubID := id.New()
	f := Frame{Head: "SUBSCRIBE_HUB", Args: []string{hubID.String()}}
	cmd, err := DecodeCommand(f)
	if err != nil {
		t.Fatalf("DecodeCommand() error = %v", err)
	}
	if cmd.Kind != CmdSubscribeHub || cmd.HubID != hubID {
		t.Fatalf("DecodeCommand() = %+v", cmd)
	}
}

func TestDecodeCommandSendMessage(t *testing.T) {
	hubID, channelID := id.New(), id.New()
	f := Frame{Head: "SEND_MESSAGE", Args: []string{hubID.String(), channelID.String(), "hello there"}}
	cmd, err := DecodeCommand(f)
	if err != nil {
		t.Fatalf("DecodeCommand() error = %v", err)
	}
	if cmd.Kind != CmdSendMessage || cmd.Text != "hello there" {
		t.Fatalf("DecodeCommand() = %+v", cmd)
	}
}

func TestDecodeCommandWrongArgCount(t *testing.T) {
	f := Frame{Head: "SUBSCRIBE_HUB", Args: []string{"a", "b"}}
	if _, err := DecodeCommand(f); err == nil {
		t.Fatal("DecodeCommand() with wrong arg count should fail")
	}
}

func TestDecodeCommandUnknownHead(t *testing.T) {
	f := Frame{Head: "DANCE"}
	if _, err := DecodeCommand(f); err == nil {
		t.Fatal("DecodeCommand() with unknown head should fail")
	}
}

func TestEncodeHubUpdatedIncludesUserAndChannelWhenApplicable(t *testing.T) {
	hubID, userID, channelID := id.New(), id.New(), id.New()

	f := encodeHubUpdated(hubID, fanout.HubNotification{Kind: fanout.UserKicked, User: userID})
	if len(f.Args) != 3 || f.Args[2] != userID.String() {
		t.Fatalf("encodeHubUpdated(UserKicked) = %+v", f)
	}

	f = encodeHubUpdated(hubID, fanout.HubNotification{Kind: fanout.ChannelDeleted, Channel: channelID})
	if len(f.Args) != 3 || f.Args[2] != channelID.String() {
		t.Fatalf("encodeHubUpdated(ChannelDeleted) = %+v", f)
	}

	f = encodeHubUpdated(hubID, fanout.HubNotification{Kind: fanout.HubDeleted})
	if len(f.Args) != 2 {
		t.Fatalf("encodeHubUpdated(HubDeleted) = %+v", f)
	}
}
