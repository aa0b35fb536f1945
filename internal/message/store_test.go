package message

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/uncord-chat/uncord-server/internal/id"
)

func setupChannel(t *testing.T) (*Store, id.Id, id.Id) {
	t.Helper()
	store := NewStore(t.TempDir())
	hubID, channelID := id.New(), id.New()
	if err := store.CreateChannelDir(hubID, channelID); err != nil {
		t.Fatalf("CreateChannelDir() error = %v", err)
	}
	return store, hubID, channelID
}

func TestAddMessageRequiresChannelDir(t *testing.T) {
	store := NewStore(t.TempDir())
	m := New(id.New(), id.New(), id.New(), "hi")
	if err := store.AddMessage(m); err != ErrChannelNotFound {
		t.Fatalf("AddMessage() on missing channel dir error = %v, want ErrChannelNotFound", err)
	}
}

func TestAddAndGetMessage(t *testing.T) {
	store, hubID, channelID := setupChannel(t)
	m := New(hubID, channelID, id.New(), "hello")
	if err := store.AddMessage(m); err != nil {
		t.Fatalf("AddMessage() error = %v", err)
	}

	got, err := store.GetMessage(hubID, channelID, m.ID)
	if err != nil {
		t.Fatalf("GetMessage() error = %v", err)
	}
	if got.Content != "hello" {
		t.Errorf("Content = %q, want %q", got.Content, "hello")
	}

	if _, err := store.GetMessage(hubID, channelID, id.New()); err != ErrMessageNotFound {
		t.Fatalf("GetMessage() on unknown id error = %v, want ErrMessageNotFound", err)
	}
}

// messageAt writes a message to a specific historical day file directly,
// bypassing AddMessage's "always write to today" behavior, so tests can
// exercise multi-day queries deterministically.
func messageAt(t *testing.T, store *Store, hubID, channelID id.Id, created time.Time, content string) Message {
	t.Helper()
	m := Message{
		ID:        id.New(),
		HubID:     hubID,
		ChannelID: channelID,
		Sender:    id.New(),
		Created:   created,
		Content:   content,
	}
	dir := store.channelDir(hubID, channelID)
	path := filepath.Join(dir, created.UTC().Format(dayFormat))
	record, err := encodeRecord(m)
	if err != nil {
		t.Fatalf("encodeRecord() error = %v", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		t.Fatalf("open day file: %v", err)
	}
	defer f.Close()
	if _, err := f.Write(record); err != nil {
		t.Fatalf("write day file: %v", err)
	}
	return m
}

func TestGetMessagesBetween(t *testing.T) {
	store, hubID, channelID := setupChannel(t)
	epoch := time.Unix(0, 0).UTC()
	m1 := messageAt(t, store, hubID, channelID, epoch.Add(1000*time.Second), "m1")
	m2 := messageAt(t, store, hubID, channelID, epoch.Add(2000*time.Second), "m2")
	_ = messageAt(t, store, hubID, channelID, epoch.Add(86_500_000*time.Second), "m3")

	from := epoch.Add(500 * time.Second)
	to := epoch.Add(3000 * time.Second)

	got, err := store.GetMessagesBetween(hubID, channelID, from, to, false, 10)
	if err != nil {
		t.Fatalf("GetMessagesBetween() error = %v", err)
	}
	if len(got) != 2 || got[0].ID != m1.ID || got[1].ID != m2.ID {
		t.Fatalf("GetMessagesBetween(invert=false) = %+v, want [m1, m2]", got)
	}

	gotInv, err := store.GetMessagesBetween(hubID, channelID, from, to, true, 1)
	if err != nil {
		t.Fatalf("GetMessagesBetween(invert=true) error = %v", err)
	}
	if len(gotInv) != 1 || gotInv[0].ID != m2.ID {
		t.Fatalf("GetMessagesBetween(invert=true, max=1) = %+v, want [m2]", gotInv)
	}
}

func TestGetMessagesAfterSpansFiles(t *testing.T) {
	store, hubID, channelID := setupChannel(t)
	epoch := time.Unix(0, 0).UTC()
	m1 := messageAt(t, store, hubID, channelID, epoch, "m1")
	m2 := messageAt(t, store, hubID, channelID, epoch.Add(time.Second), "m2")
	m3 := messageAt(t, store, hubID, channelID, epoch.Add(48*time.Hour), "m3")

	got, err := store.GetMessagesAfter(hubID, channelID, m1.ID, 10)
	if err != nil {
		t.Fatalf("GetMessagesAfter() error = %v", err)
	}
	if len(got) != 2 || got[0].ID != m2.ID || got[1].ID != m3.ID {
		t.Fatalf("GetMessagesAfter(m1) = %+v, want [m2, m3]", got)
	}

	none, err := store.GetMessagesAfter(hubID, channelID, id.New(), 10)
	if err != nil {
		t.Fatalf("GetMessagesAfter(unknown) error = %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("GetMessagesAfter(unknown) = %+v, want empty", none)
	}
}

func TestGetLastMessagesNewestFirst(t *testing.T) {
	store, hubID, channelID := setupChannel(t)
	epoch := time.Unix(0, 0).UTC()
	m1 := messageAt(t, store, hubID, channelID, epoch, "m1")
	m2 := messageAt(t, store, hubID, channelID, epoch.Add(time.Hour), "m2")
	m3 := messageAt(t, store, hubID, channelID, epoch.Add(48*time.Hour), "m3")

	got, err := store.GetLastMessages(hubID, channelID, 2)
	if err != nil {
		t.Fatalf("GetLastMessages() error = %v", err)
	}
	if len(got) != 2 || got[0].ID != m3.ID || got[1].ID != m2.ID {
		t.Fatalf("GetLastMessages(2) = %+v, want [m3, m2]", got)
	}
	_ = m1
}

func TestValidateContentBounds(t *testing.T) {
	if _, err := ValidateContent("   ", 10); err != ErrEmptyContent {
		t.Fatalf("ValidateContent(blank) error = %v, want ErrEmptyContent", err)
	}
	if _, err := ValidateContent("this is too long", 5); err != ErrContentTooLong {
		t.Fatalf("ValidateContent(too long) error = %v, want ErrContentTooLong", err)
	}
	got, err := ValidateContent("  <b>hi</b>  ", 100)
	if err != nil {
		t.Fatalf("ValidateContent() error = %v", err)
	}
	if got != "hi" {
		t.Fatalf("ValidateContent() = %q, want sanitized %q", got, "hi")
	}
}
