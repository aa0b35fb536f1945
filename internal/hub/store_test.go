package hub

import (
	"testing"

	"github.com/uncord-chat/uncord-server/internal/id"
	"github.com/uncord-chat/uncord-server/internal/permission"
)

func TestStoreSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	owner := id.New()
	h := New("alpha", "a test hub", owner)
	h.CreateDefaultChannel("chat", "welcome")
	user := id.New()
	if _, err := h.Join(user); err != nil {
		t.Fatalf("Join() error = %v", err)
	}

	if err := store.Save(h); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := store.Load(h.ID)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if loaded.Name != h.Name || loaded.Description != h.Description {
		t.Errorf("loaded hub name/description mismatch: got %q/%q, want %q/%q",
			loaded.Name, loaded.Description, h.Name, h.Description)
	}
	if len(loaded.Channels) != 1 {
		t.Fatalf("expected 1 channel after reload, got %d", len(loaded.Channels))
	}
	if len(loaded.Members) != 2 {
		t.Fatalf("expected 2 members after reload, got %d", len(loaded.Members))
	}

	m, err := loaded.GetMember(owner)
	if err != nil {
		t.Fatalf("GetMember(owner) after reload error = %v", err)
	}
	if !permission.Resolve(m, permission.HubBan, loaded) {
		t.Error("owner permissions must survive a save/load round trip")
	}
}

func TestStoreLoadMissingReturnsHubNotFound(t *testing.T) {
	store := NewStore(t.TempDir())
	if _, err := store.Load(id.New()); err != ErrHubNotFound {
		t.Fatalf("Load() on missing hub error = %v, want ErrHubNotFound", err)
	}
}
