package hub

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/uncord-chat/uncord-server/internal/id"
)

// Store persists hub descriptors as single serialized blobs under
// <root>/hubs/info/<hub_id_hex>, per spec.md §4.3/§6. Saves always
// rewrite the entire descriptor; torn writes on crash are tolerated
// because there is never a partial field update to reconcile (spec.md
// §7).
type Store struct {
	root string
}

// NewStore creates a Store rooted at dir (the server's configured
// DataDir).
func NewStore(dir string) *Store {
	return &Store{root: dir}
}

func (s *Store) infoPath(hubID id.Id) string {
	return filepath.Join(s.root, "hubs", "info", id.Hex(hubID))
}

// Save serializes h in full and writes it to its descriptor path,
// creating the containing directory if needed. The write is not
// required to be atomic (spec.md §4.3); it truncates and rewrites the
// whole file rather than patching fields.
func (s *Store) Save(h *Hub) error {
	dir := filepath.Join(s.root, "hubs", "info")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create hub info dir: %w", err)
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(h); err != nil {
		return fmt.Errorf("encode hub descriptor: %w", err)
	}

	f, err := os.OpenFile(s.infoPath(h.ID), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("open hub descriptor for write: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write hub descriptor: %w", err)
	}
	return f.Sync()
}

// Load reads and deserializes the hub descriptor for hubID. Fails with
// ErrHubNotFound if the file is absent, or ErrHubCorrupt if
// deserialization fails.
func (s *Store) Load(hubID id.Id) (*Hub, error) {
	data, err := os.ReadFile(s.infoPath(hubID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrHubNotFound
		}
		return nil, fmt.Errorf("read hub descriptor: %w", err)
	}

	var h Hub
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&h); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrHubCorrupt, err)
	}
	return &h, nil
}

// Exists reports whether a descriptor is present for hubID, without
// fully decoding it.
func (s *Store) Exists(hubID id.Id) bool {
	_, err := os.Stat(s.infoPath(hubID))
	return err == nil
}

// Delete removes a hub's descriptor file. The caller is responsible for
// removing the hub's message-log directory tree.
func (s *Store) Delete(hubID id.Id) error {
	if err := os.Remove(s.infoPath(hubID)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrHubNotFound
		}
		return fmt.Errorf("delete hub descriptor: %w", err)
	}
	return nil
}
