package identity

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/uncord-chat/uncord-server/internal/id"
)

// ErrAccountNotFound is returned when no account blob exists for an id.
var ErrAccountNotFound = errors.New("account not found")

// Store persists SignedAccount blobs at <root>/accounts/<id_hex>
// (spec.md §4.4/§6). SignedAccount, like the Account inside it, holds
// only strings and an id, with no OpenPGP entity types, so a direct gob
// encoding suffices — there is no
// need for the custom serialize/deserialize shim
// original_source/src/account.rs uses to smuggle a signature type
// through bincode.
type Store struct {
	root string
}

// NewStore creates a Store rooted at dir (the server's configured
// DataDir).
func NewStore(dir string) *Store {
	return &Store{root: dir}
}

func (s *Store) path(accountID id.Id) string {
	return filepath.Join(s.root, "accounts", id.Hex(accountID))
}

// Save writes sa's binary serialization to its account path.
func (s *Store) Save(sa *SignedAccount) error {
	dir := filepath.Join(s.root, "accounts")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create accounts dir: %w", err)
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(sa); err != nil {
		return fmt.Errorf("encode account: %w", err)
	}
	return os.WriteFile(s.path(sa.Account.ID), buf.Bytes(), 0o644)
}

// Load reads and deserializes the account blob for accountID.
func (s *Store) Load(accountID id.Id) (*SignedAccount, error) {
	data, err := os.ReadFile(s.path(accountID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("read account: %w", err)
	}
	var sa SignedAccount
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&sa); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedAccount, err)
	}
	return &sa, nil
}
