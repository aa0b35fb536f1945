// Package identity implements the OpenPGP-based AccountIdentity: key
// bootstrap, SignedAccount construction/verification, and the
// challenge/response handshake primitives used to authenticate a
// websocket peer as the holder of a specific public key (spec.md §4.4).
package identity

import (
	"bytes"
	"crypto"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/openpgp"
	"golang.org/x/crypto/openpgp/armor"
	"golang.org/x/crypto/openpgp/packet"
)

// Sentinel errors for key bootstrap and lookup.
var (
	ErrPublicKeyNotFound = errors.New("public key not found")
	ErrMalformedKey      = errors.New("malformed OpenPGP key")
)

// signConfig pins the hash algorithm every signature in this package
// uses to SHA-256, per spec.md §4.4/§4.5.
var signConfig = &packet.Config{DefaultHash: crypto.SHA256}

// KeyPair is a server or user's OpenPGP identity: a secret key used to
// sign, and the corresponding public key distributed to peers.
type KeyPair struct {
	Secret *openpgp.Entity
	Public *openpgp.Entity
}

// GenerateKeyPair creates a fresh RSA OpenPGP identity, self-signed,
// grounded on original_source/src/signing.rs's KeyPair::new.
func GenerateKeyPair(name string) (*KeyPair, error) {
	entity, err := openpgp.NewEntity(name, "hubd server identity", "", signConfig)
	if err != nil {
		return nil, fmt.Errorf("generate OpenPGP entity: %w", err)
	}
	return &KeyPair{Secret: entity, Public: entity}, nil
}

// Save writes the secret and public halves of kp to their armored paths.
func (kp *KeyPair) Save(secretPath, publicPath string) error {
	if err := os.MkdirAll(filepath.Dir(secretPath), 0o700); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(publicPath), 0o755); err != nil {
		return err
	}

	if err := writeArmored(secretPath, "PGP PRIVATE KEY BLOCK", 0o600, func(w *bytes.Buffer) error {
		return kp.Secret.SerializePrivate(w, signConfig)
	}); err != nil {
		return fmt.Errorf("save secret key: %w", err)
	}
	if err := writeArmored(publicPath, "PGP PUBLIC KEY BLOCK", 0o644, func(w *bytes.Buffer) error {
		return kp.Public.Serialize(w)
	}); err != nil {
		return fmt.Errorf("save public key: %w", err)
	}
	return nil
}

func writeArmored(path, blockType string, perm os.FileMode, serialize func(*bytes.Buffer) error) error {
	var raw bytes.Buffer
	if err := serialize(&raw); err != nil {
		return err
	}

	var armored bytes.Buffer
	aw, err := armor.Encode(&armored, blockType, nil)
	if err != nil {
		return err
	}
	if _, err := aw.Write(raw.Bytes()); err != nil {
		return err
	}
	if err := aw.Close(); err != nil {
		return err
	}

	return os.WriteFile(path, armored.Bytes(), perm)
}

// LoadKeyPair reads an armored secret+public key pair from disk.
func LoadKeyPair(secretPath, publicPath string) (*KeyPair, error) {
	secret, err := readEntity(secretPath)
	if err != nil {
		return nil, fmt.Errorf("load secret key: %w", err)
	}
	public, err := readEntity(publicPath)
	if err != nil {
		return nil, fmt.Errorf("load public key: %w", err)
	}
	return &KeyPair{Secret: secret, Public: public}, nil
}

// LoadOrCreate loads the key pair at the given paths, generating and
// saving a fresh one if absent (original_source's load_or_create
// pattern).
func LoadOrCreate(name, secretPath, publicPath string) (*KeyPair, error) {
	if _, err := os.Stat(secretPath); err == nil {
		return LoadKeyPair(secretPath, publicPath)
	}
	kp, err := GenerateKeyPair(name)
	if err != nil {
		return nil, err
	}
	if err := kp.Save(secretPath, publicPath); err != nil {
		return nil, err
	}
	return kp, nil
}

func readEntity(path string) (*openpgp.Entity, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	entities, err := openpgp.ReadArmoredKeyRing(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedKey, err)
	}
	if len(entities) == 0 {
		return nil, ErrMalformedKey
	}
	return entities[0], nil
}

// ArmoredPublicKey returns e's public key, armored.
func ArmoredPublicKey(e *openpgp.Entity) (string, error) {
	var raw bytes.Buffer
	if err := e.Serialize(&raw); err != nil {
		return "", err
	}
	var armored bytes.Buffer
	aw, err := armor.Encode(&armored, "PGP PUBLIC KEY BLOCK", nil)
	if err != nil {
		return "", err
	}
	if _, err := aw.Write(raw.Bytes()); err != nil {
		return "", err
	}
	if err := aw.Close(); err != nil {
		return "", err
	}
	return armored.String(), nil
}

// ParseArmoredPublicKey parses a single armored public key.
func ParseArmoredPublicKey(armored string) (*openpgp.Entity, error) {
	entities, err := openpgp.ReadArmoredKeyRing(bytes.NewReader([]byte(armored)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedKey, err)
	}
	if len(entities) == 0 {
		return nil, ErrMalformedKey
	}
	return entities[0], nil
}

// Fingerprint renders an entity's primary key fingerprint as upper-case
// hex, the form used for user_public_keys/<fingerprint_hex> paths.
func Fingerprint(e *openpgp.Entity) string {
	const hexDigits = "0123456789ABCDEF"
	fpr := e.PrimaryKey.Fingerprint
	out := make([]byte, len(fpr)*2)
	for i, b := range fpr {
		out[i*2] = hexDigits[b>>4]
		out[i*2+1] = hexDigits[b&0x0f]
	}
	return string(out)
}

// UserKeyStore manages the user_public_keys/ directory: armored public
// keys of accounts known to this server, looked up by fingerprint.
type UserKeyStore struct {
	root string
}

// NewUserKeyStore creates a UserKeyStore rooted at dir (the server's
// configured DataDir).
func NewUserKeyStore(dir string) *UserKeyStore {
	return &UserKeyStore{root: dir}
}

func (s *UserKeyStore) path(fingerprint string) string {
	return filepath.Join(s.root, "keys", "user_public_keys", fingerprint)
}

// Save stores the armored public key for fingerprint.
func (s *UserKeyStore) Save(fingerprint, armoredKey string) error {
	dir := filepath.Dir(s.path(fingerprint))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(s.path(fingerprint), []byte(armoredKey), 0o644)
}

// Load returns the parsed public key entity for fingerprint, or
// ErrPublicKeyNotFound.
func (s *UserKeyStore) Load(fingerprint string) (*openpgp.Entity, error) {
	data, err := os.ReadFile(s.path(fingerprint))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrPublicKeyNotFound
		}
		return nil, err
	}
	return ParseArmoredPublicKey(string(data))
}
