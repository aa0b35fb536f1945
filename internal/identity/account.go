package identity

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/crypto/openpgp"

	"github.com/uncord-chat/uncord-server/internal/id"
)

// Sentinel errors for SignedAccount construction and verification.
var (
	ErrBadSignature    = errors.New("account signature verification failed")
	ErrMissingPrimary  = errors.New("primary key is absent from the account's public key set")
	ErrMalformedAccount = errors.New("account data is malformed")
)

// Account is an identity's unsigned public-facing content: one or more
// OpenPGP public keys, keyed by fingerprint-hex, and the fingerprint of
// the primary one that signs for this account.
type Account struct {
	PublicKeys        map[string]string // fingerprint-hex -> armored public key
	PrimaryFingerprint string
	ID                id.Id
}

// canonicalBytes builds the exact textual form spec.md §4.4 specifies:
// "<fpr0>:<armor0>,<fpr1>:<armor1>,... <primary_fpr> <id>", with
// fingerprints visited in sorted order for determinism across runs.
func (a *Account) canonicalBytes() []byte {
	fingerprints := make([]string, 0, len(a.PublicKeys))
	for fpr := range a.PublicKeys {
		fingerprints = append(fingerprints, fpr)
	}
	sort.Strings(fingerprints)

	parts := make([]string, 0, len(fingerprints))
	for _, fpr := range fingerprints {
		parts = append(parts, fpr+":"+a.PublicKeys[fpr])
	}

	var b strings.Builder
	b.WriteString(strings.Join(parts, ","))
	b.WriteByte(' ')
	b.WriteString(a.PrimaryFingerprint)
	b.WriteByte(' ')
	b.WriteString(a.ID.String())
	return []byte(b.String())
}

// SignedAccount binds an Account to a detached signature over its
// canonical serialization, made by the secret key matching
// PrimaryFingerprint (spec.md §3/§4.4).
type SignedAccount struct {
	Account   Account
	Signature string // armored detached signature
}

// NewSignedAccount builds and signs an account for accountID, whose
// single registered key is secretEntity's public half.
func NewSignedAccount(accountID id.Id, secretEntity *openpgp.Entity) (*SignedAccount, error) {
	fpr := Fingerprint(secretEntity)
	armored, err := ArmoredPublicKey(secretEntity)
	if err != nil {
		return nil, fmt.Errorf("armor public key: %w", err)
	}

	account := Account{
		PublicKeys:         map[string]string{fpr: armored},
		PrimaryFingerprint: fpr,
		ID:                 accountID,
	}

	sig, err := detachSignArmored(secretEntity, account.canonicalBytes())
	if err != nil {
		return nil, fmt.Errorf("sign account: %w", err)
	}

	return &SignedAccount{Account: account, Signature: sig}, nil
}

// Verify recomputes the canonical bytes for sa.Account, looks up the
// primary public key within it, and checks the detached signature.
func (sa *SignedAccount) Verify() error {
	armored, ok := sa.Account.PublicKeys[sa.Account.PrimaryFingerprint]
	if !ok {
		return ErrMissingPrimary
	}
	primary, err := ParseArmoredPublicKey(armored)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedAccount, err)
	}

	keyring := openpgp.EntityList{primary}
	ok2, err := verifyArmoredDetached(keyring, sa.Account.canonicalBytes(), sa.Signature)
	if err != nil || !ok2 {
		return ErrBadSignature
	}
	return nil
}

// AddPublicKey registers an additional public key under the account,
// without changing its primary fingerprint or existing signature (a
// caller that mutates an account's key set must re-sign it via
// NewSignedAccount-style reconstruction to keep Verify passing).
func (a *Account) AddPublicKey(e *openpgp.Entity) error {
	armored, err := ArmoredPublicKey(e)
	if err != nil {
		return err
	}
	if a.PublicKeys == nil {
		a.PublicKeys = make(map[string]string)
	}
	a.PublicKeys[Fingerprint(e)] = armored
	return nil
}

func detachSignArmored(signer *openpgp.Entity, message []byte) (string, error) {
	var buf bytes.Buffer
	if err := openpgp.ArmoredDetachSign(&buf, signer, bytes.NewReader(message), signConfig); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func verifyArmoredDetached(keyring openpgp.EntityList, message []byte, armoredSig string) (bool, error) {
	_, err := openpgp.CheckArmoredDetachedSignature(keyring, bytes.NewReader(message), strings.NewReader(armoredSig), nil)
	if err != nil {
		return false, err
	}
	return true, nil
}
