// Package signing implements MessageSigning (spec.md §4.5): wrapping,
// double-signing, verifying, and extracting the inner payload of a
// Message. A Message may be unsigned (canonical JSON), client-signed (a
// literal-data OpenPGP message signed by the sender), or double-signed
// (the armored client-signed form re-wrapped and signed by the server).
package signing

import (
	"bytes"
	"crypto"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/openpgp"
	"golang.org/x/crypto/openpgp/armor"
	"golang.org/x/crypto/openpgp/packet"

	"github.com/uncord-chat/uncord-server/internal/message"
)

// ErrInvalidMessage covers any verification or parse failure while
// extracting a signed Message, per spec.md §4.5/§7.
var ErrInvalidMessage = errors.New("invalid signed message")

var signConfig = &packet.Config{DefaultHash: crypto.SHA256}

// CanonicalJSON returns the deterministic JSON serialization of m.
// encoding/json marshals struct fields in declaration order, which
// combined with Message's fixed field set gives the "deterministic
// field order" spec.md §4.5 requires without a custom encoder.
func CanonicalJSON(m message.Message) ([]byte, error) {
	return json.Marshal(m)
}

// Sign produces the client-signed form of m: a literal-data OpenPGP
// message whose payload is CanonicalJSON(m), signed by secretKey with
// SHA-256.
func Sign(m message.Message, secretKey *openpgp.Entity) (string, error) {
	body, err := CanonicalJSON(m)
	if err != nil {
		return "", fmt.Errorf("canonicalize message: %w", err)
	}
	return signLiteral(body, m.ID.String(), secretKey)
}

// SignFinal produces the double-signed form: a literal-data OpenPGP
// message whose payload is clientSignedArmored, signed by serverKey.
// It takes only the server's key: it neither verifies nor re-signs the
// inner client-signed form, which ExtractVerified later checks against
// the client's public key.
func SignFinal(clientSignedArmored string, serverKey *openpgp.Entity) (string, error) {
	return signLiteral([]byte(clientSignedArmored), "double-signed", serverKey)
}

// ExtractVerified verifies outer's signature against serverPub, extracts
// the inner client-signed armored string, verifies that against
// clientPub, parses the resulting JSON, and returns the Message. Any
// verification or parse failure returns ErrInvalidMessage (spec.md §4.5).
func ExtractVerified(outerArmored string, serverPub, clientPub *openpgp.Entity) (*message.Message, error) {
	innerArmored, err := readVerifiedLiteral(outerArmored, serverPub)
	if err != nil {
		return nil, fmt.Errorf("%w: verify outer (server) signature: %w", ErrInvalidMessage, err)
	}

	body, err := readVerifiedLiteral(string(innerArmored), clientPub)
	if err != nil {
		return nil, fmt.Errorf("%w: verify inner (client) signature: %w", ErrInvalidMessage, err)
	}

	var m message.Message
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, fmt.Errorf("%w: parse message JSON: %w", ErrInvalidMessage, err)
	}
	return &m, nil
}

// SignBytes signs an arbitrary payload as a literal-data OpenPGP
// message, armored. Used by internal/gateway for the handshake
// challenge nonce (spec.md §4.7), which is not a Message.
func SignBytes(body []byte, fileHint string, signer *openpgp.Entity) (string, error) {
	return signLiteral(body, fileHint, signer)
}

// VerifyBytes verifies armored against keyEntity and returns its literal
// payload. Used by internal/gateway for the handshake response.
func VerifyBytes(armored string, keyEntity *openpgp.Entity) ([]byte, error) {
	return readVerifiedLiteral(armored, keyEntity)
}

func signLiteral(body []byte, fileHint string, signer *openpgp.Entity) (string, error) {
	var armored bytes.Buffer
	aw, err := armor.Encode(&armored, "PGP MESSAGE", nil)
	if err != nil {
		return "", err
	}

	hints := &openpgp.FileHints{IsBinary: false, FileName: fileHint}
	plaintext, err := openpgp.Sign(aw, signer, hints, signConfig)
	if err != nil {
		return "", fmt.Errorf("open signing stream: %w", err)
	}
	if _, err := plaintext.Write(body); err != nil {
		return "", fmt.Errorf("write literal body: %w", err)
	}
	if err := plaintext.Close(); err != nil {
		return "", fmt.Errorf("close signing stream: %w", err)
	}
	if err := aw.Close(); err != nil {
		return "", fmt.Errorf("close armor writer: %w", err)
	}
	return armored.String(), nil
}

// readVerifiedLiteral reads a signed literal-data OpenPGP message and
// returns its payload, having verified it against keyEntity. Verification
// happens as a side effect of reading the body to EOF.
func readVerifiedLiteral(armored string, keyEntity *openpgp.Entity) ([]byte, error) {
	block, err := armor.Decode(armorReader(armored))
	if err != nil {
		return nil, fmt.Errorf("decode armor: %w", err)
	}

	keyring := openpgp.EntityList{keyEntity}
	md, err := openpgp.ReadMessage(block.Body, keyring, nil, signConfig)
	if err != nil {
		return nil, fmt.Errorf("read message: %w", err)
	}
	body, err := io.ReadAll(md.UnverifiedBody)
	if err != nil {
		return nil, fmt.Errorf("read literal body: %w", err)
	}
	if md.SignatureError != nil {
		return nil, fmt.Errorf("signature verification failed: %w", md.SignatureError)
	}
	if md.Signature == nil && md.SignatureV3 == nil {
		return nil, errors.New("message was not signed")
	}
	return body, nil
}

func armorReader(s string) io.Reader {
	return bytes.NewReader([]byte(s))
}
