package signing

import (
	"testing"

	"github.com/uncord-chat/uncord-server/internal/id"
	"github.com/uncord-chat/uncord-server/internal/identity"
	"github.com/uncord-chat/uncord-server/internal/message"
)

func TestDoubleSignRoundTrip(t *testing.T) {
	clientKP, err := identity.GenerateKeyPair("client")
	if err != nil {
		t.Fatalf("GenerateKeyPair(client) error = %v", err)
	}
	serverKP, err := identity.GenerateKeyPair("server")
	if err != nil {
		t.Fatalf("GenerateKeyPair(server) error = %v", err)
	}

	m := message.New(id.New(), id.New(), id.New(), "hi")

	inner, err := Sign(m, clientKP.Secret)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	outer, err := SignFinal(inner, serverKP.Secret)
	if err != nil {
		t.Fatalf("SignFinal() error = %v", err)
	}

	got, err := ExtractVerified(outer, serverKP.Public, clientKP.Public)
	if err != nil {
		t.Fatalf("ExtractVerified() error = %v", err)
	}

	if got.ID != m.ID || got.Content != m.Content || got.Sender != m.Sender {
		t.Fatalf("round-trip mismatch: got %+v, want %+v", got, m)
	}
}

func TestExtractVerifiedFailsWithWrongClientKey(t *testing.T) {
	clientKP, _ := identity.GenerateKeyPair("client")
	impostorKP, _ := identity.GenerateKeyPair("impostor")
	serverKP, _ := identity.GenerateKeyPair("server")

	m := message.New(id.New(), id.New(), id.New(), "hi")

	inner, err := Sign(m, clientKP.Secret)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	outer, err := SignFinal(inner, serverKP.Secret)
	if err != nil {
		t.Fatalf("SignFinal() error = %v", err)
	}

	if _, err := ExtractVerified(outer, serverKP.Public, impostorKP.Public); err == nil {
		t.Fatal("ExtractVerified() with the wrong client key should fail")
	}
}

func TestExtractVerifiedFailsWithWrongServerKey(t *testing.T) {
	clientKP, _ := identity.GenerateKeyPair("client")
	serverKP, _ := identity.GenerateKeyPair("server")
	impostorKP, _ := identity.GenerateKeyPair("impostor")

	m := message.New(id.New(), id.New(), id.New(), "hi")

	inner, err := Sign(m, clientKP.Secret)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	outer, err := SignFinal(inner, serverKP.Secret)
	if err != nil {
		t.Fatalf("SignFinal() error = %v", err)
	}

	if _, err := ExtractVerified(outer, impostorKP.Public, clientKP.Public); err == nil {
		t.Fatal("ExtractVerified() with the wrong server key should fail")
	}
}
