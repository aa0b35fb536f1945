package config

import (
	"strings"
	"testing"
	"time"
)

// TestLoadDefaults is not t.Parallel because it mutates process-wide environment variables.
func TestLoadDefaults(t *testing.T) {
	keys := []string{
		"SERVER_NAME", "SERVER_DESCRIPTION",
		"DATA_DIR", "LISTEN_ADDR", "DEV",
		"HANDSHAKE_TIMEOUT", "OAUTH_CHALLENGE_TTL", "TYPING_TTL",
		"MAX_NAME_SIZE", "MAX_DESCRIPTION_SIZE", "MESSAGE_MAX_SIZE",
		"REDIS_ADDR", "KEY_SECRET_PATH", "KEY_PUBLIC_PATH",
		"JWT_SIGNING_KEY", "JWT_ACCESS_TTL",
	}
	for _, k := range keys {
		t.Setenv(k, "")
	}

	t.Setenv("JWT_SIGNING_KEY", "test-secret-for-defaults-minimum-32")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.ServerName != "My Community" {
		t.Errorf("ServerName = %q, want %q", cfg.ServerName, "My Community")
	}
	if cfg.DataDir != "./data" {
		t.Errorf("DataDir = %q, want %q", cfg.DataDir, "./data")
	}
	if cfg.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %q, want %q", cfg.ListenAddr, ":8080")
	}
	if cfg.Dev {
		t.Error("Dev = true, want false")
	}
	if cfg.HandshakeTimeout != 10*time.Second {
		t.Errorf("HandshakeTimeout = %v, want 10s", cfg.HandshakeTimeout)
	}
	if cfg.OAuthChallengeTTL != 600*time.Second {
		t.Errorf("OAuthChallengeTTL = %v, want 600s", cfg.OAuthChallengeTTL)
	}
	if cfg.TypingTTL != 10*time.Second {
		t.Errorf("TypingTTL = %v, want 10s", cfg.TypingTTL)
	}
	if cfg.MaxNameSize != 32 {
		t.Errorf("MaxNameSize = %d, want 32", cfg.MaxNameSize)
	}
	if cfg.MaxDescriptionSize != 512 {
		t.Errorf("MaxDescriptionSize = %d, want 512", cfg.MaxDescriptionSize)
	}
	if cfg.MessageMaxSize != 4096 {
		t.Errorf("MessageMaxSize = %d, want 4096", cfg.MessageMaxSize)
	}
	if cfg.JWTAccessTTL != 15*time.Minute {
		t.Errorf("JWTAccessTTL = %v, want 15m", cfg.JWTAccessTTL)
	}
}

func TestLoadValidationRequiresJWTSigningKey(t *testing.T) {
	t.Setenv("JWT_SIGNING_KEY", "")

	_, err := Load()
	if err == nil {
		t.Fatal("Load() returned nil error, want validation error for missing JWT_SIGNING_KEY")
	}
	if !strings.Contains(err.Error(), "JWT_SIGNING_KEY") {
		t.Errorf("error %q does not mention JWT_SIGNING_KEY", err.Error())
	}
}

func TestLoadValidationJWTSigningKeyTooShort(t *testing.T) {
	t.Setenv("JWT_SIGNING_KEY", "short")

	_, err := Load()
	if err == nil {
		t.Fatal("Load() returned nil error, want validation error for short JWT_SIGNING_KEY")
	}
	if !strings.Contains(err.Error(), "JWT_SIGNING_KEY must be at least 32 characters") {
		t.Errorf("error %q does not mention minimum length", err.Error())
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SERVER_NAME", "Test Server")
	t.Setenv("DATA_DIR", "/var/lib/hubd")
	t.Setenv("DEV", "true")
	t.Setenv("MAX_NAME_SIZE", "64")
	t.Setenv("MESSAGE_MAX_SIZE", "8192")
	t.Setenv("JWT_SIGNING_KEY", "test-secret-key-that-is-32-chars!")
	t.Setenv("JWT_ACCESS_TTL", "30m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.ServerName != "Test Server" {
		t.Errorf("ServerName = %q, want %q", cfg.ServerName, "Test Server")
	}
	if cfg.DataDir != "/var/lib/hubd" {
		t.Errorf("DataDir = %q, want %q", cfg.DataDir, "/var/lib/hubd")
	}
	if !cfg.Dev {
		t.Error("Dev = false, want true")
	}
	if cfg.MaxNameSize != 64 {
		t.Errorf("MaxNameSize = %d, want 64", cfg.MaxNameSize)
	}
	if cfg.MessageMaxSize != 8192 {
		t.Errorf("MessageMaxSize = %d, want 8192", cfg.MessageMaxSize)
	}
	if cfg.JWTSigningKey != "test-secret-key-that-is-32-chars!" {
		t.Errorf("JWTSigningKey = %q, want %q", cfg.JWTSigningKey, "test-secret-key-that-is-32-chars!")
	}
	if cfg.JWTAccessTTL != 30*time.Minute {
		t.Errorf("JWTAccessTTL = %v, want 30m", cfg.JWTAccessTTL)
	}
}

func TestLoadInvalidInt(t *testing.T) {
	t.Setenv("JWT_SIGNING_KEY", "test-secret-for-defaults-minimum-32")
	t.Setenv("MAX_NAME_SIZE", "not-a-number")

	_, err := Load()
	if err == nil {
		t.Fatal("Load() returned nil error, want parse error")
	}
	if !strings.Contains(err.Error(), "MAX_NAME_SIZE") {
		t.Errorf("error %q does not mention MAX_NAME_SIZE", err.Error())
	}
	if !strings.Contains(err.Error(), "not-a-number") {
		t.Errorf("error %q does not include the invalid value", err.Error())
	}
}

func TestLoadInvalidBool(t *testing.T) {
	t.Setenv("JWT_SIGNING_KEY", "test-secret-for-defaults-minimum-32")
	t.Setenv("DEV", "maybe")

	_, err := Load()
	if err == nil {
		t.Fatal("Load() returned nil error, want parse error")
	}
	if !strings.Contains(err.Error(), "DEV") {
		t.Errorf("error %q does not mention DEV", err.Error())
	}
}

func TestLoadInvalidDuration(t *testing.T) {
	t.Setenv("JWT_SIGNING_KEY", "test-secret-for-defaults-minimum-32")
	t.Setenv("TYPING_TTL", "not-a-duration")

	_, err := Load()
	if err == nil {
		t.Fatal("Load() returned nil error, want parse error")
	}
	if !strings.Contains(err.Error(), "TYPING_TTL") {
		t.Errorf("error %q does not mention TYPING_TTL", err.Error())
	}
}

func TestLoadMultipleErrors(t *testing.T) {
	t.Setenv("JWT_SIGNING_KEY", "test-secret-for-defaults-minimum-32")
	t.Setenv("MAX_NAME_SIZE", "abc")
	t.Setenv("MAX_DESCRIPTION_SIZE", "xyz")
	t.Setenv("DEV", "nope")

	_, err := Load()
	if err == nil {
		t.Fatal("Load() returned nil error, want multiple parse errors")
	}

	errStr := err.Error()
	if !strings.Contains(errStr, "MAX_NAME_SIZE") {
		t.Errorf("error missing MAX_NAME_SIZE, got: %s", errStr)
	}
	if !strings.Contains(errStr, "MAX_DESCRIPTION_SIZE") {
		t.Errorf("error missing MAX_DESCRIPTION_SIZE, got: %s", errStr)
	}
	if !strings.Contains(errStr, "DEV") {
		t.Errorf("error missing DEV, got: %s", errStr)
	}
}

func TestIsDevelopment(t *testing.T) {
	tests := []struct {
		dev  bool
		want bool
	}{
		{true, true},
		{false, false},
	}
	for _, tt := range tests {
		cfg := &Config{Dev: tt.dev}
		if got := cfg.IsDevelopment(); got != tt.want {
			t.Errorf("IsDevelopment() with Dev=%v = %v, want %v", tt.dev, got, tt.want)
		}
	}
}
