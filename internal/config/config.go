// Package config loads hubd's environment-driven Config, grounded on
// the teacher's internal/config/config.go parser idiom: accumulate
// typed parse errors via errors.Join instead of failing on the first
// bad value, then run a single validate() pass.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds hubd's configuration, populated from environment
// variables (SPEC_FULL.md §3.3). It is intentionally much smaller than
// the teacher's Config: there is no Postgres/SMTP/media/MFA surface in
// this server.
type Config struct {
	ServerName        string
	ServerDescription string

	DataDir     string // root of hubs/, accounts/, keys/
	ListenAddr  string
	Dev         bool

	HandshakeTimeout   time.Duration // HANDSHAKE_TIMEOUT
	OAuthChallengeTTL  time.Duration
	TypingTTL          time.Duration

	MaxNameSize        int // MAX_NAME_SIZE
	MaxDescriptionSize int // MAX_DESCRIPTION_SIZE
	MessageMaxSize     int // MESSAGE_MAX_SIZE

	RedisAddr string // backs internal/oauth.ChallengeStore

	KeySecretPath string // keys/secret_key.asc
	KeyPublicPath string // keys/public_key.asc

	JWTSigningKey string // session-token signing key, post-handshake
	JWTAccessTTL  time.Duration
}

// Load reads configuration from environment variables, applying the
// defaults listed in SPEC_FULL.md §3.3. It returns an error if any
// variable is set but cannot be parsed, or a required value is missing.
func Load() (*Config, error) {
	p := &parser{}

	cfg := &Config{
		ServerName:        envStr("SERVER_NAME", "My Community"),
		ServerDescription: envStr("SERVER_DESCRIPTION", ""),

		DataDir:    envStr("DATA_DIR", "./data"),
		ListenAddr: envStr("LISTEN_ADDR", ":8080"),
		Dev:        p.bool("DEV", false),

		HandshakeTimeout:  p.duration("HANDSHAKE_TIMEOUT", 10*time.Second),
		OAuthChallengeTTL: p.duration("OAUTH_CHALLENGE_TTL", 600*time.Second),
		TypingTTL:         p.duration("TYPING_TTL", 10*time.Second),

		MaxNameSize:        p.int("MAX_NAME_SIZE", 32),
		MaxDescriptionSize: p.int("MAX_DESCRIPTION_SIZE", 512),
		MessageMaxSize:     p.int("MESSAGE_MAX_SIZE", 4096),

		RedisAddr: envStr("REDIS_ADDR", "localhost:6379"),

		KeySecretPath: envStr("KEY_SECRET_PATH", "./data/keys/secret_key.asc"),
		KeyPublicPath: envStr("KEY_PUBLIC_PATH", "./data/keys/public_key.asc"),

		JWTSigningKey: envStr("JWT_SIGNING_KEY", ""),
		JWTAccessTTL:  p.duration("JWT_ACCESS_TTL", 15*time.Minute),
	}

	if parseErr := errors.Join(p.errs...); parseErr != nil {
		return nil, parseErr
	}

	if cfg.Dev {
		cfg.ListenAddr = ":8080"
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// IsDevelopment reports whether hubd is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Dev
}

func (c *Config) validate() error {
	var errs []error

	if c.JWTSigningKey == "" {
		errs = append(errs, fmt.Errorf("JWT_SIGNING_KEY is required"))
	} else if len(c.JWTSigningKey) < 32 {
		errs = append(errs, fmt.Errorf("JWT_SIGNING_KEY must be at least 32 characters"))
	}

	if c.DataDir == "" {
		errs = append(errs, fmt.Errorf("DATA_DIR must not be empty"))
	}

	if c.HandshakeTimeout < time.Second {
		errs = append(errs, fmt.Errorf("HANDSHAKE_TIMEOUT must be at least 1s"))
	}
	if c.OAuthChallengeTTL < time.Second {
		errs = append(errs, fmt.Errorf("OAUTH_CHALLENGE_TTL must be at least 1s"))
	}
	if c.TypingTTL < time.Second {
		errs = append(errs, fmt.Errorf("TYPING_TTL must be at least 1s"))
	}

	if c.MaxNameSize < 1 {
		errs = append(errs, fmt.Errorf("MAX_NAME_SIZE must be at least 1"))
	}
	if c.MaxDescriptionSize < 1 {
		errs = append(errs, fmt.Errorf("MAX_DESCRIPTION_SIZE must be at least 1"))
	}
	if c.MessageMaxSize < 1 {
		errs = append(errs, fmt.Errorf("MESSAGE_MAX_SIZE must be at least 1"))
	}

	if c.JWTAccessTTL < time.Second {
		errs = append(errs, fmt.Errorf("JWT_ACCESS_TTL must be at least 1s"))
	}

	return errors.Join(errs...)
}

// parser collects parse errors so Load can report all invalid values at
// once, carried over verbatim from the teacher's idiom.
type parser struct {
	errs []error
}

func (p *parser) int(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("invalid value for %s: %q (expected integer)", key, v))
		return fallback
	}
	return n
}

func (p *parser) bool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("invalid value for %s: %q (expected boolean)", key, v))
		return fallback
	}
	return b
}

func (p *parser) duration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("invalid value for %s: %q (expected duration like \"24h\" or \"30m\")", key, v))
		return fallback
	}
	return d
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
