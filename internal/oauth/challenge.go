package oauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrChallengeNotFound is returned when a challenge has expired or was
// never issued.
var ErrChallengeNotFound = errors.New("oauth challenge not found")

const challengePrefix = "oauth:challenge"

func challengeKey(challenge string) string {
	return challengePrefix + ":" + challenge
}

// ChallengeStore is the OAuth login challenge → pending-client map
// spec.md §5 describes: "OAuth session maps (challenge → client) have a
// 10-minute TTL; expired entries are swept on insert." The external
// OAuth (GitHub) flow itself is out of scope (spec.md §1); this store is
// the identity-subsystem contract that flow must satisfy: stash an
// opaque value under a random challenge token while the user completes
// login in a browser, then redeem it once.
type ChallengeStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewChallengeStore creates a ChallengeStore backed by client, with
// entries expiring after ttl (spec.md's 600s default).
func NewChallengeStore(client *redis.Client, ttl time.Duration) *ChallengeStore {
	return &ChallengeStore{client: client, ttl: ttl}
}

// Put records clientState under challenge, overwriting any existing
// entry and resetting its TTL. Using SET with EX lets Redis itself
// perform the sweep spec.md asks for: an expired entry simply isn't
// there to overwrite or collide with on the next insert.
func (s *ChallengeStore) Put(ctx context.Context, challenge, clientState string) error {
	if err := s.client.Set(ctx, challengeKey(challenge), clientState, s.ttl).Err(); err != nil {
		return fmt.Errorf("oauth challenge put: %w", err)
	}
	return nil
}

// Redeem retrieves and deletes the client state stashed under
// challenge (a challenge is single-use: once claimed by the OAuth
// callback, it cannot be replayed). Returns ErrChallengeNotFound if the
// challenge is unknown or has expired.
func (s *ChallengeStore) Redeem(ctx context.Context, challenge string) (string, error) {
	key := challengeKey(challenge)

	clientState, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrChallengeNotFound
	}
	if err != nil {
		return "", fmt.Errorf("oauth challenge get: %w", err)
	}

	if err := s.client.Del(ctx, key).Err(); err != nil {
		return "", fmt.Errorf("oauth challenge delete: %w", err)
	}
	return clientState, nil
}
