// Package session manages anonymous shopper session tokens in Redis. A token
// is minted lazily before the first cart write; read-only traffic with no
// token never creates one.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "session:"

// Store issues and validates anonymous session tokens with a sliding TTL.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore creates a session store. ttl bounds how long an idle guest cart
// stays reachable.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

// Mint creates a new session token.
func (s *Store) Mint(ctx context.Context) (string, error) {
	token := uuid.New().String()
	if err := s.client.Set(ctx, keyPrefix+token, 1, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("store session token: %w", err)
	}
	return token, nil
}

// Validate reports whether the token names a live session and slides its TTL.
func (s *Store) Validate(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	ok, err := s.client.Expire(ctx, keyPrefix+token, s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("validate session token: %w", err)
	}
	return ok, nil
}

// Revoke deletes the session, typically after its guest cart has been merged
// into an account.
func (s *Store) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.client.Del(ctx, keyPrefix+token).Err(); err != nil {
		return fmt.Errorf("revoke session token: %w", err)
	}
	return nil
}
