// Package session owns the current-session state model: the persisted
// token store and the single-writer manager that moves a session between
// loading, unauthenticated and authenticated.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNoSession is returned by Lookup when no entry exists for a token.
var ErrNoSession = errors.New("no session for token")

// TokenStore is the persisted key-value store for session tokens. Each entry
// maps an opaque token to an identity key (the user's email). The session
// manager is the only writer of these entries.
type TokenStore interface {
	Save(ctx context.Context, token, identityKey string) error
	Lookup(ctx context.Context, token string) (string, error)
	Delete(ctx context.Context, token string) error
}

const tokenKeyPrefix = "session:token:"

// RedisStore is the Redis-backed TokenStore.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a TokenStore over Redis. Entries expire after ttl.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// Save persists token -> identityKey.
func (s *RedisStore) Save(ctx context.Context, token, identityKey string) error {
	return s.client.Set(ctx, tokenKeyPrefix+token, identityKey, s.ttl).Err()
}

// Lookup resolves a token to its identity key.
func (s *RedisStore) Lookup(ctx context.Context, token string) (string, error) {
	v, err := s.client.Get(ctx, tokenKeyPrefix+token).Result()
	if err == redis.Nil {
		return "", ErrNoSession
	}
	if err != nil {
		return "", err
	}
	return v, nil
}

// Delete removes a token entry. Deleting an absent token is not an error.
func (s *RedisStore) Delete(ctx context.Context, token string) error {
	return s.client.Del(ctx, tokenKeyPrefix+token).Err()
}

// MemoryStore is an in-process TokenStore for tests and local development.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]string
}

// NewMemoryStore creates an empty in-memory TokenStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]string)}
}

// Save persists token -> identityKey.
func (s *MemoryStore) Save(_ context.Context, token, identityKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[token] = identityKey
	return nil
}

// Lookup resolves a token to its identity key.
func (s *MemoryStore) Lookup(_ context.Context, token string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.entries[token]
	if !ok {
		return "", ErrNoSession
	}
	return v, nil
}

// Delete removes a token entry.
func (s *MemoryStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, token)
	return nil
}

// Len reports the number of stored entries.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
