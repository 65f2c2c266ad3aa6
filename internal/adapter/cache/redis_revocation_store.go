package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ainexllc/ainexsuite-bridge/internal/identity"
)

const revokedKeyPrefix = "bridge:revoked:"

// RedisRevocationStore implements identity.RevocationStore backed by Redis.
// Keys expire with the credential they invalidate, so the set never needs
// sweeping.
type RedisRevocationStore struct {
	client redis.UniversalClient
}

var _ identity.RevocationStore = (*RedisRevocationStore)(nil)

// NewRedisRevocationStore constructs a Redis-backed revocation store.
func NewRedisRevocationStore(client redis.UniversalClient) *RedisRevocationStore {
	return &RedisRevocationStore{client: client}
}

// Revoke marks the session id revoked for ttl.
func (s *RedisRevocationStore) Revoke(ctx context.Context, sessionID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, revokedKeyPrefix+sessionID, "1", ttl).Err(); err != nil {
		return fmt.Errorf("persist revocation: %w", err)
	}
	return nil
}

// IsRevoked reports whether the session id has been revoked.
func (s *RedisRevocationStore) IsRevoked(ctx context.Context, sessionID string) (bool, error) {
	n, err := s.client.Exists(ctx, revokedKeyPrefix+sessionID).Result()
	if err != nil {
		return false, fmt.Errorf("load revocation: %w", err)
	}
	return n > 0, nil
}
