package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ainexllc/ainexsuite-bridge/internal/service"
)

const bootstrapGuardKey = "bridge:bootstrap:used"

// RedisBootstrapGuard enforces the single-use property of the admin
// bootstrap path: the first successful grant claims the key, every later
// attempt is refused.
type RedisBootstrapGuard struct {
	client redis.UniversalClient
	ttl    time.Duration
}

var _ service.BootstrapGuard = (*RedisBootstrapGuard)(nil)

// NewRedisBootstrapGuard constructs the guard. A zero ttl keeps the used
// marker indefinitely.
func NewRedisBootstrapGuard(client redis.UniversalClient, ttl time.Duration) *RedisBootstrapGuard {
	return &RedisBootstrapGuard{client: client, ttl: ttl}
}

// Claim atomically records the use. It returns false without writing when
// the bootstrap has already been consumed.
func (g *RedisBootstrapGuard) Claim(ctx context.Context, uid string) (bool, error) {
	ok, err := g.client.SetNX(ctx, bootstrapGuardKey, uid, g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim bootstrap: %w", err)
	}
	return ok, nil
}
