package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	idempotencyKeyPrefix = "checkout:idem:"
	idempotencyKeyTTL    = 24 * time.Hour
)

// IdempotencyGuard deduplicates checkout requests carrying an
// Idempotency-Key header. A key claims a slot with SETNX; a second
// request with the same key within the TTL is reported as a duplicate.
type IdempotencyGuard struct {
	client *redis.Client
}

func NewIdempotencyGuard(client *redis.Client) *IdempotencyGuard {
	return &IdempotencyGuard{client: client}
}

// Claim returns false when the key was already claimed.
func (g *IdempotencyGuard) Claim(ctx context.Context, key string) (bool, error) {
	return g.client.SetNX(ctx, idempotencyKeyPrefix+key, 1, idempotencyKeyTTL).Result()
}

// Release frees a claimed key so a failed checkout can be retried with
// the same key.
func (g *IdempotencyGuard) Release(ctx context.Context, key string) error {
	return g.client.Del(ctx, idempotencyKeyPrefix+key).Err()
}
