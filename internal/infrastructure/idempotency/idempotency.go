// Package idempotency provides a short-lived Redis-backed cache for
// deduplicating exact-duplicate client submissions — not a correctness
// mechanism (the core's conditional Store updates already guarantee
// exactly-once effects), just a fast-path so a retried purchase request
// sent within the same window gets back the prior reference instead of
// minting a new payment transaction. Grounded on the teacher's
// request-id idempotency check in PayService.Pay, reimplemented as a
// cache rather than a gate since §5 rules out any endpoint holding a
// lock for correctness.
package idempotency

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func New(client *redis.Client) *Cache {
	return &Cache{client: client, ttl: 2 * time.Minute}
}

// Lookup returns the value previously stored under idempotencyKey, if
// any, within the TTL window.
func (c *Cache) Lookup(ctx context.Context, idempotencyKey string) (string, bool, error) {
	if idempotencyKey == "" {
		return "", false, nil
	}
	value, err := c.client.Get(ctx, "tokencore:idempotency:"+idempotencyKey).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Store records value under idempotencyKey for the TTL window. Best
// effort: a lost write only means a retried request mints a fresh
// transaction instead of replaying, which the core already handles
// safely.
func (c *Cache) Store(ctx context.Context, idempotencyKey, value string) error {
	if idempotencyKey == "" {
		return nil
	}
	return c.client.Set(ctx, "tokencore:idempotency:"+idempotencyKey, value, c.ttl).Err()
}
