// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/gatekeeper/internal/platform/constants"
)

// incrementScript opens the window on the first hit and returns {count, pttl}.
// A key that lost its TTL is given one again.
var incrementScript = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
local ttl = redis.call('PTTL', KEYS[1])
if count == 1 or ttl < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

// RedisStore shares window records across replicas.
//
// Window expiry is driven by the Redis key TTL, so windowStart is derived
// from the remaining TTL rather than stored.
type RedisStore struct {
	client redis.Scripter
	prefix string
}

// NewRedisStore wraps a go-redis client.
func NewRedisStore(client redis.Scripter) *RedisStore {
	return &RedisStore{client: client, prefix: constants.RedisPrefixRateLimit}
}

// Increment implements [Store].
func (store *RedisStore) Increment(ctx context.Context, key string, now time.Time, window time.Duration) (int, time.Time, error) {
	values, err := incrementScript.Run(ctx, store.client, []string{store.prefix + key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis_increment_failed: %w", err)
	}
	if len(values) != 2 {
		return 0, time.Time{}, fmt.Errorf("redis_increment_failed: unexpected reply length %d", len(values))
	}

	remaining := time.Duration(values[1]) * time.Millisecond
	windowStart := now.Add(remaining).Add(-window)
	return int(values[0]), windowStart, nil
}

// Preload registers the increment script with the server so the first
// request runs EVALSHA instead of falling back to EVAL.
func (store *RedisStore) Preload(ctx context.Context) error {
	if err := incrementScript.Load(ctx, store.client).Err(); err != nil {
		return fmt.Errorf("redis_script_load_failed: %w", err)
	}
	return nil
}
