package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisDeduper records issued alarm guards in Redis so concurrent instances
// do not raise the same notification twice.
type RedisDeduper struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisDeduper creates a deduper using the provided Redis client and TTL.
func NewRedisDeduper(client *redis.Client, ttl time.Duration) *RedisDeduper {
	return &RedisDeduper{client: client, ttl: ttl}
}

func (r *RedisDeduper) key(recipientID, key string) string {
	return fmt.Sprintf("alarm:%s:%s", recipientID, key)
}

// Add records the guard if it does not already exist. It returns true when
// the guard was newly taken.
func (r *RedisDeduper) Add(ctx context.Context, recipientID, key string) (bool, error) {
	return r.client.SetNX(ctx, r.key(recipientID, key), 1, r.ttl).Result()
}

// Remove releases a previously taken guard so a later evaluation may raise
// the alarm again.
func (r *RedisDeduper) Remove(ctx context.Context, recipientID, key string) error {
	return r.client.Del(ctx, r.key(recipientID, key)).Err()
}

// LocalDeduper is the single-instance variant. Every guard is granted; the
// unread-notification check in the evaluator already prevents duplicates
// within one process.
type LocalDeduper struct{}

func (LocalDeduper) Add(ctx context.Context, recipientID, key string) (bool, error) {
	return true, nil
}

func (LocalDeduper) Remove(ctx context.Context, recipientID, key string) error {
	return nil
}
