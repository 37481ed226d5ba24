package redis

import (
	"context"
	"fmt"
	"time"

	notifRepo "beps/internal/domain/repositories/notification"

	goredis "github.com/redis/go-redis/v9"
)

// PushCache implements notifRepo.PushCache with one list per user.
type PushCache struct {
	client *goredis.Client
}

// NewPushCache creates a new push cache
func NewPushCache(client *goredis.Client) notifRepo.PushCache {
	return &PushCache{client: client}
}

// Append runs RPUSH, LTRIM, EXPIRE and LLEN as one MULTI block so the list
// never exceeds limit once the block commits.
func (c *PushCache) Append(ctx context.Context, userID string, payload []byte, limit int, ttl time.Duration) (int64, error) {
	key := PushCacheKey(userID)

	var length *goredis.IntCmd
	_, err := c.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.RPush(ctx, key, payload)
		pipe.LTrim(ctx, key, int64(-limit), -1)
		pipe.Expire(ctx, key, ttl)
		length = pipe.LLen(ctx, key)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("append push cache %s: %w", userID, err)
	}
	return length.Val(), nil
}

// Replace rewrites the whole list
func (c *PushCache) Replace(ctx context.Context, userID string, payloads [][]byte, limit int, ttl time.Duration) error {
	key := PushCacheKey(userID)

	values := make([]any, len(payloads))
	for i, p := range payloads {
		values[i] = p
	}

	_, err := c.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(values) > 0 {
			pipe.RPush(ctx, key, values...)
			pipe.LTrim(ctx, key, int64(-limit), -1)
			pipe.Expire(ctx, key, ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("replace push cache %s: %w", userID, err)
	}
	return nil
}

// Exists reports whether the user's list is cached
func (c *PushCache) Exists(ctx context.Context, userID string) (bool, error) {
	n, err := c.client.Exists(ctx, PushCacheKey(userID)).Result()
	if err != nil {
		return false, fmt.Errorf("exists push cache %s: %w", userID, err)
	}
	return n > 0, nil
}

// List returns the cached payloads, oldest first
func (c *PushCache) List(ctx context.Context, userID string) ([][]byte, error) {
	items, err := c.client.LRange(ctx, PushCacheKey(userID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list push cache %s: %w", userID, err)
	}
	out := make([][]byte, len(items))
	for i, s := range items {
		out[i] = []byte(s)
	}
	return out, nil
}

// Len returns the list length
func (c *PushCache) Len(ctx context.Context, userID string) (int64, error) {
	n, err := c.client.LLen(ctx, PushCacheKey(userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("len push cache %s: %w", userID, err)
	}
	return n, nil
}

// Touch extends the list TTL
func (c *PushCache) Touch(ctx context.Context, userID string, ttl time.Duration) error {
	if err := c.client.Expire(ctx, PushCacheKey(userID), ttl).Err(); err != nil {
		return fmt.Errorf("touch push cache %s: %w", userID, err)
	}
	return nil
}

// Publish sends an alert to the user's SSE streams
func (c *PushCache) Publish(ctx context.Context, userID string, payload []byte) error {
	return Publish(ctx, c.client, MessageAlertChannel(userID), payload)
}

// Subscribe listens on the user's alert channel
func (c *PushCache) Subscribe(ctx context.Context, userID string) (notifRepo.Subscription, error) {
	return Subscribe(ctx, c.client, MessageAlertChannel(userID))
}
