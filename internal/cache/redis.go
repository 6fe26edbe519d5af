package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// ErrMiss is returned by Get when the key does not exist.
var ErrMiss = errors.New("cache miss")

type Client struct {
	rdb *redis.Client
}

func NewClient(addr string) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		_ = rdb.Close()
		return nil, err
	}

	return &Client{rdb: rdb}, nil
}

// IsRateLimited counts one request for key inside a fixed window that starts
// with the first request, and reports whether the count exceeded max. Redis
// errors fail open.
func (c *Client) IsRateLimited(ctx context.Context, key string, max int, window time.Duration) bool {
	redisKey := fmt.Sprintf("ratelimit:%s", key)

	count, err := c.rdb.Incr(ctx, redisKey).Result()
	if err != nil {
		return false
	}

	if count == 1 {
		if err := c.rdb.Expire(ctx, redisKey, window).Err(); err != nil {
			// A counter without a TTL would limit key forever.
			_ = c.rdb.Del(ctx, redisKey).Err()
			return false
		}
	}

	return count > int64(max)
}

func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	return data, err
}

func (c *Client) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, data, ttl).Err()
}

// Revoke blocks a session token id until its natural expiry.
func (c *Client) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return c.rdb.Set(ctx, "revoked:"+tokenID, 1, ttl).Err()
}

func (c *Client) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := c.rdb.Exists(ctx, "revoked:"+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (c *Client) Close() error {
	return c.rdb.Close()
}
