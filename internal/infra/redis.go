package infra

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisDialTimeout = 5 * time.Second
	redisIOTimeout   = 2 * time.Second
	redisPingTimeout = 3 * time.Second
)

// NewRedisClient builds the cache used for login throttling and idempotent
// replays. Timeouts are tightened unless the URL sets them, and the client
// honours request context deadlines.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, errors.New("redis url is required")
	}

	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if opt.DialTimeout <= 0 || opt.DialTimeout > redisDialTimeout {
		opt.DialTimeout = redisDialTimeout
	}
	if opt.ReadTimeout <= 0 || opt.ReadTimeout > redisIOTimeout {
		opt.ReadTimeout = redisIOTimeout
	}
	if opt.WriteTimeout <= 0 || opt.WriteTimeout > redisIOTimeout {
		opt.WriteTimeout = redisIOTimeout
	}
	opt.ContextTimeoutEnabled = true

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", opt.Addr, err)
	}

	return client, nil
}
