// Package redis owns the shared go-redis client used by the subscription
// key stores.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"keygate/internal/platform/config"
)

// Client wraps the go-redis client so callers get health checking and a
// single Close without reaching into the driver.
type Client struct {
	*redis.Client
}

// New connects using the configured URL and verifies the connection with a
// ping before returning. A nil client (no error) means Redis is not
// configured at all.
func New(cfg config.RedisConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns
	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = cfg.ReadTimeout
	opts.WriteTimeout = cfg.WriteTimeout

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &Client{Client: client}, nil
}

// Health reports whether the connection still answers pings.
func (c *Client) Health(ctx context.Context) error {
	return c.Ping(ctx).Err()
}

// Close releases the connection pool.
func (c *Client) Close() error {
	return c.Client.Close()
}
