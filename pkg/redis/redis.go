package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config Redis configuration
type Config struct {
	Host     string
	Port     string
	Password string
	DB       int
	PoolSize int
}

// DefaultConfig returns default config
func DefaultConfig() *Config {
	return &Config{
		Host:     "localhost",
		Port:     "6379",
		Password: "",
		DB:       0,
		PoolSize: 10,
	}
}

// Client wraps the go-redis client
type Client struct {
	client *redis.Client
}

// New connects to Redis and verifies the connection
func New(cfg *Config) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Client{client: rdb}, nil
}

// GetClient returns the underlying go-redis client
func (c *Client) GetClient() *redis.Client {
	return c.client
}

// Del deletes keys
func (c *Client) Del(ctx context.Context, keys ...string) error {
	return c.client.Del(ctx, keys...).Err()
}

// Close closes the connection pool
func (c *Client) Close() error {
	return c.client.Close()
}
