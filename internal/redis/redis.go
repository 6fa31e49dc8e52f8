package redis

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

type Config struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	Network  string `json:"network"` // "tcp" or "unix" for socket path
}

type Client struct {
	client         *redis.Client
	lastPingTime   time.Time
	lastPingError  error
	pingCacheMutex sync.RWMutex
}

var ctx = context.Background()

func New(cfg Config) (*Client, error) {
	// Determine network type - use Unix socket for local Redis (microsecond latency)
	network := "tcp"
	if cfg.Network != "" {
		network = cfg.Network
	}

	// If addr looks like a socket path, automatically use unix
	if len(cfg.Addr) > 0 && cfg.Addr[0] == '/' {
		network = "unix"
	}

	opts := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		Network:  network,
		// Connection pool settings for high performance
		PoolSize:     100,
		MinIdleConns: 20, // Keep connections warm
		MaxRetries:   3,  // Retry failed commands
		PoolTimeout:  4 * time.Second,
		// Performance optimizations
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}

	rdb := redis.NewClient(opts)

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	if network == "unix" {
		log.Println("✓ Redis connected via Unix socket (microsecond latency)")
	} else {
		log.Println("✓ Redis connected via TCP")
	}

	return &Client{client: rdb}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) Ping() error {
	return c.client.Ping(ctx).Err()
}

// Basic operations

func (c *Client) Set(key string, value interface{}, expiration time.Duration) error {
	return c.client.Set(ctx, key, value, expiration).Err()
}

func (c *Client) Get(key string) (string, error) {
	return c.client.Get(ctx, key).Result()
}

func (c *Client) Del(key string) error {
	return c.client.Del(ctx, key).Err()
}

// ZSet operations (for the offender leaderboard)

func (c *Client) ZIncrBy(key string, increment float64, member string) (float64, error) {
	return c.client.ZIncrBy(ctx, key, increment, member).Result()
}

func (c *Client) ZRevRangeWithScores(key string, start, stop int64) ([]redis.Z, error) {
	return c.client.ZRevRangeWithScores(ctx, key, start, stop).Result()
}

// Hash operations (for the daily violation counters)

func (c *Client) HGetAll(key string) (map[string]string, error) {
	return c.client.HGetAll(ctx, key).Result()
}

// ExecutePipeline executes a pipeline with multiple commands
func (c *Client) ExecutePipeline(fn func(redis.Pipeliner) error) error {
	pipe := c.client.Pipeline()
	if err := fn(pipe); err != nil {
		return err
	}
	_, err := pipe.Exec(ctx)
	return err
}
