package schemacache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// KV is the key-value store behind the cache.
type KV interface {
	// Get returns the value and true, or false when the key is absent.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// RedisOptions configures a Redis connection.
type RedisOptions struct {
	Addr        string
	Password    string
	DB          int
	DialTimeout time.Duration
}

// RedisKV implements KV on a single Redis node.
type RedisKV struct {
	client *redis.Client
}

// NewRedisKV connects to Redis and verifies the connection.
func NewRedisKV(ctx context.Context, opts RedisOptions) (*RedisKV, error) {
	if opts.Addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = 5 * time.Second
	}

	client := redis.NewClient(&redis.Options{
		Addr:        opts.Addr,
		Password:    opts.Password,
		DB:          opts.DB,
		DialTimeout: opts.DialTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, opts.DialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisKV{client: client}, nil
}

// Get retrieves a value by key.
func (r *RedisKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get key %s: %w", key, err)
	}
	return val, true, nil
}

// Set stores a value with a TTL. A zero TTL never expires.
func (r *RedisKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	return nil
}

// Del removes keys. Missing keys are ignored.
func (r *RedisKV) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete keys: %w", err)
	}
	return nil
}

// Close closes the Redis client.
func (r *RedisKV) Close() error {
	return r.client.Close()
}
