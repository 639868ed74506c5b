package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisKV struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisKV parses redisURL and verifies the connection. Keys are written
// under prefix; a ttl of zero means no expiry.
func NewRedisKV(ctx context.Context, redisURL, prefix string, ttl time.Duration) (*RedisKV, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	opts.PoolSize = 10
	opts.MinIdleConns = 2
	opts.MaxRetries = 3
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisKVFromClient(client, prefix, ttl), nil
}

func NewRedisKVFromClient(client *redis.Client, prefix string, ttl time.Duration) *RedisKV {
	return &RedisKV{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisKV) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, s.prefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", err
	}
	return v, nil
}

func (s *RedisKV) Set(ctx context.Context, key, value string) error {
	return s.client.Set(ctx, s.prefix+key, value, s.ttl).Err()
}

func (s *RedisKV) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisKV) Close() error {
	return s.client.Close()
}
