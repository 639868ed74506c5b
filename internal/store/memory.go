package store

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryKV is an in-process KeyValueStore backed by go-cache. A ttl of zero
// keeps entries until the process exits.
type MemoryKV struct {
	cache *cache.Cache
}

func NewMemoryKV(ttl time.Duration) *MemoryKV {
	exp := cache.NoExpiration
	cleanup := time.Duration(0)
	if ttl > 0 {
		exp = ttl
		cleanup = ttl / 2
	}
	return &MemoryKV{cache: cache.New(exp, cleanup)}
}

func (s *MemoryKV) Get(ctx context.Context, key string) (string, error) {
	v, ok := s.cache.Get(key)
	if !ok {
		return "", ErrNotFound
	}
	str, ok := v.(string)
	if !ok {
		return "", ErrNotFound
	}
	return str, nil
}

func (s *MemoryKV) Set(ctx context.Context, key, value string) error {
	s.cache.Set(key, value, cache.DefaultExpiration)
	return nil
}

func (s *MemoryKV) Len() int {
	return s.cache.ItemCount()
}

func (s *MemoryKV) Ping(ctx context.Context) error {
	return nil
}
