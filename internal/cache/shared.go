package cache

import (
	"context"

	gocache "github.com/patrickmn/go-cache"
)

// SharedValueCache 进程内共享缓存，可被多个并发搜索同时使用。
type SharedValueCache struct {
	c *gocache.Cache
}

// NewSharedValueCache 创建永不过期的共享缓存
func NewSharedValueCache() *SharedValueCache {
	return &SharedValueCache{c: gocache.New(gocache.NoExpiration, 0)}
}

// Get implements search.ValueCache.
func (s *SharedValueCache) Get(_ context.Context, prompt string) (float64, bool, error) {
	v, ok := s.c.Get(prompt)
	if !ok {
		return 0, false, nil
	}
	return v.(float64), true, nil
}

// Set implements search.ValueCache.
func (s *SharedValueCache) Set(_ context.Context, prompt string, value float64) error {
	s.c.Set(prompt, value, gocache.NoExpiration)
	return nil
}

// Len 返回缓存条目数
func (s *SharedValueCache) Len() int { return s.c.ItemCount() }

// Close implements Store.
func (s *SharedValueCache) Close() error { return nil }
