package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/BaSui01/thoughtflow/internal/tlsutil"
)

// DefaultKeyPrefix 默认键前缀
const DefaultKeyPrefix = "thoughtflow:value:"

// =============================================================================
// 💾 Redis 评估缓存
// =============================================================================

// RedisValueCache 基于 Redis 的评估分数缓存
type RedisValueCache struct {
	redis  *redis.Client
	config Config
	logger *zap.Logger
	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewRedisValueCache 创建 Redis 缓存并验证连接
func NewRedisValueCache(config Config, logger *zap.Logger) (*RedisValueCache, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = DefaultKeyPrefix
	}

	client := redis.NewClient(&redis.Options{
		Addr:       config.Addr,
		Password:   config.Password,
		DB:         config.DB,
		MaxRetries: config.MaxRetries,
		PoolSize:   config.PoolSize,
		TLSConfig:  tlsutil.RedisTLSConfig(config.TLSEnabled),
	})

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	c := &RedisValueCache{
		redis:  client,
		config: config,
		logger: logger.With(zap.String("component", "value_cache")),
		done:   make(chan struct{}),
	}

	// 启动健康检查
	if config.HealthCheckInterval > 0 {
		go c.healthCheckLoop()
	}

	c.logger.Info("redis value cache initialized",
		zap.String("addr", config.Addr),
		zap.Duration("ttl", config.TTL),
	)

	return c, nil
}

// Key 返回 prompt 对应的 Redis 键
func (c *RedisValueCache) Key(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return c.config.KeyPrefix + hex.EncodeToString(sum[:])
}

// =============================================================================
// 🎯 核心方法
// =============================================================================

// Get implements search.ValueCache.
func (c *RedisValueCache) Get(ctx context.Context, prompt string) (float64, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return 0, false, ErrClosed
	}

	val, err := c.redis.Get(ctx, c.Key(prompt)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		c.logger.Error("cache get failed", zap.Error(err))
		return 0, false, fmt.Errorf("cache get failed: %w", err)
	}

	v, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt cache value %q: %w", val, err)
	}
	return v, true, nil
}

// Set implements search.ValueCache.
func (c *RedisValueCache) Set(ctx context.Context, prompt string, value float64) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return ErrClosed
	}

	err := c.redis.Set(ctx, c.Key(prompt), strconv.FormatFloat(value, 'g', -1, 64), c.config.TTL).Err()
	if err != nil {
		c.logger.Error("cache set failed", zap.Error(err))
		return fmt.Errorf("cache set failed: %w", err)
	}
	return nil
}

// Ping 检查 Redis 连接
func (c *RedisValueCache) Ping(ctx context.Context) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return ErrClosed
	}
	return c.redis.Ping(ctx).Err()
}

// Close 关闭缓存
func (c *RedisValueCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	c.closed = true
	close(c.done)
	c.logger.Info("closing redis value cache")
	return c.redis.Close()
}

// =============================================================================
// 🏥 健康检查
// =============================================================================

func (c *RedisValueCache) healthCheckLoop() {
	ticker := time.NewTicker(c.config.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := c.Ping(ctx); err != nil && !errors.Is(err, ErrClosed) {
			c.logger.Error("cache health check failed", zap.Error(err))
		} else {
			c.logger.Debug("cache health check passed")
		}
		cancel()
	}
}
