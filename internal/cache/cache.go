// Package cache provides internal cache management.
// This package is internal and should not be imported by external projects.
package cache

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/thoughtflow/search"
)

// Backend 缓存后端类型
type Backend string

const (
	BackendMemory Backend = "memory"
	BackendRedis  Backend = "redis"
)

// ErrClosed 缓存已关闭
var ErrClosed = errors.New("value cache is closed")

// Store 可关闭的评估分数缓存
type Store interface {
	search.ValueCache
	Close() error
}

// Config 缓存配置
type Config struct {
	// 后端：memory 或 redis
	Backend Backend `yaml:"backend" json:"backend" env:"BACKEND" validate:"omitempty,oneof=memory redis"`

	// Redis 地址
	Addr string `yaml:"addr" json:"addr" env:"ADDR"`

	// 密码
	Password string `yaml:"password" json:"password" env:"PASSWORD"`

	// 数据库编号
	DB int `yaml:"db" json:"db" env:"DB"`

	// 键前缀
	KeyPrefix string `yaml:"key_prefix" json:"key_prefix" env:"KEY_PREFIX"`

	// 过期时间，0 表示永不过期
	TTL time.Duration `yaml:"ttl" json:"ttl" env:"TTL"`

	// 最大重试次数
	MaxRetries int `yaml:"max_retries" json:"max_retries"`

	// 连接池大小
	PoolSize int `yaml:"pool_size" json:"pool_size"`

	// 是否启用 TLS
	TLSEnabled bool `yaml:"tls_enabled" json:"tls_enabled" env:"TLS_ENABLED"`

	// 健康检查间隔，0 表示关闭
	HealthCheckInterval time.Duration `yaml:"health_check_interval" json:"health_check_interval"`
}

// DefaultConfig 返回默认缓存配置
func DefaultConfig() Config {
	return Config{
		Backend:             BackendMemory,
		Addr:                "localhost:6379",
		KeyPrefix:           DefaultKeyPrefix,
		MaxRetries:          3,
		PoolSize:            10,
		HealthCheckInterval: 30 * time.Second,
	}
}

// New 按配置创建缓存后端
func New(cfg Config, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Backend {
	case "", BackendMemory:
		return NewSharedValueCache(), nil
	case BackendRedis:
		return NewRedisValueCache(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
