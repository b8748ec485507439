package tokenizer

import (
	"strings"
	"sync"
)

// Counter 统一的 token 计数接口
type Counter interface {
	// Count 返回文本的 token 数
	Count(text string) (int, error)
	// Name 返回计数器名称
	Name() string
}

var (
	countersMu sync.RWMutex
	counters   = make(map[string]Counter)
	defaults   = make(map[string]Counter)
)

// Register 为模型名（或模型名前缀）注册计数器
func Register(model string, c Counter) {
	countersMu.Lock()
	defer countersMu.Unlock()
	counters[model] = c
}

// ForModel 返回模型的计数器：精确匹配 → 最长前缀匹配 → tiktoken 与估算器组合。
// 默认组合按模型缓存，编码数据每个进程只加载一次。
func ForModel(model string) Counter {
	if c := registered(model); c != nil {
		return c
	}

	countersMu.Lock()
	defer countersMu.Unlock()
	if c, ok := defaults[model]; ok {
		return c
	}
	c := WithFallback(NewTiktoken(model), NewEstimator())
	defaults[model] = c
	return c
}

func registered(model string) Counter {
	countersMu.RLock()
	defer countersMu.RUnlock()

	if c, ok := counters[model]; ok {
		return c
	}
	var (
		best    Counter
		bestLen int
	)
	for prefix, c := range counters {
		if strings.HasPrefix(model, prefix) && len(prefix) > bestLen {
			best, bestLen = c, len(prefix)
		}
	}
	return best
}

type fallbackCounter struct {
	primary  Counter
	fallback Counter
}

// WithFallback 用 primary 计数，失败时改用 fallback
func WithFallback(primary, fallback Counter) Counter {
	return &fallbackCounter{primary: primary, fallback: fallback}
}

func (f *fallbackCounter) Count(text string) (int, error) {
	n, err := f.primary.Count(text)
	if err == nil {
		return n, nil
	}
	return f.fallback.Count(text)
}

func (f *fallbackCounter) Name() string {
	return f.primary.Name() + "|" + f.fallback.Name()
}
