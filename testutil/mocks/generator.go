package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/BaSui01/thoughtflow/search"
)

// ScriptedGenerator 是 search.Generator 的脚本化模拟实现。
//
// 响应按优先级查找：自定义函数 → 错误注入 → 按 prompt 精确匹配 → 顺序队列。
type ScriptedGenerator struct {
	mu sync.Mutex

	byPrompt map[string][]string
	queue    [][]string
	err      error
	fn       func(ctx context.Context, req search.GenerateRequest) ([]string, error)

	calls []search.GenerateRequest
}

// NewScriptedGenerator 创建新的 ScriptedGenerator
func NewScriptedGenerator() *ScriptedGenerator {
	return &ScriptedGenerator{byPrompt: make(map[string][]string)}
}

// OnPrompt 为精确 prompt 设置固定输出（每次调用都返回）
func (g *ScriptedGenerator) OnPrompt(prompt string, outputs ...string) *ScriptedGenerator {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.byPrompt[prompt] = outputs
	return g
}

// Then 追加一次顺序响应，供未匹配 prompt 的调用依次消费
func (g *ScriptedGenerator) Then(outputs ...string) *ScriptedGenerator {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.queue = append(g.queue, outputs)
	return g
}

// WithError 设置所有调用返回的错误
func (g *ScriptedGenerator) WithError(err error) *ScriptedGenerator {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.err = err
	return g
}

// WithFunc 设置自定义生成函数
func (g *ScriptedGenerator) WithFunc(fn func(ctx context.Context, req search.GenerateRequest) ([]string, error)) *ScriptedGenerator {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fn = fn
	return g
}

// Generate 实现 search.Generator
func (g *ScriptedGenerator) Generate(ctx context.Context, req search.GenerateRequest) ([]string, error) {
	g.mu.Lock()
	g.calls = append(g.calls, req)
	fn, err := g.fn, g.err
	g.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if outputs, ok := g.byPrompt[req.Prompt]; ok {
		return append([]string(nil), outputs...), nil
	}
	if len(g.queue) > 0 {
		outputs := g.queue[0]
		g.queue = g.queue[1:]
		return append([]string(nil), outputs...), nil
	}
	return nil, fmt.Errorf("no scripted response for prompt %q", req.Prompt)
}

// Calls 返回所有调用记录的副本
func (g *ScriptedGenerator) Calls() []search.GenerateRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]search.GenerateRequest(nil), g.calls...)
}

// CallCount 返回调用次数
func (g *ScriptedGenerator) CallCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

// CallsFor 返回指定 prompt 的调用次数
func (g *ScriptedGenerator) CallsFor(prompt string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, c := range g.calls {
		if c.Prompt == prompt {
			n++
		}
	}
	return n
}

// Reset 清空调用记录
func (g *ScriptedGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = nil
}
