package search

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/BaSui01/thoughtflow/types"
)

// Method solves one dataset item.
type Method interface {
	Name() string
	Solve(ctx context.Context, task Task, idx int) (*Result, error)
}

// MethodRegistry 求解方法注册表
type MethodRegistry struct {
	methods map[string]Method
	mu      sync.RWMutex
}

// NewMethodRegistry 创建求解方法注册表
func NewMethodRegistry() *MethodRegistry {
	return &MethodRegistry{
		methods: make(map[string]Method),
	}
}

// Register 注册求解方法
func (r *MethodRegistry) Register(m Method) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := m.Name()
	if _, exists := r.methods[name]; exists {
		return fmt.Errorf("method %q already registered", name)
	}
	r.methods[name] = m
	return nil
}

// Get 获取求解方法
func (r *MethodRegistry) Get(name string) (Method, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.methods[name]
	return m, ok
}

// List 列出所有已注册的方法名称
func (r *MethodRegistry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.methods))
	for name := range r.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Unregister 注销求解方法
func (r *MethodRegistry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.methods[name]; !exists {
		return false
	}
	delete(r.methods, name)
	return true
}

// MustGet 获取求解方法，不存在则 panic
func (r *MethodRegistry) MustGet(name string) Method {
	m, ok := r.Get(name)
	if !ok {
		panic(fmt.Sprintf("method %q not registered", name))
	}
	return m
}

// NewDefaultRegistry registers the bfs, naive, cot and pure_llm methods sharing one generator.
func NewDefaultRegistry(cfg Config, gen Generator, opts ...Option) (*MethodRegistry, error) {
	solver, err := NewSolver(cfg, gen, opts...)
	if err != nil {
		return nil, err
	}
	r := NewMethodRegistry()
	if err := r.Register(solver); err != nil {
		return nil, err
	}
	for _, m := range []Method{
		NewNaiveSolver(cfg, gen, solver.logger),
		NewSelfConsistencySolver(cfg, gen, solver.logger),
		NewDirectSolver(cfg, gen, solver.logger),
	} {
		if err := r.Register(m); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// ============================================================
// Naive sampling
// ============================================================

// NaiveSolver samples N answers from the step-0 prompt without searching.
type NaiveSolver struct {
	cfg    Config
	gen    Generator
	logger *zap.Logger
}

// NewNaiveSolver creates a NaiveSolver.
func NewNaiveSolver(cfg Config, gen Generator, logger *zap.Logger) *NaiveSolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NaiveSolver{cfg: cfg, gen: gen, logger: logger.With(zap.String("method", "naive"))}
}

func (n *NaiveSolver) Name() string { return "naive" }

// Solve returns the raw samples; the last one is reported as Best.
func (n *NaiveSolver) Solve(ctx context.Context, task Task, idx int) (*Result, error) {
	if task == nil {
		return nil, types.NewError(types.ErrInvalidConfig, "task is required")
	}
	x, err := task.Input(idx)
	if err != nil {
		return nil, fmt.Errorf("load item %d: %w", idx, err)
	}
	prompt, err := task.Prompt(x, 0, "")
	if err != nil {
		return nil, fmt.Errorf("build prompt: %w", err)
	}
	samples, err := n.gen.Generate(ctx, GenerateRequest{
		Prompt:      prompt,
		N:           n.cfg.NGenerate,
		Model:       n.cfg.Model,
		Temperature: n.cfg.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("naive: %w", err)
	}

	res := &Result{Samples: samples}
	if len(samples) > 0 {
		best := samples[len(samples)-1]
		res.Best = &best
	}
	n.logger.Debug("naive samples", zap.Int("item", idx), zap.Int("samples", len(samples)))
	return res, nil
}
