package search

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/thoughtflow/internal/ctxkeys"
	"github.com/BaSui01/thoughtflow/types"
)

const instrumentationName = "github.com/BaSui01/thoughtflow/search"

// Solver runs the breadth-first tree-of-thought search.
type Solver struct {
	cfg      Config
	gen      Generator
	logger   *zap.Logger
	observer Observer
	tracer   trace.Tracer

	rngMu sync.Mutex
	rng   *rand.Rand
}

// Option customizes a Solver.
type Option func(*Solver)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Solver) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithObserver sets the event observer.
func WithObserver(o Observer) Option {
	return func(s *Solver) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithRand sets the random source used by sample selection.
func WithRand(rng *rand.Rand) Option {
	return func(s *Solver) {
		if rng != nil {
			s.rng = rng
		}
	}
}

// WithTracer overrides the global otel tracer.
func WithTracer(t trace.Tracer) Option {
	return func(s *Solver) {
		if t != nil {
			s.tracer = t
		}
	}
}

// NewSolver 创建思维树搜索器
func NewSolver(cfg Config, gen Generator, opts ...Option) (*Solver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if gen == nil {
		return nil, types.NewError(types.ErrInvalidConfig, "generator is required")
	}
	s := &Solver{
		cfg:      cfg,
		gen:      gen,
		logger:   zap.NewNop(),
		observer: NopObserver{},
		tracer:   otel.Tracer(instrumentationName),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("component", "solver"))
	return s, nil
}

// Name implements Method.
func (s *Solver) Name() string { return "bfs" }

// Config returns the solver configuration.
func (s *Solver) Config() Config { return s.cfg }

// Solve searches for the best answer to item idx of task.
func (s *Solver) Solve(ctx context.Context, task Task, idx int) (*Result, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "search.solve", trace.WithAttributes(
		attribute.Int("search.item", idx),
		attribute.String("search.generate", string(s.cfg.GenerateMode)),
		attribute.String("search.evaluate", string(s.cfg.EvaluateMode)),
		attribute.String("search.select", string(s.cfg.SelectMode)),
	))
	defer span.End()

	logger := s.logger.With(ctxkeys.Fields(ctx)...)
	res, err := s.solve(ctx, task, idx)
	elapsed := time.Since(start)
	s.observer.SolveCompleted(res, err, elapsed)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Warn("solve failed", zap.Int("item", idx), zap.Error(err))
		return nil, err
	}

	best, found := res.BestCandidate()
	span.SetAttributes(attribute.Bool("search.found", found))
	logger.Info("solve finished",
		zap.Int("item", idx),
		zap.Int("steps", len(res.Steps)),
		zap.Bool("found", found),
		zap.Int("best_len", len(best)),
		zap.Duration("elapsed", elapsed))
	return res, nil
}

func (s *Solver) solve(ctx context.Context, task Task, idx int) (*Result, error) {
	if err := CheckCapabilities(s.cfg, task); err != nil {
		return nil, err
	}
	x, err := task.Input(idx)
	if err != nil {
		return nil, fmt.Errorf("load item %d: %w", idx, err)
	}

	frontier := []Candidate{""}
	res := &Result{Steps: make([]StepRecord, 0, task.Steps())}
	for step := 0; step < task.Steps(); step++ {
		rec, err := s.step(ctx, task, x, frontier, step)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", step, err)
		}
		res.Steps = append(res.Steps, rec)
		frontier = rec.Selected
	}

	if n := len(res.Steps); n > 0 {
		last := res.Steps[n-1]
		if i := argmax(last.Scores); i >= 0 {
			best := last.Candidates[i]
			res.Best = &best
		}
	}
	return res, nil
}

func (s *Solver) step(ctx context.Context, task Task, x string, frontier []Candidate, step int) (StepRecord, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "search.step", trace.WithAttributes(
		attribute.Int("search.step", step),
		attribute.Int("search.frontier", len(frontier)),
	))
	defer span.End()

	candidates, err := s.generate(ctx, task, x, frontier, step)
	if err != nil {
		span.RecordError(err)
		return StepRecord{}, err
	}
	scores, err := s.evaluate(ctx, task, x, candidates)
	if err != nil {
		span.RecordError(err)
		return StepRecord{}, err
	}
	ids, err := s.pick(scores)
	if err != nil {
		span.RecordError(err)
		return StepRecord{}, err
	}
	selected := make([]Candidate, len(ids))
	for i, id := range ids {
		selected[i] = candidates[id]
	}

	rec := StepRecord{
		Step:       step,
		Input:      x,
		Frontier:   append([]Candidate(nil), frontier...),
		Candidates: candidates,
		Scores:     scores,
		Selected:   selected,
	}
	span.SetAttributes(attribute.Int("search.candidates", len(candidates)))
	s.logger.Debug("step completed",
		zap.Int("step", step),
		zap.Int("frontier", len(frontier)),
		zap.Int("candidates", len(candidates)),
		zap.Float64s("scores", scores),
		zap.Int("selected", len(selected)))
	s.observer.StepCompleted(rec, time.Since(start))
	return rec, nil
}

func (s *Solver) pick(scores []float64) ([]int, error) {
	if s.cfg.SelectMode == SelectSample {
		s.rngMu.Lock()
		defer s.rngMu.Unlock()
		return selectSample(s.rng, scores, s.cfg.NSelect)
	}
	return selectGreedy(scores, s.cfg.NSelect), nil
}

// CheckCapabilities reports ErrUnsupportedMode when task lacks a capability cfg needs.
func CheckCapabilities(cfg Config, task Task) error {
	if task == nil {
		return types.NewError(types.ErrInvalidConfig, "task is required")
	}
	if cfg.GenerateMode == GeneratePropose {
		if _, ok := task.(ProposeTask); !ok {
			return types.Errorf(types.ErrUnsupportedMode, "task %T cannot propose", task)
		}
	}
	switch cfg.EvaluateMode {
	case EvaluateVote:
		if _, ok := task.(VoteTask); !ok {
			return types.Errorf(types.ErrUnsupportedMode, "task %T cannot vote", task)
		}
	default:
		if _, ok := task.(ValueTask); !ok {
			return types.Errorf(types.ErrUnsupportedMode, "task %T cannot value", task)
		}
	}
	return nil
}
