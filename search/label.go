package search

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/BaSui01/thoughtflow/types"
)

// LabelTask is implemented by tasks whose items can be labelled in a single
// prompt, without a search.
type LabelTask interface {
	Task
	// ConsistencyPrompt asks for a private step-by-step decision ending in one "Final: N" line.
	ConsistencyPrompt(idx int) (string, error)
	// ParseConsistency returns the label in one sample, or -1.
	ParseConsistency(output string) int
	// DirectPrompt asks for a rough guess with no reasoning.
	DirectPrompt(idx int) (string, error)
	// ParseDirect returns the label on the last line of output, or -1.
	ParseDirect(output string) int
}

func asLabelTask(task Task, method string) (LabelTask, error) {
	if task == nil {
		return nil, types.NewError(types.ErrInvalidConfig, "task is required")
	}
	lt, ok := task.(LabelTask)
	if !ok {
		return nil, types.Errorf(types.ErrUnsupportedMode, "method %s needs a task with single-prompt labelling", method)
	}
	return lt, nil
}

// FinalLine formats a label the way the step-0 answers do.
func FinalLine(label int) Candidate {
	return fmt.Sprintf("Final: %d", label)
}

// ============================================================
// Self-consistency
// ============================================================

// SelfConsistencySolver samples the consistency prompt N times and takes a majority vote.
type SelfConsistencySolver struct {
	cfg    Config
	gen    Generator
	logger *zap.Logger
}

// NewSelfConsistencySolver creates a SelfConsistencySolver.
func NewSelfConsistencySolver(cfg Config, gen Generator, logger *zap.Logger) *SelfConsistencySolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SelfConsistencySolver{cfg: cfg, gen: gen, logger: logger.With(zap.String("method", "cot"))}
}

// Name implements Method.
func (s *SelfConsistencySolver) Name() string { return "cot" }

// Solve reports "Final: 1" when ones outnumber zeros and "Final: 0" otherwise,
// including when no sample could be parsed.
func (s *SelfConsistencySolver) Solve(ctx context.Context, task Task, idx int) (*Result, error) {
	lt, err := asLabelTask(task, s.Name())
	if err != nil {
		return nil, err
	}
	prompt, err := lt.ConsistencyPrompt(idx)
	if err != nil {
		return nil, fmt.Errorf("build prompt: %w", err)
	}
	samples, err := s.gen.Generate(ctx, GenerateRequest{
		Prompt:      prompt,
		N:           s.cfg.NConsistency,
		Model:       s.cfg.Model,
		Temperature: s.cfg.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("cot: %w", err)
	}

	parsed := make([]int, len(samples))
	for i, out := range samples {
		parsed[i] = lt.ParseConsistency(out)
	}
	label := MajorityLabel(parsed)
	if label < 0 {
		s.logger.Warn("no parseable sample, defaulting to 0", zap.Int("item", idx), zap.Int("samples", len(samples)))
		label = 0
	}

	best := FinalLine(label)
	s.logger.Debug("cot vote", zap.Int("item", idx), zap.Ints("parsed", parsed), zap.Int("label", label))
	return &Result{Best: &best, Samples: samples, Parsed: parsed}, nil
}

// MajorityLabel votes over 0/1 labels, ignoring anything else. Ties go to 0.
// It returns -1 when there are no valid votes.
func MajorityLabel(labels []int) int {
	ones, zeros := 0, 0
	for _, l := range labels {
		switch l {
		case 1:
			ones++
		case 0:
			zeros++
		}
	}
	if ones+zeros == 0 {
		return -1
	}
	if ones > zeros {
		return 1
	}
	return 0
}

// ============================================================
// Direct prompting
// ============================================================

// DirectSolver asks the weak direct prompt once.
type DirectSolver struct {
	cfg    Config
	gen    Generator
	logger *zap.Logger
}

// NewDirectSolver creates a DirectSolver.
func NewDirectSolver(cfg Config, gen Generator, logger *zap.Logger) *DirectSolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DirectSolver{cfg: cfg, gen: gen, logger: logger.With(zap.String("method", "pure_llm"))}
}

// Name implements Method.
func (d *DirectSolver) Name() string { return "pure_llm" }

// Solve reports "Final: N" for a parsed label and "Final: unknown" otherwise.
func (d *DirectSolver) Solve(ctx context.Context, task Task, idx int) (*Result, error) {
	lt, err := asLabelTask(task, d.Name())
	if err != nil {
		return nil, err
	}
	prompt, err := lt.DirectPrompt(idx)
	if err != nil {
		return nil, fmt.Errorf("build prompt: %w", err)
	}
	samples, err := d.gen.Generate(ctx, GenerateRequest{
		Prompt:      prompt,
		N:           1,
		Model:       d.cfg.Model,
		Temperature: d.cfg.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("pure_llm: %w", err)
	}
	if len(samples) == 0 {
		return &Result{}, nil
	}

	label := lt.ParseDirect(samples[0])
	best := FinalLine(label)
	if label < 0 {
		best = "Final: unknown"
	}
	d.logger.Debug("pure_llm answer", zap.Int("item", idx), zap.Int("label", label))
	return &Result{Best: &best, Samples: samples[:1], Parsed: []int{label}}, nil
}
