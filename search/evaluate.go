package search

import (
	"context"
	"fmt"

	"github.com/BaSui01/thoughtflow/types"
)

// evaluate scores candidates, returning one score per candidate in order.
func (s *Solver) evaluate(ctx context.Context, task Task, x string, ys []Candidate) ([]float64, error) {
	if s.cfg.EvaluateMode == EvaluateVote {
		return s.votes(ctx, task.(VoteTask), x, ys)
	}
	return s.values(ctx, task.(ValueTask), x, ys)
}

func (s *Solver) values(ctx context.Context, task ValueTask, x string, ys []Candidate) ([]float64, error) {
	scores := make([]float64, len(ys))
	seen := make(map[string]float64, len(ys))
	for i, y := range ys {
		prompt := task.ValuePrompt(x, y)
		if first, dup := seen[prompt]; dup {
			if s.cfg.DuplicatePolicy == DuplicatePolicyReuse {
				scores[i] = first
			}
			continue
		}
		v, err := s.value(ctx, task, x, y, prompt)
		if err != nil {
			return nil, err
		}
		seen[prompt] = v
		scores[i] = v
	}
	return scores, nil
}

// value scores a single candidate through the task's cache.
func (s *Solver) value(ctx context.Context, task ValueTask, x string, y Candidate, prompt string) (float64, error) {
	cache := task.ValueCache()
	if cache != nil {
		v, ok, err := cache.Get(ctx, prompt)
		if err != nil {
			return 0, fmt.Errorf("value cache get: %w", err)
		}
		if ok {
			s.observer.CacheHit()
			return v, nil
		}
		s.observer.CacheMiss()
	}

	outputs, err := s.gen.Generate(ctx, GenerateRequest{
		Prompt:      prompt,
		N:           s.cfg.NEvaluate,
		Model:       s.cfg.Model,
		Temperature: s.cfg.Temperature,
	})
	if err != nil {
		return 0, fmt.Errorf("value: %w", err)
	}
	v := reduceValues(task, task.UnwrapValue(x, y, outputs))

	if cache != nil {
		if err := cache.Set(ctx, prompt, v); err != nil {
			return 0, fmt.Errorf("value cache set: %w", err)
		}
	}
	return v, nil
}

func (s *Solver) votes(ctx context.Context, task VoteTask, x string, ys []Candidate) ([]float64, error) {
	if len(ys) == 0 {
		return []float64{}, nil
	}
	outputs, err := s.gen.Generate(ctx, GenerateRequest{
		Prompt:      task.VotePrompt(x, ys),
		N:           s.cfg.NEvaluate,
		Model:       s.cfg.Model,
		Temperature: s.cfg.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("vote: %w", err)
	}
	tally := task.UnwrapVotes(outputs, len(ys))
	if len(tally) != len(ys) {
		return nil, types.Errorf(types.ErrInternalError, "vote tally has %d entries for %d candidates", len(tally), len(ys))
	}
	return tally, nil
}

func reduceValues(task ValueTask, samples []float64) float64 {
	if r, ok := task.(ValueReducer); ok {
		return r.ReduceValues(samples)
	}
	return Mean(samples)
}

// Mean is the default value reducer; an empty slice reduces to 0.
func Mean(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, v := range samples {
		sum += v
	}
	return sum / float64(len(samples))
}
