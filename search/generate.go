package search

import (
	"context"
	"fmt"
	"strings"
)

// generate expands every parent in frontier into new candidates.
func (s *Solver) generate(ctx context.Context, task Task, x string, frontier []Candidate, step int) ([]Candidate, error) {
	candidates := make([]Candidate, 0, len(frontier)*s.cfg.NGenerate)
	for _, y := range frontier {
		var (
			children []Candidate
			err      error
		)
		switch s.cfg.GenerateMode {
		case GeneratePropose:
			children, err = s.propose(ctx, task.(ProposeTask), x, y)
		default:
			children, err = s.sample(ctx, task, x, y, step)
		}
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, children...)
	}
	return candidates, nil
}

// sample draws N continuations of y and appends each to it.
func (s *Solver) sample(ctx context.Context, task Task, x string, y Candidate, step int) ([]Candidate, error) {
	prompt, err := task.Prompt(x, step, y)
	if err != nil {
		return nil, fmt.Errorf("build prompt: %w", err)
	}
	outputs, err := s.gen.Generate(ctx, GenerateRequest{
		Prompt:      prompt,
		N:           s.cfg.NGenerate,
		Stop:        task.Stop(step),
		Model:       s.cfg.Model,
		Temperature: s.cfg.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("sample: %w", err)
	}
	children := make([]Candidate, 0, len(outputs))
	for _, out := range outputs {
		children = append(children, y+out)
	}
	return children, nil
}

// propose asks for one multi-line proposal and turns each non-empty line into a child.
func (s *Solver) propose(ctx context.Context, task ProposeTask, x string, y Candidate) ([]Candidate, error) {
	outputs, err := s.gen.Generate(ctx, GenerateRequest{
		Prompt:      task.ProposePrompt(x, y),
		N:           1,
		Model:       s.cfg.Model,
		Temperature: s.cfg.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("propose: %w", err)
	}
	if len(outputs) == 0 {
		return nil, nil
	}
	lines := strings.Split(outputs[0], "\n")
	children := make([]Candidate, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		children = append(children, y+line+"\n")
	}
	return children, nil
}
