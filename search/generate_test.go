package search

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubTask answers every prompt kind with a fixed template.
type stubTask struct{}

func (stubTask) Steps() int                                 { return 1 }
func (stubTask) Stop(int) string                            { return "\n" }
func (stubTask) Input(int) (string, error)                  { return "x", nil }
func (stubTask) ValueCache() ValueCache                     { return nil }
func (stubTask) ProposePrompt(_ string, y Candidate) string { return "propose:" + y }
func (stubTask) Prompt(_ string, step int, y Candidate) (string, error) {
	return fmt.Sprintf("gen:%d:%s", step, y), nil
}

func repeatGenerator(out string) Generator {
	return GeneratorFunc(func(_ context.Context, req GenerateRequest) ([]string, error) {
		outs := make([]string, req.N)
		for i := range outs {
			outs[i] = out
		}
		return outs, nil
	})
}

func newTestSolver(t *testing.T, cfg Config, gen Generator) *Solver {
	t.Helper()
	s, err := NewSolver(cfg, gen)
	require.NoError(t, err)
	return s
}

func TestProperty_SampleGenerationSize(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("sample mode yields F×N candidates prefixed by their parent", prop.ForAll(
		func(f, n int) bool {
			cfg := DefaultConfig()
			cfg.NGenerate = n
			s, err := NewSolver(cfg, repeatGenerator("c"))
			if err != nil {
				return false
			}
			frontier := make([]Candidate, f)
			for i := range frontier {
				frontier[i] = fmt.Sprintf("p%d;", i)
			}
			out, err := s.generate(context.Background(), stubTask{}, "x", frontier, 1)
			if err != nil || len(out) != f*n {
				return false
			}
			for i, c := range out {
				if c != frontier[i/n]+"c" {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 6),
		gen.IntRange(1, 6),
	))

	properties.TestingRun(t)
}

func TestGenerate_SamplePassesStepAndStop(t *testing.T) {
	t.Parallel()
	var got []GenerateRequest
	gen := GeneratorFunc(func(_ context.Context, req GenerateRequest) ([]string, error) {
		got = append(got, req)
		return []string{"a", "b"}, nil
	})
	cfg := DefaultConfig()
	cfg.NGenerate = 2
	cfg.Model = "m"
	cfg.Temperature = 0.3
	s := newTestSolver(t, cfg, gen)

	out, err := s.generate(context.Background(), stubTask{}, "x", []Candidate{"y1"}, 2)
	require.NoError(t, err)
	assert.Equal(t, []Candidate{"y1a", "y1b"}, out)
	require.Len(t, got, 1)
	assert.Equal(t, GenerateRequest{Prompt: "gen:2:y1", N: 2, Stop: "\n", Model: "m", Temperature: 0.3}, got[0])
}

func TestGenerate_ProposeSplitsLines(t *testing.T) {
	t.Parallel()
	var got []GenerateRequest
	gen := GeneratorFunc(func(_ context.Context, req GenerateRequest) ([]string, error) {
		got = append(got, req)
		return []string{"first\n\nsecond\n"}, nil
	})
	cfg := DefaultConfig()
	cfg.GenerateMode = GeneratePropose
	s := newTestSolver(t, cfg, gen)

	out, err := s.generate(context.Background(), stubTask{}, "x", []Candidate{"", "p;"}, 0)
	require.NoError(t, err)
	assert.Equal(t, []Candidate{"first\n", "second\n", "p;first\n", "p;second\n"}, out)
	require.Len(t, got, 2)
	for _, req := range got {
		assert.Equal(t, 1, req.N)
		assert.Empty(t, req.Stop)
		assert.True(t, strings.HasPrefix(req.Prompt, "propose:"))
	}
}

func TestGenerate_ProposeEmptyOutput(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	cfg.GenerateMode = GeneratePropose
	s := newTestSolver(t, cfg, GeneratorFunc(func(context.Context, GenerateRequest) ([]string, error) {
		return nil, nil
	}))
	out, err := s.generate(context.Background(), stubTask{}, "x", []Candidate{""}, 0)
	require.NoError(t, err)
	assert.Empty(t, out)
}
