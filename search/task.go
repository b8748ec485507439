package search

import "context"

// GenerateRequest is one call to the generator.
type GenerateRequest struct {
	Prompt string
	// N is the number of independent completions requested.
	N int
	// Stop is an optional stop marker; empty means none.
	Stop        string
	Model       string
	Temperature float64
}

// Generator produces raw text completions. It must return N completions or an error.
// Retries, rate limits and timeouts are the generator's business.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) ([]string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, req GenerateRequest) ([]string, error)

// Generate implements Generator.
func (f GeneratorFunc) Generate(ctx context.Context, req GenerateRequest) ([]string, error) {
	return f(ctx, req)
}

// Task drives the search for a dataset of input items.
type Task interface {
	// Steps is the fixed search depth.
	Steps() int
	// Stop returns the stop marker used when sampling at step.
	Stop(step int) string
	// Input returns the original input text of item idx.
	Input(idx int) (string, error)
	// Prompt builds the generation prompt for step given the accumulated text y.
	Prompt(x string, step int, y Candidate) (string, error)
	// ValueCache returns the cache owned by this task; nil disables caching.
	ValueCache() ValueCache
}

// ValueTask scores candidates independently.
type ValueTask interface {
	Task
	ValuePrompt(x string, y Candidate) string
	// UnwrapValue turns raw evaluator outputs into per-sample scores.
	// Unparseable samples must be mapped to 0.
	UnwrapValue(x string, y Candidate, outputs []string) []float64
}

// ValueReducer is optionally implemented by a ValueTask to replace the mean reducer.
type ValueReducer interface {
	ReduceValues(samples []float64) float64
}

// VoteTask scores candidates by comparative votes.
type VoteTask interface {
	Task
	VotePrompt(x string, ys []Candidate) string
	// UnwrapVotes tallies outputs into a vector of length n.
	UnwrapVotes(outputs []string, n int) []float64
}

// ProposeTask produces several candidates from one multi-line proposal.
type ProposeTask interface {
	Task
	ProposePrompt(x string, y Candidate) string
}
