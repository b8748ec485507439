package search

import (
	"github.com/BaSui01/thoughtflow/types"
)

// Candidate is one partial or complete line of reasoning. It has no identity beyond its text.
type Candidate = string

// GenerateMode selects how new candidates are produced from the frontier.
type GenerateMode string

const (
	GenerateSample  GenerateMode = "sample"
	GeneratePropose GenerateMode = "propose"
)

// EvaluateMode selects how candidates are scored.
type EvaluateMode string

const (
	EvaluateValue EvaluateMode = "value"
	EvaluateVote  EvaluateMode = "vote"
)

// SelectMode selects how survivors are drawn from scored candidates.
type SelectMode string

const (
	SelectGreedy SelectMode = "greedy"
	SelectSample SelectMode = "sample"
)

// DuplicatePolicy decides the score of a repeated value prompt inside one evaluation batch.
type DuplicatePolicy string

const (
	// DuplicatePolicyZero scores every repeat occurrence 0.
	DuplicatePolicyZero DuplicatePolicy = "zero"
	// DuplicatePolicyReuse gives a repeat occurrence the score of its first occurrence.
	DuplicatePolicyReuse DuplicatePolicy = "reuse"
)

// Config configures one search run.
type Config struct {
	Model           string          `json:"model" yaml:"model" env:"MODEL"`
	Temperature     float64         `json:"temperature" yaml:"temperature" env:"TEMPERATURE"`
	GenerateMode    GenerateMode    `json:"method_generate" yaml:"method_generate" env:"METHOD_GENERATE"`
	EvaluateMode    EvaluateMode    `json:"method_evaluate" yaml:"method_evaluate" env:"METHOD_EVALUATE"`
	SelectMode      SelectMode      `json:"method_select" yaml:"method_select" env:"METHOD_SELECT"`
	NGenerate       int             `json:"n_generate_sample" yaml:"n_generate_sample" env:"N_GENERATE_SAMPLE"`
	NEvaluate       int             `json:"n_evaluate_sample" yaml:"n_evaluate_sample" env:"N_EVALUATE_SAMPLE"`
	NSelect         int             `json:"n_select_sample" yaml:"n_select_sample" env:"N_SELECT_SAMPLE"`
	NConsistency    int             `json:"n_generate_cot" yaml:"n_generate_cot" env:"N_GENERATE_COT"`
	DuplicatePolicy DuplicatePolicy `json:"duplicate_policy" yaml:"duplicate_policy" env:"DUPLICATE_POLICY"`
}

// DefaultConfig returns the defaults of the batch runner.
func DefaultConfig() Config {
	return Config{
		Model:           "DeepSeek-V2-16B",
		Temperature:     0.7,
		GenerateMode:    GenerateSample,
		EvaluateMode:    EvaluateValue,
		SelectMode:      SelectGreedy,
		NGenerate:       3,
		NEvaluate:       1,
		NSelect:         3,
		NConsistency:    5,
		DuplicatePolicy: DuplicatePolicyZero,
	}
}

// Validate checks mode selectors and sample counts.
func (c Config) Validate() error {
	switch c.GenerateMode {
	case GenerateSample, GeneratePropose:
	default:
		return types.Errorf(types.ErrInvalidConfig, "unknown generate mode %q", c.GenerateMode)
	}
	switch c.EvaluateMode {
	case EvaluateValue, EvaluateVote:
	default:
		return types.Errorf(types.ErrInvalidConfig, "unknown evaluate mode %q", c.EvaluateMode)
	}
	switch c.SelectMode {
	case SelectGreedy, SelectSample:
	default:
		return types.Errorf(types.ErrInvalidConfig, "unknown select mode %q", c.SelectMode)
	}
	switch c.DuplicatePolicy {
	case DuplicatePolicyZero, DuplicatePolicyReuse:
	default:
		return types.Errorf(types.ErrInvalidConfig, "unknown duplicate policy %q", c.DuplicatePolicy)
	}
	if c.NGenerate < 1 {
		return types.Errorf(types.ErrInvalidConfig, "n_generate_sample must be positive, got %d", c.NGenerate)
	}
	if c.NEvaluate < 1 {
		return types.Errorf(types.ErrInvalidConfig, "n_evaluate_sample must be positive, got %d", c.NEvaluate)
	}
	if c.NSelect < 1 {
		return types.Errorf(types.ErrInvalidConfig, "n_select_sample must be positive, got %d", c.NSelect)
	}
	if c.NConsistency < 1 {
		return types.Errorf(types.ErrInvalidConfig, "n_generate_cot must be positive, got %d", c.NConsistency)
	}
	return nil
}

// StepRecord is an immutable snapshot of one generate → evaluate → select step.
type StepRecord struct {
	Step       int         `json:"step"`
	Input      string      `json:"x"`
	Frontier   []Candidate `json:"ys"`
	Candidates []Candidate `json:"new_ys"`
	Scores     []float64   `json:"values"`
	Selected   []Candidate `json:"select_new_ys"`
}

// Result is the outcome of solving one input item.
type Result struct {
	// Best is nil when the final step produced no candidates.
	Best  *Candidate   `json:"best"`
	Steps []StepRecord `json:"steps"`
	// Samples holds the raw answers of methods that do not search.
	Samples []Candidate `json:"samples,omitempty"`
	// Parsed holds the label read from each sample by cot and pure_llm; -1 when unparsed.
	Parsed []int `json:"parsed,omitempty"`
}

// BestCandidate returns the best candidate and whether one exists.
func (r *Result) BestCandidate() (Candidate, bool) {
	if r == nil || r.Best == nil {
		return "", false
	}
	return *r.Best, true
}
