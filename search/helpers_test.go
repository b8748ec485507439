package search_test

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BaSui01/thoughtflow/search"
)

// baseTask implements only search.Task.
type baseTask struct {
	steps  int
	inputs []string
	cache  search.ValueCache
}

func (b *baseTask) Steps() int                    { return b.steps }
func (b *baseTask) Stop(int) string               { return "\n" }
func (b *baseTask) ValueCache() search.ValueCache { return b.cache }

func (b *baseTask) Input(idx int) (string, error) {
	if idx < 0 || idx >= len(b.inputs) {
		return "", fmt.Errorf("item %d out of range", idx)
	}
	return b.inputs[idx], nil
}

func (b *baseTask) Prompt(_ string, step int, y search.Candidate) (string, error) {
	return fmt.Sprintf("gen:%d:%s", step, y), nil
}

// fakeTask adds every optional capability with predictable prompts.
type fakeTask struct {
	baseTask
}

func newFakeTask(steps int) *fakeTask {
	return &fakeTask{baseTask{steps: steps, inputs: []string{"question"}, cache: search.NewMapCache()}}
}

func (f *fakeTask) ValuePrompt(_ string, y search.Candidate) string { return "value:" + y }

func (f *fakeTask) UnwrapValue(_ string, _ search.Candidate, outputs []string) []float64 {
	values := make([]float64, len(outputs))
	for i, out := range outputs {
		v, err := strconv.ParseFloat(strings.TrimSpace(out), 64)
		if err == nil {
			values[i] = v
		}
	}
	return values
}

func (f *fakeTask) VotePrompt(_ string, ys []search.Candidate) string {
	return "vote:" + strings.Join(ys, "|")
}

func (f *fakeTask) UnwrapVotes(outputs []string, n int) []float64 {
	tally := make([]float64, n)
	for _, out := range outputs {
		choice, err := strconv.Atoi(strings.TrimSpace(out))
		if err == nil && choice >= 1 && choice <= n {
			tally[choice-1]++
		}
	}
	return tally
}

func (f *fakeTask) ProposePrompt(_ string, y search.Candidate) string { return "propose:" + y }

// maxTask reduces value samples with max instead of mean.
type maxTask struct {
	*fakeTask
}

func (maxTask) ReduceValues(samples []float64) float64 {
	best := 0.0
	for _, v := range samples {
		if v > best {
			best = v
		}
	}
	return best
}

type recordingObserver struct {
	mu     sync.Mutex
	hits   int
	misses int
	steps  []int
	solved int
	failed int
}

func (r *recordingObserver) CacheHit() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hits++
}

func (r *recordingObserver) CacheMiss() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.misses++
}

func (r *recordingObserver) StepCompleted(rec search.StepRecord, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps = append(r.steps, rec.Step)
}

func (r *recordingObserver) SolveCompleted(_ *search.Result, err error, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.failed++
		return
	}
	r.solved++
}
