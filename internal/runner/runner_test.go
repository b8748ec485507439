package runner_test

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/BaSui01/thoughtflow/checkpoint"
	"github.com/BaSui01/thoughtflow/internal/ctxkeys"
	"github.com/BaSui01/thoughtflow/internal/runner"
	"github.com/BaSui01/thoughtflow/search"
	"github.com/BaSui01/thoughtflow/tasks"
	"github.com/BaSui01/thoughtflow/testutil/mocks"
)

const dataPath = "../../tasks/thyroid/testdata/sample.csv"

func newTask(t *testing.T) tasks.Task {
	t.Helper()
	task, err := tasks.New("thyroid_lab", tasks.Options{DataPath: dataPath, Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)
	return task
}

func naiveMethod(gen search.Generator) search.Method {
	cfg := search.DefaultConfig()
	cfg.NGenerate = 1
	return search.NewNaiveSolver(cfg, gen, nil)
}

type fakeRecorder struct {
	mu       sync.Mutex
	accuracy float64
	valid    int
	calls    int
}

func (f *fakeRecorder) RecordEvaluation(accuracy float64, valid int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accuracy, f.valid = accuracy, valid
	f.calls++
}

func TestRunner_Run(t *testing.T) {
	ctx := context.Background()
	gen := mocks.NewScriptedGenerator().Then("Answer: 1").Then("not sure")
	store := checkpoint.NewMemoryStore()
	rec := &fakeRecorder{}

	r := runner.New(naiveMethod(gen), newTask(t), store,
		runner.WithLogger(zaptest.NewLogger(t)),
		runner.WithRecorder(rec),
		runner.WithRunID("run-42"))
	assert.Equal(t, "run-42", r.RunID())

	summary, err := r.Run(ctx, 0, -1)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 0, summary.Skipped)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, []int{1, 0}, summary.YTrue)
	assert.Equal(t, []int{1, -1}, summary.YPred)
	require.NotNil(t, summary.Report)
	assert.Equal(t, 1, summary.Report.Valid)
	assert.Equal(t, 1, summary.Report.Ignored)
	assert.Equal(t, 1.0, summary.Report.Accuracy)
	assert.Equal(t, 1, rec.calls)
	assert.Equal(t, 1.0, rec.accuracy)

	records, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "run-42", records[0].RunID)
	assert.Equal(t, "200", records[0].SubjectID)
	assert.Equal(t, "Answer: 1", records[0].FinalOutput)
	assert.True(t, records[0].Correct)
	assert.True(t, strings.HasPrefix(records[0].Input, "Patient ID: 200"))
	assert.False(t, records[1].Correct)
	assert.Equal(t, -1, records[1].YPred)
	assert.False(t, records[1].CreatedAt.IsZero())
}

func TestRunner_LabelMethodsKeepSamples(t *testing.T) {
	ctx := context.Background()
	cfg := search.DefaultConfig()
	cfg.NConsistency = 3

	t.Run("cot", func(t *testing.T) {
		gen := mocks.NewScriptedGenerator().
			Then("Final: 1", "Final: 1", "0").
			Then("unsure", "still unsure", "no idea")
		store := checkpoint.NewMemoryStore()

		summary, err := runner.New(search.NewSelfConsistencySolver(cfg, gen, nil), newTask(t), store).Run(ctx, 0, -1)
		require.NoError(t, err)
		assert.Equal(t, []int{1, 0}, summary.YPred)
		assert.Equal(t, 1.0, summary.Report.Accuracy)

		records, err := store.Load(ctx)
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "Final: 1", records[0].FinalOutput)
		assert.Equal(t, []search.Candidate{"Final: 1", "Final: 1", "0"}, records[0].Samples)
		assert.Equal(t, []int{1, 1, 0}, records[0].Parsed)
		assert.Equal(t, "Final: 0", records[1].FinalOutput)
		assert.Equal(t, []int{-1, -1, -1}, records[1].Parsed)
	})

	t.Run("pure_llm", func(t *testing.T) {
		gen := mocks.NewScriptedGenerator().Then("1").Then("Final: -1")
		store := checkpoint.NewMemoryStore()

		summary, err := runner.New(search.NewDirectSolver(cfg, gen, nil), newTask(t), store).Run(ctx, 0, -1)
		require.NoError(t, err)
		assert.Equal(t, []int{1, -1}, summary.YPred)

		records, err := store.Load(ctx)
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "Final: unknown", records[1].FinalOutput)
		assert.Equal(t, []search.Candidate{"Final: -1"}, records[1].Samples)
		assert.Equal(t, []int{-1}, records[1].Parsed)
		assert.False(t, records[1].Correct)
	})
}

func TestRunner_ResumesFromCheckpoint(t *testing.T) {
	ctx := context.Background()
	gen := mocks.NewScriptedGenerator().Then("0")
	store := checkpoint.NewMemoryStore(checkpoint.Record{ExampleID: 0, YTrue: 1, YPred: 0})

	summary, err := runner.New(naiveMethod(gen), newTask(t), store).Run(ctx, 0, -1)
	require.NoError(t, err)

	assert.Equal(t, 1, gen.CallCount())
	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, []int{1, 0}, summary.YTrue)
	assert.Equal(t, []int{0, 0}, summary.YPred)
	require.NotNil(t, summary.Report)
	assert.Equal(t, 0.5, summary.Report.Accuracy)
}

func TestRunner_Range(t *testing.T) {
	gen := mocks.NewScriptedGenerator().Then("0")
	store := checkpoint.NewMemoryStore()

	summary, err := runner.New(naiveMethod(gen), newTask(t), store).Run(context.Background(), 1, 99)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Processed)

	records, _ := store.Load(context.Background())
	require.Len(t, records, 1)
	assert.Equal(t, 1, records[0].ExampleID)
	assert.True(t, records[0].Correct)
}

func TestRunner_FailedItemsAreNotCheckpointed(t *testing.T) {
	gen := mocks.NewScriptedGenerator().WithError(errors.New("upstream down"))
	store := checkpoint.NewMemoryStore()

	summary, err := runner.New(naiveMethod(gen), newTask(t), store).Run(context.Background(), 0, -1)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Failed)
	assert.Equal(t, 0, summary.Processed)
	assert.Nil(t, summary.Report)

	records, _ := store.Load(context.Background())
	assert.Empty(t, records)
}

func TestRunner_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gen := mocks.NewScriptedGenerator().Then("1").Then("0")
	_, err := runner.New(naiveMethod(gen), newTask(t), checkpoint.NewMemoryStore()).Run(ctx, 0, -1)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, gen.CallCount())
}

func TestRunner_PropagatesIDs(t *testing.T) {
	var seen []string
	gen := mocks.NewScriptedGenerator().WithFunc(func(ctx context.Context, req search.GenerateRequest) ([]string, error) {
		run, _ := ctxkeys.RunID(ctx)
		item, _ := ctxkeys.ItemID(ctx)
		seen = append(seen, run+"/"+item)
		return []string{"1"}, nil
	})

	_, err := runner.New(naiveMethod(gen), newTask(t), checkpoint.NewMemoryStore(), runner.WithRunID("r")).
		Run(context.Background(), 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"r/200", "r/100"}, seen)
}

func TestRunner_WithFileStoreAndReport(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "outputs", checkpoint.FileName("naive", "qwen2:7b", false))
	store, err := checkpoint.NewFileStore(path, zaptest.NewLogger(t))
	require.NoError(t, err)

	gen := mocks.NewScriptedGenerator().Then("1").Then("0")
	summary, err := runner.New(naiveMethod(gen), newTask(t), store).Run(ctx, 0, -1)
	require.NoError(t, err)
	require.NotNil(t, summary.Report)

	metricsPath := filepath.Join(dir, "outputs", "llm_naive_qwen2_7b_no_text_metrics.json")
	csvPath, err := runner.WriteReport(summary.Report, filepath.Join(dir, "results"), metricsPath, "qwen2:7b", "naive", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "qwen2_7b_naive_20260101_000000_classification_report.csv", filepath.Base(csvPath))
	assert.FileExists(t, metricsPath)

	// 第二次运行全部跳过
	again, err := runner.New(naiveMethod(gen), newTask(t), store).Run(ctx, 0, -1)
	require.NoError(t, err)
	assert.Equal(t, 2, again.Skipped)
	assert.Equal(t, 2, gen.CallCount())
}

func TestPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := runner.NewPrinter(&buf, true)

	p.StepCompleted(search.StepRecord{
		Step:       1,
		Candidates: []search.Candidate{"low", "high", "mid"},
		Scores:     []float64{0.1, 0.9, 0.5},
		Selected:   []search.Candidate{"high", "mid"},
	}, 1500*time.Microsecond)

	out := buf.String()
	assert.Contains(t, out, "-- step 1 (2ms) --")
	assert.Contains(t, out, `-- new_ys --: ["high", "mid", "low"]`)
	assert.Contains(t, out, "-- sol values --: [0.9, 0.5, 0.1]")
	assert.Contains(t, out, `-- choices --: ["high", "mid"]`)

	buf.Reset()
	best := "high"
	p.SolveCompleted(&search.Result{
		Best:  &best,
		Steps: []search.StepRecord{{Selected: []search.Candidate{"high", "mid"}}},
	}, nil, time.Second)
	out = buf.String()
	assert.Contains(t, out, `SURVIVING CANDIDATES (The Beam): ["high", "mid"]`)
	assert.Contains(t, out, `BEST OVERALL CANDIDATE: "high"`)

	buf.Reset()
	p.SolveCompleted(nil, errors.New("boom"), time.Second)
	assert.Contains(t, buf.String(), "SOLVE FAILED: boom")

	buf.Reset()
	p.SolveCompleted(&search.Result{}, nil, time.Second)
	assert.Contains(t, buf.String(), "BEST OVERALL CANDIDATE: <none>")
}

var _ search.Observer = (*runner.Printer)(nil)

func TestPrinter_SolveFailedClosesRule(t *testing.T) {
	var buf bytes.Buffer
	runner.NewPrinter(&buf, true).SolveCompleted(nil, errors.New("boom"), 0)

	out := buf.String()
	assert.NotContains(t, out, "%!")
	assert.Contains(t, out, "SOLVE FAILED: boom")
	assert.Equal(t, 2, strings.Count(out, strings.Repeat("=", 50)))
}
