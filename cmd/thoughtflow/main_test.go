package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/BaSui01/thoughtflow/checkpoint"
	"github.com/BaSui01/thoughtflow/config"
	"github.com/BaSui01/thoughtflow/llm/tokenizer"
	"github.com/BaSui01/thoughtflow/search"
	"github.com/BaSui01/thoughtflow/testutil"
	"github.com/BaSui01/thoughtflow/testutil/mocks"
)

const sampleCSV = "../../tasks/thyroid/testdata/sample.csv"

func TestApplyRunFlags_OnlyChangedFlags(t *testing.T) {
	cmd := newRunCmd()
	require.NoError(t, cmd.Flags().Set("n-select", "5"))
	require.NoError(t, cmd.Flags().Set("method-evaluate", "vote"))
	require.NoError(t, cmd.Flags().Set("backend", "qwen2:7b"))
	require.NoError(t, cmd.Flags().Set("end", "-1"))
	require.NoError(t, cmd.Flags().Set("use-text", "true"))
	require.NoError(t, cmd.Flags().Set("verbose", "true"))
	require.NoError(t, cmd.Flags().Set("n-generate-cot", "9"))
	require.NoError(t, cmd.Flags().Set("method", "cot"))

	cfg := config.DefaultConfig()
	cfg.Search.NGenerate = 7
	applyRunFlags(cmd, cfg)

	assert.Equal(t, 5, cfg.Search.NSelect)
	assert.Equal(t, search.EvaluateVote, cfg.Search.EvaluateMode)
	assert.Equal(t, "qwen2:7b", cfg.Search.Model)
	assert.Equal(t, -1, cfg.Run.End)
	assert.True(t, cfg.Dataset.UseText)
	assert.True(t, cfg.Run.Verbose)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 9, cfg.Search.NConsistency)
	assert.Equal(t, "cot", cfg.Run.Method)

	// untouched
	assert.Equal(t, 7, cfg.Search.NGenerate)
	assert.Equal(t, search.GenerateSample, cfg.Search.GenerateMode)
	assert.Equal(t, 0.7, cfg.Search.Temperature)
}

func TestLoadConfig_RejectsInvalidFlags(t *testing.T) {
	cmd := newRunCmd()
	require.NoError(t, cmd.Flags().Set("method-select", "roulette"))

	_, err := loadConfig(cmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "roulette")
}

func TestVersionCommand(t *testing.T) {
	root := newRootCmd()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	assert.Contains(t, buf.String(), "Thoughtflow dev")
	assert.Contains(t, buf.String(), "Git Commit: unknown")
}

func TestOpenStore(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Checkpoint.Dir = filepath.Join(dir, "outputs")
	cfg.Run.ResultsDir = filepath.Join(dir, "results")
	cfg.Search.Model = "org/model:7b"

	t.Run("file", func(t *testing.T) {
		store, metricsPath, err := openStore(cfg, zaptest.NewLogger(t))
		require.NoError(t, err)
		defer store.Close()

		fs, ok := store.(*checkpoint.FileStore)
		require.True(t, ok)
		assert.Equal(t, filepath.Join(dir, "outputs", "llm_bfs_org_model_7b_no_text_predictions.jsonl"), fs.Path())
		assert.Equal(t, filepath.Join(dir, "outputs", "llm_bfs_org_model_7b_no_text_metrics.json"), metricsPath)
	})

	t.Run("memory", func(t *testing.T) {
		c := *cfg
		c.Checkpoint.Backend = "memory"
		store, metricsPath, err := openStore(&c, zaptest.NewLogger(t))
		require.NoError(t, err)
		defer store.Close()

		assert.IsType(t, &checkpoint.MemoryStore{}, store)
		assert.Equal(t, filepath.Join(dir, "results", "llm_bfs_org_model_7b_no_text_metrics.json"), metricsPath)
	})

	t.Run("sqlite", func(t *testing.T) {
		c := *cfg
		c.Checkpoint.Backend = "sqlite"
		c.Checkpoint.DSN = filepath.Join(dir, "checkpoints.db")
		store, _, err := openStore(&c, zaptest.NewLogger(t))
		require.NoError(t, err)
		defer store.Close()

		assert.IsType(t, &checkpoint.GormStore{}, store)
	})

	t.Run("unknown", func(t *testing.T) {
		c := *cfg
		c.Checkpoint.Backend = "s3"
		_, _, err := openStore(&c, zaptest.NewLogger(t))
		assert.Error(t, err)
	})
}

func newCompletionServer(t *testing.T, answer string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Method == http.MethodGet {
			fmt.Fprint(w, `{"data":[]}`)
			return
		}
		fmt.Fprintf(w, `{"choices":[{"message":{"role":"assistant","content":%q}}]}`, answer)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestRunBatch_NaiveEndToEndAndResume(t *testing.T) {
	server := newCompletionServer(t, "Final answer: 1")
	dir := t.TempDir()

	cfg := config.DefaultConfig()
	cfg.Run.Method = "naive"
	cfg.Run.ResultsDir = filepath.Join(dir, "results")
	cfg.Search.NGenerate = 1
	cfg.LLM.BaseURL = server.URL
	cfg.Dataset.Path = sampleCSV
	cfg.Checkpoint.Dir = filepath.Join(dir, "outputs")
	cfg.Log.Level = "error"
	cfg.Metrics.TextfilePath = filepath.Join(dir, "thoughtflow.prom")
	require.NoError(t, cfg.Validate())
	tokenizer.Register(cfg.Search.Model, tokenizer.NewEstimator())

	var out bytes.Buffer
	require.NoError(t, runBatch(context.Background(), cfg, &out, true))
	assert.Contains(t, out.String(), "processed=2 skipped=0 failed=0")
	assert.Contains(t, out.String(), "accuracy=0.5000 valid=2 ignored=0")

	ckpt := filepath.Join(cfg.Checkpoint.Dir, checkpoint.FileName("naive", cfg.Search.Model, false))
	assert.Len(t, testutil.ReadLines(t, ckpt), 2)

	assert.FileExists(t, filepath.Join(cfg.Checkpoint.Dir, "llm_naive_DeepSeek-V2-16B_no_text_metrics.json"))
	assert.FileExists(t, cfg.Metrics.TextfilePath)
	csvs, err := filepath.Glob(filepath.Join(cfg.Run.ResultsDir, "*.csv"))
	require.NoError(t, err)
	assert.Len(t, csvs, 1)

	out.Reset()
	require.NoError(t, runBatch(context.Background(), cfg, &out, true))
	assert.Contains(t, out.String(), "processed=0 skipped=2 failed=0")
	assert.Contains(t, out.String(), "accuracy=0.5000")
}

func TestRunBatch_PureLLM(t *testing.T) {
	server := newCompletionServer(t, "1")
	dir := t.TempDir()

	cfg := config.DefaultConfig()
	cfg.Run.Method = "pure_llm"
	cfg.Run.ResultsDir = filepath.Join(dir, "results")
	cfg.LLM.BaseURL = server.URL
	cfg.Dataset.Path = sampleCSV
	cfg.Checkpoint.Dir = filepath.Join(dir, "outputs")
	cfg.Log.Level = "error"
	require.NoError(t, cfg.Validate())
	tokenizer.Register(cfg.Search.Model, tokenizer.NewEstimator())

	var out bytes.Buffer
	require.NoError(t, runBatch(context.Background(), cfg, &out, true))
	assert.Contains(t, out.String(), "processed=2 skipped=0 failed=0")
	assert.Contains(t, out.String(), "accuracy=0.5000 valid=2 ignored=0")

	lines := testutil.ReadLines(t, filepath.Join(cfg.Checkpoint.Dir, checkpoint.FileName("pure_llm", cfg.Search.Model, false)))
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"final_output":"Final: 1"`)
	assert.Contains(t, lines[0], `"parsed":[1]`)
}

func TestHealthCommand(t *testing.T) {
	server := newCompletionServer(t, "ok")
	t.Setenv("THOUGHTFLOW_LLM_BASE_URL", server.URL)

	root := newRootCmd()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetArgs([]string{"health", "--provider", "local"})

	require.NoError(t, root.ExecuteContext(testutil.TestContextWithTimeout(t, 10*time.Second)))
	assert.Contains(t, buf.String(), "local healthy")
}

func TestCheckHealth(t *testing.T) {
	ctx := testutil.TestContext(t)

	t.Run("healthy", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, checkHealth(ctx, mocks.NewMockProvider().WithName("stub"), time.Second, &buf))
		assert.Equal(t, "✅ stub healthy (10ms)\n", buf.String())
	})

	t.Run("unhealthy", func(t *testing.T) {
		var buf bytes.Buffer
		err := checkHealth(ctx, mocks.NewMockProvider().WithName("stub").WithHealthy(false), time.Second, &buf)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "health check failed")
		assert.Empty(t, buf.String())
	})
}
