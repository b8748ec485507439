package llm_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/BaSui01/thoughtflow/internal/ctxkeys"
	"github.com/BaSui01/thoughtflow/llm"
	"github.com/BaSui01/thoughtflow/llm/retry"
	"github.com/BaSui01/thoughtflow/llm/tokenizer"
	"github.com/BaSui01/thoughtflow/search"
	"github.com/BaSui01/thoughtflow/testutil"
	"github.com/BaSui01/thoughtflow/testutil/mocks"
	"github.com/BaSui01/thoughtflow/types"
)

type recordedGeneration struct {
	provider, model, status string
	prompt, completion      int
}

type fakeRecorder struct {
	mu   sync.Mutex
	recs []recordedGeneration
}

func (f *fakeRecorder) RecordGeneration(provider, model, status string, _ time.Duration, prompt, completion int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recs = append(f.recs, recordedGeneration{provider, model, status, prompt, completion})
}

func testConfig() llm.GeneratorConfig {
	cfg := llm.DefaultGeneratorConfig()
	cfg.Retry = retry.Policy{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, Multiplier: 2}
	return cfg
}

func TestProviderGenerator_SequentialOrder(t *testing.T) {
	t.Parallel()
	provider := mocks.NewMockProvider().WithResponses(" a", "b ", "\nc\n")
	cfg := testConfig()
	cfg.Concurrency = 1
	gen := llm.NewProviderGenerator(provider, cfg)

	outs, err := gen.Generate(testutil.TestContext(t), search.GenerateRequest{Prompt: "p", N: 3})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, outs)
}

func TestProviderGenerator_BuildsChatRequest(t *testing.T) {
	t.Parallel()
	provider := mocks.NewMockProvider().WithResponse("ok")
	cfg := testConfig()
	cfg.MaxTokens = 256
	gen := llm.NewProviderGenerator(provider, cfg)

	_, err := gen.Generate(testutil.TestContext(t), search.GenerateRequest{
		Prompt: "Step 1:", N: 1, Stop: "\n", Model: "DeepSeek-V2-16B", Temperature: 0.5,
	})
	require.NoError(t, err)

	call := provider.GetLastCall()
	require.NotNil(t, call)
	req := call.Request
	assert.Equal(t, "DeepSeek-V2-16B", req.Model)
	assert.Equal(t, 256, req.MaxTokens)
	assert.InDelta(t, 0.5, req.Temperature, 1e-6)
	assert.Equal(t, []string{"\n"}, req.Stop)
	require.Len(t, req.Messages, 1)
	assert.Equal(t, llm.RoleUser, req.Messages[0].Role)
	assert.Equal(t, "Step 1:", req.Messages[0].Content)
}

func TestProviderGenerator_PropagatesTraceID(t *testing.T) {
	t.Parallel()
	provider := mocks.NewMockProvider()
	gen := llm.NewProviderGenerator(provider, testConfig())

	ctx := ctxkeys.WithTraceID(testutil.TestContext(t), "trace-7")
	_, err := gen.Generate(ctx, search.GenerateRequest{Prompt: "p", N: 1})
	require.NoError(t, err)
	assert.Equal(t, "trace-7", provider.GetLastCall().Request.TraceID)
}

func TestProviderGenerator_NoStopMarker(t *testing.T) {
	t.Parallel()
	provider := mocks.NewMockProvider()
	gen := llm.NewProviderGenerator(provider, testConfig())

	_, err := gen.Generate(testutil.TestContext(t), search.GenerateRequest{Prompt: "p", N: 1})
	require.NoError(t, err)
	assert.Nil(t, provider.GetLastCall().Request.Stop)
}

func TestProviderGenerator_ZeroN(t *testing.T) {
	t.Parallel()
	provider := mocks.NewMockProvider()
	outs, err := llm.NewProviderGenerator(provider, testConfig()).
		Generate(testutil.TestContext(t), search.GenerateRequest{Prompt: "p", N: 0})
	require.NoError(t, err)
	assert.Empty(t, outs)
	assert.Zero(t, provider.GetCallCount())
}

func TestProviderGenerator_RetriesRetryableErrors(t *testing.T) {
	t.Parallel()
	flaky := types.NewError(types.ErrRateLimited, "slow down").WithRetryable(true)
	provider := mocks.NewMockProvider().WithErrors(flaky, flaky).WithResponse("done")
	rec := &fakeRecorder{}
	cfg := testConfig()
	cfg.Concurrency = 1
	gen := llm.NewProviderGenerator(provider, cfg, llm.WithRecorder(rec))

	outs, err := gen.Generate(testutil.TestContext(t), search.GenerateRequest{Prompt: "p", N: 1, Model: "m"})
	require.NoError(t, err)
	assert.Equal(t, []string{"done"}, outs)
	assert.Equal(t, 3, provider.GetCallCount())

	require.Len(t, rec.recs, 3)
	assert.Equal(t, "error", rec.recs[0].status)
	assert.Equal(t, "ok", rec.recs[2].status)
	assert.Equal(t, recordedGeneration{"mock", "m", "ok", 10, 20}, rec.recs[2])
}

func TestProviderGenerator_PermanentErrorFailsGeneration(t *testing.T) {
	t.Parallel()
	denied := types.NewError(types.ErrUnauthorized, "bad key")
	provider := mocks.NewMockProvider().WithError(denied)
	gen := llm.NewProviderGenerator(provider, testConfig())

	outs, err := gen.Generate(testutil.TestContext(t), search.GenerateRequest{Prompt: "p", N: 3})
	require.Error(t, err)
	assert.Nil(t, outs)
	assert.True(t, types.IsErrorCode(err, types.ErrGenerationFailed))
	assert.True(t, types.IsErrorCode(err, types.ErrUnauthorized), "cause stays reachable")

	ge, ok := types.AsError(err)
	require.True(t, ok)
	assert.Equal(t, "mock", ge.Provider)
}

func TestProviderGenerator_PlainErrorIsNotRetried(t *testing.T) {
	t.Parallel()
	boom := errors.New("connection reset")
	provider := mocks.NewMockProvider().WithError(boom)
	cfg := testConfig()
	cfg.Concurrency = 1
	gen := llm.NewProviderGenerator(provider, cfg)

	_, err := gen.Generate(testutil.TestContext(t), search.GenerateRequest{Prompt: "p", N: 1})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, provider.GetCallCount())
}

func TestProviderGenerator_EmptyChoices(t *testing.T) {
	t.Parallel()
	provider := mocks.NewMockProvider().WithCompletionFunc(func(context.Context, *llm.ChatRequest) (*llm.ChatResponse, error) {
		return &llm.ChatResponse{}, nil
	})
	_, err := llm.NewProviderGenerator(provider, testConfig()).
		Generate(testutil.TestContext(t), search.GenerateRequest{Prompt: "p", N: 1})
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrUpstreamError))
}

func TestProviderGenerator_ContextCancelled(t *testing.T) {
	t.Parallel()
	provider := mocks.NewMockProvider().WithDelay(time.Second)
	_, err := llm.NewProviderGenerator(provider, testConfig()).
		Generate(testutil.CancelledContext(), search.GenerateRequest{Prompt: "p", N: 2})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProviderGenerator_RateLimited(t *testing.T) {
	t.Parallel()
	provider := mocks.NewMockProvider()
	cfg := testConfig()
	cfg.RateLimit = 50
	cfg.Burst = 1
	gen := llm.NewProviderGenerator(provider, cfg)

	start := time.Now()
	_, err := gen.Generate(testutil.TestContext(t), search.GenerateRequest{Prompt: "p", N: 3})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 35*time.Millisecond)
}

type fixedCounter int

func (c fixedCounter) Count(string) (int, error) { return int(c), nil }
func (fixedCounter) Name() string                { return "fixed" }

func TestProviderGenerator_RecordsTokenUsage(t *testing.T) {
	t.Parallel()
	tokenizer.Register("usage-estimated", fixedCounter(42))

	tests := []struct {
		name           string
		model          string
		prompt, compl  int
		wantPrompt     int
		wantCompletion int
	}{
		{name: "reported by provider", model: "usage-reported", prompt: 7, compl: 3, wantPrompt: 7, wantCompletion: 3},
		{name: "estimated when missing", model: "usage-estimated", wantPrompt: 42},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := mocks.NewMockProvider().WithName("stub").WithTokenUsage(tt.prompt, tt.compl)
			rec := &fakeRecorder{}
			gen := llm.NewProviderGenerator(provider, testConfig(), llm.WithRecorder(rec))

			_, err := gen.Generate(testutil.TestContext(t), search.GenerateRequest{Prompt: "p", N: 1, Model: tt.model})
			require.NoError(t, err)

			calls := provider.GetCalls()
			require.Len(t, calls, 1)
			assert.Equal(t, tt.prompt, calls[0].Response.Usage.PromptTokens)

			require.Len(t, rec.recs, 1)
			assert.Equal(t, recordedGeneration{"stub", tt.model, "ok", tt.wantPrompt, tt.wantCompletion}, rec.recs[0])
		})
	}
}

func TestProviderGenerator_FailsWhenAnyCompletionFails(t *testing.T) {
	t.Parallel()
	provider := mocks.NewMockProvider().WithFailAfter(2)
	cfg := testConfig()
	cfg.Concurrency = 1
	gen := llm.NewProviderGenerator(provider, cfg)

	outs, err := gen.Generate(testutil.TestContext(t), search.GenerateRequest{Prompt: "p", N: 3})
	assert.Nil(t, outs)
	assert.True(t, types.IsErrorCode(err, types.ErrGenerationFailed))
	assert.Equal(t, 3, provider.GetCallCount())
}
