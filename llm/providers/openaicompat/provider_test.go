package openaicompat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/thoughtflow/llm"
	"github.com/BaSui01/thoughtflow/llm/providers"
	"github.com/BaSui01/thoughtflow/types"
)

// ---------------------------------------------------------------------------
// New() constructor
// ---------------------------------------------------------------------------

func TestNew_Defaults(t *testing.T) {
	p := New(Config{ProviderName: "local"}, nil)
	assert.Equal(t, "/v1/chat/completions", p.Cfg.EndpointPath)
	assert.Equal(t, "/v1/models", p.Cfg.ModelsEndpoint)
	assert.Equal(t, "local", p.Name())
	assert.Equal(t, 60*time.Second, p.Client.Timeout)

	p = New(Config{ProviderName: "custom", EndpointPath: "/api/chat", Timeout: 5 * time.Second}, zap.NewNop())
	assert.Equal(t, "/api/chat", p.Cfg.EndpointPath)
	assert.Equal(t, 5*time.Second, p.Client.Timeout)
}

func TestProvider_endpoint(t *testing.T) {
	tests := []struct {
		base string
		want string
	}{
		{base: "http://localhost:8000", want: "http://localhost:8000/v1/chat/completions"},
		{base: "http://localhost:8000/", want: "http://localhost:8000/v1/chat/completions"},
		{base: "https://api.gpt.ge/v1/", want: "https://api.gpt.ge/v1/chat/completions"},
	}
	for _, tt := range tests {
		p := New(Config{BaseURL: tt.base}, nil)
		assert.Equal(t, tt.want, p.endpoint(p.Cfg.EndpointPath))
	}
}

// ---------------------------------------------------------------------------
// Completion
// ---------------------------------------------------------------------------

func TestProvider_Completion_Success(t *testing.T) {
	var got providers.OpenAICompatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(providers.OpenAICompatResponse{
			ID:    "resp-1",
			Model: "DeepSeek-V2-16B",
			Choices: []providers.OpenAICompatChoice{{
				Index:        0,
				FinishReason: "stop",
				Message:      providers.OpenAICompatMessage{Role: "assistant", Content: "Step 1: TSH -> HIGH"},
			}},
			Usage:   &providers.OpenAICompatUsage{PromptTokens: 5, CompletionTokens: 2, TotalTokens: 7},
			Created: 1700000000,
		})
	}))
	t.Cleanup(server.Close)

	p := New(Config{ProviderName: "local", APIKey: "test-key", BaseURL: server.URL, DefaultModel: "DeepSeek-V2-16B"}, zap.NewNop())

	req := llm.UserPrompt("", "Step 1:")
	req.MaxTokens = 1024
	req.Temperature = 0.7
	req.Stop = []string{"\n"}
	resp, err := p.Completion(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "DeepSeek-V2-16B", got.Model)
	assert.Equal(t, 1024, got.MaxTokens)
	assert.InDelta(t, 0.7, got.Temperature, 1e-6)
	assert.Equal(t, []string{"\n"}, got.Stop)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)

	assert.Equal(t, "resp-1", resp.ID)
	assert.Equal(t, "local", resp.Provider)
	require.Len(t, resp.Choices, 1)
	assert.Equal(t, "Step 1: TSH -> HIGH", resp.Choices[0].Message.Content)
	assert.Equal(t, 7, resp.Usage.TotalTokens)
	assert.False(t, resp.CreatedAt.IsZero())
}

func TestProvider_Completion_NoAPIKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		fmt.Fprint(w, `{"choices":[{"message":{"content":"ok"}}]}`)
	}))
	t.Cleanup(server.Close)

	p := New(Config{ProviderName: "local", BaseURL: server.URL}, nil)
	resp, err := p.Completion(context.Background(), llm.UserPrompt("m", "hi"))
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Choices[0].Message.Content)
}

func TestProvider_Completion_HTTPError(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		body       string
		wantCode   types.ErrorCode
		retryable  bool
	}{
		{name: "401 unauthorized", statusCode: http.StatusUnauthorized, body: `{"error":{"message":"invalid key","type":"auth"}}`, wantCode: types.ErrUnauthorized},
		{name: "429 rate limited", statusCode: http.StatusTooManyRequests, body: `{"error":{"message":"slow down"}}`, wantCode: types.ErrRateLimited, retryable: true},
		{name: "500 server error", statusCode: http.StatusInternalServerError, body: `{"error":{"message":"oops"}}`, wantCode: types.ErrUpstreamError, retryable: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				fmt.Fprint(w, tt.body)
			}))
			t.Cleanup(server.Close)

			p := New(Config{ProviderName: "vapi", APIKey: "key", BaseURL: server.URL}, zap.NewNop())
			_, err := p.Completion(context.Background(), llm.UserPrompt("m", "hi"))
			require.Error(t, err)

			var llmErr *llm.Error
			require.ErrorAs(t, err, &llmErr)
			assert.Equal(t, tt.wantCode, llmErr.Code)
			assert.Equal(t, tt.retryable, llmErr.Retryable)
			assert.Equal(t, "vapi", llmErr.Provider)
		})
	}
}

func TestProvider_Completion_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, "not json")
	}))
	t.Cleanup(server.Close)

	p := New(Config{ProviderName: "local", BaseURL: server.URL}, zap.NewNop())
	_, err := p.Completion(context.Background(), llm.UserPrompt("m", "hi"))
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrUpstreamError))
}

func TestProvider_Completion_RequestTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(server.Close)

	p := New(Config{ProviderName: "local", BaseURL: server.URL}, zap.NewNop())
	req := llm.UserPrompt("m", "hi")
	req.Timeout = 20 * time.Millisecond
	_, err := p.Completion(context.Background(), req)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// ---------------------------------------------------------------------------
// HealthCheck
// ---------------------------------------------------------------------------

func TestProvider_HealthCheck_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/models", r.URL.Path)
		fmt.Fprint(w, `{"object":"list","data":[]}`)
	}))
	t.Cleanup(server.Close)

	p := New(Config{ProviderName: "local", APIKey: "key", BaseURL: server.URL}, zap.NewNop())
	status, err := p.HealthCheck(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Healthy)
	assert.GreaterOrEqual(t, status.Latency, time.Duration(0))
}

func TestProvider_HealthCheck_Failure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"bad key"}}`)
	}))
	t.Cleanup(server.Close)

	p := New(Config{ProviderName: "local", APIKey: "key", BaseURL: server.URL}, zap.NewNop())
	status, err := p.HealthCheck(context.Background())
	require.Error(t, err)
	assert.False(t, status.Healthy)
	assert.Equal(t, "bad key", status.Message)
	assert.True(t, types.IsErrorCode(err, types.ErrUnauthorized))
}
