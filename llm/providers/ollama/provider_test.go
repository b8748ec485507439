package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/BaSui01/thoughtflow/llm"
	"github.com/BaSui01/thoughtflow/llm/providers"
	"github.com/BaSui01/thoughtflow/types"
)

func newTestProvider(t *testing.T, model string, handler http.HandlerFunc) *Provider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewProvider(providers.OllamaConfig{
		BaseProviderConfig: providers.BaseProviderConfig{BaseURL: server.URL, Model: model},
	}, zaptest.NewLogger(t))
}

func TestNewProvider_BaseURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "", want: providers.DefaultOllamaBaseURL},
		{in: "http://localhost:11434/", want: "http://localhost:11434"},
		{in: "http://localhost:11434/api/generate", want: "http://localhost:11434"},
	}
	for _, tt := range tests {
		p := NewProvider(providers.OllamaConfig{BaseProviderConfig: providers.BaseProviderConfig{BaseURL: tt.in}}, nil)
		assert.Equal(t, tt.want, p.cfg.BaseURL)
	}
}

func TestProvider_Completion(t *testing.T) {
	var got generateRequest
	p := newTestProvider(t, "qwen2", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, `{"model":"qwen2","created_at":"2024-05-01T10:00:00.123Z","response":"Step 1: normal","done":true,"done_reason":"stop","prompt_eval_count":20,"eval_count":4}`)
	})

	req := llm.UserPrompt("", "Step 1:")
	req.Temperature = 0.7
	req.MaxTokens = 1024
	req.Stop = []string{"\n"}
	resp, err := p.Completion(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "qwen2", got.Model)
	assert.Equal(t, "Step 1:", got.Prompt)
	assert.False(t, got.Stream)
	assert.InDelta(t, 0.7, got.Options["temperature"], 1e-6)
	assert.EqualValues(t, 1024, got.Options["num_predict"])
	assert.Equal(t, []any{"\n"}, got.Options["stop"])

	require.Len(t, resp.Choices, 1)
	assert.Equal(t, "Step 1: normal", resp.Choices[0].Message.Content)
	assert.Equal(t, "stop", resp.Choices[0].FinishReason)
	assert.Equal(t, 24, resp.Usage.TotalTokens)
	assert.Equal(t, 2024, resp.CreatedAt.Year())
}

func TestProvider_Completion_ModelNotFound(t *testing.T) {
	p := newTestProvider(t, "missing", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":"model 'missing' not found"}`)
	})

	_, err := p.Completion(context.Background(), llm.UserPrompt("", "hi"))
	require.Error(t, err)
	var llmErr *llm.Error
	require.ErrorAs(t, err, &llmErr)
	assert.Equal(t, types.ErrModelNotFound, llmErr.Code)
	assert.Equal(t, "model 'missing' not found", llmErr.Message)
	assert.False(t, llmErr.Retryable)
}

func TestProvider_HealthCheck(t *testing.T) {
	p := newTestProvider(t, "", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		fmt.Fprint(w, `{"models":[]}`)
	})
	status, err := p.HealthCheck(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Healthy)
}

func TestJoinMessages(t *testing.T) {
	assert.Equal(t, "only", joinMessages([]llm.Message{{Role: llm.RoleUser, Content: "only"}}))
	assert.Equal(t, "sys\n\nuser", joinMessages([]llm.Message{
		{Role: llm.RoleSystem, Content: "sys"},
		{Role: llm.RoleUser, Content: "user"},
	}))
}
