package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/thoughtflow/internal/tlsutil"
	"github.com/BaSui01/thoughtflow/llm"
	"github.com/BaSui01/thoughtflow/llm/providers"
)

var tracer = otel.Tracer("github.com/BaSui01/thoughtflow/llm/providers/ollama")

// FallbackModel is used when neither the request nor the config names a model.
const FallbackModel = "llama3"

type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type generateResponse struct {
	Model           string `json:"model"`
	CreatedAt       string `json:"created_at"`
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	DoneReason      string `json:"done_reason,omitempty"`
	PromptEvalCount int    `json:"prompt_eval_count,omitempty"`
	EvalCount       int    `json:"eval_count,omitempty"`
}

// Provider 实现 Ollama LLM 提供者.
type Provider struct {
	cfg    providers.OllamaConfig
	client *http.Client
	logger *zap.Logger
}

var _ llm.Provider = (*Provider)(nil)

// NewProvider 创建 Ollama 提供者实例.
func NewProvider(cfg providers.OllamaConfig, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = providers.DefaultOllamaBaseURL
	}
	cfg.BaseURL = strings.TrimSuffix(strings.TrimRight(cfg.BaseURL, "/"), "/api/generate")
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 5 * time.Minute
	}
	return &Provider{
		cfg:    cfg,
		client: tlsutil.NewHTTPClient(tlsutil.ClientOptions{Timeout: timeout}),
		logger: logger.With(zap.String("provider", "ollama")),
	}
}

// Name returns the provider name.
func (p *Provider) Name() string { return "ollama" }

// Completion runs a non-streaming /api/generate call.
func (p *Provider) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	model := providers.ChooseModel(req, p.cfg.Model, FallbackModel)
	ctx, span := tracer.Start(ctx, "ollama.generate")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.model", model),
		attribute.Int("llm.max_tokens", req.MaxTokens),
	)

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	options := map[string]any{"temperature": req.Temperature}
	if req.MaxTokens > 0 {
		options["num_predict"] = req.MaxTokens
	}
	if req.TopP > 0 {
		options["top_p"] = req.TopP
	}
	if p.cfg.TopK > 0 {
		options["top_k"] = p.cfg.TopK
	}
	if len(req.Stop) > 0 {
		options["stop"] = req.Stop
	}
	payload, err := json.Marshal(generateRequest{
		Model:   model,
		Prompt:  joinMessages(req.Messages),
		Options: options,
	})
	if err != nil {
		return nil, p.fail(span, fmt.Errorf("failed to marshal request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return nil, p.fail(span, fmt.Errorf("failed to create request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, p.fail(span, ctxErr)
		}
		return nil, p.fail(span, providers.TransportError(err, p.Name()))
	}
	defer providers.SafeCloseBody(resp.Body)

	if resp.StatusCode != http.StatusOK {
		msg := providers.ReadErrorMessage(resp.Body)
		if resp.StatusCode == http.StatusNotFound && strings.Contains(msg, "not found") {
			p.logger.Warn("model not found, run `ollama pull`", zap.String("model", model))
		}
		return nil, p.fail(span, providers.MapHTTPError(resp.StatusCode, msg, p.Name()))
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, p.fail(span, providers.TransportError(fmt.Errorf("decode response: %w", err), p.Name()))
	}

	span.SetAttributes(attribute.Int("llm.eval_count", out.EvalCount))
	chat := &llm.ChatResponse{
		Provider: p.Name(),
		Model:    out.Model,
		Choices: []llm.ChatChoice{{
			FinishReason: out.DoneReason,
			Message:      llm.Message{Role: llm.RoleAssistant, Content: out.Response},
		}},
		Usage: llm.ChatUsage{
			PromptTokens:     out.PromptEvalCount,
			CompletionTokens: out.EvalCount,
			TotalTokens:      out.PromptEvalCount + out.EvalCount,
		},
	}
	if ts, err := time.Parse(time.RFC3339Nano, out.CreatedAt); err == nil {
		chat.CreatedAt = ts
	}
	return chat, nil
}

// HealthCheck lists local models via /api/tags.
func (p *Provider) HealthCheck(ctx context.Context) (*llm.HealthStatus, error) {
	start := time.Now()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.BaseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := p.client.Do(httpReq)
	latency := time.Since(start)
	if err != nil {
		return &llm.HealthStatus{Healthy: false, Latency: latency, Message: err.Error()}, providers.TransportError(err, p.Name())
	}
	defer providers.SafeCloseBody(resp.Body)

	if resp.StatusCode != http.StatusOK {
		msg := providers.ReadErrorMessage(resp.Body)
		return &llm.HealthStatus{Healthy: false, Latency: latency, Message: msg},
			providers.MapHTTPError(resp.StatusCode, msg, p.Name())
	}
	return &llm.HealthStatus{Healthy: true, Latency: latency}, nil
}

func (p *Provider) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// joinMessages flattens chat messages into a raw prompt; a lone user message is passed verbatim.
func joinMessages(msgs []llm.Message) string {
	if len(msgs) == 1 {
		return msgs[0].Content
	}
	var b strings.Builder
	for i, m := range msgs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(m.Content)
	}
	return b.String()
}
