package openai

import (
	"context"
	"errors"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/BaSui01/thoughtflow/internal/tlsutil"
	"github.com/BaSui01/thoughtflow/llm"
	"github.com/BaSui01/thoughtflow/llm/providers"
)

// FallbackModel is used when neither the request nor the config names a model.
const FallbackModel = "gpt-4o-mini"

// Provider 实现 OpenAI LLM 提供者.
type Provider struct {
	cfg    providers.OpenAIConfig
	client *goopenai.Client
	logger *zap.Logger
}

var _ llm.Provider = (*Provider)(nil)

// NewProvider 创建新的 OpenAI 提供者实例.
func NewProvider(cfg providers.OpenAIConfig, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = providers.DefaultOpenAIBaseURL
	}

	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	clientCfg.OrgID = cfg.Organization
	clientCfg.HTTPClient = tlsutil.NewHTTPClient(tlsutil.ClientOptions{Timeout: cfg.Timeout})

	return &Provider{
		cfg:    cfg,
		client: goopenai.NewClientWithConfig(clientCfg),
		logger: logger.With(zap.String("provider", "openai")),
	}
}

// Name returns the provider name.
func (p *Provider) Name() string { return "openai" }

// Completion performs a chat completion through the SDK.
func (p *Provider) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	messages := make([]goopenai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, goopenai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content})
	}
	oaReq := goopenai.ChatCompletionRequest{
		Model:       providers.ChooseModel(req, p.cfg.Model, FallbackModel),
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		Stop:        req.Stop,
	}

	resp, err := p.client.CreateChatCompletion(ctx, oaReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		p.logger.Debug("completion failed", zap.Error(err))
		return nil, p.mapError(err)
	}

	out := &llm.ChatResponse{
		ID:       resp.ID,
		Provider: p.Name(),
		Model:    resp.Model,
		Choices:  make([]llm.ChatChoice, 0, len(resp.Choices)),
		Usage: llm.ChatUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}
	if resp.Created != 0 {
		out.CreatedAt = time.Unix(resp.Created, 0)
	}
	for _, c := range resp.Choices {
		out.Choices = append(out.Choices, llm.ChatChoice{
			Index:        c.Index,
			FinishReason: string(c.FinishReason),
			Message:      llm.Message{Role: llm.RoleAssistant, Content: c.Message.Content},
		})
	}
	return out, nil
}

// HealthCheck lists models as a cheap authenticated round trip.
func (p *Provider) HealthCheck(ctx context.Context) (*llm.HealthStatus, error) {
	start := time.Now()
	_, err := p.client.ListModels(ctx)
	latency := time.Since(start)
	if err != nil {
		return &llm.HealthStatus{Healthy: false, Latency: latency, Message: err.Error()}, p.mapError(err)
	}
	return &llm.HealthStatus{Healthy: true, Latency: latency}, nil
}

func (p *Provider) mapError(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode > 0 {
		e := providers.MapHTTPError(apiErr.HTTPStatusCode, apiErr.Message, p.Name())
		e.Cause = err
		return e
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		e := providers.MapHTTPError(reqErr.HTTPStatusCode, reqErr.Error(), p.Name())
		e.Cause = err
		return e
	}
	return providers.TransportError(err, p.Name())
}
