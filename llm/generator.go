package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/BaSui01/thoughtflow/internal/ctxkeys"
	"github.com/BaSui01/thoughtflow/llm/retry"
	"github.com/BaSui01/thoughtflow/llm/tokenizer"
	"github.com/BaSui01/thoughtflow/search"
	"github.com/BaSui01/thoughtflow/types"
)

// GeneratorConfig 生成器配置
type GeneratorConfig struct {
	// Concurrency 单次 Generate 内并发请求上限
	Concurrency int `json:"concurrency" yaml:"concurrency" env:"CONCURRENCY" validate:"gte=1"`
	// RateLimit 每秒请求数，0 表示不限流
	RateLimit float64 `json:"rate_limit" yaml:"rate_limit" env:"RATE_LIMIT" validate:"gte=0"`
	Burst     int     `json:"burst" yaml:"burst" env:"BURST" validate:"gte=0"`
	// MaxTokens 单次补全最大 token 数，0 表示由服务端决定
	MaxTokens int           `json:"max_tokens" yaml:"max_tokens" env:"MAX_TOKENS" validate:"gte=0"`
	Timeout   time.Duration `json:"timeout" yaml:"timeout" env:"TIMEOUT"`
	Retry     retry.Policy  `json:"retry" yaml:"retry" env:"RETRY"`
}

// DefaultGeneratorConfig 返回默认生成器配置
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		Concurrency: 4,
		Burst:       1,
		MaxTokens:   1024,
		Retry:       retry.DefaultPolicy(),
	}
}

// GenerationRecorder 接收每次补全请求的统计
type GenerationRecorder interface {
	RecordGeneration(provider, model, status string, latency time.Duration, promptTokens, completionTokens int)
}

// ProviderGenerator 基于 Provider 实现 search.Generator：
// N 条补全并发发出，结果保持顺序并去除首尾空白。
type ProviderGenerator struct {
	provider Provider
	cfg      GeneratorConfig
	limiter  *rate.Limiter
	retryer  *retry.Retryer
	recorder GenerationRecorder
	logger   *zap.Logger
}

var _ search.Generator = (*ProviderGenerator)(nil)

// GeneratorOption 生成器选项
type GeneratorOption func(*ProviderGenerator)

// WithRecorder 设置请求统计接收方
func WithRecorder(r GenerationRecorder) GeneratorOption {
	return func(g *ProviderGenerator) { g.recorder = r }
}

// WithGeneratorLogger 设置日志
func WithGeneratorLogger(logger *zap.Logger) GeneratorOption {
	return func(g *ProviderGenerator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewProviderGenerator 创建基于 Provider 的生成器
func NewProviderGenerator(provider Provider, cfg GeneratorConfig, opts ...GeneratorOption) *ProviderGenerator {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	g := &ProviderGenerator{
		provider: provider,
		cfg:      cfg,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	g.logger = g.logger.With(zap.String("component", "generator"), zap.String("provider", provider.Name()))
	g.retryer = retry.New(cfg.Retry, g.logger)
	return g
}

// Generate implements search.Generator.
func (g *ProviderGenerator) Generate(ctx context.Context, req search.GenerateRequest) ([]string, error) {
	if req.N <= 0 {
		return []string{}, nil
	}

	outputs := make([]string, req.N)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.cfg.Concurrency)
	for i := 0; i < req.N; i++ {
		eg.Go(func() error {
			out, err := retry.Do(egCtx, g.retryer, func(ctx context.Context) (string, error) {
				return g.complete(ctx, req)
			})
			if err != nil {
				return err
			}
			outputs[i] = out
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		g.logger.Warn("generation failed", zap.Int("n", req.N), zap.Error(err))
		return nil, types.Errorf(types.ErrGenerationFailed, "%s: %d completions requested", g.provider.Name(), req.N).
			WithCause(err).
			WithProvider(g.provider.Name())
	}
	return outputs, nil
}

func (g *ProviderGenerator) complete(ctx context.Context, req search.GenerateRequest) (string, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limiter: %w", err)
		}
	}

	chat := UserPrompt(req.Model, req.Prompt)
	chat.MaxTokens = g.cfg.MaxTokens
	chat.Temperature = float32(req.Temperature)
	chat.Timeout = g.cfg.Timeout
	if req.Stop != "" {
		chat.Stop = []string{req.Stop}
	}
	chat.TraceID = traceID(ctx)

	start := time.Now()
	resp, err := g.provider.Completion(ctx, chat)
	latency := time.Since(start)
	if err != nil {
		g.record(req, "error", latency, nil)
		return "", err
	}
	choice, err := FirstChoice(resp)
	if err != nil {
		g.record(req, "empty", latency, resp)
		return "", types.NewError(types.ErrUpstreamError, err.Error()).WithProvider(g.provider.Name())
	}
	g.record(req, "ok", latency, resp)
	return strings.TrimSpace(choice.Message.Content), nil
}

func (g *ProviderGenerator) record(req search.GenerateRequest, status string, latency time.Duration, resp *ChatResponse) {
	if g.recorder == nil {
		return
	}
	var promptTokens, completionTokens int
	if resp != nil {
		promptTokens, completionTokens = resp.Usage.PromptTokens, resp.Usage.CompletionTokens
	}
	if resp != nil && promptTokens == 0 {
		if n, err := tokenizer.ForModel(req.Model).Count(req.Prompt); err == nil {
			promptTokens = n
		}
	}
	g.recorder.RecordGeneration(g.provider.Name(), req.Model, status, latency, promptTokens, completionTokens)
}

// traceID prefers an explicit id from the context, then the active span.
func traceID(ctx context.Context) string {
	if id, ok := ctxkeys.TraceID(ctx); ok {
		return id
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return ""
}
