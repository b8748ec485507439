package factory

import (
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/thoughtflow/llm"
	"github.com/BaSui01/thoughtflow/llm/providers"
	"github.com/BaSui01/thoughtflow/llm/providers/ollama"
	"github.com/BaSui01/thoughtflow/llm/providers/openai"
	"github.com/BaSui01/thoughtflow/llm/providers/openaicompat"
	"github.com/BaSui01/thoughtflow/types"
)

// ProviderConfig is the generic configuration accepted by the factory function.
// It uses a flat structure with an Extra map for provider-specific fields.
type ProviderConfig struct {
	APIKey          string         `json:"api_key" yaml:"api_key"`
	BaseURL         string         `json:"base_url" yaml:"base_url"`
	Model           string         `json:"model,omitempty" yaml:"model,omitempty"`
	Timeout         time.Duration  `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	MaxConnsPerHost int            `json:"max_conns_per_host,omitempty" yaml:"max_conns_per_host,omitempty"`
	Extra           map[string]any `json:"extra,omitempty" yaml:"extra,omitempty"`
}

type constructor func(cfg ProviderConfig, logger *zap.Logger) llm.Provider

var constructors = map[string]constructor{
	"local":  newLocal,
	"vllm":   newLocal,
	"vapi":   newVAPI,
	"openai": newOpenAI,
	"ollama": newOllama,
}

// NewProviderFromConfig creates a Provider instance based on the provider name
// and a generic ProviderConfig. Names are case-insensitive.
//
// Supported names: local, vllm, vapi, openai, ollama.
func NewProviderFromConfig(name string, cfg ProviderConfig, logger *zap.Logger) (llm.Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctor, ok := constructors[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, types.Errorf(types.ErrInvalidConfig,
			"unknown provider %q (supported: %s)", name, strings.Join(SupportedProviders(), ", "))
	}
	return ctor(cfg, logger), nil
}

// SupportedProviders returns the sorted provider names.
func SupportedProviders() []string {
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func newLocal(cfg ProviderConfig, logger *zap.Logger) llm.Provider {
	return openaicompat.New(openaicompat.Config{
		ProviderName:    "local",
		APIKey:          cfg.APIKey,
		BaseURL:         orDefault(cfg.BaseURL, providers.DefaultLocalBaseURL),
		DefaultModel:    cfg.Model,
		Timeout:         cfg.Timeout,
		MaxConnsPerHost: cfg.MaxConnsPerHost,
	}, logger)
}

func newVAPI(cfg ProviderConfig, logger *zap.Logger) llm.Provider {
	return openaicompat.New(openaicompat.Config{
		ProviderName:    "vapi",
		APIKey:          cfg.APIKey,
		BaseURL:         orDefault(cfg.BaseURL, providers.DefaultVAPIBaseURL),
		DefaultModel:    cfg.Model,
		Timeout:         cfg.Timeout,
		MaxConnsPerHost: cfg.MaxConnsPerHost,
	}, logger)
}

func newOpenAI(cfg ProviderConfig, logger *zap.Logger) llm.Provider {
	oc := providers.OpenAIConfig{BaseProviderConfig: base(cfg)}
	if v, ok := cfg.Extra["organization"].(string); ok {
		oc.Organization = v
	}
	return openai.NewProvider(oc, logger)
}

func newOllama(cfg ProviderConfig, logger *zap.Logger) llm.Provider {
	oc := providers.OllamaConfig{BaseProviderConfig: base(cfg)}
	switch v := cfg.Extra["top_k"].(type) {
	case int:
		oc.TopK = v
	case float64:
		oc.TopK = int(v)
	}
	return ollama.NewProvider(oc, logger)
}

func base(cfg ProviderConfig) providers.BaseProviderConfig {
	return providers.BaseProviderConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		Timeout: cfg.Timeout,
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
