package providers

import "time"

// BaseProviderConfig 所有 Provider 共享的基础配置字段。
type BaseProviderConfig struct {
	APIKey  string        `json:"api_key" yaml:"api_key" env:"API_KEY"`
	BaseURL string        `json:"base_url" yaml:"base_url" env:"BASE_URL"`
	Model   string        `json:"model,omitempty" yaml:"model,omitempty" env:"MODEL"`
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty" env:"TIMEOUT"`
}

// 各后端默认地址
const (
	DefaultLocalBaseURL  = "http://localhost:8000"
	DefaultVAPIBaseURL   = "https://api.gpt.ge"
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	DefaultOllamaBaseURL = "http://localhost:11434"
)

// OpenAIConfig OpenAI 官方 API 配置。
type OpenAIConfig struct {
	BaseProviderConfig `yaml:",inline"`
	Organization       string `json:"organization,omitempty" yaml:"organization,omitempty" env:"ORGANIZATION"`
}

// OllamaConfig Ollama 本地推理服务配置。
type OllamaConfig struct {
	BaseProviderConfig `yaml:",inline"`
	// TopK 为 0 时交由 Ollama 使用模型默认值。
	TopK int `json:"top_k,omitempty" yaml:"top_k,omitempty" env:"TOP_K"`
}
