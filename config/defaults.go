// =============================================================================
// 📦 Thoughtflow 默认配置
// =============================================================================
package config

import (
	"time"

	"github.com/BaSui01/thoughtflow/internal/cache"
	"github.com/BaSui01/thoughtflow/internal/database"
	"github.com/BaSui01/thoughtflow/llm"
	"github.com/BaSui01/thoughtflow/search"
)

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Run:        DefaultRunConfig(),
		Search:     search.DefaultConfig(),
		LLM:        DefaultLLMConfig(),
		Generator:  llm.DefaultGeneratorConfig(),
		Cache:      cache.DefaultConfig(),
		Checkpoint: DefaultCheckpointConfig(),
		Dataset:    DefaultDatasetConfig(),
		Log:        DefaultLogConfig(),
		Telemetry:  DefaultTelemetryConfig(),
		Metrics:    DefaultMetricsConfig(),
	}
}

// DefaultRunConfig 返回默认运行配置
func DefaultRunConfig() RunConfig {
	return RunConfig{
		Task:       "thyroid_lab",
		Method:     "bfs",
		Start:      0,
		End:        -1,
		ResultsDir: "results",
	}
}

// DefaultLLMConfig 返回默认 LLM 配置
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		Provider:        "local",
		Timeout:         60 * time.Second,
		MaxConnsPerHost: 16,
	}
}

// DefaultCheckpointConfig 返回默认断点配置
func DefaultCheckpointConfig() CheckpointConfig {
	return CheckpointConfig{
		Backend: "file",
		Dir:     "outputs",
		Pool:    database.DefaultPoolConfig(),
	}
}

// DefaultDatasetConfig 返回默认数据集配置
func DefaultDatasetConfig() DatasetConfig {
	return DatasetConfig{
		Path: "data/thyroid_lab.csv",
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "console",
		OutputPaths:      []string{"stderr"},
		MaxSizeMB:        10,
		MaxBackups:       5,
		MaxAgeDays:       30,
		Compress:         true,
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		Insecure:     true,
		ServiceName:  "thoughtflow",
		SampleRate:   1.0,
	}
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "thoughtflow",
	}
}
