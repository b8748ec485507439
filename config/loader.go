// =============================================================================
// 📦 Thoughtflow 配置加载器
// =============================================================================
// 统一配置加载，支持 .env + YAML 文件 + 环境变量覆盖
//
// 使用方法:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("config.yaml").
//	    WithEnvPrefix("THOUGHTFLOW").
//	    Load()
//
// 配置优先级: 默认值 → YAML 文件 → 环境变量
// =============================================================================
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/BaSui01/thoughtflow/internal/cache"
	"github.com/BaSui01/thoughtflow/internal/database"
	"github.com/BaSui01/thoughtflow/llm"
	"github.com/BaSui01/thoughtflow/search"
)

// DefaultEnvPrefix 环境变量前缀
const DefaultEnvPrefix = "THOUGHTFLOW"

// =============================================================================
// 🎯 核心配置结构
// =============================================================================

// Config 是 Thoughtflow 的完整配置结构
type Config struct {
	// Run 运行范围
	Run RunConfig `yaml:"run" env:"RUN"`

	// Search 搜索控制器参数
	Search search.Config `yaml:"search" env:"SEARCH"`

	// LLM 模型后端
	LLM LLMConfig `yaml:"llm" env:"LLM"`

	// Generator 生成器并发、限流与重试
	Generator llm.GeneratorConfig `yaml:"generator" env:"GENERATOR"`

	// Cache 评分缓存
	Cache cache.Config `yaml:"cache" env:"CACHE"`

	// Checkpoint 断点续跑存储
	Checkpoint CheckpointConfig `yaml:"checkpoint" env:"CHECKPOINT"`

	// Dataset 数据集
	Dataset DatasetConfig `yaml:"dataset" env:"DATASET"`

	// Log 日志配置
	Log LogConfig `yaml:"log" env:"LOG"`

	// Telemetry 遥测配置
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`

	// Metrics 指标导出
	Metrics MetricsConfig `yaml:"metrics" env:"METRICS"`
}

// RunConfig 运行配置
type RunConfig struct {
	// 任务名称
	Task string `yaml:"task" env:"TASK" validate:"required"`
	// 方法: bfs, naive, cot, pure_llm
	Method string `yaml:"method" env:"METHOD" validate:"required,oneof=bfs naive cot pure_llm"`
	// 起始下标（包含）
	Start int `yaml:"start" env:"START" validate:"gte=0"`
	// 结束下标（不包含），-1 表示到末尾
	End int `yaml:"end" env:"END" validate:"gte=-1"`
	// 分类报告输出目录
	ResultsDir string `yaml:"results_dir" env:"RESULTS_DIR" validate:"required"`
	// 打印每一步的候选与评分
	Verbose bool `yaml:"verbose" env:"VERBOSE"`
}

// LLMConfig LLM 配置
type LLMConfig struct {
	// Provider: local, vllm, vapi, openai, ollama
	Provider string `yaml:"provider" env:"PROVIDER" validate:"required,oneof=local vllm vapi openai ollama"`
	// API Key（为空时回退到 <PROVIDER>_API_KEY）
	APIKey string `yaml:"api_key" env:"API_KEY"`
	// 基础 URL（可选）
	BaseURL string `yaml:"base_url" env:"BASE_URL" validate:"omitempty,url"`
	// 请求超时
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT" validate:"gte=0"`
	// 每个主机最大连接数
	MaxConnsPerHost int `yaml:"max_conns_per_host" env:"MAX_CONNS_PER_HOST" validate:"gte=0"`
	// OpenAI 组织 ID
	Organization string `yaml:"organization" env:"ORGANIZATION"`
	// Ollama top_k
	TopK int `yaml:"top_k" env:"TOP_K" validate:"gte=0"`
}

// CheckpointConfig 断点存储配置
type CheckpointConfig struct {
	// 后端: file, memory, sqlite, postgres, mysql
	Backend string `yaml:"backend" env:"BACKEND" validate:"required,oneof=file memory sqlite postgres mysql"`
	// JSONL 文件所在目录
	Dir string `yaml:"dir" env:"DIR"`
	// 数据库连接串
	DSN string `yaml:"dsn" env:"DSN"`
	// 连接池
	Pool database.PoolConfig `yaml:"pool"`
}

// DatasetConfig 数据集配置
type DatasetConfig struct {
	// CSV 路径
	Path string `yaml:"path" env:"PATH"`
	// 是否附带自由文本摘要
	UseText bool `yaml:"use_text" env:"USE_TEXT"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL" validate:"oneof=debug info warn error"`
	// 输出格式: json, console
	Format string `yaml:"format" env:"FORMAT" validate:"oneof=json console"`
	// 输出路径
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// 滚动日志文件，为空则不写文件
	File string `yaml:"file" env:"FILE"`
	// 单个文件最大 MB
	MaxSizeMB int `yaml:"max_size_mb" env:"MAX_SIZE_MB" validate:"gte=0"`
	// 保留的旧文件数量
	MaxBackups int `yaml:"max_backups" env:"MAX_BACKUPS" validate:"gte=0"`
	// 旧文件保留天数
	MaxAgeDays int `yaml:"max_age_days" env:"MAX_AGE_DAYS" validate:"gte=0"`
	// 是否压缩旧文件
	Compress bool `yaml:"compress" env:"COMPRESS"`
	// 是否启用调用者信息
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
	// 是否启用堆栈跟踪
	EnableStacktrace bool `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// TelemetryConfig 遥测配置
type TelemetryConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// OTLP 端点
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT" validate:"required_if=Enabled true"`
	// 是否使用非 TLS 连接
	Insecure bool `yaml:"insecure" env:"INSECURE"`
	// 服务名称
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
	// 采样率
	SampleRate float64 `yaml:"sample_rate" env:"SAMPLE_RATE" validate:"gte=0,lte=1"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	// 指标命名空间
	Namespace string `yaml:"namespace" env:"NAMESPACE"`
	// 运行结束时写出的 textfile 路径，为空则不写
	TextfilePath string `yaml:"textfile_path" env:"TEXTFILE_PATH"`
}

// =============================================================================
// 🔧 配置加载器
// =============================================================================

// Loader 配置加载器（Builder 模式）
type Loader struct {
	configPath string
	envPrefix  string
	dotEnv     []string
	useDotEnv  bool
	validators []func(*Config) error
}

// NewLoader 创建新的配置加载器
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  DefaultEnvPrefix,
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath 设置配置文件路径
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix 设置环境变量前缀
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithDotEnv 加载 .env 文件（不覆盖已存在的环境变量）。
// 不传路径时读取当前目录的 .env。
func (l *Loader) WithDotEnv(paths ...string) *Loader {
	l.useDotEnv = true
	l.dotEnv = append(l.dotEnv, paths...)
	return l
}

// WithValidator 添加配置验证器
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load 加载配置
// 优先级: 默认值 → YAML 文件 → 环境变量
func (l *Loader) Load() (*Config, error) {
	// 1. 从默认值开始
	cfg := DefaultConfig()

	// 2. .env 只填充尚未设置的环境变量
	if l.useDotEnv {
		if err := l.loadDotEnv(); err != nil {
			return nil, fmt.Errorf("failed to load dotenv: %w", err)
		}
	}

	// 3. 如果指定了配置文件，从文件加载
	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// 4. 从环境变量覆盖
	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}
	cfg.LLM.applyKeyFallback()

	// 5. 运行验证器
	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

func (l *Loader) loadDotEnv() error {
	paths := l.dotEnv
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	existing := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

// loadFromFile 从 YAML 文件加载配置
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// 文件不存在，使用默认值
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// loadFromEnv 从环境变量加载配置
func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

// setFieldsFromEnv 递归设置结构体字段
func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		// 如果是结构体（time.Duration 除外），递归处理
		if field.Kind() == reflect.Struct {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

// setFieldValue 设置字段值
func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		// 特殊处理 time.Duration
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetUint(u)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Slice:
		// 支持逗号分隔的字符串切片
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
}

// applyKeyFallback 读取 VAPI_API_KEY / OPENAI_API_KEY 这类按后端命名的密钥
func (c *LLMConfig) applyKeyFallback() {
	if c.APIKey != "" || c.Provider == "" {
		return
	}
	name := strings.ToUpper(c.Provider) + "_API_KEY"
	c.APIKey = os.Getenv(name)
}

// =============================================================================
// 🔍 辅助函数
// =============================================================================

// MustLoad 加载配置，失败时 panic
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// LoadFromEnv 仅从环境变量加载配置
func LoadFromEnv() (*Config, error) {
	return NewLoader().Load()
}
