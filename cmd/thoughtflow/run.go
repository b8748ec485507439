package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BaSui01/thoughtflow/checkpoint"
	"github.com/BaSui01/thoughtflow/config"
	"github.com/BaSui01/thoughtflow/evaluation"
	"github.com/BaSui01/thoughtflow/internal/cache"
	"github.com/BaSui01/thoughtflow/internal/logger"
	"github.com/BaSui01/thoughtflow/internal/metrics"
	"github.com/BaSui01/thoughtflow/internal/runner"
	"github.com/BaSui01/thoughtflow/internal/telemetry"
	"github.com/BaSui01/thoughtflow/llm"
	"github.com/BaSui01/thoughtflow/llm/factory"
	"github.com/BaSui01/thoughtflow/search"
	"github.com/BaSui01/thoughtflow/tasks"
	"github.com/BaSui01/thoughtflow/types"
)

// =============================================================================
// 🖥️ run 命令
// =============================================================================

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Solve dataset items with tree-of-thought search and write an evaluation report",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			noColor, _ := cmd.Flags().GetBool("no-color")

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runBatch(ctx, cfg, cmd.OutOrStdout(), noColor)
		},
	}

	addConfigFlags(cmd)
	f := cmd.Flags()
	f.String("task", "", "Task name (thyroid_lab)")
	f.String("method", "", "Solve method: bfs, naive, cot or pure_llm")
	f.String("method-generate", "", "Candidate generation: sample or propose")
	f.String("method-evaluate", "", "Candidate evaluation: value or vote")
	f.String("method-select", "", "Candidate selection: greedy or sample")
	f.Int("n-generate", 0, "Samples per frontier entry")
	f.Int("n-evaluate", 0, "Evaluation samples per candidate")
	f.Int("n-select", 0, "Beam width")
	f.Int("n-generate-cot", 0, "Self-consistency samples for the cot method")
	f.Float64("temperature", 0, "Sampling temperature")
	f.String("backend", "", "Model name sent to the provider")
	f.String("provider", "", "Model provider: local, vllm, vapi, openai, ollama")
	f.Int("start", 0, "First item index")
	f.Int("end", 0, "Item index to stop before; -1 runs to the end")
	f.Bool("use-text", false, "Append the clinical text summary to each input")
	f.String("data", "", "Dataset CSV path")
	f.Bool("verbose", false, "Print every search step and enable debug logging")
	f.Bool("no-color", false, "Disable colored step output")
	return cmd
}

// addConfigFlags 注册配置文件相关参数
func addConfigFlags(cmd *cobra.Command) {
	cmd.Flags().String("config", "", "Path to config file")
	cmd.Flags().StringSlice("dotenv", nil, "Dotenv files to load before reading the environment")
}

// loadConfig 默认值 → .env → YAML → 环境变量 → 命令行参数，最后验证
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	dotenv, _ := cmd.Flags().GetStringSlice("dotenv")

	cfg, err := config.NewLoader().WithConfigPath(path).WithDotEnv(dotenv...).Load()
	if err != nil {
		return nil, err
	}
	applyRunFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyRunFlags 只覆盖用户显式传入的参数
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	str := func(name string, dst *string) {
		if f.Changed(name) {
			*dst, _ = f.GetString(name)
		}
	}
	num := func(name string, dst *int) {
		if f.Changed(name) {
			*dst, _ = f.GetInt(name)
		}
	}
	flag := func(name string, dst *bool) {
		if f.Changed(name) {
			*dst, _ = f.GetBool(name)
		}
	}

	str("task", &cfg.Run.Task)
	str("method", &cfg.Run.Method)
	str("backend", &cfg.Search.Model)
	str("provider", &cfg.LLM.Provider)
	str("data", &cfg.Dataset.Path)
	num("n-generate", &cfg.Search.NGenerate)
	num("n-evaluate", &cfg.Search.NEvaluate)
	num("n-select", &cfg.Search.NSelect)
	num("n-generate-cot", &cfg.Search.NConsistency)
	num("start", &cfg.Run.Start)
	num("end", &cfg.Run.End)
	flag("use-text", &cfg.Dataset.UseText)
	flag("verbose", &cfg.Run.Verbose)

	if f.Changed("method-generate") {
		v, _ := f.GetString("method-generate")
		cfg.Search.GenerateMode = search.GenerateMode(v)
	}
	if f.Changed("method-evaluate") {
		v, _ := f.GetString("method-evaluate")
		cfg.Search.EvaluateMode = search.EvaluateMode(v)
	}
	if f.Changed("method-select") {
		v, _ := f.GetString("method-select")
		cfg.Search.SelectMode = search.SelectMode(v)
	}
	if f.Changed("temperature") {
		cfg.Search.Temperature, _ = f.GetFloat64("temperature")
	}
	if cfg.Run.Verbose {
		cfg.Log.Level = "debug"
	}
}

// runBatch 组装依赖并执行一次批处理
func runBatch(ctx context.Context, cfg *config.Config, out io.Writer, noColor bool) error {
	log, closeLog, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer closeLog()

	log.Info("Starting Thoughtflow",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
		zap.String("task", cfg.Run.Task),
		zap.String("method", cfg.Run.Method),
		zap.String("model", cfg.Search.Model),
	)

	otelProviders, err := telemetry.Init(cfg.Telemetry, log)
	if err != nil {
		log.Warn("failed to initialize telemetry", zap.Error(err))
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := otelProviders.Shutdown(shutdownCtx); err != nil {
				log.Warn("telemetry shutdown failed", zap.Error(err))
			}
		}()
	}

	collector := metrics.NewCollector(cfg.Metrics.Namespace, log)

	provider, err := factory.NewProviderFromConfig(cfg.LLM.Provider, providerConfig(cfg), log)
	if err != nil {
		return err
	}
	gen := llm.NewProviderGenerator(provider, cfg.Generator,
		llm.WithRecorder(collector),
		llm.WithGeneratorLogger(log),
	)

	valueCache, err := cache.New(cfg.Cache, log)
	if err != nil {
		return fmt.Errorf("open value cache: %w", err)
	}
	defer valueCache.Close()

	task, err := tasks.New(cfg.Run.Task, tasks.Options{
		DataPath: cfg.Dataset.Path,
		UseText:  cfg.Dataset.UseText,
		Cache:    valueCache,
		Logger:   log,
	})
	if err != nil {
		return err
	}

	store, metricsPath, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()

	observers := []search.Observer{collector}
	if cfg.Run.Verbose {
		observers = append(observers, runner.NewPrinter(out, noColor))
	}
	registry, err := search.NewDefaultRegistry(cfg.Search, gen,
		search.WithLogger(log),
		search.WithObserver(search.MultiObserver(observers...)),
	)
	if err != nil {
		return err
	}
	method, ok := registry.Get(cfg.Run.Method)
	if !ok {
		return types.Errorf(types.ErrInvalidConfig, "unknown method %q (supported: %v)", cfg.Run.Method, registry.List())
	}

	r := runner.New(method, task, store,
		runner.WithLogger(log),
		runner.WithRecorder(collector),
	)
	summary, runErr := r.Run(ctx, cfg.Run.Start, cfg.Run.End)

	if gs, ok := store.(*checkpoint.GormStore); ok {
		stats := gs.Pool().Stats()
		collector.RecordDBConnections(cfg.Checkpoint.Backend, stats.OpenConnections, stats.Idle)
	}
	if cfg.Metrics.TextfilePath != "" {
		if err := collector.WriteTextfile(cfg.Metrics.TextfilePath); err != nil {
			log.Warn("failed to write metrics textfile", zap.Error(err))
		}
	}
	if runErr != nil {
		return runErr
	}

	fmt.Fprintf(out, "run %s: processed=%d skipped=%d failed=%d\n",
		summary.RunID, summary.Processed, summary.Skipped, summary.Failed)
	if summary.Report == nil {
		fmt.Fprintln(out, "no valid predictions, report skipped")
		return nil
	}

	csvPath, err := runner.WriteReport(summary.Report, cfg.Run.ResultsDir, metricsPath,
		cfg.Search.Model, cfg.Run.Method, time.Now())
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	fmt.Fprintf(out, "accuracy=%.4f valid=%d ignored=%d\n",
		summary.Report.Accuracy, summary.Report.Valid, summary.Report.Ignored)
	fmt.Fprintf(out, "report: %s\nmetrics: %s\n", csvPath, metricsPath)
	return nil
}

// providerConfig 把 LLM 配置转换为工厂参数
func providerConfig(cfg *config.Config) factory.ProviderConfig {
	extra := map[string]any{}
	if cfg.LLM.Organization != "" {
		extra["organization"] = cfg.LLM.Organization
	}
	if cfg.LLM.TopK > 0 {
		extra["top_k"] = cfg.LLM.TopK
	}
	return factory.ProviderConfig{
		APIKey:          cfg.LLM.APIKey,
		BaseURL:         cfg.LLM.BaseURL,
		Model:           cfg.Search.Model,
		Timeout:         cfg.LLM.Timeout,
		MaxConnsPerHost: cfg.LLM.MaxConnsPerHost,
		Extra:           extra,
	}
}

// openStore 按后端打开断点存储，并返回摘要 JSON 的路径
func openStore(cfg *config.Config, log *zap.Logger) (checkpoint.Store, string, error) {
	name := checkpoint.Name(cfg.Run.Method, cfg.Search.Model, cfg.Dataset.UseText)
	summaryPath := filepath.Join(cfg.Run.ResultsDir, name+"_metrics.json")

	switch cfg.Checkpoint.Backend {
	case "file":
		path := filepath.Join(cfg.Checkpoint.Dir, checkpoint.FileName(cfg.Run.Method, cfg.Search.Model, cfg.Dataset.UseText))
		store, err := checkpoint.NewFileStore(path, log)
		if err != nil {
			return nil, "", err
		}
		return store, evaluation.MetricsPath(path), nil
	case "memory":
		return checkpoint.NewMemoryStore(), summaryPath, nil
	case "sqlite", "postgres", "mysql":
		store, err := checkpoint.OpenGormStore(cfg.Checkpoint.Backend, cfg.Checkpoint.DSN, cfg.Checkpoint.Pool, name, log)
		if err != nil {
			return nil, "", err
		}
		return store, summaryPath, nil
	default:
		return nil, "", types.Errorf(types.ErrInvalidConfig, "unknown checkpoint backend %q", cfg.Checkpoint.Backend)
	}
}
