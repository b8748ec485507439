package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BaSui01/thoughtflow/llm"
	"github.com/BaSui01/thoughtflow/llm/factory"
)

// =============================================================================
// 🏥 health 命令
// =============================================================================

func newHealthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check that the configured model provider is reachable",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			timeout, _ := cmd.Flags().GetDuration("timeout")

			provider, err := factory.NewProviderFromConfig(cfg.LLM.Provider, providerConfig(cfg), zap.NewNop())
			if err != nil {
				return err
			}
			return checkHealth(cmd.Context(), provider, timeout, cmd.OutOrStdout())
		},
	}
	addConfigFlags(cmd)
	cmd.Flags().String("provider", "", "Model provider: local, vllm, vapi, openai, ollama")
	cmd.Flags().String("backend", "", "Model name sent to the provider")
	cmd.Flags().Duration("timeout", 5*time.Second, "Health check timeout")
	return cmd
}

func checkHealth(ctx context.Context, provider llm.Provider, timeout time.Duration, out io.Writer) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	status, err := provider.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if !status.Healthy {
		return fmt.Errorf("provider %s unhealthy: %s", provider.Name(), status.Message)
	}
	fmt.Fprintf(out, "✅ %s healthy (%s)\n", provider.Name(), status.Latency.Round(time.Millisecond))
	return nil
}
