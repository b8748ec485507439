// =============================================================================
// Thoughtflow 主入口
// =============================================================================
// 思维树批量推理命令行，包含断点续跑、评估报告、Prometheus 指标
//
// 使用方法:
//
//	thoughtflow run                              # 使用默认配置运行
//	thoughtflow run --config config.yaml         # 指定配置文件
//	thoughtflow run --method naive --end 10      # 朴素采样前 10 条
//	thoughtflow run --method cot --n-generate-cot 7  # 自洽投票
//	thoughtflow health --provider ollama         # 模型后端健康检查
//	thoughtflow version                          # 显示版本信息
// =============================================================================

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// =============================================================================
// 🎯 主函数
// =============================================================================

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "thoughtflow",
		Short:         "Tree-of-thought batch inference over labelled datasets",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd(), newHealthCmd(), newVersionCmd())
	return root
}

// =============================================================================
// 📋 version 命令
// =============================================================================

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show build information",
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Thoughtflow %s\n", Version)
			fmt.Fprintf(out, "  Build Time: %s\n", BuildTime)
			fmt.Fprintf(out, "  Git Commit: %s\n", GitCommit)
		},
	}
}
