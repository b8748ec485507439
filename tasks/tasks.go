// Package tasks 定义数据集任务接口与按名称创建任务的注册表。
package tasks

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/BaSui01/thoughtflow/search"
	"github.com/BaSui01/thoughtflow/tasks/thyroid"
	"github.com/BaSui01/thoughtflow/types"
)

// Task 是批处理可运行的任务：支持三种评估/生成方式与单提示分类，并带有标签
type Task interface {
	search.ValueTask
	search.VoteTask
	search.ProposeTask
	search.LabelTask

	// Len 样本数
	Len() int
	// ItemID 样本的外部标识
	ItemID(idx int) string
	// Answer 真实标签
	Answer(idx int) int
	// FormatOutput 从最终输出解析标签，失败返回 -1
	FormatOutput(output string) int
	// TestOutput 输出是否与真实标签一致
	TestOutput(idx int, output string) bool
}

// Options 任务通用选项
type Options struct {
	DataPath string
	UseText  bool
	// Input 任务特定的输入模式，空值使用任务默认
	Input  string
	Cache  search.ValueCache
	Logger *zap.Logger
}

// Factory 任务构造函数
type Factory func(opts Options) (Task, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{
		thyroid.Name: newThyroid,
	}
)

func newThyroid(opts Options) (Task, error) {
	t, err := thyroid.New(thyroid.Options{
		DataPath: opts.DataPath,
		UseText:  opts.UseText,
		Input:    thyroid.InputMode(opts.Input),
		Cache:    opts.Cache,
		Logger:   opts.Logger,
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Register 注册任务；重复名称返回错误
func Register(name string, f Factory) error {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || f == nil {
		return types.NewError(types.ErrInvalidConfig, "task name and factory are required")
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[name]; exists {
		return types.Errorf(types.ErrInvalidConfig, "task %q already registered", name)
	}
	registry[name] = f
	return nil
}

// New 按名称创建任务
func New(name string, opts Options) (Task, error) {
	registryMu.RLock()
	f, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	registryMu.RUnlock()
	if !ok {
		return nil, types.Errorf(types.ErrInvalidConfig, "unknown task %q (supported: %s)", name, strings.Join(Names(), ", "))
	}
	task, err := f(opts)
	if err != nil {
		return nil, fmt.Errorf("create task %s: %w", name, err)
	}
	return task, nil
}

// Names 返回已注册任务名（排序）
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
