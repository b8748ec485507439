// Package runner 逐个样本执行搜索方法，写入断点并汇总评估。
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/thoughtflow/checkpoint"
	"github.com/BaSui01/thoughtflow/evaluation"
	"github.com/BaSui01/thoughtflow/internal/ctxkeys"
	"github.com/BaSui01/thoughtflow/search"
	"github.com/BaSui01/thoughtflow/tasks"
)

// EvaluationRecorder 接收最终评估结果
type EvaluationRecorder interface {
	RecordEvaluation(accuracy float64, valid int)
}

// Summary 一次批处理的结果
type Summary struct {
	RunID     string
	Processed int
	Skipped   int
	Failed    int
	YTrue     []int
	YPred     []int
	// Report 没有有效预测时为 nil
	Report *evaluation.Report
}

// Runner 批处理执行器
type Runner struct {
	method   search.Method
	task     tasks.Task
	store    checkpoint.Store
	recorder EvaluationRecorder
	runID    string
	now      func() time.Time
	logger   *zap.Logger
}

// Option 配置 Runner
type Option func(*Runner)

// WithLogger 设置日志器
func WithLogger(logger *zap.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithRecorder 设置评估指标接收者
func WithRecorder(rec EvaluationRecorder) Option {
	return func(r *Runner) { r.recorder = rec }
}

// WithRunID 指定运行 ID，默认随机 UUID
func WithRunID(id string) Option {
	return func(r *Runner) {
		if id != "" {
			r.runID = id
		}
	}
}

// New 创建 Runner
func New(method search.Method, task tasks.Task, store checkpoint.Store, opts ...Option) *Runner {
	r := &Runner{
		method: method,
		task:   task,
		store:  store,
		runID:  uuid.NewString(),
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With(zap.String("component", "runner"), zap.String("method", method.Name()))
	return r
}

// RunID 返回本次运行 ID
func (r *Runner) RunID() string { return r.runID }

// Run 处理 [start, end) 范围内尚未完成的样本。end < 0 或超出数据集时取数据集末尾。
// 单个样本失败只记录并跳过，不写断点；上下文取消时立即返回。
func (r *Runner) Run(ctx context.Context, start, end int) (*Summary, error) {
	ctx = ctxkeys.WithRunID(ctx, r.runID)

	records, err := r.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}
	done := checkpoint.DoneIDs(records)
	yTrue, yPred := checkpoint.Labels(records)
	if len(records) > 0 {
		r.logger.Info("resuming from checkpoint", zap.Int("done", len(records)))
	} else {
		r.logger.Info("starting from scratch")
	}

	n := r.task.Len()
	if end < 0 || end > n {
		end = n
	}
	if start < 0 {
		start = 0
	}

	summary := &Summary{RunID: r.runID}
	for i := start; i < end; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, ok := done[i]; ok {
			summary.Skipped++
			continue
		}

		rec, err := r.solveOne(ctx, i)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			summary.Failed++
			r.logger.Error("item failed", zap.Int("item", i), zap.String("subject_id", r.task.ItemID(i)), zap.Error(err))
			continue
		}
		if err := r.store.Append(ctx, rec); err != nil {
			return nil, fmt.Errorf("append checkpoint for item %d: %w", i, err)
		}
		yTrue = append(yTrue, rec.YTrue)
		yPred = append(yPred, rec.YPred)
		summary.Processed++
	}

	summary.YTrue, summary.YPred = yTrue, yPred
	report, err := evaluation.Evaluate(yTrue, yPred)
	switch {
	case errors.Is(err, evaluation.ErrNoValidPredictions):
		r.logger.Warn("no valid predictions to evaluate", zap.Int("predictions", len(yPred)))
	case err != nil:
		return nil, fmt.Errorf("evaluate: %w", err)
	default:
		summary.Report = report
		if report.Ignored > 0 {
			r.logger.Info("unparsed predictions ignored", zap.Int("ignored", report.Ignored), zap.Int("valid", report.Valid))
		}
		if r.recorder != nil {
			r.recorder.RecordEvaluation(report.Accuracy, report.Valid)
		}
	}

	r.logger.Info("run finished",
		zap.Int("processed", summary.Processed),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed))
	return summary, nil
}

func (r *Runner) solveOne(ctx context.Context, idx int) (checkpoint.Record, error) {
	subjectID := r.task.ItemID(idx)
	ctx = ctxkeys.WithItemID(ctx, subjectID)

	input, err := r.task.Input(idx)
	if err != nil {
		return checkpoint.Record{}, err
	}
	r.logger.Debug("solving item", zap.Int("item", idx), zap.String("subject_id", subjectID))

	res, err := r.method.Solve(ctx, r.task, idx)
	if err != nil {
		return checkpoint.Record{}, err
	}
	final, _ := res.BestCandidate()
	pred := r.task.FormatOutput(final)
	truth := r.task.Answer(idx)

	return checkpoint.Record{
		RunID:       r.runID,
		ExampleID:   idx,
		SubjectID:   subjectID,
		Input:       input,
		FinalOutput: final,
		Steps:       res.Steps,
		Samples:     res.Samples,
		Parsed:      res.Parsed,
		Correct:     pred != evaluation.Unparsed && pred == truth,
		YPred:       pred,
		YTrue:       truth,
		CreatedAt:   r.now().UTC(),
	}, nil
}

// WriteReport 写出分类报告 CSV 与摘要 JSON，返回两个路径
func WriteReport(report *evaluation.Report, resultsDir, metricsPath, model, method string, at time.Time) (csvPath string, err error) {
	csvPath, err = evaluation.WriteCSV(report, resultsDir, checkpoint.SafeModelName(model), method, at)
	if err != nil {
		return "", err
	}
	if metricsPath != "" {
		if err := evaluation.WriteSummaryJSON(report.Summarize(checkpoint.SafeModelName(model), method), metricsPath); err != nil {
			return csvPath, err
		}
	}
	return csvPath, nil
}
