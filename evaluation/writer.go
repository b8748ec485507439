package evaluation

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Summary 是写入 *_metrics.json 的精简摘要
type Summary struct {
	Model    string                  `json:"model"`
	Method   string                  `json:"method"`
	Accuracy float64                 `json:"accuracy"`
	Macro    Averages                `json:"macro"`
	Weighted Averages                `json:"weighted"`
	PerClass map[string]ClassMetrics `json:"per_class"`
}

// Averages 不带 support 的平均指标
type Averages struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
}

// Summarize 生成摘要；空 method 记为 unknown
func (r *Report) Summarize(model, method string) Summary {
	if method == "" {
		method = "unknown"
	}
	return Summary{
		Model:    model,
		Method:   method,
		Accuracy: r.Accuracy,
		Macro:    Averages{Precision: r.Macro.Precision, Recall: r.Macro.Recall, F1: r.Macro.F1},
		Weighted: Averages{Precision: r.Weighted.Precision, Recall: r.Weighted.Recall, F1: r.Weighted.F1},
		PerClass: r.PerClass,
	}
}

// CSVFileName 返回 {model}_{method}_{YYYYmmdd_HHMMSS}_classification_report.csv
func CSVFileName(model, method string, at time.Time) string {
	if model == "" {
		model = "model"
	}
	if method == "" {
		method = "default"
	}
	return fmt.Sprintf("%s_%s_%s_classification_report.csv",
		strings.ReplaceAll(model, "/", "_"), method, at.Format("20060102_150405"))
}

// WriteCSV 在 dir 下写出分类报告，返回文件路径
func WriteCSV(r *Report, dir, model, method string, at time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create results dir: %w", err)
	}
	path := filepath.Join(dir, CSVFileName(model, method, at))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create report: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	rows := [][]string{{"", "precision", "recall", "f1-score", "support"}}
	for _, label := range Labels {
		key := strconv.Itoa(label)
		rows = append(rows, metricsRow(key, r.PerClass[key]))
	}
	acc := formatFloat(r.Accuracy)
	rows = append(rows,
		[]string{"accuracy", "", "", acc, strconv.Itoa(r.Valid)},
		metricsRow("macro avg", r.Macro),
		metricsRow("weighted avg", r.Weighted),
	)
	if err := w.WriteAll(rows); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, f.Close()
}

// MetricsPath 由断点文件路径推导 *_metrics.json 路径
func MetricsPath(predictionsPath string) string {
	for _, suffix := range []string{"_predictions.jsonl", "_predictions.json"} {
		if strings.HasSuffix(predictionsPath, suffix) {
			return strings.TrimSuffix(predictionsPath, suffix) + "_metrics.json"
		}
	}
	return strings.TrimSuffix(predictionsPath, filepath.Ext(predictionsPath)) + "_metrics.json"
}

// WriteSummaryJSON 写出缩进的摘要 JSON
func WriteSummaryJSON(s Summary, path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create metrics dir: %w", err)
		}
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func metricsRow(name string, m ClassMetrics) []string {
	return []string{
		name,
		formatFloat(m.Precision),
		formatFloat(m.Recall),
		formatFloat(m.F1),
		strconv.Itoa(m.Support),
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
