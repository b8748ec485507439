package evaluation

import (
	"errors"
	"fmt"
	"strconv"
)

// Unparsed 表示无法解析的预测
const Unparsed = -1

// ErrNoValidPredictions 过滤 -1 后没有可评估的样本
var ErrNoValidPredictions = errors.New("no valid predictions to evaluate")

// Labels 报告固定包含的类别
var Labels = []int{0, 1}

// ClassMetrics 单个类别或平均值的指标
type ClassMetrics struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1-score"`
	Support   int     `json:"support"`
}

// Report 二分类报告
type Report struct {
	Accuracy float64                 `json:"accuracy"`
	PerClass map[string]ClassMetrics `json:"per_class"`
	Macro    ClassMetrics            `json:"macro"`
	Weighted ClassMetrics            `json:"weighted"`
	// Valid 参与计算的样本数
	Valid int `json:"valid"`
	// Ignored 被过滤的 -1 预测数
	Ignored int `json:"ignored"`
}

// Evaluate 过滤 -1 预测后计算报告。分母为 0 的指标记为 0。
func Evaluate(yTrue, yPred []int) (*Report, error) {
	if len(yTrue) != len(yPred) {
		return nil, fmt.Errorf("label length mismatch: %d true vs %d predicted", len(yTrue), len(yPred))
	}

	var trueKept, predKept []int
	for i, p := range yPred {
		if p == Unparsed {
			continue
		}
		trueKept = append(trueKept, yTrue[i])
		predKept = append(predKept, p)
	}
	if len(predKept) == 0 {
		return nil, ErrNoValidPredictions
	}

	report := &Report{
		PerClass: make(map[string]ClassMetrics, len(Labels)),
		Valid:    len(predKept),
		Ignored:  len(yPred) - len(predKept),
	}

	correct := 0
	for i := range predKept {
		if predKept[i] == trueKept[i] {
			correct++
		}
	}
	report.Accuracy = float64(correct) / float64(len(predKept))

	totalSupport := 0
	for _, label := range Labels {
		var tp, fp, fn int
		for i := range predKept {
			switch {
			case predKept[i] == label && trueKept[i] == label:
				tp++
			case predKept[i] == label:
				fp++
			case trueKept[i] == label:
				fn++
			}
		}
		m := ClassMetrics{
			Precision: ratio(tp, tp+fp),
			Recall:    ratio(tp, tp+fn),
			Support:   tp + fn,
		}
		if m.Precision+m.Recall > 0 {
			m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
		}
		report.PerClass[strconv.Itoa(label)] = m

		report.Macro.Precision += m.Precision
		report.Macro.Recall += m.Recall
		report.Macro.F1 += m.F1
		report.Weighted.Precision += m.Precision * float64(m.Support)
		report.Weighted.Recall += m.Recall * float64(m.Support)
		report.Weighted.F1 += m.F1 * float64(m.Support)
		totalSupport += m.Support
	}

	n := float64(len(Labels))
	report.Macro.Precision /= n
	report.Macro.Recall /= n
	report.Macro.F1 /= n
	report.Macro.Support = totalSupport
	if totalSupport > 0 {
		report.Weighted.Precision /= float64(totalSupport)
		report.Weighted.Recall /= float64(totalSupport)
		report.Weighted.F1 /= float64(totalSupport)
	}
	report.Weighted.Support = totalSupport

	return report, nil
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}
