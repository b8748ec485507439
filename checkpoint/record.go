package checkpoint

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/BaSui01/thoughtflow/search"
)

// Record 是一个样本的求解结果
type Record struct {
	RunID       string              `json:"run_id,omitempty"`
	ExampleID   int                 `json:"example_id"`
	SubjectID   string              `json:"subject_id"`
	Input       string              `json:"input"`
	FinalOutput string              `json:"final_output"`
	Steps       []search.StepRecord `json:"steps"`
	// Samples/Parsed 非搜索方法的原始回答及逐条解析的标签
	Samples   []search.Candidate `json:"samples,omitempty"`
	Parsed    []int              `json:"parsed,omitempty"`
	Correct   bool               `json:"correct"`
	YPred     int                `json:"y_pred"`
	YTrue     int                `json:"y_true"`
	CreatedAt time.Time          `json:"created_at"`
}

// Store 断点存储
type Store interface {
	// Load 按写入顺序返回全部记录
	Load(ctx context.Context) ([]Record, error)
	Append(ctx context.Context, rec Record) error
	Close() error
}

// SafeModelName 替换模型名中不能出现在文件名里的字符
func SafeModelName(model string) string {
	return strings.NewReplacer(":", "_", "/", "_").Replace(model)
}

// Name 返回一次运行的断点名，例如 llm_bfs_DeepSeek-V2-16B_no_text
func Name(method, model string, useText bool) string {
	text := "no_text"
	if useText {
		text = "with_text"
	}
	return fmt.Sprintf("llm_%s_%s_%s", method, SafeModelName(model), text)
}

// FileName 返回 JSONL 断点文件名
func FileName(method, model string, useText bool) string {
	return Name(method, model, useText) + "_predictions.jsonl"
}

// DoneIDs 返回已完成样本的下标集合
func DoneIDs(records []Record) map[int]struct{} {
	done := make(map[int]struct{}, len(records))
	for _, r := range records {
		done[r.ExampleID] = struct{}{}
	}
	return done
}

// Labels 按记录顺序提取真实标签与预测标签
func Labels(records []Record) (yTrue, yPred []int) {
	yTrue = make([]int, 0, len(records))
	yPred = make([]int, 0, len(records))
	for _, r := range records {
		yTrue = append(yTrue, r.YTrue)
		yPred = append(yPred, r.YPred)
	}
	return yTrue, yPred
}
