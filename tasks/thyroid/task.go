package thyroid

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/thoughtflow/search"
	"github.com/BaSui01/thoughtflow/types"
)

// Name 任务注册名
const Name = "thyroid_lab"

// NumSteps 搜索深度
const NumSteps = 3

// InputMode 选择作为搜索输入的文本块
type InputMode string

const (
	// InputLab 原始化验值
	InputLab InputMode = "lab"
	// InputFlag 程序计算的 HIGH/LOW/NORMAL 判断
	InputFlag InputMode = "flag"
)

var (
	labelPattern = regexp.MustCompile(`\b([01])\b`)
	valueOne     = regexp.MustCompile(`^1\b`)
	valueZero    = regexp.MustCompile(`^0\b`)
)

// Options 任务选项
type Options struct {
	// DataPath CSV 路径
	DataPath string
	// UseText 在输入末尾附加 text_summary 列
	UseText bool
	// Input 默认 InputLab
	Input InputMode
	// Cache 评分缓存；nil 时使用任务私有的 MapCache
	Cache  search.ValueCache
	Logger *zap.Logger
}

// Task 甲状腺化验分类任务
type Task struct {
	patients []*patient
	useText  bool
	input    InputMode
	cache    search.ValueCache
	logger   *zap.Logger
}

// New 加载数据集并创建任务
func New(opts Options) (*Task, error) {
	if opts.DataPath == "" {
		return nil, types.NewError(types.ErrInvalidConfig, "thyroid: data path is required")
	}
	patients, err := loadPatients(opts.DataPath)
	if err != nil {
		return nil, fmt.Errorf("thyroid: %w", err)
	}
	return newTask(patients, opts)
}

func newTask(patients []*patient, opts Options) (*Task, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	switch opts.Input {
	case "":
		opts.Input = InputLab
	case InputLab, InputFlag:
	default:
		return nil, types.Errorf(types.ErrInvalidConfig, "thyroid: unknown input mode %q", opts.Input)
	}
	if opts.Cache == nil {
		opts.Cache = search.NewMapCache()
	}
	t := &Task{
		patients: patients,
		useText:  opts.UseText,
		input:    opts.Input,
		cache:    opts.Cache,
		logger:   opts.Logger.With(zap.String("task", Name)),
	}
	t.logger.Info("dataset loaded", zap.Int("patients", len(patients)), zap.Bool("use_text", opts.UseText))
	return t, nil
}

// Len 样本数
func (t *Task) Len() int { return len(t.patients) }

// ItemID 返回样本的 subject_id
func (t *Task) ItemID(idx int) string {
	if idx < 0 || idx >= len(t.patients) {
		return ""
	}
	return t.patients[idx].SubjectID
}

// Answer 返回真实标签
func (t *Task) Answer(idx int) int {
	if idx < 0 || idx >= len(t.patients) {
		return -1
	}
	return t.patients[idx].Label
}

func (t *Task) Steps() int { return NumSteps }

func (t *Task) Stop(int) string { return "\n" }

func (t *Task) ValueCache() search.ValueCache { return t.cache }

// Input 渲染样本输入
func (t *Task) Input(idx int) (string, error) {
	if idx < 0 || idx >= len(t.patients) {
		return "", fmt.Errorf("thyroid: item %d out of range [0, %d)", idx, len(t.patients))
	}
	p := t.patients[idx]
	block := t.block(p)
	if t.useText {
		if text := p.textSummary(); text != "" {
			block += "\n\nClinical text summary:\n" + Sanitize(text)
		}
	}
	return block, nil
}

func (t *Task) block(p *patient) string {
	if t.input == InputFlag {
		return p.flagBlock()
	}
	return p.labBlock()
}

// Prompt 构造第 step 步的生成提示
func (t *Task) Prompt(x string, step int, y search.Candidate) (string, error) {
	x = Sanitize(x)
	y = Sanitize(y)
	switch step {
	case 0:
		return "You are a clinical assistant reviewing multiple lab test results for the same patient.\n\n" +
			x + "\n\n" +
			"Step 1:\n" +
			"For each test session, determine for each lab item whether it is HIGH, LOW, or NORMAL.\n" +
			"Format strictly as one item per line.\n" +
			"Reply for each session block. Do not make diagnosis yet.", nil
	case 1:
		return "Step 1 Observations:\n" +
			y + "\n\n" + x + "\n\n" +
			"Step 2:\n" +
			"State possible implications for abnormal values; if all normal, write 'No issue'.", nil
	case 2:
		return "Reasoning so far (Steps 1 & 2):\n" +
			y + "\n\n" + x + "\n\n" +
			"Step 3:\n" +
			"Does this patient likely have thyroid disease?\n" +
			"Reply ONLY with 1 (yes) or 0 (no).", nil
	default:
		return "", types.Errorf(types.ErrInvalidStep, "thyroid: invalid step %d", step)
	}
}

// ValuePrompt 请模型判断推理是否合理
func (t *Task) ValuePrompt(x string, y search.Candidate) string {
	return "You are a senior endocrinologist evaluating a junior doctor's clinical reasoning.\n\n" +
		"Patient data:\n" + Sanitize(x) + "\n\n" +
		"Clinical reasoning:\n" + Sanitize(y) + "\n\n" +
		"Question: Is the reasoning medically reasonable?\n" +
		"Reply only with 1 (reasonable) or 0 (errors)."
}

// UnwrapValue 以 1/0 开头的输出记为 1/0，其余尝试解析为有限浮点数，失败记 0
func (t *Task) UnwrapValue(_ string, _ search.Candidate, outputs []string) []float64 {
	values := make([]float64, 0, len(outputs))
	for _, out := range outputs {
		out = strings.ToLower(strings.TrimSpace(out))
		switch {
		case valueOne.MatchString(out):
			values = append(values, 1)
		case valueZero.MatchString(out):
			values = append(values, 0)
		default:
			v, err := strconv.ParseFloat(out, 64)
			if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
				v = 0
			}
			values = append(values, v)
		}
	}
	return values
}

// VotePrompt 列出编号候选让模型投票
func (t *Task) VotePrompt(x string, ys []search.Candidate) string {
	choices := make([]string, len(ys))
	for i, c := range ys {
		choices[i] = fmt.Sprintf("%d. %s", i+1, Sanitize(c))
	}
	return "You are an expert doctor.\n\n" +
		"Patient lab data:\n" + Sanitize(x) + "\n\n" +
		"Candidate diagnoses:\n" + strings.Join(choices, "\n") + "\n\n" +
		"Which is the best diagnosis? Reply with the option number."
}

// UnwrapVotes 统计 1 起始的选项编号，越界与无法解析的输出忽略
func (t *Task) UnwrapVotes(outputs []string, n int) []float64 {
	votes := make([]float64, n)
	for _, out := range outputs {
		choice, err := strconv.Atoi(strings.TrimSpace(out))
		if err != nil {
			continue
		}
		if choice >= 1 && choice <= n {
			votes[choice-1]++
		}
	}
	return votes
}

// ProposePrompt 请模型逐行提出下一步想法
func (t *Task) ProposePrompt(x string, y search.Candidate) string {
	return "You are a clinical assistant. Given the current reasoning below, propose next possible thoughts.\n\n" +
		"Current reasoning:\n" + Sanitize(y) + "\n\n" +
		"Patient lab data:\n" + Sanitize(x) + "\n\n" +
		"Next thoughts (one per line):"
}

// FormatOutput 提取第一个独立的 0/1，找不到返回 -1
func (t *Task) FormatOutput(output string) int {
	m := labelPattern.FindStringSubmatch(output)
	if m == nil {
		t.logger.Warn("unable to extract 0/1 from output", zap.String("output", output))
		return -1
	}
	return int(m[1][0] - '0')
}

// TestOutput 判断输出标签是否与真实标签一致
func (t *Task) TestOutput(idx int, output string) bool {
	pred := t.FormatOutput(output)
	return pred != -1 && pred == t.Answer(idx)
}
