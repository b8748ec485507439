package thyroid

import (
	"fmt"
	"regexp"
	"strings"
)

var finalPattern = regexp.MustCompile(`(?i)\bfinal\s*[:：]?\s*([01])\b`)

// patientParts 返回输入块与（启用时）清洗后的文本摘要
func (t *Task) patientParts(idx int) (string, string, error) {
	if idx < 0 || idx >= len(t.patients) {
		return "", "", fmt.Errorf("thyroid: item %d out of range [0, %d)", idx, len(t.patients))
	}
	p := t.patients[idx]
	var text string
	if t.useText {
		text = Sanitize(p.textSummary())
	}
	return t.block(p), text, nil
}

// ConsistencyPrompt 要求模型私下推理，只输出一行 "Final: N"
func (t *Task) ConsistencyPrompt(idx int) (string, error) {
	block, text, err := t.patientParts(idx)
	if err != nil {
		return "", err
	}
	var extra string
	if text != "" {
		extra = "\n\nAdditional patient information (do not repeat, use only for reasoning):\n" + text + "\n"
	}
	return "You are an experienced endocrinologist.\n" +
		"Task: Decide if the patient likely has a thyroid disease (1) or not (0).\n\n" +
		"Think step by step privately and DO NOT reveal your reasoning.\n" +
		"Output ONLY one line in the exact format:\n" +
		"Final: 1  (if disease)  OR  Final: 0 (if not)\n\n" +
		"Patient lab data:\n" + block + "\n" +
		extra +
		"Now provide ONLY the final line.", nil
}

// ParseConsistency 优先匹配 "Final: N"，其次任意独立的 0/1，否则 -1
func (t *Task) ParseConsistency(output string) int {
	if m := finalPattern.FindStringSubmatch(output); m != nil {
		return int(m[1][0] - '0')
	}
	if m := labelPattern.FindStringSubmatch(output); m != nil {
		return int(m[1][0] - '0')
	}
	return -1
}

// DirectPrompt 弱提示：不扮演角色，不要求推理
func (t *Task) DirectPrompt(idx int) (string, error) {
	block, text, err := t.patientParts(idx)
	if err != nil {
		return "", err
	}
	var extra string
	if text != "" {
		extra = "\nAdditional clinical notes:\n" + text + "\n"
	}
	return "Read the following information.\n" +
		"Based only on the general impression from the text and numbers,\n" +
		"give a simple guess whether the patient could possibly have a thyroid-related issue.\n" +
		"This is NOT a diagnostic task, and you do NOT need to apply medical knowledge.\n" +
		"Just give the best rough guess you can.\n\n" +
		block + "\n" +
		extra +
		"Your answer (0 or 1):", nil
}

// ParseDirect 只接受最后一个非空行恰好为 0 或 1
func (t *Task) ParseDirect(output string) int {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	switch strings.TrimSpace(lines[len(lines)-1]) {
	case "0":
		return 0
	case "1":
		return 1
	default:
		return -1
	}
}
