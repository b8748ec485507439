package thyroid

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	stepMarker   = regexp.MustCompile(`Step\s*\d+:`)
	arrowFlag    = regexp.MustCompile(`(?i)->\s*(HIGH|LOW|NORMAL)`)
	blankRuns    = regexp.MustCompile(`\n{3,}`)
	nonNumeric   = regexp.MustCompile(`[^\d.\-eE]`)
	bracketSwaps = strings.NewReplacer("[", "(", "]", ")", "`", "'")
)

// Sanitize 规整自由文本：统一换行，"Step N:" 前断行，"-> HIGH" 后断行，
// 方括号与反引号替换，压缩多余空行。
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = breakBeforeSteps(s)
	s = breakAfterFlags(s)
	s = bracketSwaps.Replace(s)
	s = blankRuns.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

func breakBeforeSteps(s string) string {
	matches := stepMarker.FindAllStringIndex(s, -1)
	if len(matches) == 0 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + len(matches))
	last := 0
	for _, m := range matches {
		b.WriteString(s[last:m[0]])
		if m[0] == 0 || s[m[0]-1] != '\n' {
			b.WriteByte('\n')
		}
		last = m[0]
	}
	b.WriteString(s[last:])
	return b.String()
}

func breakAfterFlags(s string) string {
	matches := arrowFlag.FindAllStringIndex(s, -1)
	if len(matches) == 0 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + len(matches))
	last := 0
	for _, m := range matches {
		b.WriteString(s[last:m[1]])
		if m[1] < len(s) {
			if r, _ := utf8.DecodeRuneInString(s[m[1]:]); !unicode.IsSpace(r) {
				b.WriteByte('\n')
			}
		}
		last = m[1]
	}
	b.WriteString(s[last:])
	return b.String()
}

// parseNumeric 去掉非数字字符后解析，失败返回 false
func parseNumeric(v string) (float64, bool) {
	s := nonNumeric.ReplaceAllString(strings.TrimSpace(v), "")
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// valueText 优先 test_value，为空时回退到 value
func (r labRow) valueText() string {
	if r.TestValue != "" {
		return r.TestValue
	}
	return r.Value
}

// datasetFlag 数据集自带的标记
func (r labRow) datasetFlag() string {
	f := strings.ToUpper(r.Flag)
	switch f {
	case "HIGH", "LOW", "NORMAL":
		return f
	}
	return ""
}

// computedFlag 按参考范围判断，无法计算时回退到数据集标记或 UNKNOWN
func (r labRow) computedFlag() string {
	v, okV := parseNumeric(r.valueText())
	lo, okLo := parseNumeric(r.RefLower)
	hi, okHi := parseNumeric(r.RefUpper)
	if okV && okLo && okHi {
		switch {
		case v < lo:
			return "LOW"
		case v > hi:
			return "HIGH"
		default:
			return "NORMAL"
		}
	}
	if f := r.datasetFlag(); f != "" {
		return f
	}
	return "UNKNOWN"
}

// labBlock 渲染原始化验值
func (p *patient) labBlock() string {
	var blocks []string
	for _, s := range p.sessions() {
		lines := make([]string, 0, len(s.Rows)+1)
		lines = append(lines, fmt.Sprintf("### Test Session (%s)", s.Time))
		for _, r := range s.Rows {
			if r.Unit != "" {
				lines = append(lines, fmt.Sprintf("- %s: %s %s (ref %s - %s)", r.TestName, r.valueText(), r.Unit, r.RefLower, r.RefUpper))
			} else {
				lines = append(lines, fmt.Sprintf("- %s: %s (ref %s - %s)", r.TestName, r.valueText(), r.RefLower, r.RefUpper))
			}
		}
		blocks = append(blocks, strings.Join(lines, "\n"))
	}
	preface := fmt.Sprintf("Patient ID: %s\n", p.SubjectID) +
		"The following are multiple thyroid lab test sessions for the same patient.\n"
	return Sanitize(preface + strings.Join(blocks, "\n\n"))
}

// flagBlock 渲染程序计算的 HIGH/LOW/NORMAL 判断
func (p *patient) flagBlock() string {
	var blocks []string
	for _, s := range p.sessions() {
		lines := make([]string, 0, len(s.Rows)+1)
		lines = append(lines, fmt.Sprintf("### Session (%s)", s.Time))
		for _, r := range s.Rows {
			lines = append(lines, fmt.Sprintf("%s: %s", r.TestName, r.computedFlag()))
		}
		blocks = append(blocks, strings.Join(lines, "\n"))
	}
	preface := fmt.Sprintf("Patient ID: %s\n", p.SubjectID) +
		"Structured HIGH/LOW/NORMAL judgments per session.\n"
	return Sanitize(preface + strings.Join(blocks, "\n\n"))
}
