package runner

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"

	"github.com/BaSui01/thoughtflow/search"
)

// Printer 把每一步的候选、评分与选择打印到终端。实现 search.Observer。
type Printer struct {
	mu     sync.Mutex
	w      io.Writer
	header *color.Color
	score  *color.Color
	choice *color.Color
	best   *color.Color
}

// NewPrinter 创建打印器；noColor 关闭 ANSI 颜色
func NewPrinter(w io.Writer, noColor bool) *Printer {
	p := &Printer{
		w:      w,
		header: color.New(color.FgCyan, color.Bold),
		score:  color.New(color.FgYellow),
		choice: color.New(color.FgGreen),
		best:   color.New(color.FgMagenta, color.Bold),
	}
	if noColor {
		for _, c := range []*color.Color{p.header, p.score, p.choice, p.best} {
			c.DisableColor()
		}
	}
	return p
}

func (p *Printer) CacheHit()  {}
func (p *Printer) CacheMiss() {}

// StepCompleted 按评分降序打印候选
func (p *Printer) StepCompleted(rec search.StepRecord, elapsed time.Duration) {
	type scored struct {
		c search.Candidate
		v float64
	}
	items := make([]scored, len(rec.Candidates))
	for i, c := range rec.Candidates {
		items[i] = scored{c: c}
		if i < len(rec.Scores) {
			items[i].v = rec.Scores[i]
		}
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].v > items[j].v })

	cands := make([]string, len(items))
	values := make([]string, len(items))
	for i, it := range items {
		cands[i] = fmt.Sprintf("%q", it.c)
		values[i] = fmt.Sprintf("%g", it.v)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.header.Fprintf(p.w, "-- step %d (%s) --\n", rec.Step, elapsed.Round(time.Millisecond))
	fmt.Fprintf(p.w, "-- new_ys --: [%s]\n", strings.Join(cands, ", "))
	p.score.Fprintf(p.w, "-- sol values --: [%s]\n", strings.Join(values, ", "))
	p.choice.Fprintf(p.w, "-- choices --: %s\n\n", quoteAll(rec.Selected))
}

// SolveCompleted 打印最终的 beam 与最佳候选
func (p *Printer) SolveCompleted(res *search.Result, err error, _ time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	rule := strings.Repeat("=", 50)
	if err != nil {
		p.best.Fprintf(p.w, "\n%s\nSOLVE FAILED: %v\n%s\n\n", rule, err, rule)
		return
	}
	var beam []search.Candidate
	if res != nil && len(res.Steps) > 0 {
		beam = res.Steps[len(res.Steps)-1].Selected
	}
	best := "<none>"
	if b, ok := res.BestCandidate(); ok {
		best = fmt.Sprintf("%q", b)
	}
	fmt.Fprintf(p.w, "\n%s\n", rule)
	fmt.Fprintf(p.w, "SURVIVING CANDIDATES (The Beam): %s\n", quoteAll(beam))
	p.best.Fprintf(p.w, "BEST OVERALL CANDIDATE: %s\n", best)
	fmt.Fprintf(p.w, "%s\n\n", rule)
}

func quoteAll(cs []search.Candidate) string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = fmt.Sprintf("%q", c)
	}
	return "[" + strings.Join(out, ", ") + "]"
}
