package thyroid

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ChartTimeLayout 是 charttime 列的格式（日/月/年）
const ChartTimeLayout = "02/01/2006 15:04:05"

// requiredColumns 缺失任一列即拒绝加载
var requiredColumns = []string{"subject_id", "charttime", "test_name", "label"}

// labRow 一条化验记录
type labRow struct {
	ChartTime   string
	TestName    string
	TestValue   string
	Value       string
	Unit        string
	RefLower    string
	RefUpper    string
	Flag        string
	TextSummary string
}

// patient 一个样本
type patient struct {
	SubjectID string
	Label     int
	Rows      []labRow
}

// session 同一 charttime 的一组记录
type session struct {
	Time string
	raw  string
	Rows []labRow
}

// loadPatients 读取 CSV 并按 subject_id 首次出现的顺序分组
func loadPatients(path string) ([]*patient, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()
	return readPatients(f)
}

func readPatients(r io.Reader) ([]*patient, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, c := range requiredColumns {
		if _, ok := cols[c]; !ok {
			return nil, fmt.Errorf("dataset is missing column %q", c)
		}
	}
	get := func(rec []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return safe(rec[i])
	}

	var patients []*patient
	byID := make(map[string]*patient)
	labels := make(map[string]string)
	line := 1
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}

		id := get(rec, "subject_id")
		if id == "" {
			continue
		}
		p, ok := byID[id]
		if !ok {
			p = &patient{SubjectID: id}
			byID[id] = p
			patients = append(patients, p)
		}
		if _, seen := labels[id]; !seen {
			if l := get(rec, "label"); l != "" {
				labels[id] = l
			}
		}
		p.Rows = append(p.Rows, labRow{
			ChartTime:   get(rec, "charttime"),
			TestName:    get(rec, "test_name"),
			TestValue:   get(rec, "test_value"),
			Value:       get(rec, "value"),
			Unit:        get(rec, "unit"),
			RefLower:    get(rec, "ref_range_lower"),
			RefUpper:    get(rec, "ref_range_upper"),
			Flag:        get(rec, "flag"),
			TextSummary: get(rec, "text_summary"),
		})
	}

	for _, p := range patients {
		raw, ok := labels[p.SubjectID]
		if !ok {
			return nil, fmt.Errorf("subject %s has no label", p.SubjectID)
		}
		label, err := parseLabel(raw)
		if err != nil {
			return nil, fmt.Errorf("subject %s: %w", p.SubjectID, err)
		}
		p.Label = label
	}
	return patients, nil
}

func parseLabel(raw string) (int, error) {
	if n, err := strconv.Atoi(raw); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f != float64(int(f)) {
		return 0, fmt.Errorf("invalid label %q", raw)
	}
	return int(f), nil
}

// safe 把 NaN 形式的空值转为空串
func safe(v string) string {
	v = strings.TrimSpace(v)
	if strings.EqualFold(v, "nan") {
		return ""
	}
	return v
}

// parseChartTime 解析失败返回零值与 false
func parseChartTime(s string) (time.Time, bool) {
	t, err := time.Parse(ChartTimeLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// formatChartTime 统一输出 YYYY-MM-DD HH:MM
func formatChartTime(s string) string {
	t, ok := parseChartTime(s)
	if !ok {
		return "unknown-time"
	}
	return t.Format("2006-01-02 15:04")
}

// sessions 按时间升序（无法解析的排最后，同时间按原串）切分会话
func (p *patient) sessions() []session {
	type keyed struct {
		row   labRow
		t     time.Time
		valid bool
	}
	rows := make([]keyed, len(p.Rows))
	for i, r := range p.Rows {
		t, ok := parseChartTime(r.ChartTime)
		rows[i] = keyed{row: r, t: t, valid: ok}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.valid != b.valid {
			return a.valid
		}
		if a.valid && !a.t.Equal(b.t) {
			return a.t.Before(b.t)
		}
		return a.row.ChartTime < b.row.ChartTime
	})

	var out []session
	for _, k := range rows {
		if n := len(out); n > 0 && out[n-1].raw == k.row.ChartTime {
			out[n-1].Rows = append(out[n-1].Rows, k.row)
			continue
		}
		out = append(out, session{Time: formatChartTime(k.row.ChartTime), raw: k.row.ChartTime, Rows: []labRow{k.row}})
	}
	return out
}

// textSummary 返回组内第一条非空的自由文本摘要
func (p *patient) textSummary() string {
	for _, r := range p.Rows {
		if r.TextSummary != "" {
			return r.TextSummary
		}
	}
	return ""
}
