package exporter

import (
	"math"

	"github.com/kadeface/valueaddforteacher/internal/model"
)

// scoreDigits 导出时分数保留的小数位
const scoreDigits = 3

// Table 导出表格：单元格为 string / float64 / int 或 nil（空单元格）
type Table struct {
	Sheet   string
	Headers []string
	Rows    [][]interface{}
}

// column 一列的表头与取值函数
type column struct {
	header string
	value  func(e model.Entity) interface{}
}

// Tabulate 把单科目结果展开为一张宽表
//
// 列顺序：学校代码、学校名称、班别、科任；每次考试依次为各指标的原始值、
// （后续考试的）差值、排名、得分，再接该次考试总分；最后为综合得分与综合排名。
// 行顺序与原始数据一致。
func Tabulate(result *model.SubjectResult, ds *model.Dataset) *Table {
	subject := result.Subject
	cols := []column{
		{"学校代码", func(e model.Entity) interface{} { return e.Key.OrgCode }},
		{"学校名称", func(e model.Entity) interface{} { return e.OrgName }},
		{"班别", func(e model.Entity) interface{} { return e.Key.GroupLabel }},
		{subject + "科任", func(e model.Entity) interface{} { return e.Teacher }},
	}

	for _, pr := range result.Periods {
		prefix := pr.Name + subject
		for _, m := range model.AllMetrics {
			outcome, ok := pr.Metrics[m]
			if !ok {
				if series := seriesOf(ds, pr.Name, m); series != nil {
					cols = append(cols, valueColumn(prefix+m.Label(), series))
				}
				continue
			}
			cols = append(cols, valueColumn(prefix+m.Label(), outcome.Values))

			label := prefix + m.Label()
			if pr.Previous != "" {
				label = pr.Previous + "-" + pr.Name + subject + m.Label() + "差值"
				cols = append(cols, valueColumn(label, outcome.Delta))
			}
			if outcome.Rank != nil {
				cols = append(cols, rankColumns(label, outcome.Rank)...)
			}
		}
		if pr.HasTotal {
			totals := pr.Totals
			cols = append(cols, column{prefix + "总分", func(e model.Entity) interface{} {
				return roundHalfUp(totals[e.Key], scoreDigits)
			}})
		}
	}

	cols = append(cols,
		column{subject + "综合得分", func(e model.Entity) interface{} { return result.Composite[e.Key] }},
		column{subject + "综合排名", func(e model.Entity) interface{} { return result.CompositeRank[e.Key] }},
	)

	t := &Table{
		Sheet:   subject,
		Headers: make([]string, len(cols)),
		Rows:    make([][]interface{}, 0, len(ds.Entities)),
	}
	for i, c := range cols {
		t.Headers[i] = c.header
	}
	for _, e := range ds.Entities {
		row := make([]interface{}, len(cols))
		for i, c := range cols {
			row[i] = c.value(e)
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// WarningTable 告警明细表
func WarningTable(warnings []model.Warning) *Table {
	t := &Table{
		Sheet:   "告警",
		Headers: []string{"类型", "科目", "考试", "指标", "说明"},
	}
	for _, w := range warnings {
		metric := ""
		if w.Metric != "" {
			metric = w.Metric.Label()
		}
		t.Rows = append(t.Rows, []interface{}{string(w.Kind), w.Subject, w.Period, metric, w.Message})
	}
	return t
}

func seriesOf(ds *model.Dataset, period string, m model.MetricKind) *model.MetricSeries {
	for _, p := range ds.Periods {
		if p.Name == period {
			return p.Series[m]
		}
	}
	return nil
}

func valueColumn(header string, series *model.MetricSeries) column {
	return column{header, func(e model.Entity) interface{} {
		if v, ok := series.Value(e.Key); ok {
			return v
		}
		return nil
	}}
}

func rankColumns(label string, rr *model.RankResult) []column {
	return []column{
		{label + "排名", func(e model.Entity) interface{} {
			if p := rr.Placements[e.Key]; p.Ranked() {
				return p.Rank
			}
			return nil
		}},
		{label + "得分", func(e model.Entity) interface{} {
			return rr.Placements[e.Key].Score
		}},
	}
}

func roundHalfUp(v float64, digits int) float64 {
	if digits < 0 {
		return v
	}
	scale := math.Pow10(digits)
	x := v * scale
	var r float64
	if x >= 0 {
		r = math.Floor(x+0.5) / scale
	} else {
		r = -math.Floor(-x+0.5) / scale
	}
	if r == 0 {
		return 0
	}
	return r
}
