package model

// Placement 单个单位在一次排名中的名次与得分
//
// Rank 为 0 表示未占用名次（缺失值或被剔除），此时 Score 固定为 0。
type Placement struct {
	Rank     int     `json:"rank,omitempty"`
	Score    float64 `json:"score"`
	Excluded bool    `json:"excluded,omitempty"`
	Missing  bool    `json:"missing,omitempty"`
}

// Ranked 是否占用名次
func (p Placement) Ranked() bool {
	return p.Rank > 0
}

// RankResult 一项指标（或差值）的排名赋分结果
type RankResult struct {
	Metric     MetricKind              `json:"metric"`
	PoolSize   int                     `json:"poolSize"` // 实际排名的单位数（不含缺失与排除）
	Eligible   int                     `json:"eligible"` // 参与该指标的单位数（仅扣除排除单位），百分比区间按此划分
	Placements map[EntityKey]Placement `json:"placements"`
}

// MetricOutcome 某次考试单项指标的计算明细
//
// 第一次考试：Rank 基于原始值；之后的考试：Delta 为与上一考试的差值，Rank 基于差值。
type MetricOutcome struct {
	Metric MetricKind    `json:"metric"`
	Values *MetricSeries `json:"values"`
	Delta  *MetricSeries `json:"delta,omitempty"`
	Rank   *RankResult   `json:"rank"`
}

// PeriodResult 单次考试的计算结果
type PeriodResult struct {
	Name     string                        `json:"name"`
	Index    int                           `json:"index"`
	Previous string                        `json:"previous,omitempty"` // 差值对比的考试
	Metrics  map[MetricKind]*MetricOutcome `json:"metrics"`
	Skipped  bool                          `json:"skipped"`
	HasTotal bool                          `json:"hasTotal"`
	Totals   map[EntityKey]float64         `json:"totals,omitempty"`
}

// SubjectResult 单科目的完整输出
type SubjectResult struct {
	Subject        string                `json:"subject"`
	Options        ScoringOptions        `json:"options"`
	PopulationSize int                   `json:"populationSize"`
	Periods        []*PeriodResult       `json:"periods"`
	PeriodWeights  []float64             `json:"periodWeights,omitempty"`
	Composite      map[EntityKey]float64 `json:"composite"`
	CompositeRank  map[EntityKey]int     `json:"compositeRank"`
	Warnings       []Warning             `json:"warnings,omitempty"`
}

// TotalPeriods 参与综合计算的考试总分个数
func (r *SubjectResult) TotalPeriods() int {
	n := 0
	for _, p := range r.Periods {
		if p.HasTotal {
			n++
		}
	}
	return n
}
