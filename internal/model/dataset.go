package model

// MetricSeries 单次考试、单项指标的取值；缺失值不在 Values 中出现
type MetricSeries struct {
	Period string                `json:"period"`
	Metric MetricKind            `json:"metric"`
	Column string                `json:"column"` // 来源列名
	Values map[EntityKey]float64 `json:"values"`
}

// NewMetricSeries 创建空序列
func NewMetricSeries(period string, metric MetricKind) *MetricSeries {
	return &MetricSeries{
		Period: period,
		Metric: metric,
		Values: make(map[EntityKey]float64),
	}
}

// Value 取值，ok=false 表示缺失
func (s *MetricSeries) Value(key EntityKey) (float64, bool) {
	if s == nil {
		return 0, false
	}
	v, ok := s.Values[key]
	return v, ok
}

// Len 有效值个数
func (s *MetricSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Values)
}

// PeriodData 一次考试的全部指标序列
type PeriodData struct {
	Name   string                       `json:"name"`
	Series map[MetricKind]*MetricSeries `json:"series"`
}

// Dataset 清洗后的单科目数据（引擎输入）
//
// Periods 按时间倒序排列：下标 0 为最近一次考试。
type Dataset struct {
	Subject  string        `json:"subject"`
	Entities []Entity      `json:"entities"`
	Periods  []*PeriodData `json:"periods"`
	Warnings []Warning     `json:"warnings,omitempty"` // 清洗阶段产生的告警
}

// Size 参评单位总数
func (d *Dataset) Size() int {
	return len(d.Entities)
}
