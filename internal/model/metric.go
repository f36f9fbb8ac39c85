package model

// MetricKind 考核指标类型
type MetricKind string

const (
	MetricMean          MetricKind = "mean"           // 平均分
	MetricExcellentRate MetricKind = "excellent_rate" // 优秀率
	MetricGoodRate      MetricKind = "good_rate"      // 优良率
	MetricPassRate      MetricKind = "pass_rate"      // 合格率
	MetricLowScoreRate  MetricKind = "low_score_rate" // 低分率
)

// AllMetrics 初中口径的五项指标（同时也是输出列的顺序）
var AllMetrics = []MetricKind{
	MetricMean,
	MetricExcellentRate,
	MetricGoodRate,
	MetricPassRate,
	MetricLowScoreRate,
}

var metricLabels = map[MetricKind]string{
	MetricMean:          "平均分",
	MetricExcellentRate: "优秀率",
	MetricGoodRate:      "优良率",
	MetricPassRate:      "合格率",
	MetricLowScoreRate:  "低分率",
}

// Label 指标中文名（用于表头与日志）
func (k MetricKind) Label() string {
	if l, ok := metricLabels[k]; ok {
		return l
	}
	return string(k)
}

// LowerIsBetter 低分率类指标数值越低越好
func (k MetricKind) LowerIsBetter() bool {
	return k == MetricLowScoreRate
}

// ExcludesSpecialCase 该指标（及其差值）排名时是否剔除特殊单位
func (k MetricKind) ExcludesSpecialCase() bool {
	return k == MetricLowScoreRate
}
