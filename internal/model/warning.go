package model

// WarningKind 可恢复问题的分类
type WarningKind string

const (
	WarningMissingMetricSet       WarningKind = "missing_metric_set"
	WarningEmptyMetricData        WarningKind = "empty_metric_data"
	WarningUnsupportedPeriodCount WarningKind = "unsupported_period_count"
	WarningUnknownEducationLevel  WarningKind = "unknown_education_level"
	WarningUnmatchedColumn        WarningKind = "unmatched_column"
	WarningDuplicateColumn        WarningKind = "duplicate_column"
	WarningDuplicateEntity        WarningKind = "duplicate_entity"
	WarningOutlier                WarningKind = "outlier"
)

// Warning 计算或清洗过程中的告警，不中断整体计算
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Subject string      `json:"subject,omitempty"`
	Period  string      `json:"period,omitempty"`
	Metric  MetricKind  `json:"metric,omitempty"`
	Message string      `json:"message"`
}
