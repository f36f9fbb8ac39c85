package parser

import (
	"time"

	"github.com/kadeface/valueaddforteacher/internal/model"
)

// SheetType Sheet 类型
type SheetType string

const (
	SheetTypeSubject SheetType = "subject" // 单科目成绩表
	SheetTypeSummary SheetType = "summary" // 汇总/总览
	SheetTypeUnknown SheetType = "unknown"
)

// SheetRecognitionResult Sheet 识别结果
type SheetRecognitionResult struct {
	SheetName  string    `json:"sheetName"`
	SheetType  SheetType `json:"sheetType"`
	Subject    string    `json:"subject,omitempty"`
	Confidence float64   `json:"confidence"` // 置信度 0-1
}

// IdentityColumns 身份列的下标，-1 表示不存在
type IdentityColumns struct {
	OrgCode int `json:"orgCode"`
	OrgName int `json:"orgName"`
	Group   int `json:"group"`
	Teacher int `json:"teacher"`
}

// MetricColumn 考试指标列映射
type MetricColumn struct {
	ColumnIndex int              `json:"columnIndex"` // Excel 列索引
	ColumnName  string           `json:"columnName"`  // 规范化后的列名
	Period      string           `json:"period"`
	Metric      model.MetricKind `json:"metric"`
}

// PeriodColumns 一次考试的指标列
type PeriodColumns struct {
	Name    string                            `json:"name"`
	Order   int                               `json:"order"` // 在考试关键词列表中的位置，越小越近
	Columns map[model.MetricKind]MetricColumn `json:"columns"`
}

// Resolution 表头解析结果
type Resolution struct {
	Subject  string           `json:"subject"`
	Identity IdentityColumns  `json:"identity"`
	Periods  []*PeriodColumns `json:"periods"` // 按时间倒序
	Warnings []model.Warning  `json:"warnings,omitempty"`
}

// ParseResult 单个 Sheet 的处理结果
type ParseResult struct {
	SheetName string        `json:"sheetName"`
	Subject   string        `json:"subject"`
	Status    string        `json:"status"` // computed/skipped/error
	Entities  int           `json:"entities"`
	Periods   int           `json:"periods"`
	Warnings  int           `json:"warnings"`
	Output    string        `json:"output,omitempty"` // 结果文件名
	Errors    []string      `json:"errors,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// ImportReport 一次计算任务的汇总报告
type ImportReport struct {
	Filename       string        `json:"filename"`
	TotalSheets    int           `json:"totalSheets"`
	ComputedSheets int           `json:"computedSheets"`
	SkippedSheets  int           `json:"skippedSheets"`
	FailedSheets   int           `json:"failedSheets"`
	TotalEntities  int           `json:"totalEntities"`
	TotalWarnings  int           `json:"totalWarnings"`
	Duration       time.Duration `json:"duration"`
	Sheets         []ParseResult `json:"sheets"`
}
