package parser

import (
	"strings"
)

// DefaultSkipSheets 非科目 Sheet
var DefaultSkipSheets = []string{"sheet1", "Sheet1", "汇总", "总览"}

// summaryKeywords Sheet 名包含这些词时视为汇总表
var summaryKeywords = []string{"汇总", "总览", "说明"}

// SheetRecognizer Sheet 类型识别器
type SheetRecognizer struct {
	resolver   *KeywordResolver
	skipSheets map[string]struct{}
}

// NewSheetRecognizer 创建识别器
func NewSheetRecognizer(resolver *KeywordResolver, skipSheets []string) *SheetRecognizer {
	if resolver == nil {
		resolver = NewKeywordResolver(nil)
	}
	if skipSheets == nil {
		skipSheets = DefaultSkipSheets
	}
	skip := make(map[string]struct{}, len(skipSheets))
	for _, s := range skipSheets {
		skip[strings.TrimSpace(s)] = struct{}{}
	}
	return &SheetRecognizer{
		resolver:   resolver,
		skipSheets: skip,
	}
}

// SubjectOf Sheet 名即科目名
func SubjectOf(sheetName string) string {
	return NormalizeColumnName(sheetName)
}

// Skipped 是否为配置中跳过的 Sheet
func (r *SheetRecognizer) Skipped(sheetName string) bool {
	_, ok := r.skipSheets[strings.TrimSpace(sheetName)]
	return ok
}

// Recognize 识别 Sheet 类型
//
// 置信度：学校代码 0.3，学校名称 0.1，班别 0.1；存在考试指标列再加 0.2，并按指标齐全程度最多加 0.3。
func (r *SheetRecognizer) Recognize(sheetName string, columnNames []string) SheetRecognitionResult {
	if r.Skipped(sheetName) || ContainsAny(sheetName, summaryKeywords) {
		return SheetRecognitionResult{
			SheetName:  sheetName,
			SheetType:  SheetTypeSummary,
			Confidence: 1,
		}
	}

	subject := SubjectOf(sheetName)
	res, err := r.resolver.Resolve(subject, columnNames)
	if err != nil {
		return SheetRecognitionResult{
			SheetName:  sheetName,
			SheetType:  SheetTypeUnknown,
			Subject:    subject,
			Confidence: 0,
		}
	}

	confidence := 0.3
	if res.Identity.OrgName >= 0 {
		confidence += 0.1
	}
	if res.Identity.Group >= 0 {
		confidence += 0.1
	}
	best := 0
	for _, p := range res.Periods {
		if len(p.Columns) > best {
			best = len(p.Columns)
		}
	}
	if best > 0 {
		// 小学口径只有四项指标，四项即视为齐全
		ratio := float64(best) / 4
		if ratio > 1 {
			ratio = 1
		}
		confidence += 0.2 + 0.3*ratio
	}

	sheetType := SheetTypeUnknown
	if best > 0 && confidence >= 0.5 {
		sheetType = SheetTypeSubject
	}
	return SheetRecognitionResult{
		SheetName:  sheetName,
		SheetType:  sheetType,
		Subject:    subject,
		Confidence: confidence,
	}
}
