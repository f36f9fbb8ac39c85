package model

import "strings"

// ScoringMethod 赋分方式
type ScoringMethod string

const (
	ScoringFixed      ScoringMethod = "fixed"      // 固定名次区间
	ScoringPercentage ScoringMethod = "percentage" // 百分比区间
)

// ParseScoringMethod 解析赋分方式，空串为固定区间
func ParseScoringMethod(s string) (ScoringMethod, bool) {
	switch ScoringMethod(strings.ToLower(strings.TrimSpace(s))) {
	case "", ScoringFixed:
		return ScoringFixed, true
	case ScoringPercentage:
		return ScoringPercentage, true
	}
	return "", false
}

// EducationLevel 教育阶段（决定指标集合与权重）
type EducationLevel string

const (
	LevelMiddle  EducationLevel = "middle"  // 初中
	LevelPrimary EducationLevel = "primary" // 小学
)

// ScoringOptions 单次计算参数
type ScoringOptions struct {
	Method         ScoringMethod  `json:"method"`
	EducationLevel EducationLevel `json:"educationLevel"`
}
