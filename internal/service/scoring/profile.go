package scoring

import "github.com/kadeface/valueaddforteacher/internal/model"

// MetricWeight 单项指标在考试总分中的权重
type MetricWeight struct {
	Metric model.MetricKind `json:"metric"`
	Weight float64          `json:"weight"`
}

// Profile 教育阶段的指标集合与权重
type Profile struct {
	Level   model.EducationLevel `json:"level"`
	Weights []MetricWeight       `json:"weights"`
}

// MiddleSchoolProfile 初中：五项指标
var MiddleSchoolProfile = Profile{
	Level: model.LevelMiddle,
	Weights: []MetricWeight{
		{model.MetricMean, 0.3},
		{model.MetricExcellentRate, 0.2},
		{model.MetricGoodRate, 0.2},
		{model.MetricPassRate, 0.2},
		{model.MetricLowScoreRate, 0.1},
	},
}

// PrimarySchoolProfile 小学：不计优良率，平均分权重提高到 0.5
var PrimarySchoolProfile = Profile{
	Level: model.LevelPrimary,
	Weights: []MetricWeight{
		{model.MetricMean, 0.5},
		{model.MetricExcellentRate, 0.2},
		{model.MetricPassRate, 0.2},
		{model.MetricLowScoreRate, 0.1},
	},
}

// ProfileFor 按教育阶段取配置；未知阶段回退为初中，ok=false
func ProfileFor(level model.EducationLevel) (Profile, bool) {
	switch level {
	case model.LevelMiddle, "":
		return MiddleSchoolProfile, true
	case model.LevelPrimary:
		return PrimarySchoolProfile, true
	}
	return MiddleSchoolProfile, false
}

// Metrics 指标列表（按权重顺序）
func (p Profile) Metrics() []model.MetricKind {
	out := make([]model.MetricKind, len(p.Weights))
	for i, w := range p.Weights {
		out[i] = w.Metric
	}
	return out
}

// Required 一次考试需要的指标个数
func (p Profile) Required() int {
	return len(p.Weights)
}
