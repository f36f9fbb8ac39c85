package scoring

import (
	"math"

	"github.com/kadeface/valueaddforteacher/internal/model"
)

// compositePrecision 综合得分保留的小数位
const compositePrecision = 3

// periodWeightTable 按参与综合的考试个数选择权重
var periodWeightTable = map[int][]float64{
	1: {1.0},
	2: {0.4, 0.6},
	3: {0.4, 0.3, 0.3},
	4: {0.4, 0.2, 0.2, 0.2},
}

// PeriodWeights 考试个数对应的综合权重；0 个或超过 4 个返回 ok=false
func PeriodWeights(count int) ([]float64, bool) {
	w, ok := periodWeightTable[count]
	if !ok {
		return nil, false
	}
	out := make([]float64, len(w))
	copy(out, w)
	return out, true
}

// PeriodTotals 按指标权重汇总一次考试的总分
//
// scores 中每项指标都必须存在，调用方负责先检查指标是否齐全。
func PeriodTotals(entities []model.Entity, profile Profile, scores map[model.MetricKind]*model.RankResult) map[model.EntityKey]float64 {
	totals := make(map[model.EntityKey]float64, len(entities))
	for _, e := range entities {
		total := 0.0
		for _, w := range profile.Weights {
			total += scores[w.Metric].Placements[e.Key].Score * w.Weight
		}
		totals[e.Key] = total
	}
	return totals
}

// CompositeTotals 按考试权重汇总综合得分，求和后立即保留三位小数
func CompositeTotals(entities []model.Entity, periodTotals []map[model.EntityKey]float64, weights []float64) map[model.EntityKey]float64 {
	out := make(map[model.EntityKey]float64, len(entities))
	for _, e := range entities {
		sum := 0.0
		for i, totals := range periodTotals {
			sum += totals[e.Key] * weights[i]
		}
		out[e.Key] = RoundComposite(sum)
	}
	return out
}

// RoundComposite 保留三位小数
func RoundComposite(v float64) float64 {
	p := math.Pow10(compositePrecision)
	r := math.Round(v*p) / p
	if r == 0 {
		return 0 // 去掉 -0
	}
	return r
}
