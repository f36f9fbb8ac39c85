package scoring

import (
	"sort"

	"github.com/kadeface/valueaddforteacher/internal/model"
)

// Direction 排序方向
type Direction int

const (
	// Descending 数值越高名次越靠前
	Descending Direction = iota
	// Ascending 数值越低名次越靠前（低分率类）
	Ascending
)

func (d Direction) String() string {
	if d == Ascending {
		return "ascending"
	}
	return "descending"
}

// DirectionFor 指标对应的排序方向；原始值与差值使用同一规则
func DirectionFor(kind model.MetricKind) Direction {
	if kind.LowerIsBetter() {
		return Ascending
	}
	return Descending
}

// AssignRanks 按位置排名：缺失值不占名次；excluded 中的单位在排名前移出，
// 其余单位按 entities 的原始顺序稳定排序后依次编号 1..k。
//
// 并列不共享名次，这与 RankComposite 的 "min" 规则不同。
// 返回的 Placement 仅含名次，得分由 ScorePlacements 填充。
func AssignRanks(entities []model.Entity, series *model.MetricSeries, dir Direction, excluded map[model.EntityKey]bool) *model.RankResult {
	type entry struct {
		key   model.EntityKey
		value float64
	}

	result := &model.RankResult{
		Placements: make(map[model.EntityKey]model.Placement, len(entities)),
	}
	if series != nil {
		result.Metric = series.Metric
	}

	pool := make([]entry, 0, len(entities))
	for _, e := range entities {
		if excluded[e.Key] {
			result.Placements[e.Key] = model.Placement{Excluded: true}
			continue
		}
		v, ok := series.Value(e.Key)
		if !ok {
			result.Placements[e.Key] = model.Placement{Missing: true}
			continue
		}
		pool = append(pool, entry{key: e.Key, value: v})
	}

	sort.SliceStable(pool, func(i, j int) bool {
		if dir == Ascending {
			return pool[i].value < pool[j].value
		}
		return pool[i].value > pool[j].value
	})

	for i, it := range pool {
		result.Placements[it.key] = model.Placement{Rank: i + 1}
	}
	result.PoolSize = len(pool)
	result.Eligible = len(entities)
	for _, e := range entities {
		if excluded[e.Key] {
			result.Eligible--
		}
	}

	return result
}

// ScorePlacements 按区间表为已排名单位赋分；未排名单位得分保持 0
func ScorePlacements(result *model.RankResult, entities []model.Entity, table *IntervalTable) error {
	for _, e := range entities {
		p, ok := result.Placements[e.Key]
		if !ok || !p.Ranked() {
			continue
		}
		score, err := table.Score(p.Rank, e.IsSpecialCase)
		if err != nil {
			return err
		}
		p.Score = score
		result.Placements[e.Key] = p
	}
	return nil
}
