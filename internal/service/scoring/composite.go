package scoring

import (
	"sort"

	"github.com/kadeface/valueaddforteacher/internal/model"
)

// RankComposite 综合排名（"min" 规则）：得分相同的单位名次相同且取最小名次，
// 下一个不同得分的名次 = 并列名次 + 并列个数，例如 1, 2, 2, 4。
//
// totals 需先经 RoundComposite 处理，否则求和顺序带来的浮点误差会破坏并列。
func RankComposite(entities []model.Entity, totals map[model.EntityKey]float64) map[model.EntityKey]int {
	keys := make([]model.EntityKey, 0, len(entities))
	for _, e := range entities {
		keys = append(keys, e.Key)
	}
	sort.SliceStable(keys, func(i, j int) bool {
		return totals[keys[i]] > totals[keys[j]]
	})

	ranks := make(map[model.EntityKey]int, len(keys))
	for i, k := range keys {
		if i > 0 && totals[k] == totals[keys[i-1]] {
			ranks[k] = ranks[keys[i-1]]
			continue
		}
		ranks[k] = i + 1
	}
	return ranks
}
