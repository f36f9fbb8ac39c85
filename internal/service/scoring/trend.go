package scoring

import "github.com/kadeface/valueaddforteacher/internal/model"

// Delta 计算相邻两次考试的差值序列：previous - current
//
// 所有指标的减法顺序一致，低分率只在排名方向上取反（见 DirectionFor）。
// 任一侧缺失则差值缺失。
func Delta(previous, current *model.MetricSeries, kind model.MetricKind) *model.MetricSeries {
	period := ""
	if current != nil {
		period = current.Period
	}
	out := model.NewMetricSeries(period, kind)
	if previous == nil || current == nil {
		return out
	}
	out.Column = previous.Period + "-" + current.Period

	for key, prev := range previous.Values {
		cur, ok := current.Values[key]
		if !ok {
			continue
		}
		out.Values[key] = prev - cur
	}
	return out
}
