package scoring

import (
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/kadeface/valueaddforteacher/internal/model"
)

// Engine 排名赋分计算引擎
//
// 引擎无状态、同步执行：一次 Compute 只读取传入的 Dataset，不修改它，
// 可对不同科目并发调用。
type Engine struct {
	options   model.ScoringOptions
	policy    Policy
	profile   Profile
	profileOK bool
	logger    *zap.Logger
}

// Option 引擎可选项
type Option func(*Engine)

// WithLogger 指定日志输出（默认不输出）
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine 创建计算引擎
func NewEngine(opts model.ScoringOptions, options ...Option) *Engine {
	profile, ok := ProfileFor(opts.EducationLevel)
	e := &Engine{
		options:   opts,
		policy:    PolicyFor(opts.Method),
		profile:   profile,
		profileOK: ok,
		logger:    zap.NewNop(),
	}
	for _, o := range options {
		o(e)
	}
	return e
}

// PolicyFor 赋分方式对应的区间划分
func PolicyFor(method model.ScoringMethod) Policy {
	if method == model.ScoringPercentage {
		return PolicyPercentage
	}
	return PolicyFixed
}

// Compute 计算单科目的各次考试得分、综合得分与综合排名
//
// 可恢复的问题记录在 SubjectResult.Warnings 中；只有区间表不变式被破坏时返回错误。
func (e *Engine) Compute(ds *model.Dataset) (*model.SubjectResult, error) {
	if ds == nil || ds.Size() == 0 {
		return nil, eris.Wrap(ErrInvalidPopulation, "dataset has no entities")
	}

	r := &run{
		engine: e,
		ds:     ds,
		tables: make(map[int]*IntervalTable),
		result: &model.SubjectResult{
			Subject:        ds.Subject,
			Options:        model.ScoringOptions{Method: e.options.Method, EducationLevel: e.profile.Level},
			PopulationSize: ds.Size(),
		},
	}
	if r.result.Options.Method == "" {
		r.result.Options.Method = model.ScoringFixed
	}
	r.result.Warnings = append(r.result.Warnings, ds.Warnings...)

	if !e.profileOK {
		r.warn(model.Warning{
			Kind:    model.WarningUnknownEducationLevel,
			Message: fmt.Sprintf("未知教育阶段 %q，按初中口径计算", e.options.EducationLevel),
		})
	}

	for _, ent := range ds.Entities {
		if ent.IsSpecialCase {
			if r.special == nil {
				r.special = make(map[model.EntityKey]bool)
			}
			r.special[ent.Key] = true
		}
	}

	var totals []map[model.EntityKey]float64
	for i := range ds.Periods {
		pr, err := r.scorePeriod(i)
		if err != nil {
			return nil, err
		}
		r.result.Periods = append(r.result.Periods, pr)
		if pr.HasTotal {
			totals = append(totals, pr.Totals)
		}
	}

	weights, ok := PeriodWeights(len(totals))
	if ok {
		r.result.PeriodWeights = weights
		r.result.Composite = CompositeTotals(ds.Entities, totals, weights)
	} else {
		r.warn(model.Warning{
			Kind:    model.WarningUnsupportedPeriodCount,
			Message: fmt.Sprintf("共有 %d 次考试总分，无对应综合权重，综合得分记为 0", len(totals)),
		})
		r.result.Composite = make(map[model.EntityKey]float64, ds.Size())
		for _, ent := range ds.Entities {
			r.result.Composite[ent.Key] = 0
		}
	}
	r.result.CompositeRank = RankComposite(ds.Entities, r.result.Composite)

	e.logger.Info("scoring: subject computed",
		zap.String("subject", ds.Subject),
		zap.Int("entities", ds.Size()),
		zap.Int("periods", len(ds.Periods)),
		zap.Int("period_totals", len(totals)),
		zap.Int("warnings", len(r.result.Warnings)),
	)

	return r.result, nil
}

// run 单次计算的中间状态
type run struct {
	engine  *Engine
	ds      *model.Dataset
	special map[model.EntityKey]bool
	tables  map[int]*IntervalTable
	result  *model.SubjectResult
}

func (r *run) warn(w model.Warning) {
	w.Subject = r.ds.Subject
	r.result.Warnings = append(r.result.Warnings, w)
	r.engine.logger.Warn("scoring: "+w.Message,
		zap.String("kind", string(w.Kind)),
		zap.String("subject", w.Subject),
		zap.String("period", w.Period),
		zap.String("metric", string(w.Metric)),
	)
}

// table 名次区间表：固定区间按总人数构建一次；百分比区间按扣除排除单位后的人数构建，
// 缺失值单位仍计入人数
func (r *run) table(eligible int) (*IntervalTable, error) {
	size := eligible
	if r.engine.policy == PolicyFixed {
		size = r.ds.Size()
	}
	if t, ok := r.tables[size]; ok {
		return t, nil
	}
	t, err := BuildIntervalTable(size, r.engine.policy)
	if err != nil {
		return nil, err
	}
	r.tables[size] = t
	return t, nil
}

func (r *run) scorePeriod(idx int) (*model.PeriodResult, error) {
	period := r.ds.Periods[idx]
	pr := &model.PeriodResult{
		Name:    period.Name,
		Index:   idx,
		Metrics: make(map[model.MetricKind]*model.MetricOutcome),
	}

	var previous *model.PeriodData
	if idx > 0 {
		previous = r.ds.Periods[idx-1]
		pr.Previous = previous.Name
	}

	metrics := r.engine.profile.Metrics()
	var missing []string
	for _, m := range metrics {
		if period.Series[m] == nil {
			missing = append(missing, m.Label())
		}
	}
	if len(missing) > 0 {
		pr.Skipped = true
		r.warn(model.Warning{
			Kind:    model.WarningMissingMetricSet,
			Period:  period.Name,
			Message: fmt.Sprintf("考试 %s 缺少指标列 %v，跳过该次考试", period.Name, missing),
		})
		return pr, nil
	}

	scores := make(map[model.MetricKind]*model.RankResult, len(metrics))
	for _, m := range metrics {
		outcome := &model.MetricOutcome{
			Metric: m,
			Values: period.Series[m],
		}
		pr.Metrics[m] = outcome

		ranked := outcome.Values
		if previous != nil {
			prevSeries := previous.Series[m]
			if prevSeries == nil {
				r.warn(model.Warning{
					Kind:    model.WarningMissingMetricSet,
					Period:  period.Name,
					Metric:  m,
					Message: fmt.Sprintf("考试 %s 缺少 %s 列，无法计算 %s 的差值", previous.Name, m.Label(), period.Name),
				})
				continue
			}
			outcome.Delta = Delta(prevSeries, outcome.Values, m)
			ranked = outcome.Delta
		}

		rr, err := r.rankAndScore(ranked, m)
		if err != nil {
			return nil, eris.Wrapf(err, "subject %s period %s metric %s", r.ds.Subject, period.Name, m)
		}
		if rr == nil {
			r.warn(model.Warning{
				Kind:    model.WarningEmptyMetricData,
				Period:  period.Name,
				Metric:  m,
				Message: fmt.Sprintf("考试 %s 的 %s 没有有效数据，跳过该指标", period.Name, m.Label()),
			})
			continue
		}
		outcome.Rank = rr
		scores[m] = rr
	}

	if len(scores) < r.engine.profile.Required() {
		r.warn(model.Warning{
			Kind:    model.WarningMissingMetricSet,
			Period:  period.Name,
			Message: fmt.Sprintf("考试 %s 仅有 %d 项指标完成赋分，不计算该次总分", period.Name, len(scores)),
		})
		return pr, nil
	}

	pr.Totals = PeriodTotals(r.ds.Entities, r.engine.profile, scores)
	pr.HasTotal = true
	return pr, nil
}

// rankAndScore 排名并赋分；没有可排名单位时返回 nil
func (r *run) rankAndScore(series *model.MetricSeries, m model.MetricKind) (*model.RankResult, error) {
	var excluded map[model.EntityKey]bool
	if m.ExcludesSpecialCase() {
		excluded = r.special
	}

	rr := AssignRanks(r.ds.Entities, series, DirectionFor(m), excluded)
	rr.Metric = m
	if rr.PoolSize == 0 {
		return nil, nil
	}

	table, err := r.table(rr.Eligible)
	if err != nil {
		return nil, err
	}
	if err := ScorePlacements(rr, r.ds.Entities, table); err != nil {
		return nil, err
	}
	return rr, nil
}
