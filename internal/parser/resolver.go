package parser

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/kadeface/valueaddforteacher/internal/model"
)

// ErrNoIdentityColumns 表头中找不到学校代码列
var ErrNoIdentityColumns = eris.New("identity column 学校代码 not found")

// DefaultExamKeywords 考试关键词，按时间倒序（最近的在前）
var DefaultExamKeywords = []string{
	"中考", "二模", "九年上", "八年下", "八年上", "七年下", "七年上",
	"六年下", "六年上", "五年下", "五年上", "四年下", "四年上",
	"三年下", "三年上", "七年入",
}

// metricSynonym 指标同义词；低分率必须排在合格率之前，避免 "不及格率" 被识别为合格率
type metricSynonym struct {
	metric   model.MetricKind
	keywords []string
}

var metricSynonyms = []metricSynonym{
	{model.MetricLowScoreRate, []string{"低分率", "低分", "不及格率", "不及格", "不合格率", "不合格", "fail"}},
	{model.MetricExcellentRate, []string{"优秀率", "优秀", "excellent"}},
	{model.MetricGoodRate, []string{"优良率", "优良", "良好率", "good"}},
	{model.MetricPassRate, []string{"合格率", "合格", "及格率", "及格", "pass"}},
	{model.MetricMean, []string{"平均分", "平均", "均分", "mean"}},
}

// derivedKeywords 上一轮计算输出的派生列，不参与识别
var derivedKeywords = []string{"得分", "排名", "差值", "总分"}

// ColumnResolver 将原始表头解析为考试×指标列
type ColumnResolver interface {
	Resolve(subject string, header []string) (*Resolution, error)
}

// KeywordResolver 基于关键词的表头解析器
type KeywordResolver struct {
	examKeywords []string
}

// NewKeywordResolver 创建解析器；keywords 为空时使用默认考试关键词
func NewKeywordResolver(keywords []string) *KeywordResolver {
	if len(keywords) == 0 {
		keywords = DefaultExamKeywords
	}
	cp := make([]string, len(keywords))
	copy(cp, keywords)
	return &KeywordResolver{examKeywords: cp}
}

// ExamKeywords 当前使用的考试关键词
func (r *KeywordResolver) ExamKeywords() []string {
	out := make([]string, len(r.examKeywords))
	copy(out, r.examKeywords)
	return out
}

// Resolve 解析表头
func (r *KeywordResolver) Resolve(subject string, header []string) (*Resolution, error) {
	normalized := make([]string, len(header))
	for i, col := range header {
		normalized[i] = NormalizeColumnName(col)
	}

	res := &Resolution{
		Subject:  subject,
		Identity: resolveIdentity(subject, normalized),
	}
	if res.Identity.OrgCode < 0 {
		return nil, eris.Wrapf(ErrNoIdentityColumns, "subject %s", subject)
	}

	periods := make(map[string]*PeriodColumns)
	for idx, col := range normalized {
		if col == "" || res.Identity.uses(idx) {
			continue
		}

		exam, order, ok := r.matchExam(col)
		if !ok {
			continue
		}
		if subject != "" && !strings.Contains(col, subject) {
			continue
		}
		if ContainsAny(col, derivedKeywords) {
			continue
		}

		metric, ok := matchMetric(col)
		if !ok {
			res.Warnings = append(res.Warnings, model.Warning{
				Kind:    model.WarningUnmatchedColumn,
				Subject: subject,
				Period:  exam,
				Message: fmt.Sprintf("列 %q 无法识别指标，已忽略", header[idx]),
			})
			continue
		}

		pc, ok := periods[exam]
		if !ok {
			pc = &PeriodColumns{
				Name:    exam,
				Order:   order,
				Columns: make(map[model.MetricKind]MetricColumn),
			}
			periods[exam] = pc
		}
		if prev, dup := pc.Columns[metric]; dup {
			res.Warnings = append(res.Warnings, model.Warning{
				Kind:    model.WarningDuplicateColumn,
				Subject: subject,
				Period:  exam,
				Metric:  metric,
				Message: fmt.Sprintf("列 %q 与 %q 重复，使用第一列", header[idx], header[prev.ColumnIndex]),
			})
			continue
		}
		pc.Columns[metric] = MetricColumn{
			ColumnIndex: idx,
			ColumnName:  col,
			Period:      exam,
			Metric:      metric,
		}
	}

	for _, pc := range periods {
		res.Periods = append(res.Periods, pc)
	}
	sort.Slice(res.Periods, func(i, j int) bool {
		return res.Periods[i].Order < res.Periods[j].Order
	})

	return res, nil
}

// matchExam 取列名中最早出现的考试关键词（同一位置取较长者）
func (r *KeywordResolver) matchExam(col string) (exam string, order int, ok bool) {
	bestPos := -1
	for i, kw := range r.examKeywords {
		pos := strings.Index(col, kw)
		if pos < 0 {
			continue
		}
		if bestPos < 0 || pos < bestPos || (pos == bestPos && len(kw) > len(exam)) {
			bestPos, exam, order = pos, kw, i
		}
	}
	return exam, order, bestPos >= 0
}

func matchMetric(col string) (model.MetricKind, bool) {
	lower := strings.ToLower(col)
	for _, syn := range metricSynonyms {
		if ContainsAny(lower, syn.keywords) {
			return syn.metric, true
		}
	}
	return "", false
}

func resolveIdentity(subject string, columns []string) IdentityColumns {
	id := IdentityColumns{OrgCode: -1, OrgName: -1, Group: -1, Teacher: -1}
	teacherFallback := -1
	for idx, col := range columns {
		switch {
		case id.OrgCode < 0 && MatchPattern(col, `^(学校)?代码$|^学校代码`):
			id.OrgCode = idx
		case id.OrgName < 0 && MatchPattern(col, `^学校名称$|^学校$|^单位名称$`):
			id.OrgName = idx
		case id.Group < 0 && MatchPattern(col, `^(班别|班级|班号)$`):
			id.Group = idx
		case strings.HasSuffix(col, "科任") || strings.HasSuffix(col, "教师"):
			if id.Teacher < 0 && subject != "" && strings.HasPrefix(col, subject) {
				id.Teacher = idx
			} else if teacherFallback < 0 && (col == "科任" || col == "科任教师" || col == "任课教师") {
				teacherFallback = idx
			}
		}
	}
	if id.Teacher < 0 {
		id.Teacher = teacherFallback
	}
	return id
}

func (id IdentityColumns) uses(idx int) bool {
	return idx == id.OrgCode || idx == id.OrgName || idx == id.Group || idx == id.Teacher
}
