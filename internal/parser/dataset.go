package parser

import (
	"fmt"
	"math"

	"github.com/rotisserie/eris"

	"github.com/kadeface/valueaddforteacher/internal/model"
)

// ErrNoDataRows Sheet 中没有可用数据行
var ErrNoDataRows = eris.New("sheet has no data rows")

// outlierSigma 异常值判定的标准差倍数
const outlierSigma = 3.0

// BuildDataset 按表头解析结果把数据行转换为引擎输入
//
// rows 不含表头，第一行数据对应 Excel 第 2 行。空行跳过；学校代码为空的行跳过；
// 重复的 (学校代码, 班别) 保留第一行并记录告警。
func BuildDataset(subject string, rows [][]string, res *Resolution, specialOrg string) (*model.Dataset, error) {
	if res == nil {
		return nil, eris.New("nil column resolution")
	}

	ds := &model.Dataset{Subject: subject}
	ds.Warnings = append(ds.Warnings, res.Warnings...)

	seen := make(map[model.EntityKey]int)
	for i, row := range rows {
		rowNo := i + 2
		if isBlankRow(row) {
			continue
		}
		code := cell(row, res.Identity.OrgCode)
		if code == "" {
			continue
		}
		key := model.EntityKey{OrgCode: code, GroupLabel: cell(row, res.Identity.Group)}
		if first, dup := seen[key]; dup {
			ds.Warnings = append(ds.Warnings, model.Warning{
				Kind:    model.WarningDuplicateEntity,
				Subject: subject,
				Message: fmt.Sprintf("第 %d 行与第 %d 行的单位 %s 重复，已跳过", rowNo, first, key),
			})
			continue
		}
		seen[key] = rowNo

		name := cell(row, res.Identity.OrgName)
		ds.Entities = append(ds.Entities, model.Entity{
			Key:           key,
			OrgName:       name,
			Teacher:       cell(row, res.Identity.Teacher),
			RowNo:         rowNo,
			IsSpecialCase: specialOrg != "" && name == specialOrg,
		})
	}
	if len(ds.Entities) == 0 {
		return nil, eris.Wrapf(ErrNoDataRows, "subject %s", subject)
	}

	for _, pc := range res.Periods {
		period := &model.PeriodData{
			Name:   pc.Name,
			Series: make(map[model.MetricKind]*model.MetricSeries, len(pc.Columns)),
		}
		for metric, col := range pc.Columns {
			series := model.NewMetricSeries(pc.Name, metric)
			series.Column = col.ColumnName
			for _, e := range ds.Entities {
				row := rows[e.RowNo-2]
				if v, ok := ParseNumeric(cell(row, col.ColumnIndex)); ok {
					series.Values[e.Key] = v
				}
			}
			if n := countOutliers(series.Values); n > 0 {
				ds.Warnings = append(ds.Warnings, model.Warning{
					Kind:    model.WarningOutlier,
					Subject: subject,
					Period:  pc.Name,
					Metric:  metric,
					Message: fmt.Sprintf("列 %s 发现 %d 个异常值（超过 3 个标准差）", col.ColumnName, n),
				})
			}
			period.Series[metric] = series
		}
		ds.Periods = append(ds.Periods, period)
	}

	return ds, nil
}

// countOutliers 超出均值 ±3 倍样本标准差的取值个数
func countOutliers(values map[model.EntityKey]float64) int {
	n := len(values)
	if n < 2 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(n)
	ss := 0.0
	for _, v := range values {
		ss += (v - mean) * (v - mean)
	}
	std := math.Sqrt(ss / float64(n-1))
	if std == 0 {
		return 0
	}
	count := 0
	for _, v := range values {
		if math.Abs(v-mean) > outlierSigma*std {
			count++
		}
	}
	return count
}
