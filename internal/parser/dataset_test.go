package parser

import (
	"testing"

	"github.com/rotisserie/eris"

	"github.com/kadeface/valueaddforteacher/internal/model"
)

func TestBuildDataset(t *testing.T) {
	t.Parallel()

	header := []string{"学校代码", "学校名称", "班别", "物理科任", "中考物理平均分", "中考物理低分率"}
	rows := [][]string{
		{"1001", "金山中学", "1", "张老师", "80.5", "5%"},
		{"1002", "城南中学", "2", "李老师", "N/A", "3，5"},
		{"", "", "", "", "", ""},
		{"1001", "金山中学", "1", "重复", "70", "1"},
		{"1003", "城北中学", "", "王老师", "75", ""},
	}

	res, err := NewKeywordResolver(nil).Resolve("物理", header)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	ds, err := BuildDataset("物理", rows, res, "金山中学")
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if ds.Size() != 3 {
		t.Fatalf("entities=%d want=3", ds.Size())
	}
	if !ds.Entities[0].IsSpecialCase || ds.Entities[1].IsSpecialCase {
		t.Fatalf("special case flag mismatch: %+v", ds.Entities)
	}
	if ds.Entities[0].Teacher != "张老师" || ds.Entities[2].RowNo != 6 {
		t.Fatalf("unexpected entity fields: %+v", ds.Entities)
	}

	mean := ds.Periods[0].Series[model.MetricMean]
	if v, ok := mean.Value(model.EntityKey{OrgCode: "1001", GroupLabel: "1"}); !ok || v != 80.5 {
		t.Fatalf("1001 mean=%v ok=%v", v, ok)
	}
	if _, ok := mean.Value(model.EntityKey{OrgCode: "1002", GroupLabel: "2"}); ok {
		t.Fatalf("N/A should be missing")
	}
	low := ds.Periods[0].Series[model.MetricLowScoreRate]
	if v, _ := low.Value(model.EntityKey{OrgCode: "1002", GroupLabel: "2"}); !floatEquals(v, 3.5, 1e-9) {
		t.Fatalf("1002 low=%v want=3.5", v)
	}

	dup := 0
	for _, w := range ds.Warnings {
		if w.Kind == model.WarningDuplicateEntity {
			dup++
		}
	}
	if dup != 1 {
		t.Fatalf("duplicate warnings=%d want=1", dup)
	}
}

func TestBuildDataset_OutlierWarning(t *testing.T) {
	t.Parallel()

	header := []string{"学校代码", "中考化学平均分"}
	rows := make([][]string, 0, 21)
	for i := 0; i < 20; i++ {
		rows = append(rows, []string{string(rune('A' + i)), "70"})
	}
	rows = append(rows, []string{"Z", "700"})

	res, err := NewKeywordResolver(nil).Resolve("化学", header)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	ds, err := BuildDataset("化学", rows, res, "")
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	found := false
	for _, w := range ds.Warnings {
		if w.Kind == model.WarningOutlier && w.Metric == model.MetricMean {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected outlier warning, got %+v", ds.Warnings)
	}
}

func TestBuildDataset_NoRows(t *testing.T) {
	t.Parallel()

	res, err := NewKeywordResolver(nil).Resolve("语文", []string{"学校代码", "中考语文平均分"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if _, err := BuildDataset("语文", [][]string{{"", ""}}, res, ""); !eris.Is(err, ErrNoDataRows) {
		t.Fatalf("want ErrNoDataRows, got %v", err)
	}
}
