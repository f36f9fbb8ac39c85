package parser

import (
	"testing"

	"github.com/rotisserie/eris"

	"github.com/kadeface/valueaddforteacher/internal/model"
)

var sampleHeader = []string{
	"学校   代码", "学校名称", "班   别", "语文科任",
	"中考   语文   平均分   p1", "中考   语文   优秀率   y1", "中考   语文   优良率   l1", "中考   语文   合格率  h1", "中考   语文   低分率    d1",
	"九年上   语文   平均分", "九年上   语文   优秀率", "九年上   语文   优良率", "九年上   语文   合格率", "九年上   语文   低分率",
	"二模   语文   平均分   p2", "二模   语文   优秀率   y2", "二模   语文   优良率   l2", "二模   语文   合格率h2", "二模     语文   低分率   d2",
}

func TestKeywordResolver_OrdersPeriodsMostRecentFirst(t *testing.T) {
	t.Parallel()

	res, err := NewKeywordResolver(nil).Resolve("语文", sampleHeader)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if res.Identity.OrgCode != 0 || res.Identity.OrgName != 1 || res.Identity.Group != 2 || res.Identity.Teacher != 3 {
		t.Fatalf("unexpected identity columns: %+v", res.Identity)
	}

	want := []string{"中考", "二模", "九年上"}
	if len(res.Periods) != len(want) {
		t.Fatalf("periods=%d want=%d", len(res.Periods), len(want))
	}
	for i, p := range res.Periods {
		if p.Name != want[i] {
			t.Fatalf("period %d=%s want=%s", i, p.Name, want[i])
		}
		if len(p.Columns) != 5 {
			t.Fatalf("period %s columns=%d want=5", p.Name, len(p.Columns))
		}
	}
	if col := res.Periods[1].Columns[model.MetricPassRate]; col.ColumnIndex != 17 {
		t.Fatalf("二模 pass rate column=%d want=17", col.ColumnIndex)
	}
	if len(res.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %+v", res.Warnings)
	}
}

func TestKeywordResolver_LowScoreSynonymsBeforePass(t *testing.T) {
	t.Parallel()

	header := []string{"学校代码", "中考数学不及格率", "中考数学及格率", "中考数学均分"}
	res, err := NewKeywordResolver(nil).Resolve("数学", header)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	cols := res.Periods[0].Columns
	if cols[model.MetricLowScoreRate].ColumnIndex != 1 {
		t.Fatalf("不及格率 should map to low score rate: %+v", cols)
	}
	if cols[model.MetricPassRate].ColumnIndex != 2 {
		t.Fatalf("及格率 should map to pass rate: %+v", cols)
	}
	if cols[model.MetricMean].ColumnIndex != 3 {
		t.Fatalf("均分 should map to mean: %+v", cols)
	}
}

func TestKeywordResolver_WarningsAndFiltering(t *testing.T) {
	t.Parallel()

	header := []string{
		"学校代码", "班级",
		"中考英语平均分", "中考英语平均分(复核)", // 重复
		"中考英语参考人数",                   // 无法识别
		"中考数学平均分",                     // 其他科目
		"中考英语得分",                      // 派生列
		"备注",
	}
	res, err := NewKeywordResolver(nil).Resolve("英语", header)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	kinds := map[model.WarningKind]int{}
	for _, w := range res.Warnings {
		kinds[w.Kind]++
	}
	if kinds[model.WarningDuplicateColumn] != 1 || kinds[model.WarningUnmatchedColumn] != 1 || len(res.Warnings) != 2 {
		t.Fatalf("unexpected warnings: %+v", res.Warnings)
	}
	if got := res.Periods[0].Columns[model.MetricMean].ColumnIndex; got != 2 {
		t.Fatalf("first duplicate should win, got column %d", got)
	}
}

func TestKeywordResolver_CustomKeywords(t *testing.T) {
	t.Parallel()

	header := []string{"学校代码", "期末科学平均分", "期中科学平均分"}
	res, err := NewKeywordResolver([]string{"期末", "期中"}).Resolve("科学", header)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(res.Periods) != 2 || res.Periods[0].Name != "期末" {
		t.Fatalf("unexpected periods: %+v", res.Periods)
	}
}

func TestKeywordResolver_NoIdentityColumns(t *testing.T) {
	t.Parallel()

	_, err := NewKeywordResolver(nil).Resolve("语文", []string{"学校名称", "中考语文平均分"})
	if !eris.Is(err, ErrNoIdentityColumns) {
		t.Fatalf("want ErrNoIdentityColumns, got %v", err)
	}
}
