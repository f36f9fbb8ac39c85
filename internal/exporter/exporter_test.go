package exporter

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/kadeface/valueaddforteacher/internal/model"
	"github.com/kadeface/valueaddforteacher/internal/service/scoring"
)

func sampleDataset() *model.Dataset {
	keys := []model.EntityKey{{OrgCode: "1001", GroupLabel: "1"}, {OrgCode: "1002", GroupLabel: "2"}, {OrgCode: "1003", GroupLabel: "3"}}
	ds := &model.Dataset{Subject: "语文"}
	for i, k := range keys {
		ds.Entities = append(ds.Entities, model.Entity{Key: k, OrgName: "学校" + k.OrgCode, Teacher: "老师", RowNo: i + 2})
	}
	for pi, name := range []string{"中考", "二模"} {
		p := &model.PeriodData{Name: name, Series: map[model.MetricKind]*model.MetricSeries{}}
		for mi, m := range model.AllMetrics {
			s := model.NewMetricSeries(name, m)
			for i, k := range keys {
				if name == "二模" && m == model.MetricMean && i == 2 {
					continue // 缺失
				}
				s.Values[k] = float64(10*(mi+1) + i + pi*3)
			}
			p.Series[m] = s
		}
		ds.Periods = append(ds.Periods, p)
	}
	return ds
}

func TestTabulate(t *testing.T) {
	t.Parallel()

	ds := sampleDataset()
	res, err := scoring.NewEngine(model.ScoringOptions{}).Compute(ds)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}

	table := Tabulate(res, ds)
	if table.Sheet != "语文" || len(table.Rows) != 3 {
		t.Fatalf("unexpected table shape: sheet=%s rows=%d", table.Sheet, len(table.Rows))
	}

	idx := map[string]int{}
	for i, h := range table.Headers {
		idx[h] = i
	}
	for _, h := range []string{
		"学校代码", "语文科任",
		"中考语文平均分", "中考语文平均分排名", "中考语文平均分得分",
		"二模语文平均分", "中考-二模语文平均分差值", "中考-二模语文平均分差值排名", "中考-二模语文平均分差值得分",
		"中考语文总分", "二模语文总分", "语文综合得分", "语文综合排名",
	} {
		if _, ok := idx[h]; !ok {
			t.Fatalf("missing header %q in %v", h, table.Headers)
		}
	}

	third := table.Rows[2]
	if third[idx["二模语文平均分"]] != nil || third[idx["中考-二模语文平均分差值排名"]] != nil {
		t.Fatalf("missing values should export as empty cells: %v", third)
	}
	if third[idx["中考-二模语文平均分差值得分"]] != 0.0 {
		t.Fatalf("missing delta score should be 0, got %v", third[idx["中考-二模语文平均分差值得分"]])
	}
	if got := table.Rows[0][idx["学校代码"]]; got != "1001" {
		t.Fatalf("row order changed: %v", got)
	}
}

func TestWriteWorkbook(t *testing.T) {
	t.Parallel()

	ds := sampleDataset()
	res, err := scoring.NewEngine(model.ScoringOptions{}).Compute(ds)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}

	path := filepath.Join(t.TempDir(), "语文_result.xlsx")
	var events []ProgressEvent
	err = WriteWorkbook(path, []*Table{Tabulate(res, ds), WarningTable(res.Warnings)}, func(e ProgressEvent) {
		events = append(events, e)
	})
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	if len(events) == 0 || events[len(events)-1].Percent != 100 {
		t.Fatalf("unexpected progress events: %+v", events)
	}
	if events[1].Sheet != "语文" || events[1].Rows != 3 {
		t.Fatalf("unexpected sheet event: %+v", events[1])
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	t.Cleanup(func() { _ = f.Close() })

	sheets := f.GetSheetList()
	if len(sheets) != 2 || sheets[0] != "语文" || sheets[1] != "告警" {
		t.Fatalf("unexpected sheets: %v", sheets)
	}
	rows, err := f.GetRows("语文")
	if err != nil {
		t.Fatalf("read rows: %v", err)
	}
	if len(rows) != 4 || rows[0][0] != "学校代码" || rows[1][0] != "1001" {
		t.Fatalf("unexpected rows: %v", rows)
	}
}

func TestWriteArchive(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	var paths []string
	for _, name := range []string{"语文.xlsx", "数学.xlsx"} {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(name), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		paths = append(paths, p)
	}

	var buf bytes.Buffer
	if err := WriteArchive(&buf, paths); err != nil {
		t.Fatalf("archive: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("read zip: %v", err)
	}
	if len(zr.File) != 2 || zr.File[0].Name != "语文.xlsx" {
		t.Fatalf("unexpected entries: %+v", zr.File)
	}
}

func TestWriteArchive_MissingFile(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := WriteArchive(&buf, []string{filepath.Join(t.TempDir(), "nope.xlsx")}); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestRoundHalfUp(t *testing.T) {
	t.Parallel()

	if got := roundHalfUp(2.3456, 3); got != 2.346 {
		t.Fatalf("got %v", got)
	}
	if got := roundHalfUp(-0.0004, 3); got != 0 {
		t.Fatalf("got %v", got)
	}
}
