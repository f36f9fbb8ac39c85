package jobs

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rotisserie/eris"
	"github.com/xuri/excelize/v2"

	"github.com/kadeface/valueaddforteacher/internal/importer"
	"github.com/kadeface/valueaddforteacher/internal/model"
	"github.com/kadeface/valueaddforteacher/internal/store"
)

func writeWorkbook(t *testing.T, dir string) string {
	t.Helper()

	f := excelize.NewFile()
	t.Cleanup(func() { _ = f.Close() })
	if err := f.SetSheetName("Sheet1", "英语"); err != nil {
		t.Fatalf("rename: %v", err)
	}

	header := []interface{}{"学校代码", "学校名称", "班别"}
	for _, m := range []string{"平均分", "优秀率", "优良率", "合格率", "低分率"} {
		header = append(header, "中考英语"+m)
	}
	if err := f.SetSheetRow("英语", "A1", &header); err != nil {
		t.Fatalf("header: %v", err)
	}
	for r := 0; r < 5; r++ {
		row := []interface{}{fmt.Sprintf("20%02d", r), fmt.Sprintf("学校%d", r), "1", 70 + r, 20 + r, 40 + r, 90 + r, 10 - r}
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		if err := f.SetSheetRow("英语", cell, &row); err != nil {
			t.Fatalf("row: %v", err)
		}
	}

	path := filepath.Join(dir, "英语.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	return path
}

func newTestManager(t *testing.T) (*Manager, string) {
	t.Helper()

	dir := t.TempDir()
	st, err := store.New(filepath.Join(dir, "valueadd.db"))
	if err != nil {
		t.Fatalf("init store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	m := NewManager(context.Background(), Config{OutputRoot: filepath.Join(dir, "results"), MaxConcurrent: 1},
		importer.NewCoordinator(importer.Settings{}, nil), st, nil, nil)
	return m, dir
}

func TestManager_RunToCompletion(t *testing.T) {
	t.Parallel()

	m, dir := newTestManager(t)
	input := writeWorkbook(t, dir)

	id, err := m.Start(Request{FilePath: input, Filename: "英语.xlsx"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	m.Wait()

	run, err := m.Get(id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if run.Status != store.RunCompleted || run.ComputedSheets != 1 {
		t.Fatalf("unexpected run: %+v", run)
	}
	if run.Options.Method != model.ScoringFixed || run.Options.EducationLevel != model.LevelMiddle {
		t.Fatalf("defaults not applied: %+v", run.Options)
	}

	files := m.OutputFiles(run)
	if len(files) != 1 || filepath.Base(files[0]) != importer.ResultFileName("英语") {
		t.Fatalf("unexpected outputs: %v", files)
	}
	if _, err := m.OutputFile(run, "../../etc/passwd"); !eris.Is(err, ErrOutputNotFound) {
		t.Fatalf("want ErrOutputNotFound, got %v", err)
	}

	latest, err := m.Latest()
	if err != nil || latest.ID != id {
		t.Fatalf("latest=%v err=%v", latest, err)
	}

	if got := testutil.ToFloat64(m.metrics.runsTotal.WithLabelValues("fixed", StatusSuccess)); got != 1 {
		t.Fatalf("runs_total{fixed,success} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.metrics.sheetsTotal.WithLabelValues(importer.StatusComputed)); got != 1 {
		t.Fatalf("sheets_total{computed} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.metrics.inFlight); got != 0 {
		t.Fatalf("in_flight = %v, want 0", got)
	}
}

func TestManager_FailedRun(t *testing.T) {
	t.Parallel()

	m, dir := newTestManager(t)
	id, err := m.Start(Request{FilePath: filepath.Join(dir, "missing.xlsx"), Filename: "missing.xlsx"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	m.Wait()

	run, err := m.Get(id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if run.Status != store.RunFailed || run.ErrorMessage == "" {
		t.Fatalf("unexpected run: %+v", run)
	}
}

func TestManager_Busy(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager(t)
	m.slots <- struct{}{}
	defer func() { <-m.slots }()

	if _, err := m.Start(Request{FilePath: "x.xlsx"}); !eris.Is(err, ErrBusy) {
		t.Fatalf("want ErrBusy, got %v", err)
	}
	if got := testutil.ToFloat64(m.metrics.rejected); got != 1 {
		t.Fatalf("rejected = %v, want 1", got)
	}
}

func TestManager_NotFound(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager(t)
	if _, err := m.Get("nope"); !eris.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	if _, err := m.Latest(); !eris.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}
