package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rotisserie/eris"

	"github.com/kadeface/valueaddforteacher/internal/model"
	"github.com/kadeface/valueaddforteacher/internal/parser"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	st, err := New(filepath.Join(t.TempDir(), "data", "valueadd.db"))
	if err != nil {
		t.Fatalf("init store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestRunLifecycle(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	run := &Run{
		ID:        "run-1",
		UploadID:  "up-1",
		Filename:  "成绩.xlsx",
		Options:   model.ScoringOptions{Method: model.ScoringPercentage, EducationLevel: model.LevelPrimary},
		OutputDir: "/tmp/out",
	}
	if err := st.CreateRun(run); err != nil {
		t.Fatalf("create run: %v", err)
	}
	if err := st.UpdateRunProgress("run-1", 40, "正在计算 Sheet: 语文"); err != nil {
		t.Fatalf("update progress: %v", err)
	}

	got, err := st.GetRun("run-1")
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if got.Status != RunRunning || got.Percent != 40 || got.Finished() {
		t.Fatalf("unexpected running state: %+v", got)
	}
	if got.Options.Method != model.ScoringPercentage || got.Options.EducationLevel != model.LevelPrimary {
		t.Fatalf("options not persisted: %+v", got.Options)
	}

	report := &parser.ImportReport{
		TotalSheets:    2,
		ComputedSheets: 1,
		SkippedSheets:  1,
		TotalWarnings:  3,
		Sheets: []parser.ParseResult{
			{SheetName: "语文", Subject: "语文", Status: "computed", Entities: 12, Periods: 3, Warnings: 3, Output: "语文_赋分结果.xlsx", Duration: 1500 * time.Millisecond},
			{SheetName: "汇总", Status: "skipped"},
		},
	}
	if err := st.CompleteRun("run-1", report, ""); err != nil {
		t.Fatalf("complete run: %v", err)
	}

	got, err = st.GetRun("run-1")
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if got.Status != RunCompleted || got.Percent != 100 || got.CompletedAt == nil || !got.Finished() {
		t.Fatalf("unexpected completed state: %+v", got)
	}
	if got.ComputedSheets != 1 || got.TotalWarnings != 3 || len(got.Sheets) != 2 {
		t.Fatalf("report not persisted: %+v", got)
	}
	if sh := got.Sheets[0]; sh.Output != "语文_赋分结果.xlsx" || sh.Duration != 1500*time.Millisecond || sh.Entities != 12 {
		t.Fatalf("unexpected sheet: %+v", sh)
	}
}

func TestCompleteRun_Failed(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	if err := st.CreateRun(&Run{ID: "run-2", Filename: "x.xlsx"}); err != nil {
		t.Fatalf("create run: %v", err)
	}
	if err := st.CompleteRun("run-2", nil, "open workbook: no such file"); err != nil {
		t.Fatalf("complete run: %v", err)
	}
	got, err := st.GetRun("run-2")
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if got.Status != RunFailed || got.ErrorMessage == "" {
		t.Fatalf("unexpected failed state: %+v", got)
	}
}

func TestRunNotFound(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	if _, err := st.GetRun("missing"); !eris.Is(err, ErrRunNotFound) {
		t.Fatalf("want ErrRunNotFound, got %v", err)
	}
	if err := st.UpdateRunProgress("missing", 1, ""); !eris.Is(err, ErrRunNotFound) {
		t.Fatalf("want ErrRunNotFound, got %v", err)
	}
}

func TestListRuns_NewestFirst(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	for _, id := range []string{"a", "b", "c"} {
		if err := st.CreateRun(&Run{ID: id, Filename: id + ".xlsx"}); err != nil {
			t.Fatalf("create run: %v", err)
		}
	}
	runs, err := st.ListRuns(2)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "c" || runs[1].ID != "b" {
		t.Fatalf("unexpected order: %v %v", runs[0].ID, runs[1].ID)
	}
}

func TestUploads(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	if _, err := st.LatestUpload(); !eris.Is(err, ErrUploadNotFound) {
		t.Fatalf("want ErrUploadNotFound, got %v", err)
	}
	for _, id := range []string{"u1", "u2"} {
		if err := st.CreateUpload(Upload{ID: id, Filename: id + ".xlsx", FilePath: "/data/" + id, FileSize: 10, FileHash: "h"}); err != nil {
			t.Fatalf("create upload: %v", err)
		}
	}
	u, err := st.LatestUpload()
	if err != nil {
		t.Fatalf("latest upload: %v", err)
	}
	if u.ID != "u2" || u.FilePath != "/data/u2" {
		t.Fatalf("unexpected upload: %+v", u)
	}
}

func TestScoringDefaults(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	fallback := model.ScoringOptions{Method: model.ScoringFixed, EducationLevel: model.LevelMiddle}

	got, err := st.GetScoringDefaults(fallback)
	if err != nil || got != fallback {
		t.Fatalf("want fallback, got %+v err=%v", got, err)
	}

	saved := model.ScoringOptions{Method: model.ScoringPercentage, EducationLevel: model.LevelPrimary}
	if err := st.SetScoringDefaults(saved); err != nil {
		t.Fatalf("set defaults: %v", err)
	}
	got, err = st.GetScoringDefaults(fallback)
	if err != nil || got != saved {
		t.Fatalf("want saved, got %+v err=%v", got, err)
	}
}

func TestFailInterrupted(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	for _, id := range []string{"pending", "running", "done"} {
		if err := st.CreateRun(&Run{ID: id, Filename: "成绩.xlsx"}); err != nil {
			t.Fatalf("create run: %v", err)
		}
	}
	if err := st.UpdateRunProgress("running", 30, "计算中"); err != nil {
		t.Fatalf("update progress: %v", err)
	}
	if err := st.CompleteRun("done", &parser.ImportReport{TotalSheets: 1, ComputedSheets: 1}, ""); err != nil {
		t.Fatalf("complete run: %v", err)
	}

	n, err := st.FailInterrupted("服务重启，任务中断")
	if err != nil {
		t.Fatalf("fail interrupted: %v", err)
	}
	if n != 2 {
		t.Fatalf("affected = %d, want 2", n)
	}

	run, err := st.GetRun("running")
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if run.Status != RunFailed || run.ErrorMessage != "服务重启，任务中断" || run.CompletedAt == nil {
		t.Fatalf("unexpected run: %+v", run)
	}
	done, err := st.GetRun("done")
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if done.Status != RunCompleted {
		t.Fatalf("completed run changed: %+v", done)
	}
}
