package store

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"

	"github.com/kadeface/valueaddforteacher/internal/model"
	"github.com/kadeface/valueaddforteacher/internal/parser"
)

// ErrRunNotFound 计算任务不存在
var ErrRunNotFound = eris.New("scoring run not found")

// 任务状态
const (
	RunPending   = "pending"
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// Run 一次计算任务
type Run struct {
	ID             string               `json:"id"`
	UploadID       string               `json:"uploadId"`
	Filename       string               `json:"filename"`
	Subject        string               `json:"subject"`
	Options        model.ScoringOptions `json:"options"`
	Status         string               `json:"status"`
	Percent        int                  `json:"percent"`
	Message        string               `json:"message"`
	OutputDir      string               `json:"-"`
	TotalSheets    int                  `json:"totalSheets"`
	ComputedSheets int                  `json:"computedSheets"`
	SkippedSheets  int                  `json:"skippedSheets"`
	FailedSheets   int                  `json:"failedSheets"`
	TotalWarnings  int                  `json:"totalWarnings"`
	ErrorMessage   string               `json:"errorMessage,omitempty"`
	CreatedAt      time.Time            `json:"createdAt"`
	CompletedAt    *time.Time           `json:"completedAt,omitempty"`
	Sheets         []parser.ParseResult `json:"sheets,omitempty"`
}

// Finished 任务是否已结束
func (r *Run) Finished() bool {
	return r.Status == RunCompleted || r.Status == RunFailed
}

// CreateRun 创建计算任务
func (s *Store) CreateRun(r *Run) error {
	_, err := s.db.Exec(`
		INSERT INTO scoring_runs (id, upload_id, filename, subject, method, education_level, status, output_dir)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.UploadID, r.Filename, r.Subject, string(r.Options.Method), string(r.Options.EducationLevel), RunPending, r.OutputDir)
	if err != nil {
		return eris.Wrap(err, "failed to create scoring run")
	}
	r.Status = RunPending
	return nil
}

// UpdateRunProgress 更新任务进度
func (s *Store) UpdateRunProgress(id string, percent int, message string) error {
	res, err := s.db.Exec(`
		UPDATE scoring_runs SET status = ?, percent = ?, message = ? WHERE id = ?
	`, RunRunning, percent, message, id)
	if err != nil {
		return eris.Wrap(err, "failed to update scoring run")
	}
	return checkAffected(res, id)
}

// FailInterrupted 把进程退出时未结束的任务标记为失败，返回受影响的任务数
func (s *Store) FailInterrupted(message string) (int, error) {
	res, err := s.db.Exec(`
		UPDATE scoring_runs SET
			status = ?,
			percent = 0,
			message = ?,
			error_message = ?,
			completed_at = CURRENT_TIMESTAMP
		WHERE status IN (?, ?)
	`, RunFailed, statusMessage(RunFailed), message, RunPending, RunRunning)
	if err != nil {
		return 0, eris.Wrap(err, "failed to mark interrupted runs")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "failed to count interrupted runs")
	}
	return int(n), nil
}

// CompleteRun 写入任务结果；report 为 nil 表示任务失败
func (s *Store) CompleteRun(id string, report *parser.ImportReport, errMessage string) error {
	status := RunCompleted
	percent := 100
	var total, computed, skipped, failed, warnings int
	if report != nil {
		total, computed, skipped, failed, warnings = report.TotalSheets, report.ComputedSheets, report.SkippedSheets, report.FailedSheets, report.TotalWarnings
	}
	if report == nil || errMessage != "" {
		status = RunFailed
	}
	if status == RunFailed {
		percent = 0
	}

	tx, err := s.db.Begin()
	if err != nil {
		return eris.Wrap(err, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.Exec(`
		UPDATE scoring_runs SET
			status = ?,
			percent = ?,
			message = ?,
			total_sheets = ?,
			computed_sheets = ?,
			skipped_sheets = ?,
			failed_sheets = ?,
			total_warnings = ?,
			error_message = ?,
			completed_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, status, percent, statusMessage(status), total, computed, skipped, failed, warnings, errMessage, id)
	if err != nil {
		return eris.Wrap(err, "failed to complete scoring run")
	}
	if err := checkAffected(res, id); err != nil {
		return err
	}

	if report != nil {
		for _, sh := range report.Sheets {
			errorsJSON, err := json.Marshal(sh.Errors)
			if err != nil {
				return eris.Wrap(err, "failed to encode sheet errors")
			}
			if _, err := tx.Exec(`
				INSERT INTO run_sheets (run_id, sheet_name, subject, status, entities, periods, warnings, output, errors_json, duration_ms)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			`, id, sh.SheetName, sh.Subject, sh.Status, sh.Entities, sh.Periods, sh.Warnings, sh.Output, string(errorsJSON), sh.Duration.Milliseconds()); err != nil {
				return eris.Wrap(err, "failed to insert run sheet")
			}
		}
	}

	return eris.Wrap(tx.Commit(), "failed to commit scoring run")
}

func statusMessage(status string) string {
	if status == RunCompleted {
		return "计算完成"
	}
	return "计算失败"
}

const runColumns = `id, upload_id, filename, subject, method, education_level, status, percent, message, output_dir,
	total_sheets, computed_sheets, skipped_sheets, failed_sheets, total_warnings, error_message, created_at, completed_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*Run, error) {
	r := &Run{}
	var method, level string
	var completed sql.NullTime
	if err := row.Scan(&r.ID, &r.UploadID, &r.Filename, &r.Subject, &method, &level, &r.Status, &r.Percent, &r.Message, &r.OutputDir,
		&r.TotalSheets, &r.ComputedSheets, &r.SkippedSheets, &r.FailedSheets, &r.TotalWarnings, &r.ErrorMessage, &r.CreatedAt, &completed); err != nil {
		return nil, err
	}
	r.Options = model.ScoringOptions{Method: model.ScoringMethod(method), EducationLevel: model.EducationLevel(level)}
	if completed.Valid {
		t := completed.Time
		r.CompletedAt = &t
	}
	return r, nil
}

// GetRun 读取任务及其各 Sheet 结果
func (s *Store) GetRun(id string) (*Run, error) {
	r, err := scanRun(s.db.QueryRow(`SELECT `+runColumns+` FROM scoring_runs WHERE id = ?`, id))
	if err != nil {
		if eris.Is(err, sql.ErrNoRows) {
			return nil, eris.Wrapf(ErrRunNotFound, "id %s", id)
		}
		return nil, eris.Wrap(err, "failed to read scoring run")
	}

	sheets, err := s.listRunSheets(id)
	if err != nil {
		return nil, err
	}
	r.Sheets = sheets
	return r, nil
}

// ListRuns 按创建时间倒序列出任务（不含 Sheet 明细）
func (s *Store) ListRuns(limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`SELECT `+runColumns+` FROM scoring_runs ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "failed to list scoring runs")
	}
	defer rows.Close()

	var out []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "failed to scan scoring run")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "failed to iterate scoring runs")
}

func (s *Store) listRunSheets(runID string) ([]parser.ParseResult, error) {
	rows, err := s.db.Query(`
		SELECT sheet_name, subject, status, entities, periods, warnings, output, errors_json, duration_ms
		FROM run_sheets WHERE run_id = ? ORDER BY id
	`, runID)
	if err != nil {
		return nil, eris.Wrap(err, "failed to list run sheets")
	}
	defer rows.Close()

	var out []parser.ParseResult
	for rows.Next() {
		var sh parser.ParseResult
		var errorsJSON string
		var durationMS int64
		if err := rows.Scan(&sh.SheetName, &sh.Subject, &sh.Status, &sh.Entities, &sh.Periods, &sh.Warnings, &sh.Output, &errorsJSON, &durationMS); err != nil {
			return nil, eris.Wrap(err, "failed to scan run sheet")
		}
		if err := json.Unmarshal([]byte(errorsJSON), &sh.Errors); err != nil {
			return nil, eris.Wrap(err, "failed to decode sheet errors")
		}
		sh.Duration = time.Duration(durationMS) * time.Millisecond
		out = append(out, sh)
	}
	return out, eris.Wrap(rows.Err(), "failed to iterate run sheets")
}

func checkAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "failed to read affected rows")
	}
	if n == 0 {
		return eris.Wrapf(ErrRunNotFound, "id %s", id)
	}
	return nil
}
