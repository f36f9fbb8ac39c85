package jobs

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/kadeface/valueaddforteacher/internal/importer"
	"github.com/kadeface/valueaddforteacher/internal/model"
	"github.com/kadeface/valueaddforteacher/internal/parser"
	"github.com/kadeface/valueaddforteacher/internal/store"
)

var (
	// ErrBusy 并发任务数已满
	ErrBusy = eris.New("all calculation slots are busy")
	// ErrNotFound 任务不存在
	ErrNotFound = eris.New("job not found")
	// ErrOutputNotFound 结果文件不存在
	ErrOutputNotFound = eris.New("result file not found")
)

// Request 计算请求
type Request struct {
	UploadID string
	FilePath string
	Filename string
	Subject  string
	Options  model.ScoringOptions
}

// Config 任务管理器参数
type Config struct {
	OutputRoot    string // 每个任务的结果写入 OutputRoot/<jobID>
	MaxConcurrent int
}

// Manager 后台计算任务管理器
//
// 任务在独立 goroutine 中运行，生命周期由 NewManager 传入的 ctx 控制，
// 与发起请求的 HTTP 连接无关。任务状态以 store 为准。
type Manager struct {
	ctx         context.Context
	coordinator *importer.Coordinator
	store       *store.Store
	metrics     *Metrics
	logger      *zap.Logger
	outputRoot  string
	slots       chan struct{}

	mu     sync.RWMutex
	latest string
	wg     sync.WaitGroup
}

// NewManager 创建任务管理器
func NewManager(ctx context.Context, cfg Config, coordinator *importer.Coordinator, st *store.Store, metrics *Metrics, logger *zap.Logger) *Manager {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}
	if metrics == nil {
		metrics = NewMetrics()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		ctx:         ctx,
		coordinator: coordinator,
		store:       st,
		metrics:     metrics,
		logger:      logger,
		outputRoot:  cfg.OutputRoot,
		slots:       make(chan struct{}, cfg.MaxConcurrent),
	}
}

// Start 提交计算任务，返回任务 ID；并发已满时返回 ErrBusy
func (m *Manager) Start(req Request) (string, error) {
	select {
	case m.slots <- struct{}{}:
	default:
		m.metrics.IncRejected()
		return "", ErrBusy
	}

	if req.Options.Method == "" {
		req.Options.Method = model.ScoringFixed
	}
	if req.Options.EducationLevel == "" {
		req.Options.EducationLevel = model.LevelMiddle
	}

	id := uuid.NewString()
	run := &store.Run{
		ID:        id,
		UploadID:  req.UploadID,
		Filename:  req.Filename,
		Subject:   req.Subject,
		Options:   req.Options,
		OutputDir: filepath.Join(m.outputRoot, id),
	}
	if err := m.store.CreateRun(run); err != nil {
		<-m.slots
		return "", err
	}

	m.mu.Lock()
	m.latest = id
	m.mu.Unlock()

	m.wg.Add(1)
	m.metrics.RunStarted()
	go func() {
		defer func() {
			m.metrics.RunFinished()
			<-m.slots
			m.wg.Done()
		}()
		m.run(run, req)
	}()

	m.logger.Info("jobs: run started",
		zap.String("job_id", id),
		zap.String("file", req.Filename),
		zap.String("subject", req.Subject),
		zap.String("method", string(req.Options.Method)),
		zap.String("level", string(req.Options.EducationLevel)),
	)
	return id, nil
}

func (m *Manager) run(run *store.Run, req Request) {
	start := time.Now()
	log := m.logger.With(zap.String("job_id", run.ID))

	events := m.coordinator.Import(m.ctx, importer.ImportOptions{
		FilePath:  req.FilePath,
		OutputDir: run.OutputDir,
		Subject:   req.Subject,
		Scoring:   req.Options,
	})

	var report *parser.ImportReport
	var errMessage string
	for evt := range events {
		switch evt.Type {
		case "done":
			report, _ = evt.Data.(*parser.ImportReport)
		case "error":
			errMessage = evt.Message
		case "warning":
			kind := "sheet_error"
			if w, ok := evt.Data.(model.Warning); ok {
				kind = string(w.Kind)
			}
			m.metrics.IncWarnings(kind)
		}
		if evt.Type == "done" || evt.Type == "error" {
			continue
		}
		if err := m.store.UpdateRunProgress(run.ID, evt.Percent, evt.Message); err != nil {
			log.Warn("jobs: update progress failed", zap.Error(err))
		}
	}
	if report == nil && errMessage == "" {
		errMessage = "calculation ended without a report"
	}

	if err := m.store.CompleteRun(run.ID, report, errMessage); err != nil {
		log.Error("jobs: persist result failed", zap.Error(err))
	}

	status := StatusSuccess
	if errMessage != "" {
		status = StatusFailure
	}
	if report != nil {
		for _, sh := range report.Sheets {
			m.metrics.IncSheets(sh.Status)
		}
	}
	method := string(req.Options.Method)
	m.metrics.IncRunsTotal(method, status)
	m.metrics.ObserveRunDuration(method, time.Since(start).Seconds())

	log.Info("jobs: run finished",
		zap.String("status", status),
		zap.String("error", errMessage),
		zap.Duration("duration", time.Since(start)),
	)
}

// Get 查询任务
func (m *Manager) Get(id string) (*store.Run, error) {
	run, err := m.store.GetRun(id)
	if err != nil {
		if eris.Is(err, store.ErrRunNotFound) {
			return nil, eris.Wrapf(ErrNotFound, "id %s", id)
		}
		return nil, err
	}
	return run, nil
}

// Latest 最近提交的任务；进程重启后回退到 store 中最新的任务
func (m *Manager) Latest() (*store.Run, error) {
	m.mu.RLock()
	id := m.latest
	m.mu.RUnlock()
	if id != "" {
		return m.Get(id)
	}

	runs, err := m.store.ListRuns(1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, eris.Wrap(ErrNotFound, "no jobs")
	}
	return m.Get(runs[0].ID)
}

// List 最近的任务
func (m *Manager) List(limit int) ([]*store.Run, error) {
	return m.store.ListRuns(limit)
}

// OutputFiles 任务生成的结果文件（绝对路径）
func (m *Manager) OutputFiles(run *store.Run) []string {
	var out []string
	for _, sh := range run.Sheets {
		if sh.Output == "" {
			continue
		}
		p := filepath.Join(run.OutputDir, sh.Output)
		if _, err := os.Stat(p); err == nil {
			out = append(out, p)
		}
	}
	return out
}

// OutputFile 按文件名取单个结果文件；只接受任务记录中的文件名
func (m *Manager) OutputFile(run *store.Run, name string) (string, error) {
	for _, p := range m.OutputFiles(run) {
		if filepath.Base(p) == name {
			return p, nil
		}
	}
	return "", eris.Wrapf(ErrOutputNotFound, "job %s file %s", run.ID, name)
}

// Wait 等待所有任务结束
func (m *Manager) Wait() {
	m.wg.Wait()
}
