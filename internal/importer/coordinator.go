package importer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/kadeface/valueaddforteacher/internal/exporter"
	"github.com/kadeface/valueaddforteacher/internal/model"
	"github.com/kadeface/valueaddforteacher/internal/parser"
	"github.com/kadeface/valueaddforteacher/internal/service/scoring"
)

// 结果状态
const (
	StatusComputed = "computed"
	StatusSkipped  = "skipped"
	StatusError    = "error"
)

// ResultSuffix 结果文件名后缀
const ResultSuffix = "_赋分结果.xlsx"

// ErrSubjectNotFound 指定科目的 Sheet 不存在
var ErrSubjectNotFound = eris.New("subject sheet not found")

// ErrNothingComputed 工作簿中没有可计算的科目
var ErrNothingComputed = eris.New("no subject sheet computed")

// Settings 协调器的固定参数（来自配置）
type Settings struct {
	SpecialOrgName string
	ExamKeywords   []string
	SkipSheets     []string
}

// Coordinator 计算协调器：读取工作簿 -> 解析 -> 计算 -> 导出
type Coordinator struct {
	mu     sync.RWMutex
	rules  *rules
	logger *zap.Logger
}

// rules 由 Settings 派生的解析规则，一次计算内固定
type rules struct {
	resolver   *parser.KeywordResolver
	recognizer *parser.SheetRecognizer
	specialOrg string
}

func newRules(settings Settings) *rules {
	resolver := parser.NewKeywordResolver(settings.ExamKeywords)
	return &rules{
		resolver:   resolver,
		recognizer: parser.NewSheetRecognizer(resolver, settings.SkipSheets),
		specialOrg: strings.TrimSpace(settings.SpecialOrgName),
	}
}

// NewCoordinator 创建计算协调器
func NewCoordinator(settings Settings, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		rules:  newRules(settings),
		logger: logger,
	}
}

// Apply 更新解析规则（配置热加载）；已开始的计算不受影响
func (c *Coordinator) Apply(settings Settings) {
	r := newRules(settings)
	c.mu.Lock()
	c.rules = r
	c.mu.Unlock()
}

func (c *Coordinator) currentRules() *rules {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rules
}

// ImportOptions 计算选项
type ImportOptions struct {
	FilePath  string
	OutputDir string
	Subject   string // 为空时计算全部科目 Sheet
	Scoring   model.ScoringOptions
}

// ProgressEvent 进度事件
type ProgressEvent struct {
	Type      string      `json:"type"`      // start/info/sheet_start/warning/sheet_done/done/error
	Message   string      `json:"message"`   // 事件消息
	Percent   int         `json:"percent"`   // 整体进度 0-100
	Data      interface{} `json:"data"`      // 附加数据
	Timestamp time.Time   `json:"timestamp"` // 时间戳
}

// ImportContext 单次计算的上下文
type ImportContext struct {
	Ctx          context.Context
	Options      ImportOptions
	File         *excelize.File
	Engine       *scoring.Engine
	StartTime    time.Time
	Report       *parser.ImportReport
	ProgressChan chan ProgressEvent
	rules        *rules
}

// Import 执行计算，返回进度通道；通道在 done 或 error 事件后关闭
func (c *Coordinator) Import(ctx context.Context, opts ImportOptions) <-chan ProgressEvent {
	progressChan := make(chan ProgressEvent, 100)

	go func() {
		defer close(progressChan)
		c.doImport(ctx, opts, progressChan)
	}()

	return progressChan
}

func (c *Coordinator) doImport(ctx context.Context, opts ImportOptions, progressChan chan ProgressEvent) {
	startTime := time.Now()
	filename := filepath.Base(opts.FilePath)

	c.sendProgress(ctx, progressChan, ProgressEvent{
		Type:    "start",
		Message: "开始计算",
		Data: map[string]string{
			"filename": filename,
			"method":   string(opts.Scoring.Method),
			"level":    string(opts.Scoring.EducationLevel),
		},
	})

	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		c.fail(ctx, progressChan, eris.Wrapf(err, "create output dir %s", opts.OutputDir))
		return
	}

	file, err := excelize.OpenFile(opts.FilePath)
	if err != nil {
		c.fail(ctx, progressChan, eris.Wrapf(err, "open workbook %s", filename))
		return
	}
	defer file.Close()

	ic := &ImportContext{
		Ctx:          ctx,
		Options:      opts,
		File:         file,
		Engine:       scoring.NewEngine(opts.Scoring, scoring.WithLogger(c.logger)),
		StartTime:    startTime,
		ProgressChan: progressChan,
		rules:        c.currentRules(),
		Report: &parser.ImportReport{
			Filename: filename,
			Sheets:   []parser.ParseResult{},
		},
	}

	sheetList := c.selectSheets(file.GetSheetList(), opts.Subject)
	if len(sheetList) == 0 {
		if opts.Subject != "" {
			c.fail(ctx, progressChan, eris.Wrapf(ErrSubjectNotFound, "subject %s", opts.Subject))
		} else {
			c.fail(ctx, progressChan, eris.Wrap(ErrNothingComputed, "workbook has no sheets"))
		}
		return
	}
	ic.Report.TotalSheets = len(sheetList)

	c.sendProgress(ctx, progressChan, ProgressEvent{
		Type:    "info",
		Message: fmt.Sprintf("发现 %d 个 Sheet", len(sheetList)),
		Percent: 5,
		Data: map[string]interface{}{
			"total_sheets": len(sheetList),
		},
	})

	for i, sheetName := range sheetList {
		if err := ctx.Err(); err != nil {
			c.fail(ctx, progressChan, eris.Wrap(err, "calculation cancelled"))
			return
		}
		c.processSheet(ic, sheetName, i, len(sheetList))
	}

	ic.Report.Duration = time.Since(startTime)
	if ic.Report.ComputedSheets == 0 {
		c.fail(ctx, progressChan, eris.Wrapf(ErrNothingComputed, "%d sheets examined", ic.Report.TotalSheets))
		return
	}

	c.logger.Info("importer: calculation finished",
		zap.String("file", filename),
		zap.Int("computed", ic.Report.ComputedSheets),
		zap.Int("skipped", ic.Report.SkippedSheets),
		zap.Int("failed", ic.Report.FailedSheets),
		zap.Duration("duration", ic.Report.Duration),
	)

	c.sendProgress(ctx, progressChan, ProgressEvent{
		Type:    "done",
		Message: "计算完成",
		Percent: 100,
		Data:    ic.Report,
	})
}

// selectSheets 指定科目时只保留同名 Sheet
func (c *Coordinator) selectSheets(sheets []string, subject string) []string {
	subject = parser.SubjectOf(subject)
	if subject == "" {
		return sheets
	}
	for _, s := range sheets {
		if parser.SubjectOf(s) == subject {
			return []string{s}
		}
	}
	return nil
}

// processSheet 处理单个 Sheet
func (c *Coordinator) processSheet(ic *ImportContext, sheetName string, idx, total int) {
	sheetStartTime := time.Now()
	percent := 5 + idx*90/total

	c.sendProgress(ic.Ctx, ic.ProgressChan, ProgressEvent{
		Type:    "sheet_start",
		Message: fmt.Sprintf("正在计算 Sheet: %s", sheetName),
		Percent: percent,
		Data: map[string]string{
			"sheet_name": sheetName,
		},
	})

	rows, err := ic.File.GetRows(sheetName)
	if err != nil || len(rows) < 1 {
		if err == nil {
			err = parser.ErrNoDataRows
		}
		c.recordSheetResult(ic, parser.ParseResult{
			SheetName: sheetName,
			Status:    StatusSkipped,
			Errors:    []string{fmt.Sprintf("读取 Sheet 失败: %v", err)},
			Duration:  time.Since(sheetStartTime),
		})
		return
	}

	recognition := ic.rules.recognizer.Recognize(sheetName, rows[0])
	if recognition.SheetType != parser.SheetTypeSubject {
		c.recordSheetResult(ic, parser.ParseResult{
			SheetName: sheetName,
			Subject:   recognition.Subject,
			Status:    StatusSkipped,
			Duration:  time.Since(sheetStartTime),
		})
		c.sendProgress(ic.Ctx, ic.ProgressChan, ProgressEvent{
			Type:    "info",
			Message: fmt.Sprintf("Sheet \"%s\" 识别为 %s，跳过", sheetName, recognition.SheetType),
			Percent: percent,
			Data: map[string]interface{}{
				"sheet_name": sheetName,
				"sheet_type": recognition.SheetType,
				"confidence": recognition.Confidence,
			},
		})
		return
	}

	result, output, err := c.computeSheet(ic, recognition.Subject, rows)
	if err != nil {
		c.logger.Error("importer: sheet failed", zap.String("sheet", sheetName), zap.Error(err))
		c.recordSheetResult(ic, parser.ParseResult{
			SheetName: sheetName,
			Subject:   recognition.Subject,
			Status:    StatusError,
			Errors:    []string{err.Error()},
			Duration:  time.Since(sheetStartTime),
		})
		c.sendProgress(ic.Ctx, ic.ProgressChan, ProgressEvent{
			Type:    "warning",
			Message: fmt.Sprintf("Sheet \"%s\" 计算失败: %v", sheetName, err),
			Percent: percent,
		})
		return
	}

	for _, w := range result.Warnings {
		c.sendProgress(ic.Ctx, ic.ProgressChan, ProgressEvent{
			Type:    "warning",
			Message: w.Message,
			Percent: percent,
			Data:    w,
		})
	}

	sheetResult := parser.ParseResult{
		SheetName: sheetName,
		Subject:   result.Subject,
		Status:    StatusComputed,
		Entities:  result.PopulationSize,
		Periods:   result.TotalPeriods(),
		Warnings:  len(result.Warnings),
		Output:    filepath.Base(output),
		Duration:  time.Since(sheetStartTime),
	}
	c.recordSheetResult(ic, sheetResult)

	c.sendProgress(ic.Ctx, ic.ProgressChan, ProgressEvent{
		Type:    "sheet_done",
		Message: fmt.Sprintf("Sheet \"%s\" 计算完成：%d 个单位，%d 次考试", sheetName, sheetResult.Entities, sheetResult.Periods),
		Percent: 5 + (idx+1)*90/total,
		Data:    sheetResult,
	})
}

// computeSheet 解析、计算并写出单科目结果
func (c *Coordinator) computeSheet(ic *ImportContext, subject string, rows [][]string) (*model.SubjectResult, string, error) {
	resolution, err := ic.rules.resolver.Resolve(subject, rows[0])
	if err != nil {
		return nil, "", err
	}
	ds, err := parser.BuildDataset(subject, rows[1:], resolution, ic.rules.specialOrg)
	if err != nil {
		return nil, "", err
	}
	result, err := ic.Engine.Compute(ds)
	if err != nil {
		return nil, "", err
	}

	output := filepath.Join(ic.Options.OutputDir, ResultFileName(subject))
	tables := []*exporter.Table{exporter.Tabulate(result, ds)}
	if len(result.Warnings) > 0 {
		tables = append(tables, exporter.WarningTable(result.Warnings))
	}
	progress := func(e exporter.ProgressEvent) {
		if e.Sheet != "" {
			c.logger.Debug("importer: sheet written",
				zap.String("output", filepath.Base(output)),
				zap.String("sheet", e.Sheet),
				zap.Int("rows", e.Rows))
		}
	}
	if err := exporter.WriteWorkbook(output, tables, progress); err != nil {
		return nil, "", err
	}
	return result, output, nil
}

// ResultFileName 科目结果文件名
func ResultFileName(subject string) string {
	return subject + ResultSuffix
}

func (c *Coordinator) recordSheetResult(ic *ImportContext, result parser.ParseResult) {
	ic.Report.Sheets = append(ic.Report.Sheets, result)

	switch result.Status {
	case StatusComputed:
		ic.Report.ComputedSheets++
		ic.Report.TotalEntities += result.Entities
		ic.Report.TotalWarnings += result.Warnings
	case StatusSkipped:
		ic.Report.SkippedSheets++
	case StatusError:
		ic.Report.FailedSheets++
	}
}

func (c *Coordinator) fail(ctx context.Context, ch chan ProgressEvent, err error) {
	c.logger.Error("importer: calculation failed", zap.Error(err))
	c.sendProgress(ctx, ch, ProgressEvent{
		Type:    "error",
		Message: err.Error(),
	})
}

// sendProgress 发送进度事件；调用方停止消费且 ctx 结束时放弃发送
func (c *Coordinator) sendProgress(ctx context.Context, ch chan ProgressEvent, event ProgressEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case ch <- event:
	case <-ctx.Done():
	}
}
