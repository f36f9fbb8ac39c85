package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	v1 "github.com/kadeface/valueaddforteacher/internal/api/v1"
	"github.com/kadeface/valueaddforteacher/internal/config"
	"github.com/kadeface/valueaddforteacher/internal/importer"
	"github.com/kadeface/valueaddforteacher/internal/jobs"
	"github.com/kadeface/valueaddforteacher/internal/model"
	"github.com/kadeface/valueaddforteacher/internal/parser"
	"github.com/kadeface/valueaddforteacher/internal/server"
	"github.com/kadeface/valueaddforteacher/internal/store"
)

var (
	configPath = flag.String("config", "", "配置文件路径 (默认为可执行文件同目录的 config.toml)")
	port       = flag.Int("port", 0, "服务端口 (config.toml 优先；仅当未显式配置 port 时生效)")
	devMode    = flag.Bool("dev", false, "开发模式")
	dataDir    = flag.String("dataDir", "", "数据目录 (覆盖配置文件)")

	// 批处理模式
	input   = flag.String("input", "", "成绩工作簿路径；指定后直接计算并退出")
	subject = flag.String("subject", "", "只计算指定科目 (默认全部科目)")
	method  = flag.String("method", "", "赋分方式: fixed 或 percentage")
	level   = flag.String("level", "", "学段: middle 或 primary")
	outDir  = flag.String("out", "", "结果输出目录 (默认为工作簿所在目录)")
)

func main() {
	flag.Parse()

	// 加载配置
	var (
		cfg  *config.AppConfig
		info config.LoadConfigInfo
		err  error
	)
	if *configPath == "" {
		cfg, info, err = config.LoadConfigWithInfo()
	} else {
		cfg, info, err = config.LoadFile(*configPath)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败，使用默认配置: %v\n", err)
		cfg = config.DefaultConfig()
		info = config.LoadConfigInfo{Path: info.Path}
	}

	// 命令行参数覆盖配置
	if *port > 0 && !info.PortSpecified {
		cfg.Server.Port = *port
	}
	if *devMode {
		cfg.Server.DevMode = true
	}
	if *dataDir != "" {
		cfg.Data.DataDir = *dataDir
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *input != "" {
		if err := runBatch(ctx, cfg, logger); err != nil {
			logger.Error("batch: failed", zap.Error(err))
			stop()
			os.Exit(1)
		}
		return
	}

	if err := runServer(ctx, cfg, info, logger); err != nil {
		logger.Error("server: stopped with error", zap.Error(err))
		stop()
		os.Exit(1)
	}
}

func newLogger(lc config.LogConfig) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if lc.Development {
		zc = zap.NewDevelopmentConfig()
	}
	if lc.Level != "" {
		lvl, err := zap.ParseAtomicLevel(lc.Level)
		if err != nil {
			return nil, err
		}
		zc.Level = lvl
	}
	return zc.Build()
}

func importerSettings(cfg *config.AppConfig) importer.Settings {
	return importer.Settings{
		SpecialOrgName: cfg.Scoring.SpecialOrgName,
		ExamKeywords:   cfg.Scoring.ExamKeywords,
		SkipSheets:     cfg.Scoring.SkipSheets,
	}
}

// batchOptions 命令行参数覆盖配置中的计算参数
func batchOptions(cfg *config.AppConfig) (model.ScoringOptions, error) {
	opts := cfg.ScoringOptions()
	if *method != "" {
		m, ok := model.ParseScoringMethod(*method)
		if !ok {
			return opts, eris.Errorf("不支持的赋分方式: %s", *method)
		}
		opts.Method = m
	}
	if *level != "" {
		opts.EducationLevel = model.EducationLevel(*level)
	}
	return opts, nil
}

// runBatch 同步计算一个工作簿，结果写入输出目录
func runBatch(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) error {
	opts, err := batchOptions(cfg)
	if err != nil {
		return err
	}
	out := *outDir
	if out == "" {
		out = filepath.Dir(*input)
	}

	coordinator := importer.NewCoordinator(importerSettings(cfg), logger)
	events := coordinator.Import(ctx, importer.ImportOptions{
		FilePath:  *input,
		OutputDir: out,
		Subject:   *subject,
		Scoring:   opts,
	})

	var failure error
	for evt := range events {
		switch evt.Type {
		case "warning":
			fmt.Printf("[%3d%%] 警告: %s\n", evt.Percent, evt.Message)
		case "error":
			failure = eris.New(evt.Message)
			fmt.Printf("[%3d%%] 错误: %s\n", evt.Percent, evt.Message)
		case "done":
			fmt.Printf("[100%%] %s\n", evt.Message)
			if report, ok := evt.Data.(*parser.ImportReport); ok {
				printReport(report, out)
			}
		default:
			fmt.Printf("[%3d%%] %s\n", evt.Percent, evt.Message)
		}
	}
	return failure
}

func printReport(report *parser.ImportReport, out string) {
	fmt.Printf("共 %d 个 Sheet：计算 %d，跳过 %d，失败 %d；告警 %d 条，耗时 %s\n",
		report.TotalSheets, report.ComputedSheets, report.SkippedSheets, report.FailedSheets,
		report.TotalWarnings, report.Duration.Round(time.Millisecond))
	for _, sh := range report.Sheets {
		if sh.Output != "" {
			fmt.Printf("  %s -> %s\n", sh.SheetName, filepath.Join(out, sh.Output))
		}
	}
}

// runServer 启动 HTTP 服务直到收到退出信号
func runServer(ctx context.Context, cfg *config.AppConfig, info config.LoadConfigInfo, logger *zap.Logger) error {
	dataDir, err := config.EnsureDataDir(cfg)
	if err != nil {
		return err
	}
	logger.Info("server: data directory", zap.String("path", dataDir))

	st, err := store.New(filepath.Join(dataDir, "valueadd.db"))
	if err != nil {
		return err
	}
	defer st.Close()

	if n, err := st.FailInterrupted("服务重启，任务中断"); err != nil {
		return err
	} else if n > 0 {
		logger.Warn("server: marked interrupted runs as failed", zap.Int("count", n))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := jobs.NewMetrics()
	if err := metrics.Register(registry); err != nil {
		return err
	}

	coordinator := importer.NewCoordinator(importerSettings(cfg), logger)
	manager := jobs.NewManager(ctx, jobs.Config{
		OutputRoot:    filepath.Join(dataDir, config.ResultsDir),
		MaxConcurrent: cfg.Jobs.MaxConcurrent,
	}, coordinator, st, metrics, logger)

	var defaults atomic.Pointer[model.ScoringOptions]
	initial := cfg.ScoringOptions()
	defaults.Store(&initial)

	// 配置热加载：只更新计算相关参数，端口与数据目录需重启生效
	if info.FileFound {
		go func() {
			err := config.Watch(ctx, info.Path, logger, func(next *config.AppConfig) {
				coordinator.Apply(importerSettings(next))
				opts := next.ScoringOptions()
				defaults.Store(&opts)
			})
			if err != nil {
				logger.Warn("config: watch unavailable", zap.Error(err))
			}
		}()
	}

	srv := server.NewServer(st, manager, server.Options{
		DevMode: cfg.Server.DevMode,
		API: v1.Options{
			UploadDir:      filepath.Join(dataDir, config.UploadsDir),
			MaxUploadBytes: int64(cfg.Data.MaxUploadMB) << 20,
			ArchiveTTL:     time.Duration(cfg.Data.DownloadTTLMinutes) * time.Minute,
			Defaults:       func() model.ScoringOptions { return *defaults.Load() },
		},
		Registry: registry,
		Logger:   logger,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	logger.Info("server: listening", zap.String("addr", addr), zap.Bool("dev", cfg.Server.DevMode))

	err = srv.Run(ctx, addr)
	manager.Wait()
	logger.Info("server: stopped")
	return err
}
