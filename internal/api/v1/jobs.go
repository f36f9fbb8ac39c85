package v1

import (
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/kadeface/valueaddforteacher/internal/exporter"
	"github.com/kadeface/valueaddforteacher/internal/jobs"
	"github.com/kadeface/valueaddforteacher/internal/model"
	"github.com/kadeface/valueaddforteacher/internal/store"
)

// ProcessRequest 计算请求；未填写的参数使用默认值
type ProcessRequest struct {
	FileID         string `json:"fileId"`
	Subject        string `json:"subject"`
	ScoringMethod  string `json:"scoringMethod"`
	EducationLevel string `json:"educationLevel"`
}

// JobResponse 任务状态
type JobResponse struct {
	*store.Run
	OutputFiles []string `json:"outputFiles"`
}

// Health 健康检查
// GET /api/health
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Process 对已上传的工作簿发起计算
// POST /api/process
func (h *Handler) Process(c *gin.Context) {
	var req ProcessRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求参数"})
			return
		}
	}

	opts, err := h.resolveOptions(req.ScoringMethod, req.EducationLevel)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var upload *store.Upload
	if req.FileID == "" {
		upload, err = h.store.LatestUpload()
	} else {
		upload, err = h.store.GetUpload(req.FileID)
	}
	if err != nil {
		if eris.Is(err, store.ErrUploadNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "文件不存在，请先上传"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "读取上传记录失败"})
		return
	}

	id, err := h.jobs.Start(jobs.Request{
		UploadID: upload.ID,
		FilePath: upload.FilePath,
		Filename: upload.Filename,
		Subject:  strings.TrimSpace(req.Subject),
		Options:  opts,
	})
	if err != nil {
		if eris.Is(err, jobs.ErrBusy) {
			c.JSON(http.StatusConflict, gin.H{"error": "已有计算任务在进行中，请稍后再试"})
			return
		}
		zap.L().Error("api: start job failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "创建计算任务失败"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"jobId": id})
}

// resolveOptions 请求参数覆盖已保存的默认参数
func (h *Handler) resolveOptions(method, level string) (model.ScoringOptions, error) {
	opts, err := h.store.GetScoringDefaults(h.opts.Defaults())
	if err != nil {
		opts = h.opts.Defaults()
	}

	if method = strings.TrimSpace(method); method != "" {
		m, ok := model.ParseScoringMethod(method)
		if !ok {
			return opts, eris.Errorf("不支持的赋分方式: %s", method)
		}
		opts.Method = m
	}
	if level = strings.TrimSpace(level); level != "" {
		l := model.EducationLevel(level)
		if l != model.LevelMiddle && l != model.LevelPrimary {
			return opts, eris.Errorf("不支持的学段: %s", level)
		}
		opts.EducationLevel = l
	}
	return opts, nil
}

// GetStatus 最近一次任务的状态
// GET /api/status
func (h *Handler) GetStatus(c *gin.Context) {
	run, err := h.jobs.Latest()
	if err != nil {
		if eris.Is(err, jobs.ErrNotFound) {
			c.JSON(http.StatusOK, gin.H{"status": "idle"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "读取任务状态失败"})
		return
	}
	c.JSON(http.StatusOK, h.jobResponse(run))
}

// ListJobs 最近的任务列表
// GET /api/jobs?limit=20
func (h *Handler) ListJobs(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 || limit > 200 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit 必须在 1-200 之间"})
		return
	}
	runs, err := h.jobs.List(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "读取任务列表失败"})
		return
	}
	if runs == nil {
		runs = []*store.Run{}
	}
	c.JSON(http.StatusOK, gin.H{"jobs": runs})
}

// GetJob 任务详情
// GET /api/jobs/:id
func (h *Handler) GetJob(c *gin.Context) {
	run, ok := h.lookupJob(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.jobResponse(run))
}

// Download 下载单个结果文件
// GET /api/jobs/:id/download/:name
func (h *Handler) Download(c *gin.Context) {
	run, ok := h.lookupJob(c)
	if !ok {
		return
	}
	path, err := h.jobs.OutputFile(run, c.Param("name"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "结果文件不存在"})
		return
	}
	c.FileAttachment(path, filepath.Base(path))
}

// DownloadAll 打包下载任务的全部结果文件
// GET /api/jobs/:id/download-all
func (h *Handler) DownloadAll(c *gin.Context) {
	run, ok := h.lookupJob(c)
	if !ok {
		return
	}
	if !run.Finished() {
		c.JSON(http.StatusConflict, gin.H{"error": "任务尚未完成"})
		return
	}

	name := archiveName(run)
	if f, ok := h.archives.open(run.ID); ok {
		defer f.Close()
		serveAttachment(c, f, name)
		return
	}

	files := h.jobs.OutputFiles(run)
	if len(files) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "没有可下载的结果文件"})
		return
	}

	path, err := buildArchive(files)
	if err != nil {
		zap.L().Error("api: build archive failed", zap.String("job_id", run.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "打包结果文件失败"})
		return
	}
	f, err := h.archives.put(run.ID, path)
	if err != nil {
		zap.L().Error("api: open archive failed", zap.String("job_id", run.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "打包结果文件失败"})
		return
	}
	defer f.Close()
	serveAttachment(c, f, name)
}

// serveAttachment 以附件形式返回已打开的文件
func serveAttachment(c *gin.Context, f *os.File, name string) {
	var modTime time.Time
	if info, err := f.Stat(); err == nil {
		modTime = info.ModTime()
	}
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	http.ServeContent(c.Writer, c.Request, name, modTime, f)
}

func (h *Handler) lookupJob(c *gin.Context) (*store.Run, bool) {
	run, err := h.jobs.Get(c.Param("id"))
	if err != nil {
		if eris.Is(err, jobs.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "任务不存在"})
			return nil, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "读取任务失败"})
		return nil, false
	}
	return run, true
}

func (h *Handler) jobResponse(run *store.Run) JobResponse {
	files := h.jobs.OutputFiles(run)
	names := make([]string, 0, len(files))
	for _, p := range files {
		names = append(names, filepath.Base(p))
	}
	return JobResponse{Run: run, OutputFiles: names}
}

func archiveName(run *store.Run) string {
	base := strings.TrimSuffix(run.Filename, filepath.Ext(run.Filename))
	if base == "" {
		base = run.ID
	}
	return base + "_赋分结果.zip"
}

func buildArchive(files []string) (string, error) {
	f, err := os.CreateTemp("", "valueadd_results_*.zip")
	if err != nil {
		return "", err
	}
	if err := exporter.WriteArchive(f, files); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}
