package v1

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kadeface/valueaddforteacher/internal/jobs"
	"github.com/kadeface/valueaddforteacher/internal/model"
	"github.com/kadeface/valueaddforteacher/internal/store"
)

// Options API 参数
type Options struct {
	UploadDir      string
	MaxUploadBytes int64
	ArchiveTTL     time.Duration

	// Defaults 配置文件中的默认计算参数（随配置热加载变化）
	Defaults func() model.ScoringOptions
}

// Handler V1 API 处理器
type Handler struct {
	store    *store.Store
	jobs     *jobs.Manager
	opts     Options
	archives *archiveCache
}

// NewHandler 创建 V1 API 处理器
func NewHandler(st *store.Store, manager *jobs.Manager, opts Options) *Handler {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 16 << 20
	}
	if opts.ArchiveTTL <= 0 {
		opts.ArchiveTTL = 30 * time.Minute
	}
	if opts.Defaults == nil {
		opts.Defaults = func() model.ScoringOptions {
			return model.ScoringOptions{Method: model.ScoringFixed, EducationLevel: model.LevelMiddle}
		}
	}
	return &Handler{
		store:    st,
		jobs:     manager,
		opts:     opts,
		archives: newArchiveCache(opts.ArchiveTTL),
	}
}

// RegisterRoutes 注册 V1 API 路由
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/health", h.Health)

	// 上传与计算
	router.POST("/upload", h.Upload)
	router.POST("/process", h.Process)

	// 任务状态
	router.GET("/status", h.GetStatus)
	router.GET("/jobs", h.ListJobs)
	router.GET("/jobs/:id", h.GetJob)

	// 结果下载
	router.GET("/jobs/:id/download/:name", h.Download)
	router.GET("/jobs/:id/download-all", h.DownloadAll)

	// 默认计算参数
	router.GET("/settings", h.GetSettings)
	router.PUT("/settings", h.UpdateSettings)
}

// Close 清理打包缓存
func (h *Handler) Close() {
	h.archives.clear()
}
