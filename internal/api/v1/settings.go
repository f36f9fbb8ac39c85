package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kadeface/valueaddforteacher/internal/model"
)

// SettingsRequest 默认计算参数
type SettingsRequest struct {
	ScoringMethod  string `json:"scoringMethod"`
	EducationLevel string `json:"educationLevel"`
}

// GetSettings 获取默认计算参数
// GET /api/settings
func (h *Handler) GetSettings(c *gin.Context) {
	opts, err := h.store.GetScoringDefaults(h.opts.Defaults())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "获取配置失败"})
		return
	}
	c.JSON(http.StatusOK, settingsResponse(opts))
}

// UpdateSettings 保存默认计算参数
// PUT /api/settings
func (h *Handler) UpdateSettings(c *gin.Context) {
	var req SettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求参数"})
		return
	}

	opts, err := h.resolveOptions(req.ScoringMethod, req.EducationLevel)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.store.SetScoringDefaults(opts); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "保存配置失败"})
		return
	}
	c.JSON(http.StatusOK, settingsResponse(opts))
}

func settingsResponse(opts model.ScoringOptions) gin.H {
	return gin.H{
		"scoringMethod":  opts.Method,
		"educationLevel": opts.EducationLevel,
	}
}
