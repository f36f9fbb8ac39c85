package v1

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kadeface/valueaddforteacher/internal/store"
)

var allowedExtensions = map[string]bool{
	".xlsx": true,
	".xlsm": true,
}

// UploadResponse 上传响应
type UploadResponse struct {
	FileID   string `json:"fileId"`
	Filename string `json:"filename"`
	FileSize int64  `json:"fileSize"`
}

// Upload 上传成绩工作簿
// POST /api/upload
func (h *Handler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.opts.MaxUploadBytes+1<<20)

	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "文件过大"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "未找到上传文件"})
		return
	}

	filename := filepath.Base(fh.Filename)
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExtensions[ext] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "仅支持 .xlsx / .xlsm 文件"})
		return
	}
	if fh.Size > h.opts.MaxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "文件过大"})
		return
	}

	id := uuid.NewString()
	path := filepath.Join(h.opts.UploadDir, id+ext)
	if err := c.SaveUploadedFile(fh, path); err != nil {
		zap.L().Error("api: save upload failed", zap.String("file", filename), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "保存文件失败"})
		return
	}

	hash, err := fileHash(path)
	if err != nil {
		_ = os.Remove(path)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "读取文件失败"})
		return
	}

	if err := h.store.CreateUpload(store.Upload{
		ID:       id,
		Filename: filename,
		FilePath: path,
		FileSize: fh.Size,
		FileHash: hash,
	}); err != nil {
		_ = os.Remove(path)
		zap.L().Error("api: record upload failed", zap.String("file", filename), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "保存文件失败"})
		return
	}

	c.JSON(http.StatusOK, UploadResponse{FileID: id, Filename: filename, FileSize: fh.Size})
}

func fileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
