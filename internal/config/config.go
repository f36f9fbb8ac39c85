package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/rotisserie/eris"

	"github.com/kadeface/valueaddforteacher/internal/model"
	"github.com/kadeface/valueaddforteacher/internal/parser"
)

// FileName 配置文件名（位于可执行文件同目录）
const FileName = "config.toml"

// AppConfig 应用配置
type AppConfig struct {
	Server  ServerConfig  `toml:"server"`
	Data    DataConfig    `toml:"data"`
	Scoring ScoringConfig `toml:"scoring"`
	Jobs    JobsConfig    `toml:"jobs"`
	Log     LogConfig     `toml:"log"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port    int  `toml:"port"`
	DevMode bool `toml:"dev_mode"`
}

// DataConfig 数据配置
type DataConfig struct {
	DataDir            string `toml:"data_dir"`
	DownloadTTLMinutes int    `toml:"download_ttl_minutes"`
	MaxUploadMB        int    `toml:"max_upload_mb"`
}

// ScoringConfig 计算默认参数
type ScoringConfig struct {
	SpecialOrgName string   `toml:"special_org_name"`
	Method         string   `toml:"method"`
	EducationLevel string   `toml:"education_level"`
	SkipSheets     []string `toml:"skip_sheets"`
	ExamKeywords   []string `toml:"exam_keywords"`
}

// JobsConfig 后台任务配置
type JobsConfig struct {
	MaxConcurrent int `toml:"max_concurrent"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level       string `toml:"level"`
	Development bool   `toml:"development"`
}

// LoadConfigInfo 配置加载元信息
type LoadConfigInfo struct {
	Path          string
	FileFound     bool
	PortSpecified bool
}

// DefaultConfig 默认配置
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:    5000,
			DevMode: false,
		},
		Data: DataConfig{
			DataDir:            "data",
			DownloadTTLMinutes: 30,
			MaxUploadMB:        16,
		},
		Scoring: ScoringConfig{
			SpecialOrgName: "金山中学",
			Method:         string(model.ScoringFixed),
			EducationLevel: string(model.LevelMiddle),
			SkipSheets:     append([]string(nil), parser.DefaultSkipSheets...),
			ExamKeywords:   append([]string(nil), parser.DefaultExamKeywords...),
		},
		Jobs: JobsConfig{
			MaxConcurrent: 1,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func isPortSpecifiedInToml(data []byte) bool {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return false
	}

	serverAny, ok := raw["server"]
	if !ok {
		return false
	}

	serverMap, ok := serverAny.(map[string]any)
	if !ok {
		return false
	}

	_, ok = serverMap["port"]
	return ok
}

// GetExeDir 获取可执行文件所在目录
func GetExeDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Dir(exe), nil
}

// DefaultPath 可执行文件同目录下的 config.toml
func DefaultPath() string {
	exeDir, err := GetExeDir()
	if err != nil {
		// 无法获取可执行文件目录，使用当前目录
		exeDir = "."
	}
	return filepath.Join(exeDir, FileName)
}

// LoadConfigWithInfo 从可执行文件同目录的 config.toml 加载配置并返回元信息
func LoadConfigWithInfo() (*AppConfig, LoadConfigInfo, error) {
	return LoadFile(DefaultPath())
}

// LoadFile 从指定路径加载配置；文件不存在时使用默认配置。环境变量覆盖文件内容。
func LoadFile(path string) (*AppConfig, LoadConfigInfo, error) {
	info := LoadConfigInfo{Path: path}
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		info.FileFound = true
		info.PortSpecified = isPortSpecifiedInToml(data)
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, info, eris.Wrapf(err, "parse %s", path)
		}
	case os.IsNotExist(err):
		// 配置文件不存在，使用默认配置
	default:
		return nil, info, eris.Wrapf(err, "read %s", path)
	}

	applyEnv(config)

	if err := config.Validate(); err != nil {
		return nil, info, err
	}
	return config, info, nil
}

// applyEnv 环境变量覆盖
func applyEnv(config *AppConfig) {
	if v := strings.TrimSpace(os.Getenv("VALUEADD_DATA_DIR")); v != "" {
		config.Data.DataDir = v
	}
	if v, ok := os.LookupEnv("VALUEADD_SPECIAL_ORG"); ok {
		config.Scoring.SpecialOrgName = strings.TrimSpace(v)
	}
	if v := strings.TrimSpace(os.Getenv("VALUEADD_PORT")); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			config.Server.Port = port
		}
	}
	if v := strings.TrimSpace(os.Getenv("VALUEADD_LOG_LEVEL")); v != "" {
		config.Log.Level = v
	}
}

// Validate 校验配置
func (c *AppConfig) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return eris.Errorf("invalid server.port %d", c.Server.Port)
	}
	if strings.TrimSpace(c.Data.DataDir) == "" {
		return eris.New("data.data_dir is empty")
	}
	if _, ok := model.ParseScoringMethod(c.Scoring.Method); !ok {
		return eris.Errorf("invalid scoring.method %q", c.Scoring.Method)
	}
	if c.Jobs.MaxConcurrent < 1 {
		c.Jobs.MaxConcurrent = 1
	}
	if c.Data.DownloadTTLMinutes <= 0 {
		c.Data.DownloadTTLMinutes = 30
	}
	if c.Data.MaxUploadMB <= 0 {
		c.Data.MaxUploadMB = 16
	}
	return nil
}

// ScoringOptions 默认计算参数；教育阶段不做校验，未知阶段由计算引擎告警后回退
func (c *AppConfig) ScoringOptions() model.ScoringOptions {
	method, _ := model.ParseScoringMethod(c.Scoring.Method)
	level := model.EducationLevel(strings.TrimSpace(c.Scoring.EducationLevel))
	if level == "" {
		level = model.LevelMiddle
	}
	return model.ScoringOptions{Method: method, EducationLevel: level}
}

// ResolveDataDir 数据目录的绝对路径：相对路径以可执行文件所在目录为基准
func ResolveDataDir(config *AppConfig) string {
	dir := config.Data.DataDir
	if filepath.IsAbs(dir) {
		return dir
	}
	exeDir, err := GetExeDir()
	if err != nil {
		exeDir = "."
	}
	return filepath.Join(exeDir, dir)
}

// 数据目录下的子目录
const (
	UploadsDir = "uploads"
	ResultsDir = "results"
)

// EnsureDataDir 确保数据目录及其子目录存在
func EnsureDataDir(config *AppConfig) (string, error) {
	dataDir := ResolveDataDir(config)

	for _, sub := range []string{"", UploadsDir, ResultsDir} {
		if err := os.MkdirAll(filepath.Join(dataDir, sub), 0755); err != nil {
			return "", eris.Wrapf(err, "create %s", filepath.Join(dataDir, sub))
		}
	}

	return dataDir, nil
}
