package store

import (
	"database/sql"

	"github.com/rotisserie/eris"

	"github.com/kadeface/valueaddforteacher/internal/model"
)

// ErrConfigNotFound 配置项不存在
var ErrConfigNotFound = eris.New("config key not found")

const (
	keyDefaultMethod = "default_method"
	keyDefaultLevel  = "default_education_level"
)

// GetConfig 获取配置项
func (s *Store) GetConfig(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM config WHERE key = ?", key).Scan(&value)
	if err != nil {
		if eris.Is(err, sql.ErrNoRows) {
			return "", eris.Wrapf(ErrConfigNotFound, "key %s", key)
		}
		return "", eris.Wrapf(err, "failed to read config %s", key)
	}
	return value, nil
}

// SetConfig 设置配置项
func (s *Store) SetConfig(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = ?, updated_at = CURRENT_TIMESTAMP
	`, key, value, value)
	if err != nil {
		return eris.Wrapf(err, "failed to write config %s", key)
	}
	return nil
}

// GetScoringDefaults 读取界面保存的默认计算参数；未保存的项使用 fallback
func (s *Store) GetScoringDefaults(fallback model.ScoringOptions) (model.ScoringOptions, error) {
	out := fallback
	if v, err := s.GetConfig(keyDefaultMethod); err == nil {
		if m, ok := model.ParseScoringMethod(v); ok {
			out.Method = m
		}
	} else if !eris.Is(err, ErrConfigNotFound) {
		return fallback, err
	}
	if v, err := s.GetConfig(keyDefaultLevel); err == nil && v != "" {
		out.EducationLevel = model.EducationLevel(v)
	} else if err != nil && !eris.Is(err, ErrConfigNotFound) {
		return fallback, err
	}
	return out, nil
}

// SetScoringDefaults 保存默认计算参数
func (s *Store) SetScoringDefaults(opts model.ScoringOptions) error {
	if err := s.SetConfig(keyDefaultMethod, string(opts.Method)); err != nil {
		return err
	}
	return s.SetConfig(keyDefaultLevel, string(opts.EducationLevel))
}
