package config

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watch 监听配置文件变化，每次写入后重新加载并调用 onChange，直到 ctx 结束
//
// 监听的是配置文件所在目录：编辑器以临时文件 rename 覆盖的方式保存时，
// 原文件的监听会随 inode 一起失效。重新加载失败（如 TOML 语法错误）时
// 记录日志并保留旧配置，不调用 onChange。
func Watch(ctx context.Context, path string, logger *zap.Logger, onChange func(*AppConfig)) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	path, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	path = filepath.Clean(path)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}

	logger.Info("config: watching for changes", zap.String("path", path))

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isConfigEvent(event, path) {
				continue
			}

			cfg, _, err := LoadFile(path)
			if err != nil {
				logger.Error("config: reload failed, keeping previous config",
					zap.String("path", path), zap.Error(err))
				continue
			}

			logger.Info("config: reloaded", zap.String("path", path))
			onChange(cfg)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("config: watcher error", zap.Error(err))
		}
	}
}

// isConfigEvent 目录内针对配置文件本身的写入或创建（rename 覆盖在目录上表现为 Create）
func isConfigEvent(event fsnotify.Event, path string) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return false
	}
	name, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}
	return filepath.Clean(name) == path
}
