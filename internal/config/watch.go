package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"jobpool/internal/logger"
)

// DefaultDebounce は連続した書き込みイベントをまとめる待ち時間
const DefaultDebounce = 200 * time.Millisecond

// Watch は設定ファイルの変更を監視し、検証済みの新しい設定で onChange を呼ぶ
// エディタによる置き換えにも追従するため親ディレクトリを監視する
// ctx が終了するまでブロックする
func Watch(ctx context.Context, path string, debounce time.Duration, onChange func(*FileConfig)) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve config path: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(absPath), err)
	}

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != absPath {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			timer.Reset(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("config", "watch error: %v", err)

		case <-timer.C:
			cfg, err := LoadFile(absPath)
			if err != nil {
				logger.Error("config", "reload failed: %v", err)
				continue
			}
			if err := cfg.Validate(); err != nil {
				logger.Error("config", "reloaded config is invalid: %v", err)
				continue
			}
			logger.Info("config", "Config file reloaded: %s", absPath)
			onChange(cfg)
		}
	}
}
