package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher 基于 fsnotify 监听配置文件，变更经去抖后重新加载。
// 监听所在目录而不是文件本身，编辑器"写临时文件再 rename"的保存方式也能捕获。
type Watcher struct {
	Path     string
	Debounce time.Duration
	OnError  func(error)
}

// Start 阻塞监听直到 ctx 取消；加载成功时以最新配置回调 onUpdate。
func (w Watcher) Start(ctx context.Context, onUpdate func(AppConfig)) error {
	if w.Debounce <= 0 {
		w.Debounce = 500 * time.Millisecond
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fw.Close()

	target, err := filepath.Abs(w.Path)
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}
	if err := fw.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to watch config dir: %w", err)
	}

	timer := time.NewTimer(w.Debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if name, _ := filepath.Abs(event.Name); name != target {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				timer.Reset(w.Debounce)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.reportError(fmt.Errorf("watcher: %w", err))
		case <-timer.C:
			cfg, err := LoadWithEnvOverrides(w.Path)
			if err != nil {
				w.reportError(err)
				continue
			}
			if onUpdate != nil {
				onUpdate(cfg)
			}
		}
	}
}

func (w Watcher) reportError(err error) {
	if w.OnError != nil {
		w.OnError(err)
	}
}
