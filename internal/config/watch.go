package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDelay coalesces the bursts of events editors produce on save.
const reloadDelay = 100 * time.Millisecond

// Watch reloads the config file at path whenever it is written or created
// and passes the result to fn. The parent directory is watched so editors
// that replace the file are handled. fn runs on the watcher goroutine; the
// watcher stops when ctx is done.
func Watch(ctx context.Context, path string, fn func(FileConfig, error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch config dir: %w", err)
	}

	go func() {
		defer func() {
			_ = watcher.Close()
		}()
		var pending <-chan time.Time
		name := filepath.Base(path)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != name {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				pending = time.After(reloadDelay)
			case <-pending:
				pending = nil
				fn(LoadConfig(path))
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				fn(FileConfig{}, fmt.Errorf("config watcher: %w", err))
			}
		}
	}()
	return nil
}
