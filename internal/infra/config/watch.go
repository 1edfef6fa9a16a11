package config

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"wct/internal/infra/logger"
)

// reloadDebounce matches the pack's debounced-config-watcher idiom: editors
// commonly do create+write+rename on save, which would otherwise fire the
// reload channel multiple times for one logical change.
const reloadDebounce = 500 * time.Millisecond

// Watch builds a debounced file-change notifier for path, the I/O half of
// §4.K hot reconfigure. The caller is expected to LoadSettings(path) again
// on receipt and push the result into the orchestrator via ConfigUpdate.
func Watch(ctx context.Context, path string) <-chan struct{} {
	reloadCh := make(chan struct{}, 1)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Error("config: failed to create fsnotify watcher", zap.Error(err))
		close(reloadCh)
		return reloadCh
	}

	if err := watcher.Add(path); err != nil {
		logger.Warn("config: could not watch settings file", zap.String("path", path), zap.Error(err))
	}

	go func() {
		defer watcher.Close()
		defer close(reloadCh)

		var timer *time.Timer
		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(reloadDebounce, func() {
					select {
					case reloadCh <- struct{}{}:
					default:
					}
				})
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("config: watcher error", zap.Error(err))
			}
		}
	}()

	return reloadCh
}
