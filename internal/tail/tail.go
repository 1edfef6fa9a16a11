// Package tail is the File Tail Watcher from spec §4.B: WoW buffers its
// addon's chat-log writes, so filesystem events are unreliable. Instead the
// watcher polls the file size on an interval and reads whatever was
// appended since the last poll.
package tail

import (
	"bufio"
	"context"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"wct/internal/infra/logger"
)

// pollInterval matches the addon's own flush cadence (every 5s) with margin.
const pollInterval = 1 * time.Second

// Watcher polls path for appended lines, delivering each non-blank one to
// onLine in order. It is not reentrant: Start/Stop manage a single
// internal goroutine.
type Watcher struct {
	path     string
	onLine   func(line string)
	interval time.Duration

	mu       sync.Mutex
	position int64

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New builds a Watcher for path. onLine is invoked once per new non-blank
// line, in file order.
func New(path string, onLine func(line string)) *Watcher {
	return &Watcher{
		path:     path,
		onLine:   onLine,
		interval: pollInterval,
		stopCh:   make(chan struct{}),
	}
}

// Tail reads up to maxLines non-blank lines from the end of the file, for
// replaying recent history on startup. A missing file yields an empty slice,
// not an error.
func (w *Watcher) Tail(maxLines int) []string {
	f, err := os.Open(w.path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var all []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			all = append(all, line)
		}
	}

	if len(all) <= maxLines {
		return all
	}
	return all[len(all)-maxLines:]
}

// Start seeks to the current end of file (so only genuinely new lines are
// delivered) and launches the polling goroutine.
func (w *Watcher) Start(ctx context.Context) {
	w.seekToEnd()
	w.wg.Add(1)
	go w.pollLoop(ctx)
	logger.Info("tail: watching", zap.String("path", w.path))
}

// Stop requests the polling goroutine exit and waits (bounded) for it to do
// so.
func (w *Watcher) Stop() {
	close(w.stopCh)
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
	}
	logger.Info("tail: stopped")
}

func (w *Watcher) seekToEnd() {
	info, err := os.Stat(w.path)
	w.mu.Lock()
	defer w.mu.Unlock()
	if err != nil {
		w.position = 0
		return
	}
	w.position = info.Size()
}

func (w *Watcher) pollLoop(ctx context.Context) {
	defer w.wg.Done()
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.readNewLines()
		}
	}
}

// readNewLines implements the size-vs-position poll: a shrunken file (log
// truncated or recreated) resets position to 0, per §4.B.
func (w *Watcher) readNewLines() {
	info, err := os.Stat(w.path)
	if err != nil {
		return // missing file: no-op, per §4.B
	}
	size := info.Size()

	w.mu.Lock()
	position := w.position
	w.mu.Unlock()

	if size < position {
		logger.Info("tail: file truncated or recreated, resetting position", zap.String("path", w.path))
		position = 0
	}
	if size == position {
		w.mu.Lock()
		w.position = position
		w.mu.Unlock()
		return
	}

	f, err := os.Open(w.path)
	if err != nil {
		logger.Warn("tail: cannot read chat log", zap.Error(err))
		return
	}
	defer f.Close()

	if _, err := f.Seek(position, 0); err != nil {
		logger.Warn("tail: seek failed", zap.Error(err))
		return
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		w.onLine(line)
	}

	w.mu.Lock()
	w.position = size
	w.mu.Unlock()
}
