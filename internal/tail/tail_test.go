package tail

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
}

func appendFile(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open file for append: %v", err)
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("append: %v", err)
	}
}

func TestTailReturnsLastNLinesSkippingBlank(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "WoWChatLog.txt")
	writeFile(t, path, "one\n\ntwo\nthree\nfour\n")

	w := New(path, func(string) {})
	got := w.Tail(2)

	if len(got) != 2 || got[0] != "three" || got[1] != "four" {
		t.Fatalf("expected [three four], got %v", got)
	}
}

func TestTailMissingFileReturnsEmpty(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "missing.txt"), func(string) {})
	got := w.Tail(10)
	if len(got) != 0 {
		t.Fatalf("expected empty slice, got %v", got)
	}
}

func TestWatcherDeliversOnlyAppendedLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "WoWChatLog.txt")
	writeFile(t, path, "preexisting line\n")

	var mu sync.Mutex
	var delivered []string
	w := New(path, func(line string) {
		mu.Lock()
		delivered = append(delivered, line)
		mu.Unlock()
	})
	w.interval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)
	defer w.Stop()

	appendFile(t, path, "new line one\nnew line two\n")

	deadline := time.Now().Add(1 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(delivered)
		mu.Unlock()
		if n >= 2 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(delivered) != 2 || delivered[0] != "new line one" || delivered[1] != "new line two" {
		t.Fatalf("expected only the appended lines, got %v", delivered)
	}
}

func TestWatcherResetsPositionOnTruncation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "WoWChatLog.txt")
	writeFile(t, path, "aaaaaaaaaaaaaaaaaaaa\n")

	var mu sync.Mutex
	var delivered []string
	w := New(path, func(line string) {
		mu.Lock()
		delivered = append(delivered, line)
		mu.Unlock()
	})
	w.interval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)
	defer w.Stop()

	time.Sleep(30 * time.Millisecond)
	writeFile(t, path, "short\n")

	deadline := time.Now().Add(1 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(delivered)
		mu.Unlock()
		if n >= 1 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(delivered) != 1 || delivered[0] != "short" {
		t.Fatalf("expected the post-truncation line delivered, got %v", delivered)
	}
}

func TestWatcherMissingFileIsNoOp(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "missing.txt"), func(string) {
		t.Fatal("onLine should never be called for a missing file")
	})
	w.interval = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)
	time.Sleep(30 * time.Millisecond)
	w.Stop()
}
