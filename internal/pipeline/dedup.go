package pipeline

import (
	"container/list"
	"sync"
	"time"

	"wct/internal/infra/clock"
)

// dedupWindow is the span (§4.I step 2, §8) within which two lines carrying
// the same (author, text) pair are considered the same message arriving
// twice — once from the memory scanner, once from the file tail watcher.
const dedupWindow = 30 * time.Second

type dedupKey struct {
	author string
	text   string
}

type dedupEntry struct {
	key  dedupKey
	seen time.Time
}

// messageDedup is an insertion-ordered "seen recently" set, adapted from the
// teacher's concurrency.Deduplicator: there the key was
// "<chatID>:<msgID>:<editDate>" and eviction ran on a background ticker: here
// the key is (author, text) and eviction is lazy, happening inline on Seen,
// since the spec models it as an ordered map whose front is trimmed on
// insert rather than swept periodically. Single-threaded by contract — only
// the pipeline goroutine touches it — but the mutex costs nothing and keeps
// it safe if that contract ever loosens.
type messageDedup struct {
	mu      sync.Mutex
	entries map[dedupKey]*list.Element
	order   *list.List // front = oldest
}

func newMessageDedup() *messageDedup {
	return &messageDedup{
		entries: make(map[dedupKey]*list.Element),
		order:   list.New(),
	}
}

// Seen reports whether (author, text) was already recorded within the dedup
// window. If not, it records it with the current time and returns false.
func (d *messageDedup) Seen(author, text string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := clock.Now()
	d.evictStaleLocked(now)

	key := dedupKey{author: author, text: text}
	if _, ok := d.entries[key]; ok {
		return true
	}

	el := d.order.PushBack(dedupEntry{key: key, seen: now})
	d.entries[key] = el
	return false
}

// evictStaleLocked drops entries from the front while they are older than
// dedupWindow. Must be called with mu held.
func (d *messageDedup) evictStaleLocked(now time.Time) {
	for {
		front := d.order.Front()
		if front == nil {
			return
		}
		entry := front.Value.(dedupEntry)
		if now.Sub(entry.seen) < dedupWindow {
			return
		}
		d.order.Remove(front)
		delete(d.entries, entry.key)
	}
}

// Len returns the number of currently tracked entries; exposed for tests.
func (d *messageDedup) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.entries)
}
