package scanner

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeReader is an in-memory ProcessReader: a map of address -> raw buffer
// bytes the test can rewrite between poll ticks.
type fakeReader struct {
	mu        sync.Mutex
	attached  bool
	regions   []BufferRegion
	contents  map[uintptr][]byte
	attachErr error
}

func newFakeReader(regions []BufferRegion) *fakeReader {
	return &fakeReader{regions: regions, contents: make(map[uintptr][]byte)}
}

func (f *fakeReader) set(addr uintptr, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.contents[addr] = []byte(bufStart + body + bufEnd)
}

func (f *fakeReader) clear(addr uintptr) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.contents, addr)
}

func (f *fakeReader) Attach(ctx context.Context, candidateNames []string) (bool, error) {
	if f.attachErr != nil {
		return false, f.attachErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.regions) == 0 {
		return false, nil
	}
	f.attached = true
	return true, nil
}

func (f *fakeReader) Regions() ([]BufferRegion, error) {
	return f.regions, nil
}

func (f *fakeReader) ReadAt(addr uintptr, buf []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.contents[addr]
	if !ok {
		return 0, fmt.Errorf("no data at %v", addr)
	}
	n := copy(buf, data)
	return n, nil
}

func (f *fakeReader) Detach() {
	f.mu.Lock()
	f.attached = false
	f.mu.Unlock()
}

func line(seq int, channel, authorServer, text string) string {
	return fmt.Sprintf("%d|%s|%s|%s\n", seq, channel, authorServer, text)
}

func rawLine(seq int, payload string) string {
	return fmt.Sprintf("%d|RAW|%s\n", seq, payload)
}

func TestCascadeFindPrefersHistoryOverHeapAndFull(t *testing.T) {
	const historyAddr, heapAddr, fullAddr = uintptr(0x1000), uintptr(0x2000), uintptr(0x3000)

	r := newFakeReader([]BufferRegion{
		{BaseAddress: heapAddr, SizeBytes: 4096},
		{BaseAddress: fullAddr, SizeBytes: 50 * 1024 * 1024},
	})
	r.set(heapAddr, line(1, "Guild", "Bob-Area52", "hi"))
	r.set(fullAddr, line(2, "Guild", "Bob-Area52", "hi"))

	s := New(r, nil, func(string) {})
	s.regions = r.regions
	s.history.recordFound(historyAddr)
	r.set(historyAddr, line(5, "Guild", "Bob-Area52", "hi"))

	addr, maxSeq, _, found := s.cascadeFind(0)
	if !found || addr != historyAddr || maxSeq != 5 {
		t.Fatalf("expected history tier winner addr=%v seq=5, got addr=%v seq=%d found=%v", historyAddr, addr, maxSeq, found)
	}
}

func TestCascadeFindFallsThroughToHeapThenFull(t *testing.T) {
	const heapAddr, fullAddr = uintptr(0x2000), uintptr(0x3000)

	r := newFakeReader([]BufferRegion{
		{BaseAddress: heapAddr, SizeBytes: 4096},
		{BaseAddress: fullAddr, SizeBytes: 50 * 1024 * 1024},
	})
	r.set(fullAddr, line(9, "Guild", "Bob-Area52", "hi"))

	s := New(r, nil, func(string) {})
	s.regions = r.regions

	addr, maxSeq, _, found := s.cascadeFind(0)
	if !found || addr != fullAddr || maxSeq != 9 {
		t.Fatalf("expected full-scan tier winner, got addr=%v seq=%d found=%v", addr, maxSeq, found)
	}
}

func TestPollOnceDeliversNewLinesInOrder(t *testing.T) {
	const addr = uintptr(0x1000)
	r := newFakeReader([]BufferRegion{{BaseAddress: addr, SizeBytes: 4096}})

	var delivered []string
	s := New(r, nil, func(raw string) { delivered = append(delivered, raw) })
	s.bufAddr = addr
	s.lastSeq = 1

	r.set(addr, line(3, "Guild", "Bob-Area52", "three")+line(2, "Guild", "Bob-Area52", "two"))

	if !s.pollOnce() {
		t.Fatal("expected pollOnce to succeed")
	}
	if len(delivered) != 2 {
		t.Fatalf("expected 2 delivered lines, got %d: %v", len(delivered), delivered)
	}
	if !strings.HasSuffix(delivered[0], "Guild|Bob-Area52|two") || !strings.HasSuffix(delivered[1], "Guild|Bob-Area52|three") {
		t.Fatalf("expected SEQ order two,three, got %v", delivered)
	}
	if s.lastSeq != 3 {
		t.Fatalf("expected lastSeq=3, got %d", s.lastSeq)
	}
}

func TestPollOnceFiltersSystemNoise(t *testing.T) {
	const addr = uintptr(0x1000)
	r := newFakeReader([]BufferRegion{{BaseAddress: addr, SizeBytes: 4096}})

	var delivered []string
	s := New(r, nil, func(raw string) { delivered = append(delivered, raw) })
	s.bufAddr = addr
	s.lastSeq = 0

	r.set(addr, line(1, "Guild", "Bob-Area52", "hi")+rawLine(2, "You receive item: Hearthstone."))

	if !s.pollOnce() {
		t.Fatal("expected pollOnce to succeed")
	}
	if len(delivered) != 1 || !strings.HasSuffix(delivered[0], "Guild|Bob-Area52|hi") {
		t.Fatalf("expected only the non-noise line delivered, got %v", delivered)
	}
}

func TestPollOnceSequenceResetSuppressesReplayedLines(t *testing.T) {
	const addr = uintptr(0x1000)
	r := newFakeReader([]BufferRegion{{BaseAddress: addr, SizeBytes: 4096}})

	var delivered []string
	s := New(r, nil, func(raw string) { delivered = append(delivered, raw) })
	s.bufAddr = addr
	s.lastSeq = 50

	r.set(addr, line(1, "Guild", "Bob-Area52", "after restart"))
	if !s.pollOnce() {
		t.Fatal("expected pollOnce to succeed on reset")
	}
	if len(delivered) != 0 {
		t.Fatalf("expected the reset-triggering buffer's own line suppressed, got %v", delivered)
	}
	if s.lastSeq != 1 {
		t.Fatalf("expected lastSeq reset to 1, got %d", s.lastSeq)
	}

	delivered = nil
	r.set(addr, line(1, "Guild", "Bob-Area52", "after restart")+line(2, "Guild", "Bob-Area52", "new one"))
	if !s.pollOnce() {
		t.Fatal("expected pollOnce to succeed")
	}
	if len(delivered) != 1 || !strings.HasSuffix(delivered[0], "Guild|Bob-Area52|new one") {
		t.Fatalf("expected only the genuinely new line, got %v", delivered)
	}
}

func TestHandleMarkerGoneBumpsTierAfterThreshold(t *testing.T) {
	const oldAddr, newAddr = uintptr(0x1000), uintptr(0x2000)
	r := newFakeReader([]BufferRegion{{BaseAddress: newAddr, SizeBytes: 4096}})

	s := New(r, nil, func(string) {})
	s.bufAddr = oldAddr
	s.lastSeq = 5
	s.regions = r.regions

	if !s.handleMarkerGone() {
		t.Fatal("expected stale_count=1 (< threshold 2) to stay attached")
	}
	if s.tier != 0 {
		t.Fatalf("expected tier unchanged before threshold, got %d", s.tier)
	}

	r.set(newAddr, line(6, "Guild", "Bob-Area52", "relocated"))
	if !s.handleMarkerGone() {
		t.Fatal("expected cascade find to relocate the marker at threshold")
	}
	if s.bufAddr != newAddr {
		t.Fatalf("expected relocation to new address, got %v", s.bufAddr)
	}
	if s.tier != 1 {
		t.Fatalf("expected tier bumped to 1, got %d", s.tier)
	}
}

func TestRunAttachRetriesUntilFound(t *testing.T) {
	const addr = uintptr(0x1000)
	r := newFakeReader(nil)
	r.attachErr = nil

	var mu sync.Mutex
	var delivered []string
	s := New(r, nil, func(raw string) {
		mu.Lock()
		delivered = append(delivered, raw)
		mu.Unlock()
	})
	s.attachRetry = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go s.Run(ctx)

	time.Sleep(20 * time.Millisecond)
	r.mu.Lock()
	r.regions = []BufferRegion{{BaseAddress: addr, SizeBytes: 4096}}
	r.mu.Unlock()
	r.set(addr, line(1, "Guild", "Bob-Area52", "hello"))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		s.mu.Lock()
		attachedAddr := s.bufAddr
		s.mu.Unlock()
		if attachedAddr == addr {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	s.mu.Lock()
	addrNow := s.bufAddr
	seqNow := s.lastSeq
	s.mu.Unlock()
	if addrNow != addr {
		t.Fatalf("expected scanner to attach at %v, got %v", addr, addrNow)
	}
	if seqNow != 1 {
		t.Fatalf("expected skip-on-connect lastSeq=1, got %d", seqNow)
	}

	s.Stop()
}
