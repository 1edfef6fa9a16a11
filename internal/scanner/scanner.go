// Package scanner is the live external-process memory reader from spec
// §4.A: it attaches to the game process, locates the helper's rolling chat
// buffer, follows it as it relocates, and delivers new lines in SEQ order.
package scanner

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"wct/internal/infra/clock"
	"wct/internal/infra/logger"
	"wct/internal/noise"
	"wct/internal/status"
)

// DefaultCandidateProcessNames are the executable names the scanner tries,
// in order, on each attach attempt.
var DefaultCandidateProcessNames = []string{"Wow.exe", "WowClassic.exe", "Wow-64.exe"}

const (
	attachRetryInterval = 5 * time.Second
	pollInterval        = 500 * time.Millisecond
	scanRetryInterval   = 2 * time.Second
	preResetTTL         = 60 * time.Second
	preResetPrefixLen   = 200 // code units

	baseRescanInterval = 2 * time.Second
)

// rescanLadder is the staleness-ladder progression for the frozen-buffer
// case: the same address winning three scans in a row doubles the interval
// through these steps.
var rescanLadder = []time.Duration{2 * time.Second, 5 * time.Second, 10 * time.Second, 30 * time.Second}

// Scanner drives the attach → cascade-find → poll loop described in §4.A.
// All OS reads happen through the injected ProcessReader, so the state
// machine here is unit-testable with a fake.
type Scanner struct {
	reader         ProcessReader
	candidateNames []string
	onLine         func(raw string)

	// attachRetry overrides attachRetryInterval; tests shrink it to avoid a
	// real 5s sleep per retry.
	attachRetry time.Duration

	history regionHistory
	regions []BufferRegion

	mu             sync.Mutex
	bufAddr        uintptr
	lastSeq        int
	staleCount     int
	tier           int
	rescanInterval time.Duration
	sameAddrStreak int
	lastNewMessage time.Time
	lastRescan     time.Time

	preResetMu    sync.Mutex
	preResetTexts map[string]time.Time

	status *status.Checker

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// SetStatus wires a status.Checker the scanner updates as it attaches,
// loses, and re-searches for the game process. Optional: a nil (default,
// unset) status is simply never written to.
func (s *Scanner) SetStatus(c *status.Checker) {
	s.status = c
}

func (s *Scanner) setStatus(st status.State) {
	if s.status != nil {
		s.status.Set(st)
	}
}

// New builds a Scanner. onLine is invoked synchronously, once per delivered
// line, in SEQ order; it must not block for long since it runs on the
// scanner's own goroutine (§5).
func New(reader ProcessReader, candidateNames []string, onLine func(raw string)) *Scanner {
	if len(candidateNames) == 0 {
		candidateNames = DefaultCandidateProcessNames
	}
	return &Scanner{
		reader:         reader,
		candidateNames: candidateNames,
		onLine:         onLine,
		attachRetry:    attachRetryInterval,
		rescanInterval: baseRescanInterval,
		preResetTexts:  make(map[string]time.Time),
		stopCh:         make(chan struct{}),
	}
}

// Run blocks, driving the scanner's attach/poll loop until ctx is cancelled
// or Stop is called. Intended to be launched on its own goroutine.
func (s *Scanner) Run(ctx context.Context) {
	s.wg.Add(1)
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		default:
		}

		if !s.attachAndFind(ctx) {
			s.setStatus(status.StateSearching)
			if !sleepOrStop(ctx, s.stopCh, s.attachRetry) {
				return
			}
			continue
		}

		if !s.pollLoop(ctx) {
			return
		}
		s.reader.Detach()
	}
}

// Stop requests the loop exit and waits (bounded) for it to do so, per §5's
// "bounded join (5s) ensures stop cannot hang."
func (s *Scanner) Stop() {
	close(s.stopCh)
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
	}
	s.setStatus(status.StateOffline)
}

// attachAndFind attaches to the process, enumerates regions, and performs
// the first cascade find (skip-on-connect: no lines emitted).
func (s *Scanner) attachAndFind(ctx context.Context) bool {
	ok, err := s.reader.Attach(ctx, s.candidateNames)
	if err != nil {
		logger.Warn("scanner: attach error", zap.Error(err))
		return false
	}
	if !ok {
		return false
	}

	regions, err := s.reader.Regions()
	if err != nil {
		logger.Warn("scanner: enumerate regions failed", zap.Error(err))
		s.reader.Detach()
		return false
	}
	sort.Slice(regions, func(i, j int) bool { return regions[i].BaseAddress < regions[j].BaseAddress })
	s.regions = regions

	addr, maxSeq, _, found := s.cascadeFind(0)
	if !found {
		s.reader.Detach()
		return false
	}

	s.mu.Lock()
	s.bufAddr = addr
	s.lastSeq = maxSeq // skip-on-connect
	s.staleCount = 0
	s.tier = 0
	s.rescanInterval = baseRescanInterval
	s.lastNewMessage = clock.Now()
	s.lastRescan = clock.Now()
	s.mu.Unlock()

	s.history.recordFound(addr)
	s.setStatus(status.StateAttached)
	return true
}

// pollLoop runs the 500ms poll described in §4.A until the process is lost
// or the scanner is stopped; it returns false only when the caller should
// stop entirely (ctx cancelled / Stop called), true when it should re-attach.
func (s *Scanner) pollLoop(ctx context.Context) bool {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return false
		case <-s.stopCh:
			return false
		case <-ticker.C:
			if !s.pollOnce() {
				return true // marker lost badly enough to require re-attach
			}
		}
	}
}

// pollOnce reads the current marker region and either delivers new lines or
// advances the staleness/rescan state machines. Returns false when the
// caller should detach and re-attach from scratch (process gone).
func (s *Scanner) pollOnce() bool {
	s.mu.Lock()
	addr := s.bufAddr
	s.mu.Unlock()

	buf := make([]byte, maxProbeBytes)
	n, err := s.reader.ReadAt(addr, buf)
	if err != nil {
		return s.handleMarkerGone()
	}

	lines, ok := decodeBuffer(buf[:n])
	if !ok {
		return s.handleMarkerGone()
	}

	maxSeq := maxSeqOf(lines)

	s.mu.Lock()
	lastSeq := s.lastSeq
	s.mu.Unlock()

	if maxSeq < lastSeq {
		s.handleSequenceReset(lines, maxSeq)
		return true
	}

	if maxSeq == lastSeq {
		s.handleFrozenBuffer()
		return true
	}

	s.deliverNewLines(lines, lastSeq)

	s.mu.Lock()
	s.lastSeq = maxSeq
	s.staleCount = 0
	s.tier = 0
	s.rescanInterval = baseRescanInterval
	s.sameAddrStreak = 0
	s.lastNewMessage = clock.Now()
	s.mu.Unlock()
	return true
}

// deliverNewLines emits every line with seq > lastSeq, in order, applying
// sanitization and the pre-reset suppression window.
func (s *Scanner) deliverNewLines(lines []bufferLine, lastSeq int) {
	sort.SliceStable(lines, func(i, j int) bool { return lines[i].seq < lines[j].seq })
	for _, l := range lines {
		if l.seq <= lastSeq {
			continue
		}
		if s.isSuppressedByReset(l.raw) {
			continue
		}
		sanitized := sanitizeLine(l.raw)
		if sanitized == "" {
			continue
		}
		if noise.IsSystemMessage(sanitized) {
			continue
		}
		s.onLine(synthesizeTimestampedLine(sanitized))
	}
}

// handleMarkerGone implements the "marker gone" staleness branch.
func (s *Scanner) handleMarkerGone() bool {
	s.mu.Lock()
	s.staleCount++
	threshold := 2 * (1 << uint(s.tier))
	stale := s.staleCount >= threshold
	if stale {
		s.bufAddr = 0
		s.tier++
	}
	lastSeq := s.lastSeq
	s.mu.Unlock()

	if !stale {
		return true
	}

	addr, maxSeq, _, found := s.cascadeFind(lastSeq)
	if !found {
		s.setStatus(status.StateSearching)
		return false
	}
	s.mu.Lock()
	s.bufAddr = addr
	if maxSeq > s.lastSeq {
		s.lastSeq = maxSeq
	}
	s.staleCount = 0
	s.mu.Unlock()
	s.history.recordFound(addr)
	return true
}

// handleFrozenBuffer implements the "frozen buffer" rescan-ladder branch:
// the marker still reads fine but SEQ hasn't advanced.
func (s *Scanner) handleFrozenBuffer() {
	s.mu.Lock()
	due := clock.Now().Sub(s.lastRescan) >= s.rescanInterval
	currentAddr := s.bufAddr
	s.mu.Unlock()
	if !due {
		return
	}

	addr, _, _, found := s.rescanHistoryThenHeap()
	s.mu.Lock()
	s.lastRescan = clock.Now()
	if !found {
		s.mu.Unlock()
		return
	}
	if addr != currentAddr {
		s.bufAddr = addr
		s.sameAddrStreak = 0
	} else {
		s.sameAddrStreak++
		if s.sameAddrStreak >= 3 {
			s.rescanInterval = nextRescanInterval(s.rescanInterval)
			s.sameAddrStreak = 0
		}
	}
	s.mu.Unlock()
	s.history.recordFound(addr)
}

func nextRescanInterval(current time.Duration) time.Duration {
	for i, step := range rescanLadder {
		if step == current && i+1 < len(rescanLadder) {
			return rescanLadder[i+1]
		}
	}
	return rescanLadder[len(rescanLadder)-1]
}

// handleSequenceReset implements §4.A's sequence-reset guard: the helper
// restarted, so the visible max SEQ dropped below what we'd already seen.
func (s *Scanner) handleSequenceReset(lines []bufferLine, maxSeq int) {
	s.mu.Lock()
	s.lastSeq = 0
	s.mu.Unlock()

	// Snapshot every line of the reset-triggering buffer before delivering
	// anything: this buffer's own content is what later re-appears at low
	// SEQ numbers, so it must already be in preResetTexts by the time
	// deliverNewLines (via isSuppressedByReset) looks at these same lines.
	now := clock.Now()
	s.preResetMu.Lock()
	for _, l := range lines {
		s.preResetTexts[prefixCodeUnits(l.raw, preResetPrefixLen)] = now.Add(preResetTTL)
	}
	s.preResetMu.Unlock()

	s.deliverNewLines(lines, 0)

	s.mu.Lock()
	s.lastSeq = maxSeq
	s.mu.Unlock()
}

// isSuppressedByReset reports whether raw's prefix matches an active
// pre-reset snapshot entry, pruning expired entries as it goes.
func (s *Scanner) isSuppressedByReset(raw string) bool {
	prefix := prefixCodeUnits(raw, preResetPrefixLen)
	now := clock.Now()

	s.preResetMu.Lock()
	defer s.preResetMu.Unlock()
	for text, expiry := range s.preResetTexts {
		if now.After(expiry) {
			delete(s.preResetTexts, text)
		}
	}
	expiry, ok := s.preResetTexts[prefix]
	if !ok {
		return false
	}
	return now.Before(expiry)
}

func sleepOrStop(ctx context.Context, stopCh chan struct{}, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-stopCh:
		return false
	case <-timer.C:
		return true
	}
}
