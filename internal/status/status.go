// Package status exposes a cheap, mutex-guarded three-state snapshot of the
// memory scanner's attachment state, read by the GUI/debug console and
// written by the scanner. Modeled on the teacher's
// internal/infra/telegram/status singleton-with-ping-channel pattern, but
// built as an explicit instance rather than a package-level singleton —
// spec §9 calls for re-architecting global mutable state as explicit
// context objects passed from the entry point down.
package status

import "sync"

// State is the closed set of attachment states a watching UI cares about.
type State int

const (
	// StateSearching means the scanner has not yet attached to the game
	// process (or lost it and is retrying).
	StateSearching State = iota
	// StateAttached means the scanner holds a live process handle and is
	// actively polling the marker.
	StateAttached
	// StateOffline means the scanner was deliberately stopped.
	StateOffline
)

func (s State) String() string {
	switch s {
	case StateAttached:
		return "attached"
	case StateSearching:
		return "searching"
	case StateOffline:
		return "offline"
	default:
		return "unknown"
	}
}

// Checker is a mutex-guarded holder for the current State, safe to read from
// the debug console or GUI poll loop while the scanner writes it from its
// own goroutine. The zero value starts at StateSearching.
type Checker struct {
	mu    sync.RWMutex
	state State
}

// New returns a Checker starting in StateSearching.
func New() *Checker {
	return &Checker{state: StateSearching}
}

// Set records a new state. Safe for concurrent use.
func (c *Checker) Set(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s
}

// Snapshot returns the current state.
func (c *Checker) Snapshot() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}
