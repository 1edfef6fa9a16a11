package status

import "testing"

func TestCheckerStartsSearching(t *testing.T) {
	c := New()
	if got := c.Snapshot(); got != StateSearching {
		t.Fatalf("expected StateSearching, got %v", got)
	}
}

func TestCheckerSetIsVisibleToSnapshot(t *testing.T) {
	c := New()
	c.Set(StateAttached)
	if got := c.Snapshot(); got != StateAttached {
		t.Fatalf("expected StateAttached, got %v", got)
	}
	c.Set(StateOffline)
	if got := c.Snapshot(); got != StateOffline {
		t.Fatalf("expected StateOffline, got %v", got)
	}
}
