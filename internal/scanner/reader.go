package scanner

import "context"

// ProcessReader is every OS-level operation the scanner needs, isolated
// behind an interface so the attach/cascade/staleness logic in scanner.go
// can be driven by a fake in tests. The real implementation lives in
// reader_windows.go; a no-op stub backs non-Windows builds, since the
// target process only ever exists on Windows.
type ProcessReader interface {
	// Attach finds the first candidate process name currently running and
	// latches onto it. ok is false if none of the candidates are found.
	Attach(ctx context.Context, candidateNames []string) (ok bool, err error)
	// Regions enumerates readable committed memory regions of the attached
	// process, sorted by base address, already filtered to size <=
	// regionMaxSize and read-permitted.
	Regions() ([]BufferRegion, error)
	// ReadAt reads up to len(buf) bytes starting at addr. A short read is
	// not an error; returning fewer bytes than requested near the end of a
	// region is expected.
	ReadAt(addr uintptr, buf []byte) (n int, err error)
	// Detach releases the process handle. Safe to call when not attached.
	Detach()
}
