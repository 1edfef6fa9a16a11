// Package pr is a thin wrapper for unified output in the interactive debug
// console. It initializes readline with a cancelable stdin, redirects
// stdout/stderr to its buffers, and exposes print helpers for normal and
// diagnostic output. Concurrency: the mutex only protects swapping the
// target writers; writes themselves are not serialized here and must be
// safe on the writer's own side.
package pr

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/chzyer/readline"
)

var (
	// rl is the active readline instance. Appears after Init(); nil before.
	rl *readline.Instance
	// out is the current stdout target. Before Init() it is os.Stdout; after,
	// rl.Stdout().
	out io.Writer = os.Stdout
	// errOut is the current stderr target, same lifecycle as out.
	errOut io.Writer = os.Stderr
	// mu guards swapping the writer references and cancelableIn. It does not
	// serialize the writes themselves.
	mu sync.Mutex

	// cancelableIn is the stdin handle that can be closed to interrupt a
	// blocked Readline() call with io.EOF. Set in Init() via
	// readline.NewCancelableStdin.
	cancelableIn interface{ Close() error }
)

// Init sets up readline and redirects the package's output streams to its
// stdout/stderr. Uses a cancelable stdin so shutdown can interrupt a pending
// read. Not safe to call twice.
func Init() error {
	cs := readline.NewCancelableStdin(os.Stdin)
	newRl, err := readline.NewEx(&readline.Config{Stdin: cs})
	if err != nil {
		_ = cs.Close()
		return err
	}
	rl = newRl

	mu.Lock()
	cancelableIn = cs
	out = rl.Stdout()
	errOut = rl.Stderr()
	mu.Unlock()

	return nil
}

// InterruptReadline closes the cancelable stdin: a blocked Readline() call
// returns io.EOF. Idempotent — a second close is a no-op on the underlying
// implementation.
func InterruptReadline() {
	if cancelableIn != nil {
		_ = cancelableIn.Close()
	}
}

// SetPrompt sets the prompt string. Assumes Init() already ran.
func SetPrompt(prompt string) {
	rl.SetPrompt(prompt)
}

// Rl returns the current readline instance, nil if Init() was never called.
func Rl() *readline.Instance {
	return rl
}

// Stdout returns the current stdout writer. The lock only protects reading
// the reference.
func Stdout() io.Writer {
	mu.Lock()
	defer mu.Unlock()
	return out
}

// Stderr returns the current stderr writer, same caveat as Stdout.
func Stderr() io.Writer {
	mu.Lock()
	defer mu.Unlock()
	return errOut
}

// Print writes a, unseparated and without a trailing newline, to Stdout.
func Print(a ...any) {
	fmt.Fprint(Stdout(), a...)
}

// Println writes a to Stdout followed by a newline. Works even before
// Init(), falling back to os.Stdout.
func Println(a ...any) {
	fmt.Fprintln(Stdout(), a...)
}

// Printf formats and writes to Stdout.
func Printf(format string, a ...any) {
	fmt.Fprintf(Stdout(), format, a...)
}

// ErrPrint writes a, unseparated and without a trailing newline, to Stderr.
func ErrPrint(a ...any) {
	fmt.Fprint(Stderr(), a...)
}

// ErrPrintln writes a to Stderr followed by a newline.
func ErrPrintln(a ...any) {
	fmt.Fprintln(Stderr(), a...)
}

// ErrPrintf formats and writes to Stderr.
func ErrPrintf(format string, a ...any) {
	fmt.Fprintf(Stderr(), format, a...)
}
