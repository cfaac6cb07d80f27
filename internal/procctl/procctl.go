// Package procctl holds the narrow process-control primitives the
// crash pipeline needs: duplicating the process without running
// registered at-fork handlers, and the write-once cells that crash-time
// code reads without synchronization.
//
// At-fork handlers exist to fix up state after a fork; after a crash
// they are a liability, since one may try to take a lock the crashed
// thread still holds. The fork here goes straight to the kernel.
package procctl

import "errors"

// ErrUnsupported is returned on platforms without a raw fork path.
var ErrUnsupported = errors.New("fork without at-fork handlers is not supported on this platform")

// ForkWithoutAtfork duplicates the process without invoking any
// registered fork handlers. It returns the child pid in the parent and
// 0 in the child. Failure is reported as (-1, err), never a panic:
// callers run in contexts where raising is unsafe.
//
// When a debugger traces the parent, the traced relationship is kept
// for the child so post-mortem inspection can follow it. Detection
// failure degrades silently to "not traced".
func ForkWithoutAtfork() (int, error) {
	return forkWithoutAtfork()
}
