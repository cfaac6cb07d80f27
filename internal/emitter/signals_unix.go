//go:build unix

package emitter

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// signalName maps a signal number to its name. unix.SignalName reads a
// fixed table, which keeps it usable from the emit path.
func signalName(signum int) string {
	if name := unix.SignalName(syscall.Signal(signum)); name != "" {
		return name
	}
	return "UNKNOWN"
}
