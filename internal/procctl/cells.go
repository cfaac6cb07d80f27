package procctl

import "sync/atomic"

// receiverBinary is the path crash-time spawning execs for the
// receiver process. Write-once configuration: set during
// initialization, read without synchronization afterwards.
var receiverBinary atomic.Pointer[string]

// SetReceiverBinary records the receiver executable path. The first
// call wins; later calls are ignored so crash-time readers always see
// one stable value.
func SetReceiverBinary(path string) bool {
	if path == "" {
		return false
	}
	p := path
	return receiverBinary.CompareAndSwap(nil, &p)
}

// ReceiverBinary returns the configured receiver path, or "" when none
// was set.
func ReceiverBinary() string {
	if p := receiverBinary.Load(); p != nil {
		return *p
	}
	return ""
}

// resetReceiverBinary clears the cell. Tests only.
func resetReceiverBinary() {
	receiverBinary.Store(nil)
}
