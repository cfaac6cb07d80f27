// Package symbolize decides where stack frames get their symbolic
// names. Resolving an address means reading the crashed process's
// binary and debug sections, which is expensive and unsafe to do inside
// a signal handler, so the work can run in-process (timelier, riskier)
// or be deferred to the receiver.
package symbolize

import (
	"fmt"
)

// Mode selects where frame resolution happens.
type Mode string

const (
	// ModeDisabled collects raw addresses only.
	ModeDisabled Mode = "disabled"

	// ModeInProcess resolves names in the crashing process, inside
	// signal-handler context. Accepted risk for timelier data.
	ModeInProcess Mode = "inprocess"

	// ModeInReceiver resolves names in the receiver using the crashed
	// process's pid. Requires proc info to have been transmitted.
	ModeInReceiver Mode = "receiver"
)

// ParseMode validates a mode string from configuration.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeDisabled, ModeInProcess, ModeInReceiver:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown resolve mode %q (want disabled, inprocess or receiver)", s)
}

// ResolveInProcess reports whether the emitter itself should attach
// names while writing the stack-trace block.
func (m Mode) ResolveInProcess() bool {
	return m == ModeInProcess
}
