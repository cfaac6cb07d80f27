//go:build !linux

package emitter

import "io"

// Memory-map emission is Linux-only; other platforms have no
// /proc/self/maps to forward.
func (e *Emitter) emitMemoryMap(io.Writer) {}
