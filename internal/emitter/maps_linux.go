//go:build linux

package emitter

import (
	"io"
	"os"

	"github.com/signalhouse/crashtrack/internal/wire"
)

// procSelfMaps is swapped in tests.
var procSelfMaps = "/proc/self/maps"

// emitMemoryMap streams /proc/self/maps onto the pipe. The receiver
// cannot read it itself (permissions), so the crashing process sends
// it. Best-effort: any failure here must not cost the rest of the
// report, so errors are swallowed after closing the block.
func (e *Emitter) emitMemoryMap(w io.Writer) {
	e.emitTextFile(w, procSelfMaps)
}

// emitTextFile copies a text file into a file block, reading in fixed
// chunks so crash-time buffers stay small. The receiver expects the
// contents to be text; a trailing newline is written before the end
// marker so the marker always starts its own line.
func (e *Emitter) emitTextFile(w io.Writer, path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	e.scratch = e.scratch[:0]
	e.scratch = append(e.scratch, wire.BeginFilePrefix...)
	e.scratch = append(e.scratch, ' ')
	e.scratch = append(e.scratch, path...)
	e.scratch = append(e.scratch, '\n')
	if _, err := w.Write(e.scratch); err != nil {
		return
	}

	trailingNewline := false
	for {
		n, err := f.Read(e.fileBuf[:])
		if n > 0 {
			if _, werr := w.Write(e.fileBuf[:n]); werr != nil {
				return
			}
			trailingNewline = e.fileBuf[n-1] == '\n'
		}
		if err != nil {
			break
		}
	}

	e.scratch = e.scratch[:0]
	if !trailingNewline {
		e.scratch = append(e.scratch, '\n')
	}
	e.scratch = append(e.scratch, wire.EndFilePrefix...)
	e.scratch = append(e.scratch, ' ', '"')
	e.scratch = append(e.scratch, path...)
	e.scratch = append(e.scratch, '"', '\n')
	if _, err := w.Write(e.scratch); err != nil {
		return
	}
	_ = flush(w)
}
