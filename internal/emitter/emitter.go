// Package emitter serializes a crash snapshot onto a pipe from inside
// the crashing process. It is the constrained half of the crash
// pipeline: everything here runs in or right after a signal handler, so
// the emit path takes no locks, spawns nothing, touches no maps, and
// appends into buffers allocated before the crash. The receiving half
// reconstructs the report at leisure in a healthy process.
//
// Crash-handling functions are not reentrant. Emit must never be called
// concurrently with itself or any other crash-handling code; the
// operating system's signal masking is relied on for exclusion.
package emitter

import (
	"io"
	"os"
	"runtime"
	"strconv"

	"github.com/signalhouse/crashtrack/internal/symbolize"
	"github.com/signalhouse/crashtrack/internal/wire"
)

// Options configures an Emitter. Metadata and config arrive already
// serialized to single JSON lines: serialization libraries allocate,
// so it has to happen before the crash.
type Options struct {
	MetadataJSON string
	ConfigJSON   string

	// Resolve selects whether names are attached in-process while
	// emitting the stack block. Receiver-side resolution happens
	// elsewhere; Disabled emits addresses only.
	Resolve symbolize.Mode

	// CollectStacktrace gates the stack-trace block entirely.
	CollectStacktrace bool

	// MaxFrames caps stack capture depth. Defaults to 64.
	MaxFrames int
}

// Emitter holds the buffers Emit writes through. Construct it during
// initialization, before any crash can occur.
type Emitter struct {
	opts Options

	// Pre-rendered marker-delimited blocks for the caller-supplied
	// blobs, so Emit never converts strings at crash time.
	metadataBlock []byte
	configBlock   []byte

	pcs     []uintptr
	scratch []byte
	fileBuf [wire.FileChunkSize]byte
}

// New prepares an emitter. All allocation happens here.
func New(opts Options) *Emitter {
	if opts.MaxFrames <= 0 {
		opts.MaxFrames = 64
	}
	e := &Emitter{
		opts:    opts,
		pcs:     make([]uintptr, opts.MaxFrames),
		scratch: make([]byte, 0, 4096),
	}
	e.metadataBlock = renderBlock(wire.BeginMetadata, opts.MetadataJSON, wire.EndMetadata)
	e.configBlock = renderBlock(wire.BeginConfig, opts.ConfigJSON, wire.EndConfig)
	return e
}

func renderBlock(begin, body, end string) []byte {
	b := make([]byte, 0, len(begin)+len(body)+len(end)+3)
	b = append(b, begin...)
	b = append(b, '\n')
	b = append(b, body...)
	b = append(b, '\n')
	b = append(b, end...)
	b = append(b, '\n')
	return b
}

type flusher interface{ Flush() error }

func flush(w io.Writer) error {
	if f, ok := w.(flusher); ok {
		return f.Flush()
	}
	return nil
}

// Emit writes the full crash stream for signum onto w, flushing after
// every block so a secondary crash mid-emission still leaves the
// receiver with every block written so far. Block order is fixed; the
// stack trace goes last before DONE because collecting it is the step
// most likely to crash again.
//
// A write failure aborts with the I/O error. Per-frame resolution
// failures are tolerated: the frame is emitted with what was obtained.
func (e *Emitter) Emit(w io.Writer, signum int) error {
	if _, err := w.Write(e.metadataBlock); err != nil {
		return err
	}
	if _, err := w.Write(e.configBlock); err != nil {
		return err
	}
	if err := e.emitSigInfo(w, signum); err != nil {
		return err
	}
	if err := e.emitProcInfo(w); err != nil {
		return err
	}
	if err := flush(w); err != nil {
		return err
	}
	if err := e.emitCounters(w); err != nil {
		return err
	}
	if err := flush(w); err != nil {
		return err
	}
	if err := e.emitIDs(w, &spanRing, wire.BeginSpanIDs, wire.EndSpanIDs); err != nil {
		return err
	}
	if err := flush(w); err != nil {
		return err
	}
	if err := e.emitIDs(w, &traceRing, wire.BeginTraceIDs, wire.EndTraceIDs); err != nil {
		return err
	}
	if err := flush(w); err != nil {
		return err
	}

	// Best-effort: the receiver cannot read our memory maps itself.
	e.emitMemoryMap(w)

	if e.opts.CollectStacktrace {
		if err := e.emitStacktrace(w); err != nil {
			return err
		}
	}

	e.scratch = e.scratch[:0]
	e.scratch = append(e.scratch, wire.Done...)
	e.scratch = append(e.scratch, '\n')
	if _, err := w.Write(e.scratch); err != nil {
		return err
	}
	return flush(w)
}

func (e *Emitter) emitSigInfo(w io.Writer, signum int) error {
	e.scratch = e.scratch[:0]
	e.scratch = append(e.scratch, wire.BeginSigInfo...)
	e.scratch = append(e.scratch, "\n{\"signum\": "...)
	e.scratch = strconv.AppendInt(e.scratch, int64(signum), 10)
	e.scratch = append(e.scratch, ", \"signame\": \""...)
	e.scratch = append(e.scratch, signalName(signum)...)
	e.scratch = append(e.scratch, "\"}\n"...)
	e.scratch = append(e.scratch, wire.EndSigInfo...)
	e.scratch = append(e.scratch, '\n')
	_, err := w.Write(e.scratch)
	return err
}

func (e *Emitter) emitProcInfo(w io.Writer) error {
	e.scratch = e.scratch[:0]
	e.scratch = append(e.scratch, wire.BeginProcInfo...)
	e.scratch = append(e.scratch, "\n{\"pid\": "...)
	e.scratch = strconv.AppendInt(e.scratch, int64(os.Getpid()), 10)
	e.scratch = append(e.scratch, "}\n"...)
	e.scratch = append(e.scratch, wire.EndProcInfo...)
	e.scratch = append(e.scratch, '\n')
	_, err := w.Write(e.scratch)
	return err
}

// emitStacktrace walks the caller's stack and writes one frame object
// per line, leaf first. Addresses are written unconditionally; names
// only in in-process mode, resolved per frame after the addresses are
// already on the line so a resolution crash loses names, not frames.
func (e *Emitter) emitStacktrace(w io.Writer) error {
	// Skip runtime.Callers, emitStacktrace and Emit itself.
	n := runtime.Callers(3, e.pcs)

	e.scratch = e.scratch[:0]
	e.scratch = append(e.scratch, wire.BeginStacktrace...)
	e.scratch = append(e.scratch, '\n')
	if _, err := w.Write(e.scratch); err != nil {
		return err
	}

	resolve := e.opts.Resolve.ResolveInProcess()
	for i := 0; i < n; i++ {
		if err := e.emitFrame(w, e.pcs[i], resolve); err != nil {
			return err
		}
	}

	e.scratch = e.scratch[:0]
	e.scratch = append(e.scratch, wire.EndStacktrace...)
	e.scratch = append(e.scratch, '\n')
	_, err := w.Write(e.scratch)
	return err
}

func (e *Emitter) emitFrame(w io.Writer, pc uintptr, resolve bool) error {
	e.scratch = e.scratch[:0]
	e.scratch = append(e.scratch, "{\"ip\": \""...)
	e.scratch = appendHex(e.scratch, uint64(pc))
	e.scratch = append(e.scratch, '"')

	// The symbol entry point is available without building any name
	// strings, which keeps it on the safer side of resolution.
	fn := runtime.FuncForPC(pc)
	if fn != nil {
		e.scratch = append(e.scratch, ", \"symbol_address\": \""...)
		e.scratch = appendHex(e.scratch, uint64(fn.Entry()))
		e.scratch = append(e.scratch, '"')
	}

	if resolve && fn != nil {
		e.scratch = append(e.scratch, ", \"names\": ["...)
		e.scratch = e.appendFrameNames(e.scratch, pc)
		e.scratch = append(e.scratch, ']')
	}

	e.scratch = append(e.scratch, "}\n"...)
	_, err := w.Write(e.scratch)
	return err
}

// appendFrameNames expands one pc into its logical frames. Inlining
// makes a single pc stand for several calls, so one frame can carry
// several names, outermost last.
func (e *Emitter) appendFrameNames(dst []byte, pc uintptr) []byte {
	frames := runtime.CallersFrames([]uintptr{pc})
	first := true
	for {
		fr, more := frames.Next()
		if fr.Function != "" || fr.File != "" {
			if !first {
				dst = append(dst, ", "...)
			}
			first = false
			dst = append(dst, '{')
			dst = append(dst, "\"name\": "...)
			dst = appendJSONString(dst, fr.Function)
			dst = append(dst, ", \"filename\": "...)
			dst = appendJSONString(dst, fr.File)
			dst = append(dst, ", \"lineno\": "...)
			dst = strconv.AppendInt(dst, int64(fr.Line), 10)
			dst = append(dst, '}')
		}
		if !more {
			break
		}
	}
	return dst
}
