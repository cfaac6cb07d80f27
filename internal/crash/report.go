// Package crash defines the crash report data model: the structured
// record reconstructed from a crash stream, its component types, and the
// mutation rules the receiver relies on while building one incrementally
// from untrusted input.
package crash

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
)

// timeNow is swapped in tests that need a fixed clock.
var timeNow = time.Now

// SigInfo describes the fatal signal observed by the crashed process.
type SigInfo struct {
	Signum  int    `json:"signum"`
	Signame string `json:"signame,omitempty"`
}

// ProcInfo identifies the crashed process. Required for resolving
// frames from outside the process.
type ProcInfo struct {
	PID int `json:"pid"`
}

// OSInfo describes the host the crash occurred on. Filled in by the
// receiver, not transmitted by the crashed process.
type OSInfo struct {
	OSType       string `json:"os_type,omitempty"`
	Version      string `json:"version,omitempty"`
	Architecture string `json:"architecture,omitempty"`
	Bitness      string `json:"bitness,omitempty"`
}

// Report is the aggregate root: everything reconstructed about one
// crash. A Report is created empty, mutated incrementally as blocks
// arrive, and frozen once handed to upload or storage.
type Report struct {
	UUID       string    `json:"uuid"`
	Timestamp  time.Time `json:"timestamp,omitzero"`
	IsCrash    bool      `json:"is_crash"`
	Incomplete bool      `json:"incomplete"`

	Error    ErrorData `json:"error"`
	SigInfo  *SigInfo  `json:"sig_info,omitempty"`
	ProcInfo *ProcInfo `json:"proc_info,omitempty"`
	OSInfo   OSInfo    `json:"os_info,omitzero"`

	// Metadata and Config arrive pre-serialized from the instrumented
	// process and are carried through unmodified.
	Metadata json.RawMessage `json:"metadata,omitempty"`
	Config   json.RawMessage `json:"config,omitempty"`

	Counters map[string]int64  `json:"counters,omitempty"`
	Files    map[string]string `json:"files,omitempty"`

	// Span and trace ids are 128-bit integers carried as decimal
	// strings, since they overflow every native integer type.
	SpanIDs  []string `json:"span_ids,omitempty"`
	TraceIDs []string `json:"trace_ids,omitempty"`
}

// New creates an empty report with a fresh UUID. Signal crashes are the
// only kind this pipeline produces, so the error kind is preset.
func New() *Report {
	return &Report{
		UUID: uuid.NewString(),
		Error: ErrorData{
			Kind:       KindUnixSignal,
			SourceType: SourceType,
		},
		Counters: make(map[string]int64),
		Files:    make(map[string]string),
	}
}

// SetSigInfo records the fatal signal. The first call flips IsCrash and
// stamps the report time; both latch and never change on later calls,
// which only replace the signal details.
func (r *Report) SetSigInfo(si SigInfo) {
	if !r.IsCrash {
		r.IsCrash = true
		r.Timestamp = timeNow().UTC()
	}
	cp := si
	r.SigInfo = &cp
	if r.Error.Message == "" {
		r.Error.Message = describeSignal(si)
	}
}

// SetProcInfo records the crashed process identity.
func (r *Report) SetProcInfo(pi ProcInfo) {
	cp := pi
	r.ProcInfo = &cp
}

// SetStacktrace attaches the primary stack trace. Setting it twice is a
// hard error: two stack blocks in one stream means the sender state is
// not trustworthy.
func (r *Report) SetStacktrace(st StackTrace) error {
	// Format marks "a trace was committed"; an empty trace still counts,
	// so frame count alone is not the test.
	if r.Error.Stack.Format != "" || len(r.Error.Stack.Frames) > 0 {
		return fmt.Errorf("primary stack trace already set (%d frames)", len(r.Error.Stack.Frames))
	}
	r.Error.Stack = st
	return nil
}

// AddThread attaches a per-thread stack. Each thread's trace is
// independent and may only be set once, keyed by thread name.
func (r *Report) AddThread(t ThreadData) error {
	for _, existing := range r.Error.Threads {
		if existing.Name == t.Name {
			return fmt.Errorf("stack trace for thread %q already set", t.Name)
		}
	}
	r.Error.Threads = append(r.Error.Threads, t)
	return nil
}

// AddCounter merges one counter entry. Last write wins per key; values
// are never summed.
func (r *Report) AddCounter(name string, value int64) {
	if r.Counters == nil {
		r.Counters = make(map[string]int64)
	}
	r.Counters[name] = value
}

// AddFileLines attaches a named text blob reconstructed from its lines.
func (r *Report) AddFileLines(name string, lines []string) {
	if r.Files == nil {
		r.Files = make(map[string]string)
	}
	r.Files[name] = strings.Join(lines, "\n")
}

// AttachFile reads a file from the local disk and attaches its contents
// under the path as key. Used for additional files requested by config.
func (r *Report) AttachFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("attach %s: %w", path, err)
	}
	if r.Files == nil {
		r.Files = make(map[string]string)
	}
	r.Files[path] = string(data)
	return nil
}

// SetSpanIDs replaces the active span id list.
func (r *Report) SetSpanIDs(ids []string) {
	r.SpanIDs = ids
}

// SetTraceIDs replaces the active trace id list.
func (r *Report) SetTraceIDs(ids []string) {
	r.TraceIDs = ids
}

// SetMetadata stores the opaque metadata blob.
func (r *Report) SetMetadata(raw json.RawMessage) {
	r.Metadata = append(json.RawMessage(nil), raw...)
}

// SetConfig stores the opaque config blob.
func (r *Report) SetConfig(raw json.RawMessage) {
	r.Config = append(json.RawMessage(nil), raw...)
}

// MarkIncomplete flags the report as truncated. One-way: once partial,
// always partial.
func (r *Report) MarkIncomplete() {
	r.Incomplete = true
}

// Validate checks internal consistency before upload or storage.
func (r *Report) Validate() error {
	if r.UUID == "" {
		return fmt.Errorf("report has no uuid")
	}
	if r.IsCrash && r.SigInfo == nil {
		return fmt.Errorf("report %s marked as crash but carries no signal info", r.UUID)
	}
	if !r.IsCrash && r.SigInfo != nil {
		return fmt.Errorf("report %s carries signal info but is not marked as crash", r.UUID)
	}
	if r.IsCrash && r.Timestamp.IsZero() {
		return fmt.Errorf("report %s marked as crash but has no timestamp", r.UUID)
	}
	return nil
}

// Summarize produces the listing row for this report.
func (r *Report) Summarize() Summary {
	s := Summary{
		UUID:       r.UUID,
		Timestamp:  r.Timestamp,
		IsCrash:    r.IsCrash,
		Incomplete: r.Incomplete,
		Message:    r.Error.Message,
		FrameCount: len(r.Error.Stack.Frames),
	}
	if r.SigInfo != nil {
		s.Signum = r.SigInfo.Signum
		s.Signame = r.SigInfo.Signame
	}
	if r.ProcInfo != nil {
		s.PID = r.ProcInfo.PID
	}
	return s
}

func describeSignal(si SigInfo) string {
	if si.Signame != "" {
		return fmt.Sprintf("Process terminated by %s (signal %d)", si.Signame, si.Signum)
	}
	return fmt.Sprintf("Process terminated by signal %d", si.Signum)
}
