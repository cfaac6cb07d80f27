// Package wire defines the line protocol vocabulary shared by the
// emitter and the receiver: block marker lines and the encoding of
// 128-bit tracing ids. It deliberately contains no parsing state; both
// sides depend on this vocabulary without depending on each other.
package wire

import "strings"

// Block markers. Every block is delimited by a begin and an end marker
// on their own lines; DONE is the terminal marker and has no body.
const (
	BeginMetadata = "BEGIN_METADATA"
	EndMetadata   = "END_METADATA"

	BeginConfig = "BEGIN_CONFIG"
	EndConfig   = "END_CONFIG"

	BeginSigInfo = "BEGIN_SIGINFO"
	EndSigInfo   = "END_SIGINFO"

	BeginProcInfo = "BEGIN_PROCINFO"
	EndProcInfo   = "END_PROCINFO"

	BeginCounters = "BEGIN_COUNTERS"
	EndCounters   = "END_COUNTERS"

	BeginSpanIDs = "BEGIN_SPAN_IDS"
	EndSpanIDs   = "END_SPAN_IDS"

	BeginTraceIDs = "BEGIN_TRACE_IDS"
	EndTraceIDs   = "END_TRACE_IDS"

	BeginStacktrace = "BEGIN_STACKTRACE"
	EndStacktrace   = "END_STACKTRACE"

	// File markers carry the name on the marker line itself:
	// BEGIN_FILE <name> ... END_FILE "<name>".
	BeginFilePrefix = "BEGIN_FILE"
	EndFilePrefix   = "END_FILE"

	Done = "DONE"
)

// MissingFilename is substituted when a BEGIN_FILE marker carries no
// name, so the block can still be captured and inspected.
const MissingFilename = "MISSING_FILENAME"

// FileChunkSize is how many bytes the emitter reads per iteration when
// streaming a supplementary file, keeping crash-time buffers small and
// fixed.
const FileChunkSize = 512

// ParseFileBegin matches a BEGIN_FILE marker and extracts the filename.
func ParseFileBegin(line string) (name string, ok bool) {
	if line == BeginFilePrefix {
		return MissingFilename, true
	}
	rest, found := strings.CutPrefix(line, BeginFilePrefix+" ")
	if !found {
		return "", false
	}
	if rest == "" {
		return MissingFilename, true
	}
	return rest, true
}

// FileEnd renders the end marker for a named file block.
func FileEnd(name string) string {
	return EndFilePrefix + " \"" + name + "\""
}

// IsFileEnd matches the end marker for a named file block. The bare
// prefix is also accepted so a sender that died mid-format still closes
// the block.
func IsFileEnd(line, name string) bool {
	return line == FileEnd(name) || line == EndFilePrefix
}
