// Package receiver reconstructs a crash report from the line protocol.
// It is the unconstrained half of the crash pipeline: it runs in a
// healthy process and must cope with whatever a dying sender managed to
// write, including nothing, half a block, or garbage — without
// panicking and without discarding the blocks that did arrive intact.
package receiver

import (
	"encoding/json"
	"fmt"

	"github.com/signalhouse/crashtrack/internal/core"
	"github.com/signalhouse/crashtrack/internal/crash"
	"github.com/signalhouse/crashtrack/internal/logging"
	"github.com/signalhouse/crashtrack/internal/wire"
)

// State identifies which block the machine is inside. Waiting is the
// resting state between blocks.
type State int

const (
	StateWaiting State = iota
	StateConfig
	StateCounters
	StateMetadata
	StateProcInfo
	StateSigInfo
	StateSpanIDs
	StateTraceIDs
	StateStackTrace
	StateFile
	StateDone
	StateInternalError
)

var stateNames = map[State]string{
	StateWaiting:       "Waiting",
	StateConfig:        "Config",
	StateCounters:      "Counters",
	StateMetadata:      "Metadata",
	StateProcInfo:      "ProcInfo",
	StateSigInfo:       "SigInfo",
	StateSpanIDs:       "SpanIds",
	StateTraceIDs:      "TraceIds",
	StateStackTrace:    "StackTrace",
	StateFile:          "File",
	StateDone:          "Done",
	StateInternalError: "InternalError",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// StreamConfig is the sender's configuration snapshot, transmitted
// pre-serialized in the config block. Only the fields the receiver
// acts on are decoded; the raw blob is kept on the report verbatim.
type StreamConfig struct {
	Endpoint        string   `json:"endpoint,omitempty"`
	ResolveFrames   string   `json:"resolve_frames,omitempty"`
	AdditionalFiles []string `json:"additional_files,omitempty"`
}

// Machine is the line-protocol state machine. Feed it lines with
// ProcessLine; a returned error means the stream is corrupted and the
// machine has latched into InternalError. Everything committed before
// that error stays on the report.
type Machine struct {
	report *crash.Report
	config *StreamConfig
	state  State
	log    *logging.Logger

	// accumulators for the multi-line block states
	frames    []crash.Frame
	fileName  string
	fileLines []string

	errReason string
}

// NewMachine creates a machine building a fresh report.
func NewMachine(log *logging.Logger) *Machine {
	return &Machine{
		report: crash.New(),
		state:  StateWaiting,
		log:    log,
	}
}

// Report returns the report under construction.
func (m *Machine) Report() *crash.Report { return m.report }

// Config returns the decoded sender config, or nil if none arrived.
func (m *Machine) Config() *StreamConfig { return m.config }

// State returns the current state, for diagnostics at stream close.
func (m *Machine) State() State { return m.state }

// ProcessLine advances the machine by one line. Any parse error drives
// it into InternalError and stops further processing; blocks committed
// before the error remain in the report (partial salvage).
func (m *Machine) ProcessLine(line string) error {
	next, err := m.step(line)
	if err != nil {
		m.state = StateInternalError
		m.errReason = err.Error()
		return err
	}
	m.state = next
	return nil
}

func (m *Machine) step(line string) (State, error) {
	switch m.state {
	case StateWaiting:
		return m.stepWaiting(line), nil

	case StateConfig:
		if line == wire.EndConfig {
			return StateWaiting, nil
		}
		return StateConfig, m.commitConfig(line)

	case StateMetadata:
		if line == wire.EndMetadata {
			return StateWaiting, nil
		}
		return StateMetadata, m.commitMetadata(line)

	case StateSigInfo:
		if line == wire.EndSigInfo {
			return StateWaiting, nil
		}
		return StateSigInfo, m.commitSigInfo(line)

	case StateProcInfo:
		if line == wire.EndProcInfo {
			return StateWaiting, nil
		}
		return StateProcInfo, m.commitProcInfo(line)

	case StateCounters:
		if line == wire.EndCounters {
			return StateWaiting, nil
		}
		return StateCounters, m.commitCounterLine(line)

	case StateSpanIDs:
		if line == wire.EndSpanIDs {
			return StateWaiting, nil
		}
		return StateSpanIDs, m.commitSpanIDs(line)

	case StateTraceIDs:
		if line == wire.EndTraceIDs {
			return StateWaiting, nil
		}
		return StateTraceIDs, m.commitTraceIDs(line)

	case StateStackTrace:
		if line == wire.EndStacktrace {
			if err := m.report.SetStacktrace(crash.NewStackTrace(m.frames)); err != nil {
				return 0, core.ErrProtocol(core.CodeBadBlockPayload, err.Error())
			}
			m.frames = nil
			return StateWaiting, nil
		}
		var frame crash.Frame
		if err := json.Unmarshal([]byte(line), &frame); err != nil {
			return 0, core.ErrProtocol(core.CodeBadBlockPayload,
				fmt.Sprintf("stack frame is not valid JSON: %q", line)).WithCause(err)
		}
		m.frames = append(m.frames, frame)
		return StateStackTrace, nil

	case StateFile:
		if wire.IsFileEnd(line, m.fileName) {
			m.report.AddFileLines(m.fileName, m.fileLines)
			m.fileName, m.fileLines = "", nil
			return StateWaiting, nil
		}
		m.fileLines = append(m.fileLines, line)
		return StateFile, nil

	case StateDone:
		m.log.Warn("unexpected line after crash report is done", "line", line)
		return StateDone, nil

	case StateInternalError:
		return 0, core.ErrProtocol(core.CodeBadBlockPayload,
			fmt.Sprintf("cannot continue after internal error: %s", m.errReason))
	}
	return 0, core.ErrInternal(fmt.Sprintf("machine in unknown state %d", m.state))
}

func (m *Machine) stepWaiting(line string) State {
	switch line {
	case wire.BeginConfig:
		return StateConfig
	case wire.BeginMetadata:
		return StateMetadata
	case wire.BeginSigInfo:
		return StateSigInfo
	case wire.BeginProcInfo:
		return StateProcInfo
	case wire.BeginCounters:
		return StateCounters
	case wire.BeginSpanIDs:
		return StateSpanIDs
	case wire.BeginTraceIDs:
		return StateTraceIDs
	case wire.BeginStacktrace:
		return StateStackTrace
	case wire.Done:
		return StateDone
	}
	if name, ok := wire.ParseFileBegin(line); ok {
		m.fileName = name
		m.fileLines = nil
		return StateFile
	}
	// Unknown markers are tolerated for forward compatibility, but
	// never dropped without trace.
	m.log.Warn("ignoring unexpected line while waiting for a block", "line", line)
	return StateWaiting
}

func (m *Machine) commitConfig(line string) error {
	if !json.Valid([]byte(line)) {
		return core.ErrProtocol(core.CodeBadBlockPayload, "config block is not valid JSON")
	}
	if m.config != nil {
		// The config may contain sensitive data: log only its size.
		m.log.Warn("duplicate config block, overwriting previous", "bytes", len(line))
	}
	var sc StreamConfig
	if err := json.Unmarshal([]byte(line), &sc); err != nil {
		return core.ErrProtocol(core.CodeBadBlockPayload, "config block has unexpected shape").WithCause(err)
	}
	m.config = &sc
	m.report.SetConfig(json.RawMessage(line))
	return nil
}

func (m *Machine) commitMetadata(line string) error {
	if !json.Valid([]byte(line)) {
		return core.ErrProtocol(core.CodeBadBlockPayload, "metadata block is not valid JSON")
	}
	if m.report.Metadata != nil {
		m.log.Warn("duplicate metadata block, overwriting previous", "line", line)
	}
	m.report.SetMetadata(json.RawMessage(line))
	return nil
}

func (m *Machine) commitSigInfo(line string) error {
	var si crash.SigInfo
	if err := json.Unmarshal([]byte(line), &si); err != nil {
		return core.ErrProtocol(core.CodeBadBlockPayload, "signal info is not valid JSON").WithCause(err)
	}
	if m.report.SigInfo != nil {
		m.log.Warn("duplicate signal info block, overwriting previous", "line", line)
	}
	// First reliable indicator of a real crash: flips is_crash and
	// stamps the report timestamp, exactly once.
	m.report.SetSigInfo(si)
	return nil
}

func (m *Machine) commitProcInfo(line string) error {
	var pi crash.ProcInfo
	if err := json.Unmarshal([]byte(line), &pi); err != nil {
		return core.ErrProtocol(core.CodeBadBlockPayload, "process info is not valid JSON").WithCause(err)
	}
	if pi.PID <= 0 {
		return core.ErrProtocol(core.CodeBadBlockPayload,
			fmt.Sprintf("process info carries invalid pid %d", pi.PID))
	}
	if m.report.ProcInfo != nil {
		m.log.Warn("duplicate process info block, overwriting previous", "line", line)
	}
	m.report.SetProcInfo(pi)
	return nil
}

func (m *Machine) commitSpanIDs(line string) error {
	ids, err := parseIDArray(line)
	if err != nil {
		return err
	}
	if m.report.SpanIDs != nil {
		m.log.Warn("duplicate span id block, overwriting previous", "count", len(ids))
	}
	m.report.SetSpanIDs(ids)
	return nil
}

func (m *Machine) commitTraceIDs(line string) error {
	ids, err := parseIDArray(line)
	if err != nil {
		return err
	}
	if m.report.TraceIDs != nil {
		m.log.Warn("duplicate trace id block, overwriting previous", "count", len(ids))
	}
	m.report.SetTraceIDs(ids)
	return nil
}

// commitCounterLine merges one counters line: a JSON object with
// exactly one key. Last write wins per key.
func (m *Machine) commitCounterLine(line string) error {
	var obj map[string]json.Number
	if err := json.Unmarshal([]byte(line), &obj); err != nil {
		return core.ErrProtocol(core.CodeBadBlockPayload,
			fmt.Sprintf("counter line is not a JSON object: %q", line)).WithCause(err)
	}
	if len(obj) != 1 {
		return core.ErrProtocol(core.CodeBadBlockPayload,
			fmt.Sprintf("counter line must have exactly one key, got %d", len(obj)))
	}
	for name, raw := range obj {
		value, err := raw.Int64()
		if err != nil {
			return core.ErrProtocol(core.CodeBadBlockPayload,
				fmt.Sprintf("counter %q value is not an integer", name)).WithCause(err)
		}
		m.report.AddCounter(name, value)
	}
	return nil
}

// parseIDArray decodes a JSON array of 128-bit integers into decimal
// strings, validating magnitude with arbitrary precision.
func parseIDArray(line string) ([]string, error) {
	var raw []json.Number
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return nil, core.ErrProtocol(core.CodeBadBlockPayload, "id block is not a JSON array of integers").WithCause(err)
	}
	ids := make([]string, 0, len(raw))
	for _, n := range raw {
		id, err := wire.ParseU128(n.String())
		if err != nil {
			return nil, core.ErrProtocol(core.CodeInvalidTraceID, err.Error())
		}
		ids = append(ids, id)
	}
	return ids, nil
}
