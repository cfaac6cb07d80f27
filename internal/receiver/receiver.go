package receiver

import (
	"bufio"
	"io"
	"net"
	"os"

	"github.com/signalhouse/crashtrack/internal/core"
	"github.com/signalhouse/crashtrack/internal/crash"
	"github.com/signalhouse/crashtrack/internal/logging"
)

// Scanner limits. Metadata and memory-map lines can get long; a line
// over maxLineBytes means the sender is not speaking our protocol.
const (
	initialLineBytes = 64 * 1024
	maxLineBytes     = 16 * 1024 * 1024
)

// Outcome is the result of draining one crash stream.
type Outcome struct {
	// Report is the reconstructed report. Nil when the stream closed
	// cleanly without any crash being observed.
	Report *crash.Report

	// Config is the sender's decoded config snapshot, if one arrived.
	Config *StreamConfig

	// ExitState names the machine state when the stream ended, for
	// diagnostic logging of truncated transmissions.
	ExitState State
}

// NoCrash reports whether the stream closed without a crash: nothing
// to resolve, archive or upload.
func (o *Outcome) NoCrash() bool { return o.Report == nil }

// Run drains r line by line until the stream ends, reconstructing a
// crash report. The loop is blocking and single-threaded; the report
// is owned exclusively by the machine until Run returns. Closing the
// stream is the caller's job and is also what lets the sender exit.
//
// Run itself only fails on read errors (transport). Protocol errors
// land in the machine's InternalError state and come back as an
// incomplete report: partial crash data beats no crash data.
func Run(r io.Reader, log *logging.Logger) (*Outcome, error) {
	m := NewMachine(log)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, initialLineBytes), maxLineBytes)

	for scanner.Scan() {
		if err := m.ProcessLine(scanner.Text()); err != nil {
			// Input is corrupted: stop and salvage what we have.
			log.Error("crash stream corrupted, salvaging parsed blocks",
				"state", m.State().String(), "error", err)
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, core.ErrTransport(core.CodePipeClosed, "reading crash stream").WithCause(err)
	}

	report := m.Report()
	if !report.IsCrash {
		// Stream closed without a signal-info block: the sender exited
		// normally. Nothing happened, so there is nothing to report.
		return &Outcome{ExitState: m.State()}, nil
	}

	if m.State() != StateDone {
		// The sender died mid-transmission (or sent garbage). Keep
		// everything committed so far and say so.
		report.MarkIncomplete()
		log.Warn("crash stream ended before DONE, report is partial",
			"exit_state", m.State().String(), "report_id", report.UUID)
	}

	return &Outcome{
		Report:    report,
		Config:    m.Config(),
		ExitState: m.State(),
	}, nil
}

// ReceiveFromStdin drains the crash stream from standard input, the
// transport used when the collector spawns the receiver with a pipe.
func ReceiveFromStdin(log *logging.Logger) (*Outcome, error) {
	return Run(os.Stdin, log)
}

// ReceiveFromUnixSocket listens on path, accepts one connection, and
// drains it. A stale socket file at path is removed first. The socket
// file is cleaned up on return.
func ReceiveFromUnixSocket(path string, log *logging.Logger) (*Outcome, error) {
	if _, err := os.Stat(path); err == nil {
		if err := os.Remove(path); err != nil {
			return nil, core.ErrTransport(core.CodeSocketUnusable, "removing stale socket file").
				WithCause(err).WithDetail("path", path)
		}
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, core.ErrTransport(core.CodeSocketUnusable, "binding unix socket").
			WithCause(err).WithDetail("path", path)
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(path)
	}()

	conn, err := listener.Accept()
	if err != nil {
		return nil, core.ErrTransport(core.CodeSocketUnusable, "accepting crash connection").WithCause(err)
	}
	// Closing the connection on return signals the sender it may exit.
	defer conn.Close()

	return Run(conn, log)
}
