// Package spawn launches the crash receiver as a child process and
// hands back the pipe the emitter writes into. The receiver is a
// separate, healthy process on purpose: it must keep working while the
// process feeding it is dying.
package spawn

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/signalhouse/crashtrack/internal/core"
	"github.com/signalhouse/crashtrack/internal/logging"
	"github.com/signalhouse/crashtrack/internal/procctl"
)

// Options configures one receiver launch.
type Options struct {
	// Binary is the receiver executable. Empty falls back to the
	// path registered via procctl.SetReceiverBinary, then to the
	// current executable re-invoked as its own receiver.
	Binary string

	// Args are passed after the "receive" subcommand.
	Args []string

	// Stderr receives the child's stderr. Nil inherits ours, so
	// receiver logs stay visible even when the parent is crashing.
	Stderr io.Writer

	// WaitTimeout bounds Wait after the stream is closed. Zero
	// means wait forever.
	WaitTimeout time.Duration
}

// Receiver is a running receiver child plus the write end of its
// stdin pipe.
type Receiver struct {
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	log     *logging.Logger
	timeout time.Duration
	closed  bool
}

// Binary resolves the receiver executable path per Options.Binary
// precedence. Returns an error only when even the current executable
// cannot be determined.
func Binary(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if p := procctl.ReceiverBinary(); p != "" {
		return p, nil
	}
	self, err := os.Executable()
	if err != nil {
		return "", core.ErrSpawn("no receiver binary configured and current executable unknown").WithCause(err)
	}
	return self, nil
}

// Start launches the receiver and returns it with the pipe open. The
// stdin pipe is cleaned up even when Start itself fails partway.
func Start(opts Options, log *logging.Logger) (*Receiver, error) {
	bin, err := Binary(opts.Binary)
	if err != nil {
		return nil, err
	}

	args := append([]string{"receive"}, opts.Args...)
	cmd := exec.Command(bin, args...)
	if opts.Stderr != nil {
		cmd.Stderr = opts.Stderr
	} else {
		cmd.Stderr = os.Stderr
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, core.ErrSpawn("creating receiver stdin pipe").WithCause(err)
	}

	if err := cmd.Start(); err != nil {
		// Start failed after the pipe existed; close it ourselves.
		_ = stdin.Close()
		return nil, core.ErrSpawn(fmt.Sprintf("starting receiver %s", bin)).WithCause(err)
	}

	log.Info("receiver spawned", "pid", cmd.Process.Pid, "binary", bin)
	return &Receiver{cmd: cmd, stdin: stdin, log: log, timeout: opts.WaitTimeout}, nil
}

// Writer returns the stream the emitter writes the crash into.
func (r *Receiver) Writer() io.Writer {
	return r.stdin
}

// CloseStream closes the pipe, signalling end of stream to the
// receiver. Safe to call more than once.
func (r *Receiver) CloseStream() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return r.stdin.Close()
}

// Wait closes the stream if still open and waits for the receiver to
// finish its work. On timeout the child is killed so a wedged
// receiver cannot hang the crashing process forever.
func (r *Receiver) Wait(ctx context.Context) error {
	_ = r.CloseStream()

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() { done <- r.cmd.Wait() }()

	select {
	case err := <-done:
		if err != nil {
			return core.ErrSpawn("receiver exited with error").WithCause(err)
		}
		return nil
	case <-ctx.Done():
		_ = r.cmd.Process.Kill()
		<-done
		return core.ErrTimeout("waiting for receiver to finish")
	}
}

// PID returns the receiver's process id.
func (r *Receiver) PID() int {
	return r.cmd.Process.Pid
}
