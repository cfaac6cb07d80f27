//go:build linux || darwin

package spawn

import (
	"context"
	"fmt"
	"io"
	"os"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/signalhouse/crashtrack/internal/core"
	"github.com/signalhouse/crashtrack/internal/logging"
	"github.com/signalhouse/crashtrack/internal/procctl"
)

// CrashReceiver is a receiver child created by raw fork+exec instead
// of the normal exec path. It carries only a pid and the write end of
// the pipe; there is no exec.Cmd behind it.
type CrashReceiver struct {
	pid     int
	stream  *os.File
	log     *logging.Logger
	timeout time.Duration
	closed  bool
}

// SpawnAtCrash launches the receiver the way crash-time code has to:
// the pipe and every exec argument are prepared up front, then the
// process is duplicated via procctl.ForkWithoutAtfork and the child
// execs the receiver binary with the pipe's read end as stdin.
// Nothing between the fork and the exec allocates or takes a lock.
func SpawnAtCrash(opts Options, log *logging.Logger) (*CrashReceiver, error) {
	bin, err := Binary(opts.Binary)
	if err != nil {
		return nil, err
	}

	args := append([]string{bin, "receive"}, opts.Args...)
	argv0, err := unix.BytePtrFromString(bin)
	if err != nil {
		return nil, core.ErrSpawn("receiver path contains NUL").WithCause(err)
	}
	argv, err := syscall.SlicePtrFromStrings(args)
	if err != nil {
		return nil, core.ErrSpawn("receiver argument contains NUL").WithCause(err)
	}
	envv, err := syscall.SlicePtrFromStrings(os.Environ())
	if err != nil {
		return nil, core.ErrSpawn("environment contains NUL").WithCause(err)
	}

	rfd, wfd, err := newRawPipe()
	if err != nil {
		return nil, core.ErrSpawn("creating crash pipe").WithCause(err)
	}

	pid, err := procctl.ForkWithoutAtfork()
	if err != nil {
		_ = unix.Close(rfd)
		_ = unix.Close(wfd)
		return nil, core.ErrSpawn("forking receiver").WithCause(err)
	}
	if pid == 0 {
		// Child. Raw syscalls only until the exec replaces the
		// (possibly crashed) image; never returns.
		childExecStdin(rfd, argv0, argv, envv)
	}

	_ = unix.Close(rfd)
	log.Info("receiver forked", "pid", pid, "binary", bin)
	return &CrashReceiver{
		pid:     pid,
		stream:  os.NewFile(uintptr(wfd), "crash-pipe"),
		log:     log,
		timeout: opts.WaitTimeout,
	}, nil
}

// Writer returns the stream the emitter writes the crash into.
func (r *CrashReceiver) Writer() io.Writer {
	return r.stream
}

// CloseStream closes the pipe, signalling end of stream to the
// receiver. Safe to call more than once.
func (r *CrashReceiver) CloseStream() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return r.stream.Close()
}

// Wait closes the stream if still open and reaps the child. On
// timeout the child is killed so a wedged receiver cannot hang the
// crashing process forever.
func (r *CrashReceiver) Wait(ctx context.Context) error {
	_ = r.CloseStream()

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() {
		var ws unix.WaitStatus
		for {
			_, err := unix.Wait4(r.pid, &ws, 0, nil)
			if err == unix.EINTR {
				continue
			}
			if err != nil {
				done <- err
				return
			}
			break
		}
		if code := ws.ExitStatus(); code != 0 {
			done <- fmt.Errorf("exit status %d", code)
			return
		}
		done <- nil
	}()

	select {
	case err := <-done:
		if err != nil {
			return core.ErrSpawn("receiver exited with error").WithCause(err)
		}
		return nil
	case <-ctx.Done():
		_ = unix.Kill(r.pid, unix.SIGKILL)
		<-done
		return core.ErrTimeout("waiting for receiver to finish")
	}
}

// PID returns the receiver's process id.
func (r *CrashReceiver) PID() int {
	return r.pid
}
