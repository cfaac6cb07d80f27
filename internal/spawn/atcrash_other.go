//go:build !linux && !darwin

package spawn

import (
	"context"
	"io"

	"github.com/signalhouse/crashtrack/internal/core"
	"github.com/signalhouse/crashtrack/internal/logging"
	"github.com/signalhouse/crashtrack/internal/procctl"
)

// CrashReceiver needs a raw fork path; none exists here.
type CrashReceiver struct{}

func SpawnAtCrash(_ Options, _ *logging.Logger) (*CrashReceiver, error) {
	return nil, core.ErrSpawn("post-crash spawning is not supported on this platform").
		WithCause(procctl.ErrUnsupported)
}

func (r *CrashReceiver) Writer() io.Writer          { return nil }
func (r *CrashReceiver) CloseStream() error         { return nil }
func (r *CrashReceiver) Wait(context.Context) error { return nil }
func (r *CrashReceiver) PID() int                   { return -1 }
