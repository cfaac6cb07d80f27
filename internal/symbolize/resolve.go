package symbolize

import (
	"context"

	"github.com/signalhouse/crashtrack/internal/core"
	"github.com/signalhouse/crashtrack/internal/crash"
	"github.com/signalhouse/crashtrack/internal/logging"
)

// Resolve attaches symbolic names to the report's stack traces when the
// mode calls for receiver-side resolution. In every other mode it is a
// no-op: disabled means addresses only, and in-process names were
// already attached by the emitter.
//
// Missing proc info under ModeInReceiver is a hard error, not a silent
// skip: the caller asked for resolution and we cannot deliver it.
func Resolve(ctx context.Context, mode Mode, report *crash.Report, resolver core.Resolver, log *logging.Logger) error {
	if mode != ModeInReceiver {
		return nil
	}
	if report.ProcInfo == nil {
		return core.ErrMissingPrereq("receiver-side frame resolution", "proc_info (crashed process pid)")
	}
	pid := report.ProcInfo.PID

	if err := resolveTrace(ctx, resolver, pid, &report.Error.Stack, log); err != nil {
		return err
	}
	for i := range report.Error.Threads {
		if err := resolveTrace(ctx, resolver, pid, &report.Error.Threads[i].Stack, log); err != nil {
			return err
		}
	}
	return nil
}

func resolveTrace(ctx context.Context, resolver core.Resolver, pid int, st *crash.StackTrace, log *logging.Logger) error {
	if len(st.Frames) == 0 {
		return nil
	}
	resolved, err := resolver.Resolve(ctx, pid, st.Frames)
	if err != nil {
		return core.ErrResolve(core.CodeResolverExec, "resolving frames").WithCause(err).
			WithDetail("resolver", resolver.Name()).
			WithDetail("pid", pid)
	}
	named := 0
	for _, f := range resolved {
		if f.Resolved() {
			named++
		}
	}
	log.Debug("frames resolved", "resolver", resolver.Name(), "total", len(resolved), "named", named)
	st.Frames = resolved
	return nil
}
