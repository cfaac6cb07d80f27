package symbolize

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/signalhouse/crashtrack/internal/crash"
)

// commandRunner abstracts subprocess execution for tests.
type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Addr2Line resolves frames by shelling out to addr2line against the
// crashed process's executable. It needs the process (or at least its
// /proc entry) to still exist when it runs, which holds while the
// crashing process blocks on the receiver draining the pipe.
type Addr2Line struct {
	// Path is the addr2line binary to invoke.
	Path string

	// Timeout bounds one invocation. Zero means no bound beyond ctx.
	Timeout time.Duration

	run       commandRunner
	lookupExe func(ctx context.Context, pid int) (string, error)
}

// NewAddr2Line creates the default resolver.
func NewAddr2Line(timeout time.Duration) *Addr2Line {
	return &Addr2Line{
		Path:      "addr2line",
		Timeout:   timeout,
		run:       runCommand,
		lookupExe: exePath,
	}
}

// Name returns the resolver identifier.
func (a *Addr2Line) Name() string { return "addr2line" }

// Resolve fills in names for every frame carrying an instruction
// pointer. Frames addr2line cannot place ("??") are left untouched.
func (a *Addr2Line) Resolve(ctx context.Context, pid int, frames []crash.Frame) ([]crash.Frame, error) {
	exe, err := a.lookupExe(ctx, pid)
	if err != nil {
		return nil, fmt.Errorf("locating executable of pid %d: %w", pid, err)
	}

	// Collect the addresses that still need names, preserving frame order.
	var addrs []string
	var idx []int
	for i, f := range frames {
		if f.IP == "" || f.Resolved() {
			continue
		}
		addrs = append(addrs, f.IP)
		idx = append(idx, i)
	}
	if len(addrs) == 0 {
		return frames, nil
	}

	if a.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.Timeout)
		defer cancel()
	}

	args := append([]string{"-e", exe, "-f", "-C"}, addrs...)
	out, err := a.run(ctx, a.Path, args...)
	if err != nil {
		return nil, fmt.Errorf("running %s: %w", a.Path, err)
	}

	// Output is two lines per address: function name, then file:line.
	lines := strings.Split(strings.TrimRight(string(out), "\n"), "\n")
	if len(lines) < 2*len(addrs) {
		return nil, fmt.Errorf("%s returned %d lines for %d addresses", a.Path, len(lines), len(addrs))
	}

	resolved := append([]crash.Frame(nil), frames...)
	for n, frameIdx := range idx {
		name := strings.TrimSpace(lines[2*n])
		loc := strings.TrimSpace(lines[2*n+1])
		if name == "" || name == "??" {
			continue
		}
		sym := crash.SymbolName{Name: name}
		sym.Filename, sym.LineNo = splitLocation(loc)
		resolved[frameIdx].Names = []crash.SymbolName{sym}
	}
	return resolved, nil
}

// splitLocation parses addr2line's "file:line" form. Unknown locations
// come back as "??:0" or "??:?" and yield an empty filename.
func splitLocation(loc string) (string, int) {
	if i := strings.Index(loc, " (discriminator"); i >= 0 {
		loc = loc[:i]
	}
	colon := strings.LastIndex(loc, ":")
	if colon < 0 {
		return "", 0
	}
	file := loc[:colon]
	if file == "??" {
		return "", 0
	}
	lineNo, err := strconv.Atoi(loc[colon+1:])
	if err != nil {
		lineNo = 0
	}
	return file, lineNo
}

// exePath finds the executable of a live process, preferring gopsutil
// and falling back to the /proc symlink.
func exePath(ctx context.Context, pid int) (string, error) {
	if p, err := process.NewProcessWithContext(ctx, int32(pid)); err == nil {
		if exe, err := p.ExeWithContext(ctx); err == nil && exe != "" {
			return exe, nil
		}
	}
	exe, err := os.Readlink(fmt.Sprintf("/proc/%d/exe", pid))
	if err != nil {
		return "", err
	}
	return exe, nil
}
