// Package hostinfo enriches finalized crash reports with host and
// process context. It runs in the receiver, after the stream is
// parsed, so none of the emitter's allocation constraints apply here.
// Everything is best-effort: a host probe that fails leaves its field
// empty and never fails the report.
package hostinfo

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/signalhouse/crashtrack/internal/crash"
	"github.com/signalhouse/crashtrack/internal/logging"
)

// hostInfoFile is the report attachment the extra context goes into.
const hostInfoFile = "host_info"

// Enricher fills report OSInfo and attaches host context lines.
type Enricher struct {
	log *logging.Logger

	// probe seams for tests
	hostInfo  func(ctx context.Context) (*host.InfoStat, error)
	memInfo   func(ctx context.Context) (*mem.VirtualMemoryStat, error)
	procExtra func(ctx context.Context, pid int) []string
	hardware  func() []string
}

// New builds an enricher with the real probes.
func New(log *logging.Logger) *Enricher {
	return &Enricher{
		log:       log,
		hostInfo:  host.InfoWithContext,
		memInfo:   mem.VirtualMemoryWithContext,
		procExtra: processExtra,
		hardware:  hardwareNames,
	}
}

// Enrich fills in what the crashed process could not safely report
// about itself. The crashed process may already be gone by the time
// this runs; process probes then contribute nothing.
func (e *Enricher) Enrich(ctx context.Context, report *crash.Report) {
	info, err := e.hostInfo(ctx)
	if err != nil {
		e.log.Warn("host probe failed", "error", err)
	} else {
		report.OSInfo = crash.OSInfo{
			OSType:       info.OS,
			Version:      info.PlatformVersion,
			Architecture: info.KernelArch,
			Bitness:      bitness(info.KernelArch),
		}
	}

	var lines []string
	if info != nil {
		lines = append(lines,
			"hostname: "+info.Hostname,
			"platform: "+strings.TrimSpace(info.Platform+" "+info.PlatformVersion),
			"kernel: "+info.KernelVersion,
		)
	}
	if vm, err := e.memInfo(ctx); err == nil {
		lines = append(lines,
			"mem_total_bytes: "+strconv.FormatUint(vm.Total, 10),
			"mem_available_bytes: "+strconv.FormatUint(vm.Available, 10),
		)
	}
	lines = append(lines, e.hardware()...)
	if report.ProcInfo != nil {
		lines = append(lines, e.procExtra(ctx, report.ProcInfo.PID)...)
	}

	if len(lines) > 0 {
		report.AddFileLines(hostInfoFile, lines)
	}
}

// processExtra looks up the crashed process while it still exists.
func processExtra(ctx context.Context, pid int) []string {
	p, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		return nil
	}
	var lines []string
	if exe, err := p.ExeWithContext(ctx); err == nil && exe != "" {
		lines = append(lines, "proc_exe: "+exe)
	}
	if cmdline, err := p.CmdlineWithContext(ctx); err == nil && cmdline != "" {
		lines = append(lines, "proc_cmdline: "+cmdline)
	}
	if created, err := p.CreateTimeWithContext(ctx); err == nil && created > 0 {
		t := time.UnixMilli(created).UTC()
		lines = append(lines, "proc_started: "+t.Format(time.RFC3339))
	}
	return lines
}

// bitness maps the kernel arch onto the coarse 32/64 split the report
// carries.
func bitness(arch string) string {
	switch {
	case strings.Contains(arch, "64"):
		return "64-bit"
	case arch == "":
		return ""
	default:
		return "32-bit"
	}
}

// sortedUnique keeps hardware name lists stable across probes.
func sortedUnique(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func formatNames(prefix string, names []string) []string {
	var out []string
	for i, n := range names {
		out = append(out, fmt.Sprintf("%s_%d: %s", prefix, i, n))
	}
	return out
}
