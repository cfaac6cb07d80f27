package core

import (
	"context"

	"github.com/signalhouse/crashtrack/internal/crash"
)

// =============================================================================
// Resolver Port
// =============================================================================

// Resolver maps raw instruction pointers to symbolic names. Implementations
// read debug info from the crashed process image, so they may need the
// process to still exist (see crash.ProcInfo).
type Resolver interface {
	// Name returns the resolver identifier (e.g., "addr2line").
	Name() string

	// Resolve fills in symbolic names for every frame that has only an
	// instruction pointer. Frames it cannot resolve are left untouched.
	Resolve(ctx context.Context, pid int, frames []crash.Frame) ([]crash.Frame, error)
}

// =============================================================================
// Uploader Port
// =============================================================================

// Uploader delivers a finished report to its destination.
type Uploader interface {
	// Upload sends the report. A nil error means the destination
	// accepted it; the report may then be discarded.
	Upload(ctx context.Context, report *crash.Report) error
}

// =============================================================================
// ReportStore Port
// =============================================================================

// ReportFilter narrows List results. Zero values mean "no constraint".
type ReportFilter struct {
	OnlyCrashes    bool
	OnlyIncomplete bool
	Signal         string
	Limit          int
}

// ReportStore archives reports locally so they survive process exit and
// can be browsed later.
type ReportStore interface {
	// Save persists the report, keyed by its UUID.
	Save(ctx context.Context, report *crash.Report) error

	// Get loads one report by UUID.
	Get(ctx context.Context, id string) (*crash.Report, error)

	// List returns summaries of stored reports, newest first.
	List(ctx context.Context, filter ReportFilter) ([]crash.Summary, error)

	// Delete removes a report by UUID.
	Delete(ctx context.Context, id string) error

	// Close releases the underlying storage handle.
	Close() error
}
