package receiver

import (
	"context"
	"errors"

	"github.com/signalhouse/crashtrack/internal/core"
	"github.com/signalhouse/crashtrack/internal/crash"
	"github.com/signalhouse/crashtrack/internal/logging"
	"github.com/signalhouse/crashtrack/internal/symbolize"
)

// Enricher augments a finalized report with data only available
// out-of-process (host details, crashed-process lookups).
type Enricher interface {
	Enrich(ctx context.Context, report *crash.Report)
}

// Pipeline is the post-processing that runs after a crash stream has
// been fully (or partially) parsed: attach requested files, resolve
// frames, enrich, archive, upload. Nil collaborators skip their step.
type Pipeline struct {
	Log      *logging.Logger
	Mode     symbolize.Mode
	Resolver core.Resolver
	Enricher Enricher
	Store    core.ReportStore
	Uploader core.Uploader

	// AdditionalFiles are attached from the receiver's disk,
	// best-effort; the sender's config may extend this list.
	AdditionalFiles []string
}

// Process finalizes the report and hands it onward. Best-effort steps
// (file attachment, enrichment) only log; resolution, archival and
// upload failures are collected and returned together, but none of
// them stops the later steps — an incomplete or unresolved report is
// still archived and uploaded, annotated as such.
func (p *Pipeline) Process(ctx context.Context, outcome *Outcome) error {
	if outcome.NoCrash() {
		p.Log.Info("stream closed without a crash, nothing to process")
		return nil
	}
	report := outcome.Report
	log := p.Log.WithReport(report.UUID)

	p.attachFiles(report, outcome.Config, log)

	var errs []error

	mode := p.Mode
	if outcome.Config != nil && outcome.Config.ResolveFrames != "" {
		// The sender's snapshot knows how it wanted its frames handled.
		if m, err := symbolize.ParseMode(outcome.Config.ResolveFrames); err == nil {
			mode = m
		} else {
			log.Warn("sender requested unknown resolve mode, keeping local setting",
				"mode", outcome.Config.ResolveFrames)
		}
	}
	if p.Resolver != nil {
		if err := symbolize.Resolve(ctx, mode, report, p.Resolver, log); err != nil {
			log.Error("frame resolution failed", "error", err)
			errs = append(errs, err)
		}
	}

	if p.Enricher != nil {
		p.Enricher.Enrich(ctx, report)
	}

	if err := report.Validate(); err != nil {
		errs = append(errs, core.ErrInternal("finalized report failed validation").WithCause(err))
	}

	if p.Store != nil {
		if err := p.Store.Save(ctx, report); err != nil {
			log.Error("archiving report failed", "error", err)
			errs = append(errs, err)
		}
	}

	if p.Uploader != nil {
		if err := p.Uploader.Upload(ctx, report); err != nil {
			log.Error("upload failed", "error", err)
			errs = append(errs, err)
		} else {
			log.Info("report uploaded", "incomplete", report.Incomplete)
		}
	}

	return errors.Join(errs...)
}

// attachFiles reads the locally configured files plus any the sender's
// config asked for. Failures cost the file, never the report.
func (p *Pipeline) attachFiles(report *crash.Report, sc *StreamConfig, log *logging.Logger) {
	paths := append([]string(nil), p.AdditionalFiles...)
	if sc != nil {
		paths = append(paths, sc.AdditionalFiles...)
	}
	for _, path := range paths {
		if err := report.AttachFile(path); err != nil {
			log.Warn("unable to attach file", "path", path, "error", err)
		}
	}
}
