package spool

import (
	"context"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"github.com/signalhouse/crashtrack/internal/core"
	"github.com/signalhouse/crashtrack/internal/logging"
)

// Watcher retries spooled reports: it drains the spool when new
// entries appear and on a periodic sweep, in case an upload outage
// outlasted the filesystem events.
type Watcher struct {
	spool    *Spool
	uploader core.Uploader
	interval time.Duration
	log      *logging.Logger

	// kick coalesces fsnotify events into at most one pending drain.
	kick chan struct{}
}

// NewWatcher builds a watcher over an existing spool.
func NewWatcher(spool *Spool, uploader core.Uploader, interval time.Duration, log *logging.Logger) *Watcher {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Watcher{
		spool:    spool,
		uploader: uploader,
		interval: interval,
		log:      log,
		kick:     make(chan struct{}, 1),
	}
}

// Run blocks until ctx is cancelled, draining the spool as entries
// arrive. An initial drain picks up whatever a previous run left.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return core.ErrStorage(core.CodeSpoolUnwritable, "creating spool watcher").WithCause(err)
	}
	defer fsw.Close()
	if err := fsw.Add(w.spool.Dir()); err != nil {
		return core.ErrStorage(core.CodeSpoolUnwritable, "watching spool directory").WithCause(err)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case event, ok := <-fsw.Events:
				if !ok {
					return nil
				}
				// Writes land via rename, so Create is the signal
				// that a complete entry appeared.
				if event.Op&(fsnotify.Create|fsnotify.Rename) != 0 && strings.HasSuffix(event.Name, ".json") {
					w.nudge()
				}
			case err, ok := <-fsw.Errors:
				if !ok {
					return nil
				}
				w.log.Warn("spool watcher error", "error", err)
			}
		}
	})

	g.Go(func() error {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		w.Drain(ctx)
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				w.Drain(ctx)
			case <-w.kick:
				w.Drain(ctx)
			}
		}
	})

	err = g.Wait()
	if err == context.Canceled || err == context.DeadlineExceeded {
		return nil
	}
	return err
}

func (w *Watcher) nudge() {
	select {
	case w.kick <- struct{}{}:
	default:
	}
}

// Drain attempts to upload every pending entry once. Entries that
// fail to upload stay for the next pass; entries that fail to parse
// are quarantined.
func (w *Watcher) Drain(ctx context.Context) {
	paths, err := w.spool.List()
	if err != nil {
		w.log.Warn("listing spool failed", "error", err)
		return
	}
	for _, path := range paths {
		if ctx.Err() != nil {
			return
		}
		report, err := w.spool.Load(path)
		if err != nil {
			w.spool.Quarantine(path)
			continue
		}
		if err := w.uploader.Upload(ctx, report); err != nil {
			w.log.Warn("spool retry failed", "report_id", report.UUID, "error", err)
			continue
		}
		if err := w.spool.Remove(path); err != nil {
			w.log.Warn("removing delivered spool entry failed", "path", path, "error", err)
		}
	}
}
