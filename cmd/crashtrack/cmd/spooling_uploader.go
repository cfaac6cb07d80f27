package cmd

import (
	"context"

	"github.com/signalhouse/crashtrack/internal/crash"
	"github.com/signalhouse/crashtrack/internal/logging"
	"github.com/signalhouse/crashtrack/internal/spool"
	"github.com/signalhouse/crashtrack/internal/uploader"
)

// spoolingUploader delivers through the HTTP/file client and parks the
// report in the spool when delivery fails. A spooled report counts as
// handled: `crashtrack watch` retries it later.
type spoolingUploader struct {
	client *uploader.Client
	spool  *spool.Spool
	log    *logging.Logger
}

func (u *spoolingUploader) Upload(ctx context.Context, report *crash.Report) error {
	err := u.client.Upload(ctx, report)
	if err == nil {
		return nil
	}
	u.log.Warn("upload failed, spooling for retry", "report_id", report.UUID, "error", err)
	if _, spoolErr := u.spool.Put(report); spoolErr != nil {
		// Both paths failed; surface the original upload error.
		u.log.Error("spooling failed too", "report_id", report.UUID, "error", spoolErr)
		return err
	}
	return nil
}
