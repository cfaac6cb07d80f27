package cmd

import (
	"github.com/signalhouse/crashtrack/internal/config"
	"github.com/signalhouse/crashtrack/internal/core"
	"github.com/signalhouse/crashtrack/internal/hostinfo"
	"github.com/signalhouse/crashtrack/internal/logging"
	"github.com/signalhouse/crashtrack/internal/receiver"
	"github.com/signalhouse/crashtrack/internal/spool"
	"github.com/signalhouse/crashtrack/internal/store"
	"github.com/signalhouse/crashtrack/internal/symbolize"
	"github.com/signalhouse/crashtrack/internal/uploader"
)

// openStore opens the local archive per config.
func openStore(cfg *config.Config) (*store.SQLiteStore, error) {
	return store.NewSQLiteStore(cfg.Store.Path)
}

// buildUploader builds the configured upload client wrapped with the
// spool fallback: a failed upload parks the report on disk for the
// watch command instead of losing it.
func buildUploader(cfg *config.Config, log *logging.Logger) (core.Uploader, error) {
	client, err := uploader.New(uploader.Config{
		Endpoint: cfg.Upload.Endpoint,
		APIKey:   cfg.Upload.APIKey,
		Timeout:  cfg.Upload.Timeout,
	}, log)
	if err != nil {
		return nil, err
	}
	sp, err := spool.New(cfg.Spool.Dir, log)
	if err != nil {
		return nil, err
	}
	return &spoolingUploader{client: client, spool: sp, log: log}, nil
}

// buildPipeline assembles the post-stream processing for receive.
func buildPipeline(cfg *config.Config, st core.ReportStore, log *logging.Logger) (*receiver.Pipeline, error) {
	mode, err := symbolize.ParseMode(cfg.Receiver.ResolveFrames)
	if err != nil {
		return nil, err
	}
	up, err := buildUploader(cfg, log)
	if err != nil {
		return nil, err
	}

	p := &receiver.Pipeline{
		Log:             log,
		Mode:            mode,
		Resolver:        symbolize.NewAddr2Line(cfg.Receiver.ResolveTimeout),
		Store:           st,
		Uploader:        up,
		AdditionalFiles: cfg.Receiver.AdditionalFiles,
	}
	if cfg.Receiver.EnrichHostInfo {
		p.Enricher = hostinfo.New(log)
	}
	return p, nil
}
