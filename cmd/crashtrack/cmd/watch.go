package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/signalhouse/crashtrack/internal/spool"
	"github.com/signalhouse/crashtrack/internal/uploader"
)

var watchOnce bool

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Retry spooled reports until delivered",
	Long: `Watches the spool directory and re-uploads reports whose delivery
failed earlier. Runs until interrupted; with --once it drains the
spool a single time and exits.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchOnce, "once", false,
		"drain the spool once and exit")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := buildLogger(cfg).WithComponent("watch")

	client, err := uploader.New(uploader.Config{
		Endpoint: cfg.Upload.Endpoint,
		APIKey:   cfg.Upload.APIKey,
		Timeout:  cfg.Upload.Timeout,
	}, log)
	if err != nil {
		return err
	}
	sp, err := spool.New(cfg.Spool.Dir, log)
	if err != nil {
		return err
	}

	watcher := spool.NewWatcher(sp, client, cfg.Spool.SweepInterval, log)
	if watchOnce {
		watcher.Drain(context.Background())
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return watcher.Run(ctx)
}
