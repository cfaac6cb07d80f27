package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/signalhouse/crashtrack/internal/intake"
)

var intakeAddr string

var intakeCmd = &cobra.Command{
	Use:   "intake",
	Short: "Run the development intake server",
	Long: `Serves a local HTTP endpoint reports can be uploaded to. Uploaded
reports land in the intake directory and in the local archive, so
'crashtrack report' can browse them. Point upload.endpoint at this
server to exercise the whole delivery path on one machine.`,
	RunE: runIntake,
}

func init() {
	intakeCmd.Flags().StringVar(&intakeAddr, "addr", "",
		"listen address (overrides intake.addr)")
	rootCmd.AddCommand(intakeCmd)
}

func runIntake(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := buildLogger(cfg).WithComponent("intake")

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	srv, err := intake.NewServer(cfg.Intake.Dir, st, log)
	if err != nil {
		return err
	}

	addr := intakeAddr
	if addr == "" {
		addr = cfg.Intake.Addr
	}
	return srv.ListenAndServe(context.Background(), addr)
}
