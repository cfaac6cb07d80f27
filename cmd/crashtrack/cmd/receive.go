package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/signalhouse/crashtrack/internal/receiver"
)

var receiveSocket string

var receiveCmd = &cobra.Command{
	Use:   "receive",
	Short: "Receive one crash stream and process the resulting report",
	Long: `Reads the line protocol from stdin (the usual arrangement when the
crashing process spawned this receiver over a pipe) or, with --socket,
from one connection on a unix socket. The parsed report is enriched,
resolved, archived and uploaded; a clean stream with no signal info
means no crash happened and nothing is reported.`,
	RunE: runReceive,
}

func init() {
	receiveCmd.Flags().StringVar(&receiveSocket, "socket", "",
		"listen on this unix socket instead of reading stdin")
	rootCmd.AddCommand(receiveCmd)
}

func runReceive(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := buildLogger(cfg).WithComponent("receiver")

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	pipeline, err := buildPipeline(cfg, st, log)
	if err != nil {
		return err
	}

	socket := receiveSocket
	if socket == "" {
		socket = cfg.Receiver.SocketPath
	}

	var outcome *receiver.Outcome
	if socket != "" {
		outcome, err = receiver.ReceiveFromUnixSocket(socket, log)
	} else {
		outcome, err = receiver.ReceiveFromStdin(log)
	}
	if err != nil {
		return err
	}

	return pipeline.Process(context.Background(), outcome)
}
