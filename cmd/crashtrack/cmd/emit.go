package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/signalhouse/crashtrack/internal/emitter"
	"github.com/signalhouse/crashtrack/internal/procctl"
	"github.com/signalhouse/crashtrack/internal/spawn"
	"github.com/signalhouse/crashtrack/internal/symbolize"
)

var (
	emitSignal   string
	emitStdout   bool
	emitReceiver string
	emitAtCrash  bool
)

var emitCmd = &cobra.Command{
	Use:   "emit",
	Short: "Emit a synthetic crash stream (for testing the pipeline)",
	Long: `Pretends this process just crashed: builds an emitter, spawns a
receiver child (this binary, running 'receive'), and streams a crash
for the chosen signal through the pipe. With --stdout the stream goes
to standard output instead, which is handy for inspecting the wire
format or piping into 'crashtrack receive' manually. --at-crash uses
the raw fork+exec path a crashing process would.`,
	RunE: runEmit,
}

func init() {
	emitCmd.Flags().StringVar(&emitSignal, "signal", "SIGSEGV",
		"signal to report (name like SIGABRT or a number)")
	emitCmd.Flags().BoolVar(&emitStdout, "stdout", false,
		"write the crash stream to stdout instead of spawning a receiver")
	emitCmd.Flags().StringVar(&emitReceiver, "receiver", "",
		"receiver binary to spawn (default: this executable)")
	emitCmd.Flags().BoolVar(&emitAtCrash, "at-crash", false,
		"spawn the receiver via raw fork+exec, as crash-time code does")
	rootCmd.AddCommand(emitCmd)
}

// crashStream is what runEmit needs from either spawn path.
type crashStream interface {
	Writer() io.Writer
	CloseStream() error
	Wait(context.Context) error
	PID() int
}

// signalNumbers covers the fatal signals the tracker is built for.
var signalNumbers = map[string]int{
	"SIGHUP": 1, "SIGINT": 2, "SIGQUIT": 3, "SIGILL": 4, "SIGTRAP": 5,
	"SIGABRT": 6, "SIGBUS": 7, "SIGFPE": 8, "SIGSEGV": 11, "SIGPIPE": 13,
	"SIGTERM": 15,
}

func parseSignal(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		if n <= 0 {
			return 0, fmt.Errorf("signal number %d out of range", n)
		}
		return n, nil
	}
	if n, ok := signalNumbers[strings.ToUpper(s)]; ok {
		return n, nil
	}
	return 0, fmt.Errorf("unknown signal %q", s)
}

func runEmit(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := buildLogger(cfg).WithComponent("emit")

	signum, err := parseSignal(emitSignal)
	if err != nil {
		return err
	}

	mode, err := symbolize.ParseMode(cfg.Receiver.ResolveFrames)
	if err != nil {
		return err
	}
	// The emitter only resolves in-process; receiver mode is carried in
	// the config block for the receiver to act on.
	emitMode := symbolize.ModeDisabled
	if mode.ResolveInProcess() {
		emitMode = symbolize.ModeInProcess
	}

	em := emitter.New(emitter.Options{
		MetadataJSON: fmt.Sprintf(`{"library_name": "crashtrack", "library_version": %q}`, appVersion),
		ConfigJSON: fmt.Sprintf(`{"endpoint": %q, "resolve_frames": %q}`,
			cfg.Upload.Endpoint, cfg.Receiver.ResolveFrames),
		Resolve:           emitMode,
		CollectStacktrace: cfg.Emitter.CollectStacktrace,
		MaxFrames:         cfg.Emitter.MaxFrames,
	})

	// Give the stream some tracking state so the receiver has counters
	// and ids to parse, like a real instrumented process would.
	if c, err := emitter.RegisterCounter("synthetic_operation"); err == nil {
		c.Add(1)
	}
	_, _ = emitter.InsertSpan(0, 42)
	_, _ = emitter.InsertTrace(1, 7)

	if emitStdout {
		return em.Emit(os.Stdout, signum)
	}

	if emitReceiver != "" {
		procctl.SetReceiverBinary(emitReceiver)
	}
	var recv crashStream
	if emitAtCrash {
		r, err := spawn.SpawnAtCrash(spawn.Options{Binary: emitReceiver}, log)
		if err != nil {
			return err
		}
		recv = r
	} else {
		r, err := spawn.Start(spawn.Options{Binary: emitReceiver}, log)
		if err != nil {
			return err
		}
		recv = r
	}
	if err := em.Emit(recv.Writer(), signum); err != nil {
		_ = recv.CloseStream()
		return err
	}
	log.Info("crash stream emitted", "signal", emitSignal, "receiver_pid", recv.PID())
	return recv.Wait(context.Background())
}
