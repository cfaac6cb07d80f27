package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/signalhouse/crashtrack/internal/browse"
	"github.com/signalhouse/crashtrack/internal/clip"
	"github.com/signalhouse/crashtrack/internal/core"
)

var (
	listOnlyCrashes bool
	listOnlyPartial bool
	listSignal      string
	listLimit       int
	showRaw         bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Inspect archived crash reports",
}

var reportListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived reports",
	RunE:  runReportList,
}

var reportShowCmd = &cobra.Command{
	Use:   "show <uuid>",
	Short: "Show one report as a rendered summary",
	Args:  cobra.ExactArgs(1),
	RunE:  runReportShow,
}

var reportBrowseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse the archive interactively",
	RunE:  runReportBrowse,
}

var reportCopyCmd = &cobra.Command{
	Use:   "copy <uuid>",
	Short: "Copy a report's JSON to the clipboard",
	Args:  cobra.ExactArgs(1),
	RunE:  runReportCopy,
}

func init() {
	reportListCmd.Flags().BoolVar(&listOnlyCrashes, "crashes", false, "only actual crashes")
	reportListCmd.Flags().BoolVar(&listOnlyPartial, "incomplete", false, "only incomplete reports")
	reportListCmd.Flags().StringVar(&listSignal, "signal", "", "filter by signal name (e.g. SIGSEGV)")
	reportListCmd.Flags().IntVar(&listLimit, "limit", 0, "limit the number of rows (0 = all)")
	reportShowCmd.Flags().BoolVar(&showRaw, "raw", false, "print raw report JSON instead of the summary")

	reportCmd.AddCommand(reportListCmd, reportShowCmd, reportBrowseCmd, reportCopyCmd)
	rootCmd.AddCommand(reportCmd)
}

func runReportList(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	sums, err := st.List(context.Background(), core.ReportFilter{
		OnlyCrashes:    listOnlyCrashes,
		OnlyIncomplete: listOnlyPartial,
		Signal:         listSignal,
		Limit:          listLimit,
	})
	if err != nil {
		return err
	}
	if len(sums) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no reports")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "UUID\tTIME\tSIGNAL\tPID\tFRAMES\tSTATE")
	for _, s := range sums {
		ts := "-"
		if !s.Timestamp.IsZero() {
			ts = s.Timestamp.Local().Format("2006-01-02 15:04:05")
		}
		state := "complete"
		if !s.IsCrash {
			state = "no-crash"
		} else if s.Incomplete {
			state = "incomplete"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n", s.UUID, ts, s.Signame, s.PID, s.FrameCount, state)
	}
	return w.Flush()
}

func runReportShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	report, err := st.Get(context.Background(), args[0])
	if err != nil {
		return err
	}

	if showRaw {
		payload, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(payload))
		return nil
	}

	width := 100
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		width = w
	}
	fmt.Fprint(cmd.OutOrStdout(), browse.RenderMarkdown(browse.Markdown(report), width))
	return nil
}

func runReportBrowse(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	return browse.Run(context.Background(), st)
}

func runReportCopy(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	report, err := st.Get(context.Background(), args[0])
	if err != nil {
		return err
	}
	res, err := clip.WriteReport(report)
	if err != nil {
		return err
	}
	switch res.Method {
	case clip.MethodFile:
		fmt.Fprintf(cmd.OutOrStdout(), "clipboard unavailable, wrote %s\n", res.FilePath)
	default:
		fmt.Fprintf(cmd.OutOrStdout(), "copied %s (%s)\n", args[0], res.Method)
	}
	return nil
}
