package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/timeex/internal/report"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the timer and save the tracked time as an entry",
	Args:  checkArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		sess, err := current.requireSession(ctx)
		if err != nil {
			return err
		}
		entry, elapsed, err := current.tracker.StopTimer(ctx, sess)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if entry == nil {
			fmt.Fprintln(out, "Timer stopped. No time was tracked, nothing saved.")
			return nil
		}
		fmt.Fprintf(out, "Stopped timer for %q. Elapsed: %s, %s\n",
			entry.Project, formatElapsed(int64(elapsed.Seconds())), report.FormatCurrency(entry.TotalAmount))
		fmt.Fprintf(out, "Saved entry %s\n", entry.ID)
		return nil
	},
}

func formatElapsed(seconds int64) string {
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
