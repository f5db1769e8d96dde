package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/timeex/internal/report"
	"github.com/Tiliavir/timeex/internal/timecalc"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show current timer status",
	Args:  checkArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		sess, err := current.requireSession(ctx)
		if err != nil {
			return err
		}
		t := current.tracker.TimerStatus(ctx, sess)
		out := cmd.OutOrStdout()
		if !t.Running && t.Elapsed == 0 {
			fmt.Fprintln(out, "No active timer.")
			return nil
		}

		elapsed := t.ElapsedAt(time.Now())
		state := "Running"
		if !t.Running {
			state = "Paused"
		}
		project := t.Project
		if project == "" {
			project = "(untitled)"
		}
		fmt.Fprintf(out, "%s: %s\n", state, project)
		fmt.Fprintf(out, "Elapsed: %s\n", timecalc.FormatDurationHHMMSS(elapsed))
		fmt.Fprintf(out, "Rate:    %s/h\n", report.FormatCurrency(t.HourlyRate))
		fmt.Fprintf(out, "Amount:  %s\n", report.FormatCurrency(elapsed.Hours()*t.HourlyRate))
		return nil
	},
}
