package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/timeex/internal/report"
	"github.com/Tiliavir/timeex/internal/timecalc"
	"github.com/Tiliavir/timeex/internal/tracker"
)

// entryFlags are the fields of a manual entry.
type entryFlags struct {
	date        string
	project     string
	description string
	hours       float64
	rate        float64
	total       float64
}

func (f *entryFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.date, "date", "", "Date (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&f.project, "project", "", "Project or task name")
	cmd.Flags().StringVar(&f.description, "description", "", "What was done")
	cmd.Flags().Float64Var(&f.hours, "hours", 0, "Duration in hours, e.g. 1.5")
	cmd.Flags().Float64Var(&f.rate, "rate", 0, "Hourly rate in $")
	cmd.Flags().Float64Var(&f.total, "total", 0, "Total amount in $ (default hours × rate)")
}

func (f *entryFlags) input(cmd *cobra.Command) tracker.EntryInput {
	in := tracker.EntryInput{
		Date:        f.date,
		Project:     f.project,
		Description: f.description,
		Duration:    f.hours,
		HourlyRate:  f.rate,
	}
	if cmd.Flags().Changed("total") {
		total := f.total
		in.TotalAmount = &total
	}
	return in
}

var (
	addFlags  entryFlags
	editFlags entryFlags
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a manual time entry",
	Args:  checkArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		sess, err := current.requireSession(ctx)
		if err != nil {
			return err
		}
		e, err := current.tracker.Add(ctx, sess, addFlags.input(cmd))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added %s on %s: %s, %s (id %s)\n",
			e.Project, timecalc.FormatDate(e.Date), timecalc.FormatHours(e.Duration), report.FormatCurrency(e.TotalAmount), e.ID)
		return nil
	},
}

var editCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Replace a time entry",
	Long: `Replace all fields of an entry. Fields not given on the command line
are cleared, so pass every value you want to keep.`,
	Args: checkArgs(cobra.ExactArgs(1)),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		sess, err := current.requireSession(ctx)
		if err != nil {
			return err
		}
		e, err := current.tracker.Update(ctx, sess, args[0], editFlags.input(cmd))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Updated %s: %s on %s, %s\n",
			e.ID, e.Project, timecalc.FormatDate(e.Date), timecalc.FormatHours(e.Duration))
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a time entry",
	Args:  checkArgs(cobra.ExactArgs(1)),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		sess, err := current.requireSession(ctx)
		if err != nil {
			return err
		}
		if err := current.tracker.Delete(ctx, sess, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted entry %s\n", args[0])
		return nil
	},
}

func init() {
	addFlags.register(addCmd)
	editFlags.register(editCmd)
}
