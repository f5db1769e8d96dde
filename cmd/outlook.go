package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/timeex/internal/audit"
	"github.com/Tiliavir/timeex/internal/log"
	"github.com/Tiliavir/timeex/internal/model"
	"github.com/Tiliavir/timeex/internal/msgraph"
	"github.com/Tiliavir/timeex/internal/timecalc"
)

var (
	outlookSyncFrom    string
	outlookSyncTo      string
	outlookSyncDate    string
	outlookSyncDryRun  bool
	outlookSyncProject string
	outlookSyncTZ      string
	outlookSyncRate    float64
)

var outlookCmd = &cobra.Command{
	Use:   "outlook",
	Short: "Outlook calendar integration",
}

var outlookSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Import Outlook calendar events as time entries",
	Args:  checkArgs(cobra.NoArgs),
	RunE:  runOutlookSync,
}

func init() {
	outlookSyncCmd.Flags().StringVar(&outlookSyncFrom, "from", "", "Start date (YYYY-MM-DD); required when --to is specified")
	outlookSyncCmd.Flags().StringVar(&outlookSyncTo, "to", "", "End date (YYYY-MM-DD); defaults to today")
	outlookSyncCmd.Flags().StringVar(&outlookSyncDate, "date", "", "Sync a specific date (YYYY-MM-DD)")
	outlookSyncCmd.Flags().BoolVar(&outlookSyncDryRun, "dry-run", false, "Print planned imports without saving")
	outlookSyncCmd.Flags().StringVar(&outlookSyncProject, "project", "", "Project for imported events (default from config)")
	outlookSyncCmd.Flags().StringVar(&outlookSyncTZ, "timezone", "", "IANA timezone for event times (default from config)")
	outlookSyncCmd.Flags().Float64Var(&outlookSyncRate, "rate", 0, "Hourly rate in $ (default from config)")
	outlookCmd.AddCommand(outlookSyncCmd)
}

// syncRange returns the [from, to) window of a sync run.
func syncRange(now time.Time, date, fromStr, toStr string) (time.Time, time.Time, error) {
	parse := func(flag, v string) (time.Time, error) {
		d, err := timecalc.ParseDate(v)
		if err != nil {
			return time.Time{}, model.NewValidationError(flag, fmt.Sprintf("%q is not a YYYY-MM-DD date", v))
		}
		return d, nil
	}

	switch {
	case date != "":
		d, err := parse("--date", date)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		return d, d.AddDate(0, 0, 1), nil

	case fromStr != "" || toStr != "":
		if fromStr == "" {
			return time.Time{}, time.Time{}, model.NewValidationError("--from", "is required when --to is specified")
		}
		from, err := parse("--from", fromStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		to := timecalc.Today(now)
		if toStr != "" {
			if to, err = parse("--to", toStr); err != nil {
				return time.Time{}, time.Time{}, err
			}
		}
		if to.Before(from) {
			return time.Time{}, time.Time{}, model.NewValidationError("--to", "must not be before --from")
		}
		return from, to.AddDate(0, 0, 1), nil

	default:
		today := timecalc.Today(now)
		return today, today.AddDate(0, 0, 1), nil
	}
}

func runOutlookSync(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	sess, err := current.requireSession(ctx)
	if err != nil {
		return err
	}
	from, to, err := syncRange(time.Now(), outlookSyncDate, outlookSyncFrom, outlookSyncTo)
	if err != nil {
		return err
	}

	oc := current.cfg.Outlook
	opts := msgraph.SyncOptions{
		UserID:     sess.UserID,
		Project:    oc.DefaultProject,
		HourlyRate: current.cfg.Timer.DefaultHourlyRate,
		Timezone:   oc.Timezone,
		DryRun:     outlookSyncDryRun,
		Out:        cmd.OutOrStdout(),
	}
	if outlookSyncProject != "" {
		opts.Project = outlookSyncProject
	}
	if outlookSyncTZ != "" {
		opts.Timezone = outlookSyncTZ
	}
	if cmd.Flags().Changed("rate") {
		if outlookSyncRate < 0 {
			return model.NewValidationError("--rate", "must not be negative")
		}
		opts.HourlyRate = outlookSyncRate
	}

	out := cmd.OutOrStdout()
	dryTag := ""
	if opts.DryRun {
		dryTag = " [dry-run]"
	}
	fmt.Fprintf(out, "Syncing Outlook events (%s → %s)%s...\n\n",
		timecalc.FormatISO(from), timecalc.FormatISO(to.AddDate(0, 0, -1)), dryTag)

	auth := &msgraph.Auth{
		Home:     current.cfg.Home,
		TenantID: oc.TenantID,
		ClientID: oc.ClientID,
		Out:      out,
		Log:      current.log.WithComponent(log.ComponentOutlook),
	}
	client, err := auth.Client(ctx)
	if err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}
	events, err := client.GetCalendarView(ctx, from, to, opts.Timezone)
	if err != nil {
		return fmt.Errorf("fetching calendar events: %w", err)
	}

	result, err := msgraph.SyncEvents(ctx, current.tracker, events, opts)
	if err != nil {
		return err
	}
	if !opts.DryRun && result.Imported > 0 {
		if err := current.audit.Record(ctx, sess.UserID, audit.ActionOutlookSync, fmt.Sprintf("%d events", result.Imported)); err != nil {
			current.log.Warn("audit event not recorded", "error", err)
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Summary:")
	fmt.Fprintf(out, "  %d imported\n", result.Imported)
	fmt.Fprintf(out, "  %d skipped\n", result.Skipped)
	fmt.Fprintf(out, "  %d filtered\n", result.Filtered)
	if result.Errors > 0 {
		fmt.Fprintf(out, "  %d errors\n", result.Errors)
		return fmt.Errorf("%d events could not be imported", result.Errors)
	}
	return nil
}
