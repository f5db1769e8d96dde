package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/timeex/internal/model"
	"github.com/Tiliavir/timeex/internal/report"
)

var (
	reportCycle  = cycleFlags{reports: true}
	reportFormat string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show the report of a cycle",
	Args:  checkArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		sess, err := current.requireSession(ctx)
		if err != nil {
			return err
		}
		c, err := reportCycle.resolve(time.Now())
		if err != nil {
			return err
		}
		r := report.Build(current.tracker.List(ctx, sess), c)

		out := cmd.OutOrStdout()
		switch strings.ToLower(reportFormat) {
		case "csv":
			fmt.Fprint(out, report.ToCSV(r.Entries))
			fmt.Fprintln(out)
		case "json":
			if r.Entries == nil {
				r.Entries = []model.TimeEntry{}
			}
			data, err := json.MarshalIndent(r, "", "  ")
			if err != nil {
				return fmt.Errorf("encoding JSON: %w", err)
			}
			fmt.Fprintln(out, string(data))
		case "table", "":
			fmt.Fprintln(out, summaryBlock(r))
			if len(r.Entries) > 0 {
				fmt.Fprintln(out)
				fmt.Fprintln(out, entryTable(r.Entries, false))
			}
		default:
			return model.NewValidationError("format", fmt.Sprintf("%q is not one of table, csv, json", reportFormat))
		}
		return nil
	},
}

func init() {
	reportCycle.register(reportCmd)
	reportCmd.Flags().StringVar(&reportFormat, "format", "table", "Output format: table, csv, json")
}
