package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/timeex/internal/report"
)

var (
	listCycle    cycleFlags
	listProjects bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the time entries of a cycle",
	Args:  checkArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		sess, err := current.requireSession(ctx)
		if err != nil {
			return err
		}
		entries := current.tracker.List(ctx, sess)
		out := cmd.OutOrStdout()
		if listProjects {
			for _, p := range report.Projects(entries) {
				fmt.Fprintln(out, p)
			}
			return nil
		}

		c, err := listCycle.resolve(time.Now())
		if err != nil {
			return err
		}
		r := report.Build(entries, c)
		fmt.Fprintln(out, summaryBlock(r))
		fmt.Fprintln(out)
		if len(r.Entries) == 0 {
			fmt.Fprintln(out, "No entries found.")
			return nil
		}
		fmt.Fprintln(out, entryTable(r.Entries, true))
		return nil
	},
}

func init() {
	listCycle.register(listCmd)
	listCmd.Flags().BoolVar(&listProjects, "projects", false, "List the project names in use instead of entries")
}
