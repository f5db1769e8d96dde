package cmd

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/Tiliavir/timeex/internal/archive"
)

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Automatic archiving of cycle reports",
}

var archiveSetupCmd = &cobra.Command{
	Use:   "setup <dir>",
	Short: "Choose the archive directory and enable archiving",
	Args:  checkArgs(cobra.ExactArgs(1)),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		sess, err := current.requireSession(ctx)
		if err != nil {
			return err
		}
		info, err := current.archive.Setup(ctx, sess.UserID, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Archiving enabled. Reports go to %s\n", info.Dir)
		res, err := current.archive.Run(ctx, sess.UserID)
		if err != nil {
			return err
		}
		printResult(cmd.OutOrStdout(), res)
		return nil
	},
}

var archiveDisableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Stop archiving automatically",
	Args:  checkArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		sess, err := current.requireSession(ctx)
		if err != nil {
			return err
		}
		if err := current.archive.Disable(ctx, sess.UserID); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Archiving disabled.")
		return nil
	},
}

var archiveStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the archive configuration",
	Args:  checkArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		sess, err := current.requireSession(ctx)
		if err != nil {
			return err
		}
		st := current.archive.Status(ctx, sess.UserID)
		out := cmd.OutOrStdout()
		if st.Info.Dir == "" {
			fmt.Fprintln(out, "Archiving is not set up. Run `timeex archive setup <dir>`.")
			return nil
		}
		fmt.Fprintf(out, "Directory:  %s\n", st.Info.Dir)
		fmt.Fprintf(out, "Enabled:    %t\n", st.Info.Enabled)
		fmt.Fprintf(out, "Access:     %s\n", st.Capability)
		fmt.Fprintf(out, "Set up:     %s\n", st.Info.SetupDate.Local().Format("2006-01-02 15:04"))
		fmt.Fprintf(out, "Reports:    %d\n", st.Records)
		if !st.LastArchived.IsZero() {
			fmt.Fprintf(out, "Last:       %s\n", st.LastArchived.Local().Format("2006-01-02 15:04"))
		}
		if st.Capability == archive.Denied {
			fmt.Fprintln(out, "The directory is not writable. Run `timeex archive setup` again.")
		}
		return nil
	},
}

var archiveRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Archive every cycle not archived yet",
	Args:  checkArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		sess, err := current.requireSession(ctx)
		if err != nil {
			return err
		}
		res, err := current.archive.Run(ctx, sess.UserID)
		printResult(cmd.OutOrStdout(), res)
		return err
	},
}

var archiveAllCmd = &cobra.Command{
	Use:   "all",
	Short: "Archive every cycle with entries again",
	Args:  checkArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		sess, err := current.requireSession(ctx)
		if err != nil {
			return err
		}
		res, err := current.archive.All(ctx, sess.UserID)
		printResult(cmd.OutOrStdout(), res)
		return err
	},
}

var archiveListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived and downloaded reports, newest first",
	Args:  checkArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		sess, err := current.requireSession(ctx)
		if err != nil {
			return err
		}
		records := current.archive.List(ctx, sess.UserID)
		out := cmd.OutOrStdout()
		if len(records) == 0 {
			fmt.Fprintln(out, "No reports archived yet.")
			return nil
		}
		t := table.New().
			Border(lipgloss.NormalBorder()).
			StyleFunc(func(row, col int) lipgloss.Style {
				if row == table.HeaderRow {
					return headerStyle
				}
				return cellStyle
			}).
			Headers("Archived", "File")
		for _, r := range records {
			t.Row(r.ArchivedAt.Local().Format("2006-01-02 15:04:05"), r.Filename)
		}
		fmt.Fprintln(out, t.String())
		return nil
	},
}

func printResult(out io.Writer, res archive.Result) {
	for _, name := range res.Written {
		fmt.Fprintf(out, "  ✓ %s\n", name)
	}
	fmt.Fprintf(out, "%d report(s) archived, %d already archived.\n", len(res.Written), res.Skipped)
}

func init() {
	archiveCmd.AddCommand(archiveSetupCmd, archiveDisableCmd, archiveStatusCmd, archiveRunCmd, archiveAllCmd, archiveListCmd)
}
