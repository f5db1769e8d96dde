package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/timeex/internal/model"
)

var rootCmd = &cobra.Command{
	Use:   "timeex",
	Short: "TimeEX – track billable hours in two-week cycles",
	Long: `timeex records time entries, reports them per two-week cycle and can
archive cycle reports as CSV files into a directory of your choice.
All data is stored in ~/.timeex/ (override with TIMEEX_HOME).`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		current = a
		return nil
	},
}

// Execute is the entry point called from main.
func Execute() {
	err := rootCmd.Execute()
	if current != nil {
		current.close()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(exitCode(err))
}

// exitCode maps an error to the process exit status: 1 for invalid input,
// 2 for everything else.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case model.IsValidation(err):
		return 1
	default:
		return 2
	}
}

// usageError marks command-line mistakes as validation errors.
func usageError(cmd *cobra.Command, err error) error {
	return model.NewValidationError(cmd.CommandPath(), err.Error())
}

// checkArgs wraps a cobra positional-argument check so that mistakes exit with 1.
func checkArgs(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, a []string) error {
		if err := check(cmd, a); err != nil {
			return usageError(cmd, err)
		}
		return nil
	}
}

func init() {
	rootCmd.SetFlagErrorFunc(usageError)

	rootCmd.AddCommand(registerCmd, loginCmd, logoutCmd, whoamiCmd, profileCmd)
	rootCmd.AddCommand(startCmd, pauseCmd, stopCmd, statusCmd)
	rootCmd.AddCommand(addCmd, editCmd, deleteCmd, listCmd)
	rootCmd.AddCommand(reportCmd, exportCmd)
	rootCmd.AddCommand(archiveCmd, watchCmd)
	rootCmd.AddCommand(privacyCmd, consentCmd)
	rootCmd.AddCommand(outlookCmd)
}
