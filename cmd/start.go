package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var startRate float64

var startCmd = &cobra.Command{
	Use:   "start [project]",
	Short: "Start the timer, or resume it when paused",
	Args:  checkArgs(cobra.MaximumNArgs(1)),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		sess, err := current.requireSession(ctx)
		if err != nil {
			return err
		}

		project := strings.Join(args, " ")
		var rate *float64
		if cmd.Flags().Changed("rate") {
			rate = &startRate
		}
		resumed := current.tracker.TimerStatus(ctx, sess).Elapsed > 0

		t, err := current.tracker.StartTimer(ctx, sess, project, rate)
		if err != nil {
			return err
		}
		verb := "Started"
		if resumed {
			verb = "Resumed"
		}
		name := t.Project
		if name == "" {
			name = "untitled task"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s timer for %q at %s\n", verb, name, t.StartedAt.Local().Format("15:04:05"))
		return nil
	},
}

var pauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause the running timer",
	Args:  checkArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		sess, err := current.requireSession(ctx)
		if err != nil {
			return err
		}
		t, err := current.tracker.PauseTimer(ctx, sess)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Timer paused at %s. Run `timeex start` to resume.\n",
			formatElapsed(int64(t.Elapsed.Seconds())))
		return nil
	},
}

func init() {
	startCmd.Flags().Float64Var(&startRate, "rate", 0, "Hourly rate in $ (default from config)")
}
