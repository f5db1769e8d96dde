package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/timeex/internal/archive"
)

var watchSchedule string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Archive new cycle reports of all users on a schedule",
	Long: `Run in the foreground and archive new cycle reports of every user with
archiving enabled. The schedule defaults to archive.scan_schedule from the
config file and accepts cron syntax or descriptors such as "@every 1h".`,
	Args: checkArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		spec := current.cfg.Archive.ScanSchedule
		if watchSchedule != "" {
			spec = watchSchedule
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		s, err := archive.NewScheduler(ctx, current.archive, spec, current.userIDs)
		if err != nil {
			return err
		}

		// Catch up once before waiting for the first tick.
		s.Tick()
		s.Start()
		fmt.Fprintf(cmd.OutOrStdout(), "Watching (%s). Press Ctrl+C to stop.\n", spec)

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			current.log.Info("shutdown signal received", "signal", sig.String())
		case <-ctx.Done():
		}
		cancel()
		s.Stop()
		return nil
	},
}

func init() {
	watchCmd.Flags().StringVar(&watchSchedule, "schedule", "", "Override the scan schedule")
}
