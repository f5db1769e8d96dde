package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/timeex/internal/audit"
	"github.com/Tiliavir/timeex/internal/model"
	"github.com/Tiliavir/timeex/internal/report"
)

var (
	exportCycle = cycleFlags{reports: true}
	exportDir   string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Save the CSV report of a cycle",
	Long: `Save the CSV report of a cycle as timeex-report-<cycle>.csv in --dir.
When archiving is enabled, the report is also copied into the archive
directory and cycles not archived yet are archived.`,
	Args: checkArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		sess, err := current.requireSession(ctx)
		if err != nil {
			return err
		}
		c, err := exportCycle.resolve(time.Now())
		if err != nil {
			return err
		}
		path, err := exportReport(ctx, current, sess, c, exportDir, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Report saved to %s\n", path)
		return nil
	},
}

// exportReport writes the cycle's CSV into dir and logs the download. When
// the file cannot be written the CSV is printed to out instead, with a hint
// naming the file to save it as, and the write error is returned.
func exportReport(ctx context.Context, a *app, sess model.Session, c model.Cycle, dir string, out io.Writer) (string, error) {
	entries := report.SelectEntries(a.tracker.List(ctx, sess), c)
	csv := report.ToCSV(entries)
	name := report.DownloadFilename(c.Name)
	path := filepath.Join(dir, name)

	if err := writeReport(path, csv); err != nil {
		fmt.Fprintln(out, csv)
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Copy the content above and save as %s\n", name)
		return "", err
	}

	// Archive before logging the download, which would otherwise mark the
	// cycle as archived already.
	if archived, err := a.archive.ArchiveReport(ctx, sess.UserID, c, csv); err == nil {
		fmt.Fprintf(out, "Archived as %s\n", archived)
	} else if !errors.Is(err, model.ErrArchiveNotSetUp) {
		a.log.Warn("exported report not archived", "file", name, "error", err)
	}
	a.archive.Trigger(ctx, sess.UserID)
	if err := a.archive.RecordDownload(ctx, sess.UserID, name); err != nil {
		a.log.Warn("download not logged", "file", name, "error", err)
	}
	if err := a.audit.Record(ctx, sess.UserID, audit.ActionReportExport, name); err != nil {
		a.log.Warn("audit event not recorded", "error", err)
	}
	return path, nil
}

func writeReport(path, csv string) error {
	if err := os.WriteFile(path, []byte(csv), 0o644); err != nil {
		if errors.Is(err, os.ErrPermission) {
			return &model.PermissionDeniedError{Dir: filepath.Dir(path), Err: err}
		}
		return &model.FileOperationError{Path: path, Err: err}
	}
	return nil
}

func init() {
	exportCycle.register(exportCmd)
	exportCmd.Flags().StringVar(&exportDir, "dir", ".", "Directory to save the report in")
}
