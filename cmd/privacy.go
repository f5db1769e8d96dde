package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/timeex/internal/model"
	"github.com/Tiliavir/timeex/internal/privacy"
)

var (
	privacyExportOut  string
	privacyDeleteYes  bool
	privacyRetention  bool
	privacyDataExport bool
	privacyAnalytics  bool
)

var privacyCmd = &cobra.Command{
	Use:   "privacy",
	Short: "Data retention, export and deletion",
}

var privacyPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete entries older than the retention window",
	Args:  checkArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := current.privacy.Purge(cmd.Context(), current.cfg.Retention())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Purged %d entries older than %d days.\n", n, current.cfg.Privacy.RetentionDays)
		return nil
	},
}

var privacyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all your data as JSON",
	Args:  checkArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		sess, err := current.requireSession(ctx)
		if err != nil {
			return err
		}
		data, err := current.privacy.Export(ctx, sess).JSON()
		if err != nil {
			return fmt.Errorf("encoding export: %w", err)
		}
		if privacyExportOut == "" {
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		}
		if err := os.WriteFile(privacyExportOut, data, 0o600); err != nil {
			return &model.FileOperationError{Path: privacyExportOut, Err: err}
		}
		abs, _ := filepath.Abs(privacyExportOut)
		fmt.Fprintf(cmd.OutOrStdout(), "Data exported to %s\n", abs)
		return nil
	},
}

var privacyAnonymizeCmd = &cobra.Command{
	Use:   "anonymize",
	Short: "Print your entries with identifying text removed",
	Args:  checkArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		sess, err := current.requireSession(ctx)
		if err != nil {
			return err
		}
		anon := privacy.Anonymize(current.tracker.List(ctx, sess))
		data, err := json.MarshalIndent(anon, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding JSON: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

var privacyDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete your account and all its data",
	Args:  checkArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		sess, err := current.requireSession(ctx)
		if err != nil {
			return err
		}
		if !privacyDeleteYes {
			return model.NewValidationError("confirmation", "this deletes all your data; pass --yes to confirm")
		}
		if err := current.privacy.DeleteUserData(ctx, sess.UserID); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "All your data was deleted and you were logged out.")
		return nil
	},
}

var privacySettingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change your privacy settings",
	Args:  checkArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		sess, err := current.requireSession(ctx)
		if err != nil {
			return err
		}
		s := current.privacy.Settings(ctx, sess.UserID)
		flags := cmd.Flags()
		if flags.Changed("retention") || flags.Changed("data-export") || flags.Changed("analytics") {
			if flags.Changed("retention") {
				s.DataRetention = privacyRetention
			}
			if flags.Changed("data-export") {
				s.DataExport = privacyDataExport
			}
			if flags.Changed("analytics") {
				s.Analytics = privacyAnalytics
			}
			if s, err = current.privacy.UpdateSettings(ctx, sess.UserID, s); err != nil {
				return err
			}
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Data retention: %t\n", s.DataRetention)
		fmt.Fprintf(out, "Data export:    %t\n", s.DataExport)
		fmt.Fprintf(out, "Analytics:      %t\n", s.Analytics)
		if !s.UpdatedAt.IsZero() {
			fmt.Fprintf(out, "Updated:        %s\n", s.UpdatedAt.Local().Format("2006-01-02 15:04"))
		}
		return nil
	},
}

var privacyValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check stored entries for missing or invalid fields",
	Args:  checkArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		issues := current.privacy.ValidateIntegrity(cmd.Context())
		out := cmd.OutOrStdout()
		if len(issues) == 0 {
			fmt.Fprintln(out, "No integrity problems found.")
			return nil
		}
		for _, issue := range issues {
			fmt.Fprintf(out, "  ! %s\n", issue)
		}
		return fmt.Errorf("%d user(s) with invalid entries", len(issues))
	},
}

var privacyAuditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Show your audit trail",
	Args:  checkArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		sess, err := current.requireSession(ctx)
		if err != nil {
			return err
		}
		events := current.privacy.AuditTrail(ctx, sess.UserID)
		out := cmd.OutOrStdout()
		if len(events) == 0 {
			fmt.Fprintln(out, "No audit events.")
			return nil
		}
		for _, e := range events {
			line := fmt.Sprintf("%s  %-16s", e.Timestamp.Local().Format(time.DateTime), e.Action)
			if e.Details != "" {
				line += "  " + e.Details
			}
			fmt.Fprintln(out, line)
		}
		return nil
	},
}

var consentCmd = &cobra.Command{
	Use:       "consent accept|decline|status",
	Short:     "Record or show the cookie consent",
	ValidArgs: []string{"accept", "decline", "status"},
	Args:      checkArgs(cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs)),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()
		switch args[0] {
		case "accept", "decline":
			if err := current.privacy.SetConsent(ctx, args[0] == "accept"); err != nil {
				return err
			}
		}
		v := current.privacy.Consent(ctx)
		if v == "" {
			v = "not answered"
		}
		fmt.Fprintf(out, "Cookie consent: %s\n", v)
		return nil
	},
}

func init() {
	privacyExportCmd.Flags().StringVarP(&privacyExportOut, "out", "o", "", "Write the export to this file instead of stdout")
	privacyDeleteCmd.Flags().BoolVar(&privacyDeleteYes, "yes", false, "Confirm the deletion")
	privacySettingsCmd.Flags().BoolVar(&privacyRetention, "retention", false, "Allow data retention")
	privacySettingsCmd.Flags().BoolVar(&privacyDataExport, "data-export", false, "Allow data export")
	privacySettingsCmd.Flags().BoolVar(&privacyAnalytics, "analytics", false, "Allow analytics")

	privacyCmd.AddCommand(privacyPurgeCmd, privacyExportCmd, privacyAnonymizeCmd, privacyDeleteCmd,
		privacySettingsCmd, privacyValidateCmd, privacyAuditCmd)
}
