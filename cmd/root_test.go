package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/Tiliavir/timeex/internal/config"
	"github.com/Tiliavir/timeex/internal/model"
	"github.com/Tiliavir/timeex/internal/session"
)

// resetFlags restores every flag of c and its subcommands to its default,
// since flag values live in package variables between runs.
func resetFlags(c *cobra.Command) {
	c.Flags().VisitAll(func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	})
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// run executes the root command with args and returns its output.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	if current != nil {
		current.close()
		current = nil
	}
	return out.String(), err
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, 0},
		{"validation", model.NewValidationError("duration", "must be positive"), 1},
		{"wrapped validation", fmt.Errorf("adding entry: %w", model.NewValidationError("date", "bad")), 1},
		{"not logged in", model.ErrNotLoggedIn, 2},
		{"write failure", &model.StorageWriteError{Key: "k", Err: errors.New("disk full")}, 2},
		{"permission", &model.PermissionDeniedError{Dir: "/x", Err: errors.New("denied")}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCode(tt.err); got != tt.want {
				t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestCommandsEndToEnd(t *testing.T) {
	t.Setenv(config.EnvHome, t.TempDir())

	if _, err := run(t, "list"); !errors.Is(err, model.ErrNotLoggedIn) {
		t.Fatalf("list before login: err = %v", err)
	}

	out, err := run(t, "login", "--email", session.DemoEmail, "--password", session.DemoPassword)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !strings.Contains(out, "Logged in as Demo User") {
		t.Errorf("login output = %q", out)
	}

	if _, err := run(t, "add", "--project", "Acme", "--hours", "1.5", "--rate", "40", "--description", "Kickoff"); err != nil {
		t.Fatalf("add: %v", err)
	}

	out, err = run(t, "report", "--cycle", "all", "--format", "csv")
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if !strings.Contains(out, `"Acme","Kickoff","1.5","40","60",""`) || !strings.Contains(out, `"TOTAL"`) {
		t.Errorf("report csv = %q", out)
	}

	out, err = run(t, "report", "--cycle", "all", "--format", "table")
	if err != nil {
		t.Fatalf("report table: %v", err)
	}
	if !strings.Contains(out, "All Time") || !strings.Contains(out, "$60.00") {
		t.Errorf("report table = %q", out)
	}

	_, err = run(t, "add", "--project", "Acme", "--hours", "0")
	if exitCode(err) != 1 {
		t.Errorf("add with zero hours: exit %d (%v), want 1", exitCode(err), err)
	}

	_, err = run(t, "report", "--format", "xml")
	if exitCode(err) != 1 {
		t.Errorf("bad format: exit %d (%v), want 1", exitCode(err), err)
	}

	_, err = run(t, "delete")
	if exitCode(err) != 1 {
		t.Errorf("delete without id: exit %d (%v), want 1", exitCode(err), err)
	}

	out, err = run(t, "consent", "accept")
	if err != nil || !strings.Contains(out, "accepted") {
		t.Errorf("consent accept = %q, %v", out, err)
	}

	if _, err := run(t, "logout"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := run(t, "whoami"); !errors.Is(err, model.ErrNotLoggedIn) {
		t.Errorf("whoami after logout: err = %v", err)
	}
}

func TestCommandsListProjects(t *testing.T) {
	t.Setenv(config.EnvHome, t.TempDir())
	if _, err := run(t, "login", "--email", session.DemoEmail, "--password", session.DemoPassword); err != nil {
		t.Fatal(err)
	}
	for _, p := range []string{"Zeta", "Acme", "Zeta"} {
		if _, err := run(t, "add", "--project", p, "--hours", "1"); err != nil {
			t.Fatalf("add %s: %v", p, err)
		}
	}
	out, err := run(t, "list", "--projects")
	if err != nil {
		t.Fatal(err)
	}
	if out != "Acme\nZeta\n" {
		t.Errorf("list --projects = %q, want sorted distinct projects", out)
	}
}

// snapshot maps every file below dirs to its content.
func snapshot(t *testing.T, dirs ...string) map[string]string {
	t.Helper()
	files := make(map[string]string)
	for _, dir := range dirs {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			files[path] = string(data)
			return nil
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	return files
}

func TestInvalidCustomCycleChangesNothing(t *testing.T) {
	home := t.TempDir()
	t.Setenv(config.EnvHome, home)
	archiveDir := t.TempDir()
	exportDir := t.TempDir()

	for _, args := range [][]string{
		{"login", "--email", session.DemoEmail, "--password", session.DemoPassword},
		{"add", "--date", "2024-01-14", "--project", "Acme", "--hours", "2", "--rate", "50"},
		{"archive", "setup", archiveDir},
	} {
		if _, err := run(t, args...); err != nil {
			t.Fatalf("%v: %v", args, err)
		}
	}
	before := snapshot(t, home, archiveDir, exportDir)

	for _, name := range []string{"report", "export", "list"} {
		t.Run(name, func(t *testing.T) {
			args := []string{name, "--cycle", "custom", "--from", "2024-01-15", "--to", "2024-01-14"}
			if name == "export" {
				args = append(args, "--dir", exportDir)
			}
			_, err := run(t, args...)
			if got := exitCode(err); got != 1 {
				t.Errorf("exit %d (%v), want 1", got, err)
			}
			after := snapshot(t, home, archiveDir, exportDir)
			if fmt.Sprint(after) != fmt.Sprint(before) {
				t.Errorf("state changed:\nbefore %v\nafter  %v", before, after)
			}
		})
	}
}
