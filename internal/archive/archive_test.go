package archive_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Tiliavir/timeex/internal/archive"
	"github.com/Tiliavir/timeex/internal/model"
	"github.com/Tiliavir/timeex/internal/report"
	"github.com/Tiliavir/timeex/internal/storage"
)

type fixture struct {
	repo *storage.Repository
	tr   *archive.Tracker
	dir  string
	now  time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fs, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	f := &fixture{
		dir: filepath.Join(t.TempDir(), "archive"),
		now: time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC),
	}
	f.repo = storage.NewRepository(fs, nil)
	f.tr = archive.New(f.repo, nil, nil)
	f.tr.Now = func() time.Time { return f.now }
	return f
}

func (f *fixture) seed(t *testing.T, entries ...model.TimeEntry) {
	t.Helper()
	if err := f.repo.SaveEntries(context.Background(), "u1", entries); err != nil {
		t.Fatal(err)
	}
}

func csvFiles(t *testing.T, dir string) []string {
	t.Helper()
	des, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var out []string
	for _, de := range des {
		if strings.HasSuffix(de.Name(), ".csv") {
			out = append(out, de.Name())
		}
	}
	return out
}

func TestRunRequiresSetup(t *testing.T) {
	f := newFixture(t)
	if _, err := f.tr.Run(context.Background(), "u1"); !errors.Is(err, model.ErrArchiveNotSetUp) {
		t.Errorf("Run without setup: err = %v", err)
	}
	if _, capability := f.tr.Check(context.Background(), "u1"); capability != archive.NotConfigured {
		t.Errorf("capability = %v, want not configured", capability)
	}
}

func TestRunArchivesEachCycleOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t,
		model.TimeEntry{ID: "a", Date: "2024-01-08", Project: "Acme", Duration: 2, TotalAmount: 100},
		model.TimeEntry{ID: "b", Date: "2023-12-26", Project: "Acme", Duration: 1},
	)
	if _, err := f.tr.Setup(ctx, "u1", f.dir); err != nil {
		t.Fatalf("Setup: %v", err)
	}

	// Current cycle, previous cycle and the entry-anchored cycle of b,
	// which covers the same dates as the previous cycle under another name.
	res, err := f.tr.Run(ctx, "u1")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Written) != 3 {
		t.Fatalf("Run wrote %v, want 3 files", res.Written)
	}
	files := csvFiles(t, f.dir)
	if len(files) != 3 {
		t.Errorf("archive dir holds %v", files)
	}
	seen := map[string]bool{}
	for _, name := range res.Written {
		prefix := name[:report.DedupPrefixLen]
		if seen[prefix] {
			t.Errorf("two files share prefix %q", prefix)
		}
		seen[prefix] = true
	}

	data, err := os.ReadFile(filepath.Join(f.dir, res.Written[0]))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), report.BOM) || !strings.Contains(string(data), `"TOTAL"`) {
		t.Errorf("archived file is not a report: %q", data)
	}

	f.now = f.now.Add(time.Hour)
	again, err := f.tr.Run(ctx, "u1")
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if len(again.Written) != 0 || again.Skipped != 3 {
		t.Errorf("second Run = %+v, want nothing written", again)
	}

	all, err := f.tr.All(ctx, "u1")
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(all.Written) != 3 {
		t.Errorf("All wrote %d files, want 3", len(all.Written))
	}

	list := f.tr.List(ctx, "u1")
	if len(list) != 6 {
		t.Fatalf("List = %d records, want 6", len(list))
	}
	if !list[0].ArchivedAt.After(list[5].ArchivedAt) {
		t.Error("List is not newest first")
	}
}

func TestRunSkipsEmptyCycles(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	if _, err := f.tr.Setup(ctx, "u1", f.dir); err != nil {
		t.Fatal(err)
	}
	res, err := f.tr.Run(ctx, "u1")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Written) != 0 {
		t.Errorf("Run with no entries wrote %v", res.Written)
	}
}

func TestDownloadCountsAsArchived(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, model.TimeEntry{ID: "a", Date: "2024-01-08", Project: "Acme", Duration: 2})
	if _, err := f.tr.Setup(ctx, "u1", f.dir); err != nil {
		t.Fatal(err)
	}

	// The download name has no trailing timestamp but shares the prefix.
	cycleName := "Cycle 07/01/2024 - 20/01/2024"
	if err := f.tr.RecordDownload(ctx, "u1", report.DownloadFilename(cycleName)); err != nil {
		t.Fatal(err)
	}
	if !archive.IsArchived(f.repo.ArchivedReports(ctx, "u1"), cycleName) {
		t.Fatal("download not recognised as archived")
	}

	res, err := f.tr.Run(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	// Only the previous cycle remains, and it has no entries.
	if len(res.Written) != 0 {
		t.Errorf("Run wrote %v after download", res.Written)
	}
}

func TestLogIsCapped(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	for i := 0; i < archive.MaxRecords+10; i++ {
		f.now = f.now.Add(time.Second)
		if err := f.tr.RecordDownload(ctx, "u1", "timeex-report-x.csv"); err != nil {
			t.Fatal(err)
		}
	}
	if n := len(f.repo.ArchivedReports(ctx, "u1")); n != archive.MaxRecords {
		t.Errorf("log length = %d, want %d", n, archive.MaxRecords)
	}
}

func TestDeniedAfterDirectoryRemoved(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, model.TimeEntry{ID: "a", Date: "2024-01-08", Project: "Acme", Duration: 2})
	if _, err := f.tr.Setup(ctx, "u1", f.dir); err != nil {
		t.Fatal(err)
	}
	if err := os.RemoveAll(f.dir); err != nil {
		t.Fatal(err)
	}

	if _, capability := f.tr.Check(ctx, "u1"); capability != archive.Denied {
		t.Errorf("capability = %v, want denied", capability)
	}
	var pde *model.PermissionDeniedError
	if _, err := f.tr.Run(ctx, "u1"); !errors.As(err, &pde) {
		t.Errorf("Run: err = %v, want PermissionDeniedError", err)
	}

	// Trigger swallows the failure.
	f.tr.Trigger(ctx, "u1")
	if len(f.repo.ArchivedReports(ctx, "u1")) != 0 {
		t.Error("records logged without a written file")
	}
}

func TestDisable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	if err := f.tr.Disable(ctx, "u1"); !errors.Is(err, model.ErrArchiveNotSetUp) {
		t.Errorf("Disable before setup: err = %v", err)
	}
	if _, err := f.tr.Setup(ctx, "u1", f.dir); err != nil {
		t.Fatal(err)
	}
	if err := f.tr.Disable(ctx, "u1"); err != nil {
		t.Fatalf("Disable: %v", err)
	}
	st := f.tr.Status(ctx, "u1")
	if st.Info.Enabled || st.Capability != archive.NotConfigured || st.Info.Dir == "" {
		t.Errorf("Status after disable = %+v", st)
	}

	f.seed(t, model.TimeEntry{ID: "a", Date: "2024-01-08", Project: "Acme", Duration: 2})
	f.tr.Trigger(ctx, "u1")
	if files := csvFiles(t, f.dir); len(files) != 0 {
		t.Errorf("disabled archive wrote %v", files)
	}
}

func TestSetupValidation(t *testing.T) {
	f := newFixture(t)
	if _, err := f.tr.Setup(context.Background(), "u1", "  "); !model.IsValidation(err) {
		t.Errorf("Setup empty dir: err = %v", err)
	}

	file := filepath.Join(t.TempDir(), "plain")
	if err := os.WriteFile(file, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	var pde *model.PermissionDeniedError
	if _, err := f.tr.Setup(context.Background(), "u1", file); !errors.As(err, &pde) {
		t.Errorf("Setup on a file: err = %v, want PermissionDeniedError", err)
	}
}

func TestSchedulerTick(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, model.TimeEntry{ID: "a", Date: "2024-01-08", Project: "Acme", Duration: 2})
	if _, err := f.tr.Setup(ctx, "u1", f.dir); err != nil {
		t.Fatal(err)
	}

	if _, err := archive.NewScheduler(ctx, f.tr, "every now and then", nil); err == nil {
		t.Error("NewScheduler accepted an invalid schedule")
	}

	s, err := archive.NewScheduler(ctx, f.tr, "@every 1h", func(context.Context) []string {
		return []string{"u1", "nobody"}
	})
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	s.Tick()
	if files := csvFiles(t, f.dir); len(files) != 1 {
		t.Errorf("tick wrote %v, want the current cycle only", files)
	}
	s.Start()
	s.Stop()
}
