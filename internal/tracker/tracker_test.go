package tracker_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/Tiliavir/timeex/internal/audit"
	"github.com/Tiliavir/timeex/internal/model"
	"github.com/Tiliavir/timeex/internal/storage"
	"github.com/Tiliavir/timeex/internal/tracker"
)

type countingTrigger struct{ calls int }

func (c *countingTrigger) Trigger(context.Context, string) { c.calls++ }

type fixture struct {
	repo    *storage.Repository
	svc     *tracker.Service
	trigger *countingTrigger
	sess    model.Session
	now     time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fs, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	f := &fixture{
		now:     time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
		trigger: &countingTrigger{},
		sess:    model.Session{UserID: "u1", Name: "Ada"},
	}
	f.repo = storage.NewRepository(fs, nil)
	f.svc = tracker.New(f.repo, audit.New(f.repo), nil)
	f.svc.Now = func() time.Time { return f.now }
	f.svc.SetArchiveTrigger(f.trigger)
	return f
}

func ptr(f float64) *float64 { return &f }

func TestAddEntry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	e, err := f.svc.Add(ctx, f.sess, tracker.EntryInput{
		Date: "2024-03-01", Project: " Acme ", Duration: 1.5, HourlyRate: 40,
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if e.Project != "Acme" || e.TotalAmount != 60 || e.Source != model.SourceManual {
		t.Errorf("Add entry = %+v", e)
	}
	if f.trigger.calls != 1 {
		t.Errorf("archive trigger calls = %d, want 1", f.trigger.calls)
	}

	today, err := f.svc.Add(ctx, f.sess, tracker.EntryInput{Project: "Acme", Duration: 1, HourlyRate: 33.333, TotalAmount: ptr(10)})
	if err != nil {
		t.Fatalf("Add without date: %v", err)
	}
	if today.Date != "2024-03-01" || today.TotalAmount != 10 {
		t.Errorf("defaults not applied: %+v", today)
	}

	if got := f.svc.List(ctx, f.sess); len(got) != 2 || got[0].ID != e.ID {
		t.Errorf("List = %+v", got)
	}
}

func TestAddEntryValidation(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		in   tracker.EntryInput
	}{
		{"bad date", tracker.EntryInput{Date: "01/03/2024", Project: "A", Duration: 1}},
		{"missing project", tracker.EntryInput{Date: "2024-03-01", Project: "  ", Duration: 1}},
		{"zero duration", tracker.EntryInput{Date: "2024-03-01", Project: "A", Duration: 0}},
		{"nan duration", tracker.EntryInput{Date: "2024-03-01", Project: "A", Duration: math.NaN()}},
		{"negative rate", tracker.EntryInput{Date: "2024-03-01", Project: "A", Duration: 1, HourlyRate: -5}},
		{"negative total", tracker.EntryInput{Date: "2024-03-01", Project: "A", Duration: 1, TotalAmount: ptr(-1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if _, err := f.svc.Add(ctx, f.sess, tt.in); !model.IsValidation(err) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
			if len(f.svc.List(ctx, f.sess)) != 0 || f.trigger.calls != 0 {
				t.Error("state mutated despite validation failure")
			}
		})
	}
}

func TestUpdateKeepsPosition(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	var ids []string
	for _, p := range []string{"A", "B", "C"} {
		e, err := f.svc.Add(ctx, f.sess, tracker.EntryInput{Date: "2024-03-01", Project: p, Duration: 1})
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, e.ID)
		f.now = f.now.Add(time.Second)
	}

	updated, err := f.svc.Update(ctx, f.sess, ids[1], tracker.EntryInput{Date: "2024-03-02", Project: "B2", Duration: 2, HourlyRate: 10})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.ID != ids[1] || updated.TotalAmount != 20 || updated.Description != "" {
		t.Errorf("Update = %+v", updated)
	}
	list := f.svc.List(ctx, f.sess)
	if list[1].ID != ids[1] || list[1].Project != "B2" {
		t.Errorf("entry moved or not replaced: %+v", list)
	}

	if _, err := f.svc.Update(ctx, f.sess, "missing", tracker.EntryInput{Date: "2024-03-02", Project: "X", Duration: 1}); !errors.Is(err, model.ErrEntryNotFound) {
		t.Errorf("Update missing: err = %v", err)
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	e, err := f.svc.Add(ctx, f.sess, tracker.EntryInput{Date: "2024-03-01", Project: "A", Duration: 1})
	if err != nil {
		t.Fatal(err)
	}
	if err := f.svc.Delete(ctx, f.sess, e.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := f.svc.Delete(ctx, f.sess, e.ID); !errors.Is(err, model.ErrEntryNotFound) {
		t.Errorf("second Delete: err = %v", err)
	}
	if _, err := f.svc.Get(ctx, f.sess, e.ID); !errors.Is(err, model.ErrEntryNotFound) {
		t.Errorf("Get deleted: err = %v", err)
	}
}

func TestImportDeduplicatesByExternalID(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	batch := []model.TimeEntry{
		{ID: "1", ExternalID: "ev-1", Date: "2024-03-01", Project: "Meetings", Duration: 1},
		{ID: "2", ExternalID: "ev-2", Date: "2024-03-01", Project: "Meetings", Duration: 0.5},
		{ID: "3", Date: "2024-03-01", Project: "Meetings", Duration: 0.5},
	}

	n, err := f.svc.Import(ctx, "u1", batch)
	if err != nil || n != 2 {
		t.Fatalf("Import = %d, %v, want 2", n, err)
	}
	n, err = f.svc.Import(ctx, "u1", batch)
	if err != nil || n != 0 {
		t.Fatalf("second Import = %d, %v, want 0", n, err)
	}
	if got := len(f.svc.List(ctx, f.sess)); got != 2 {
		t.Errorf("entries = %d, want 2", got)
	}
	if f.trigger.calls != 1 {
		t.Errorf("trigger calls = %d, want 1", f.trigger.calls)
	}
}

func TestTimerLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.svc.DefaultRate = 50

	if _, _, err := f.svc.StopTimer(ctx, f.sess); !errors.Is(err, model.ErrTimerNotRunning) {
		t.Fatalf("Stop idle timer: err = %v", err)
	}

	if _, err := f.svc.StartTimer(ctx, f.sess, "Acme", nil); err != nil {
		t.Fatalf("StartTimer: %v", err)
	}
	if _, err := f.svc.StartTimer(ctx, f.sess, "", nil); !errors.Is(err, model.ErrTimerRunning) {
		t.Errorf("double start: err = %v", err)
	}

	f.now = f.now.Add(30 * time.Minute)
	st, err := f.svc.PauseTimer(ctx, f.sess)
	if err != nil {
		t.Fatalf("PauseTimer: %v", err)
	}
	if st.Running || st.Elapsed != 30*time.Minute {
		t.Errorf("paused state = %+v", st)
	}
	if _, err := f.svc.PauseTimer(ctx, f.sess); !errors.Is(err, model.ErrTimerNotRunning) {
		t.Errorf("double pause: err = %v", err)
	}

	// Time while paused does not count.
	f.now = f.now.Add(2 * time.Hour)
	if _, err := f.svc.StartTimer(ctx, f.sess, "", nil); err != nil {
		t.Fatalf("resume: %v", err)
	}
	f.now = f.now.Add(30 * time.Minute)

	entry, elapsed, err := f.svc.StopTimer(ctx, f.sess)
	if err != nil {
		t.Fatalf("StopTimer: %v", err)
	}
	if elapsed != time.Hour {
		t.Errorf("elapsed = %v, want 1h", elapsed)
	}
	if entry == nil {
		t.Fatal("no entry saved")
	}
	if entry.Project != "Acme" || entry.Description != tracker.TimerDescription || entry.Duration != 1 || entry.TotalAmount != 50 || entry.Source != model.SourceTimer {
		t.Errorf("timer entry = %+v", entry)
	}
	if f.svc.TimerStatus(ctx, f.sess).Running {
		t.Error("timer still running after stop")
	}
}

func TestTimerZeroDurationSavesNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if _, err := f.svc.StartTimer(ctx, f.sess, "", ptr(10)); err != nil {
		t.Fatal(err)
	}
	entry, _, err := f.svc.StopTimer(ctx, f.sess)
	if err != nil {
		t.Fatalf("StopTimer: %v", err)
	}
	if entry != nil {
		t.Errorf("entry saved for zero duration: %+v", entry)
	}
	if len(f.svc.List(ctx, f.sess)) != 0 {
		t.Error("entry list not empty")
	}
}

func TestTimerDefaultProject(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if _, err := f.svc.StartTimer(ctx, f.sess, "", nil); err != nil {
		t.Fatal(err)
	}
	f.now = f.now.Add(15 * time.Minute)
	entry, _, err := f.svc.StopTimer(ctx, f.sess)
	if err != nil || entry == nil {
		t.Fatalf("StopTimer = %v, %v", entry, err)
	}
	if entry.Project != tracker.UntitledProject || entry.Duration != 0.25 || entry.TotalAmount != 0 {
		t.Errorf("entry = %+v", entry)
	}
}

func TestStartTimerRejectsNegativeRate(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.StartTimer(context.Background(), f.sess, "A", ptr(-1)); !model.IsValidation(err) {
		t.Errorf("err = %v, want ValidationError", err)
	}
}
