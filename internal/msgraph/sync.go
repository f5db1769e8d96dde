package msgraph

import (
	"context"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/Tiliavir/timeex/internal/model"
	"github.com/Tiliavir/timeex/internal/timecalc"
)

// Importer stores imported entries, skipping external ids it already
// holds. tracker.Service implements it.
type Importer interface {
	ExternalIDs(ctx context.Context, userID string) map[string]bool
	Import(ctx context.Context, userID string, entries []model.TimeEntry) (int, error)
}

// SyncResult holds counters for a sync operation.
type SyncResult struct {
	Imported int
	Skipped  int
	Filtered int
	Errors   int
}

type SyncOptions struct {
	UserID     string
	Project    string
	HourlyRate float64
	Timezone   string
	DryRun     bool

	// Out receives one progress line per event.
	Out io.Writer
	Now func() time.Time
}

// parseGraphTime parses a Graph API dateTime string in the given timezone.
// Graph returns times like "2026-02-27T09:00:00.0000000" without a zone suffix
// when a Prefer: outlook.timezone header is set.
func parseGraphTime(dt, tz string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, dt); err == nil {
		return t, nil
	}

	loc := time.UTC
	if tz != "" {
		if l, err := time.LoadLocation(tz); err == nil {
			loc = l
		}
	}
	for _, layout := range []string{
		"2006-01-02T15:04:05.0000000",
		"2006-01-02T15:04:05",
	} {
		if t, err := time.ParseInLocation(layout, dt, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse graph time %q", dt)
}

// describe builds the entry description from the subject and location.
func describe(event CalendarEvent) string {
	subject := strings.TrimSpace(event.Subject)
	if loc := strings.TrimSpace(event.Location.DisplayName); loc != "" {
		if subject == "" {
			return loc
		}
		return subject + " @ " + loc
	}
	return subject
}

// shouldSkip returns true if the event should not be imported.
func shouldSkip(event CalendarEvent) bool {
	switch {
	case event.IsCancelled, event.IsAllDay:
		return true
	case event.Sensitivity == "private":
		return true
	case event.ShowAs == "free":
		return true
	case event.Start.DateTime == "" || event.End.DateTime == "":
		return true
	}
	return false
}

// MapEventToEntry converts a Graph calendar event into an outlook
// TimeEntry dated on the event's local start day.
func MapEventToEntry(event CalendarEvent, opts SyncOptions) (model.TimeEntry, error) {
	start, err := parseGraphTime(event.Start.DateTime, opts.Timezone)
	if err != nil {
		return model.TimeEntry{}, fmt.Errorf("parsing start time: %w", err)
	}
	end, err := parseGraphTime(event.End.DateTime, opts.Timezone)
	if err != nil {
		return model.TimeEntry{}, fmt.Errorf("parsing end time: %w", err)
	}
	hours := end.Sub(start).Hours()
	if hours <= 0 {
		return model.TimeEntry{}, fmt.Errorf("event ends before it starts")
	}

	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	return model.TimeEntry{
		ID:          timecalc.GenerateID(start),
		Date:        start.Format(timecalc.DateLayout),
		Project:     opts.Project,
		Description: describe(event),
		Duration:    hours,
		HourlyRate:  opts.HourlyRate,
		TotalAmount: math.Round(hours*opts.HourlyRate*100) / 100,
		CreatedAt:   now().UTC(),
		Source:      model.SourceOutlook,
		ExternalID:  event.ID,
	}, nil
}

// SyncEvents maps events to entries and imports the ones not seen before.
func SyncEvents(ctx context.Context, imp Importer, events []CalendarEvent, opts SyncOptions) (SyncResult, error) {
	var result SyncResult
	out := opts.Out
	if out == nil {
		out = io.Discard
	}

	known := imp.ExternalIDs(ctx, opts.UserID)
	var batch []model.TimeEntry
	for _, event := range events {
		if shouldSkip(event) {
			result.Filtered++
			continue
		}
		entry, err := MapEventToEntry(event, opts)
		if err != nil {
			fmt.Fprintf(out, "  ! Error mapping event %q: %v\n", event.Subject, err)
			result.Errors++
			continue
		}
		if known[event.ID] {
			fmt.Fprintf(out, "  – Skipped:  %s (already exists)\n", event.Subject)
			result.Skipped++
			continue
		}
		known[event.ID] = true
		batch = append(batch, entry)
		fmt.Fprintf(out, "  ✓ Imported: %s (%s)\n", event.Subject, timecalc.FormatHours(entry.Duration))
	}

	if opts.DryRun || len(batch) == 0 {
		result.Imported = len(batch)
		return result, nil
	}
	n, err := imp.Import(ctx, opts.UserID, batch)
	if err != nil {
		return result, fmt.Errorf("saving imported entries: %w", err)
	}
	result.Imported = n
	return result, nil
}
