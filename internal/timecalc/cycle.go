package timecalc

import (
	"fmt"
	"strings"
	"time"

	"github.com/Tiliavir/timeex/internal/model"
)

// CurrentCycle returns the two-week cycle starting on the Sunday on or
// before now.
func CurrentCycle(now time.Time) model.Cycle {
	return windowCycle(WeekStart(now), "Cycle")
}

// PreviousCycle returns the two-week cycle immediately before CurrentCycle.
func PreviousCycle(now time.Time) model.Cycle {
	start := WeekStart(now).AddDate(0, 0, -CycleDays)
	return windowCycle(start, "Previous Cycle:")
}

// CycleFor returns the two-week cycle anchored at the week start of the given
// ISO date. Archive passes use it to bucket historical entries.
func CycleFor(date string) (model.Cycle, error) {
	d, err := ParseDate(date)
	if err != nil {
		return model.Cycle{}, fmt.Errorf("parsing entry date %q: %w", date, err)
	}
	return windowCycle(WeekStart(d), "Cycle"), nil
}

func windowCycle(start time.Time, label string) model.Cycle {
	end := start.AddDate(0, 0, CycleDays-1)
	s, e := FormatISO(start), FormatISO(end)
	return model.Cycle{
		ID:        "cycle-" + s,
		Name:      fmt.Sprintf("%s %s - %s", label, FormatDate(s), FormatDate(e)),
		StartDate: s,
		EndDate:   e,
	}
}

// CustomCycle builds the dashboard's user-supplied cycle. Both dates are
// required and start must not be after end.
func CustomCycle(startDate, endDate, projectFilter string) (model.Cycle, error) {
	if err := validateRange(startDate, endDate); err != nil {
		return model.Cycle{}, err
	}
	return model.Cycle{
		ID:            fmt.Sprintf("custom-%s-%s", startDate, endDate),
		Name:          fmt.Sprintf("Custom: %s - %s", FormatDate(startDate), FormatDate(endDate)),
		StartDate:     startDate,
		EndDate:       endDate,
		ProjectFilter: projectFilter,
	}, nil
}

// CustomReportCycle is the reports view flavour of CustomCycle.
func CustomReportCycle(startDate, endDate, projectFilter string) (model.Cycle, error) {
	if err := validateRange(startDate, endDate); err != nil {
		return model.Cycle{}, err
	}
	return model.Cycle{
		ID:            fmt.Sprintf("custom-report-%s-%s", startDate, endDate),
		Name:          fmt.Sprintf("Custom Report: %s - %s", FormatDate(startDate), FormatDate(endDate)),
		StartDate:     startDate,
		EndDate:       endDate,
		ProjectFilter: projectFilter,
	}, nil
}

// AllTimeCycle covers every plausible entry date.
func AllTimeCycle() model.Cycle {
	return model.Cycle{
		ID:        "all-time",
		Name:      "All Time",
		StartDate: AllTimeStart,
		EndDate:   AllTimeEnd,
	}
}

func validateRange(startDate, endDate string) error {
	if strings.TrimSpace(startDate) == "" || strings.TrimSpace(endDate) == "" {
		return model.NewValidationError("date range", "please select both start and end dates")
	}
	start, err := ParseDate(startDate)
	if err != nil {
		return model.NewValidationError("start date", fmt.Sprintf("%q is not a YYYY-MM-DD date", startDate))
	}
	end, err := ParseDate(endDate)
	if err != nil {
		return model.NewValidationError("end date", fmt.Sprintf("%q is not a YYYY-MM-DD date", endDate))
	}
	if start.After(end) {
		return model.NewValidationError("date range", "start date must be before end date")
	}
	return nil
}

// AllCycles returns the distinct cycles an archive pass considers: the
// current and previous cycle followed by one cycle per entry date, in first
// seen order. Entries with unparseable dates are skipped.
func AllCycles(now time.Time, entries []model.TimeEntry) []model.Cycle {
	seen := make(map[model.Cycle]bool)
	var cycles []model.Cycle
	add := func(c model.Cycle) {
		if seen[c] {
			return
		}
		seen[c] = true
		cycles = append(cycles, c)
	}

	add(CurrentCycle(now))
	add(PreviousCycle(now))
	for _, e := range entries {
		c, err := CycleFor(e.Date)
		if err != nil {
			continue
		}
		add(c)
	}
	return cycles
}
