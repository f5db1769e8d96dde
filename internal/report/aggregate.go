// Package report selects entries for a cycle, summarizes them and renders
// the result as CSV.
package report

import (
	"math"
	"slices"

	"github.com/Tiliavir/timeex/internal/model"
	"github.com/Tiliavir/timeex/internal/timecalc"
)

// Summary holds the aggregate statistics of a cycle.
type Summary struct {
	TotalHours    float64 `json:"totalHours"`
	TotalEntries  int     `json:"totalEntries"`
	TotalEarnings float64 `json:"totalEarnings"`
	WorkingDays   int     `json:"workingDays"`
	AvgDaily      float64 `json:"avgDaily"`
}

// Report is a cycle together with its selected entries and summary.
type Report struct {
	Cycle   model.Cycle       `json:"cycle"`
	Entries []model.TimeEntry `json:"entries"`
	Summary Summary           `json:"summary"`
}

// SelectEntries returns the entries whose date lies in the cycle's inclusive
// range and, when the cycle has a project filter, whose project matches it
// exactly. Storage order is preserved.
func SelectEntries(entries []model.TimeEntry, cycle model.Cycle) []model.TimeEntry {
	out := make([]model.TimeEntry, 0, len(entries))
	for _, e := range entries {
		if !cycle.Contains(e.Date) {
			continue
		}
		if cycle.ProjectFilter != "" && e.Project != cycle.ProjectFilter {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Summarize computes totals over entries, which are assumed to already be
// selected for cycle.
func Summarize(cycle model.Cycle, entries []model.TimeEntry) Summary {
	var s Summary
	for _, e := range entries {
		s.TotalHours += finite(e.Duration)
		s.TotalEarnings += finite(e.TotalAmount)
	}
	s.TotalEntries = len(entries)
	s.WorkingDays = timecalc.WorkingDays(cycle.StartDate, cycle.EndDate)
	s.AvgDaily = s.TotalHours / float64(max(1, s.WorkingDays))
	return s
}

// Build selects and summarizes in one step.
func Build(entries []model.TimeEntry, cycle model.Cycle) Report {
	selected := SelectEntries(entries, cycle)
	return Report{
		Cycle:   cycle,
		Entries: selected,
		Summary: Summarize(cycle, selected),
	}
}

// Projects returns the distinct project names of entries, sorted.
func Projects(entries []model.TimeEntry) []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range entries {
		if e.Project == "" || seen[e.Project] {
			continue
		}
		seen[e.Project] = true
		out = append(out, e.Project)
	}
	slices.Sort(out)
	return out
}

func finite(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
