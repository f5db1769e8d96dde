package model

import "time"

// Entry sources.
const (
	SourceTimer   = "timer"
	SourceManual  = "manual"
	SourceOutlook = "outlook"
)

// TimeEntry is a single tracked unit of time with an optional billing rate.
// Date is a zero-padded ISO calendar date (YYYY-MM-DD) so that plain string
// comparison orders entries chronologically.
type TimeEntry struct {
	ID          string    `json:"id"`
	Date        string    `json:"date"`
	Project     string    `json:"project"`
	Description string    `json:"description,omitempty"`
	Duration    float64   `json:"duration"`
	HourlyRate  float64   `json:"hourlyRate,omitempty"`
	TotalAmount float64   `json:"totalAmount,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	Source      string    `json:"source,omitempty"`
	ExternalID  string    `json:"externalId,omitempty"`
}

// Cycle is a named, inclusive calendar-date range used to bucket entries.
// It is recomputed on demand and never persisted.
type Cycle struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	StartDate     string `json:"startDate"`
	EndDate       string `json:"endDate"`
	ProjectFilter string `json:"projectFilter,omitempty"`
}

// Contains reports whether the ISO date falls inside [StartDate, EndDate].
func (c Cycle) Contains(date string) bool {
	return date >= c.StartDate && date <= c.EndDate
}

// ArchiveRecord notes that a cycle report was written to the archive.
type ArchiveRecord struct {
	Filename   string    `json:"filename"`
	ArchivedAt time.Time `json:"archivedAt"`
	UserID     string    `json:"userId"`
}

// ArchiveInfo is the persisted archive directory configuration of a user.
type ArchiveInfo struct {
	Dir       string    `json:"dir"`
	SetupDate time.Time `json:"setupDate"`
	Enabled   bool      `json:"enabled"`
}

// TimerState is the persisted stopwatch of a user. Elapsed holds the time
// accumulated before the most recent start; while running, the live value is
// Elapsed + now - StartedAt.
type TimerState struct {
	Running    bool          `json:"running"`
	StartedAt  time.Time     `json:"startedAt,omitempty"`
	Elapsed    time.Duration `json:"elapsed"`
	Project    string        `json:"project,omitempty"`
	HourlyRate float64       `json:"hourlyRate,omitempty"`
}

// ElapsedAt returns the total tracked time as of now.
func (t TimerState) ElapsedAt(now time.Time) time.Duration {
	if !t.Running {
		return t.Elapsed
	}
	return t.Elapsed + now.Sub(t.StartedAt)
}
