package timecalc

import (
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"time"
)

// DateLayout is the ISO calendar date format used for entries and cycles.
const DateLayout = "2006-01-02"

// CycleDays is the length of a billing cycle.
const CycleDays = 14

// Sentinel range of the all-time cycle.
const (
	AllTimeStart = "1900-01-01"
	AllTimeEnd   = "2100-12-31"
)

// GenerateID creates a unique entry ID based on timestamp and random suffix.
func GenerateID(t time.Time) string {
	const chars = "abcdefghijklmnopqrstuvwxyz0123456789"
	suffix := make([]byte, 5)
	for i := range suffix {
		n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(chars))))
		suffix[i] = chars[n.Int64()]
	}
	return fmt.Sprintf("%s-%s", t.Format("20060102-150405"), string(suffix))
}

// FormatDurationHHMMSS formats a duration as HH:MM:SS.
func FormatDurationHHMMSS(d time.Duration) string {
	seconds := int64(d / time.Second)
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// FormatHours renders fractional hours as "1h 30m".
func FormatHours(hours float64) string {
	if math.IsNaN(hours) || math.IsInf(hours, 0) {
		hours = 0
	}
	h := math.Floor(hours)
	m := math.Round((hours - h) * 60)
	if m >= 60 {
		h++
		m = 0
	}
	return fmt.Sprintf("%dh %dm", int64(h), int64(m))
}

// Today returns the calendar date of t as a UTC midnight, dropping the
// clock and zone so that day arithmetic never crosses DST boundaries.
func Today(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses an ISO calendar date.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// FormatISO formats a calendar date as YYYY-MM-DD.
func FormatISO(d time.Time) string {
	return d.Format(DateLayout)
}

// FormatDate renders an ISO date as DD/MM/YYYY. Unparseable input is
// returned unchanged.
func FormatDate(iso string) string {
	d, err := ParseDate(iso)
	if err != nil {
		return iso
	}
	return d.Format("02/01/2006")
}

// WeekStart returns the Sunday on or before d.
func WeekStart(d time.Time) time.Time {
	d = Today(d)
	return d.AddDate(0, 0, -int(d.Weekday()))
}

// WorkingDays counts the days in [start, end] that are neither Saturday nor
// Sunday. Invalid or inverted ranges have no working days.
func WorkingDays(startDate, endDate string) int {
	start, err := ParseDate(startDate)
	if err != nil {
		return 0
	}
	end, err := ParseDate(endDate)
	if err != nil {
		return 0
	}
	n := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			n++
		}
	}
	return n
}
