package report

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Tiliavir/timeex/internal/model"
)

// BOM is prepended to every CSV so spreadsheet tools detect UTF-8.
const BOM = "\uFEFF"

// FallbackCSV is returned when rendering fails.
const FallbackCSV = "Date,Project/Task,Description,Duration (Hours),Hourly Rate ($),Total Amount ($),Notes\n" +
	`"Error generating report","","","","","",""`

var csvHeader = []string{
	"Date", "Project/Task", "Description", "Duration (Hours)",
	"Hourly Rate ($)", "Total Amount ($)", "Notes",
}

var errNonFinite = errors.New("non-finite number")

// ToCSV renders entries with a trailing TOTAL row. Every cell is quoted.
// It never fails: on any rendering error FallbackCSV is returned instead.
func ToCSV(entries []model.TimeEntry) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = FallbackCSV
		}
	}()
	s, err := renderCSV(entries)
	if err != nil {
		return FallbackCSV
	}
	return s
}

func renderCSV(entries []model.TimeEntry) (string, error) {
	var b strings.Builder
	b.WriteString(BOM)
	writeRow(&b, csvHeader)

	var totalHours, totalEarnings float64
	for _, e := range entries {
		duration, err := formatNumber(e.Duration)
		if err != nil {
			return "", fmt.Errorf("entry %s duration: %w", e.ID, err)
		}
		rate, err := formatNumber(e.HourlyRate)
		if err != nil {
			return "", fmt.Errorf("entry %s hourly rate: %w", e.ID, err)
		}
		amount, err := formatNumber(e.TotalAmount)
		if err != nil {
			return "", fmt.Errorf("entry %s total amount: %w", e.ID, err)
		}
		b.WriteByte('\n')
		writeRow(&b, []string{e.Date, e.Project, e.Description, duration, rate, amount, ""})
		totalHours += finite(e.Duration)
		totalEarnings += finite(e.TotalAmount)
	}

	hours, err := formatNumber(totalHours)
	if err != nil {
		return "", fmt.Errorf("total hours: %w", err)
	}
	earnings, err := formatNumber(totalEarnings)
	if err != nil {
		return "", fmt.Errorf("total earnings: %w", err)
	}
	b.WriteByte('\n')
	writeRow(&b, []string{"", "", "TOTAL", hours, "", earnings, ""})
	return b.String(), nil
}

func writeRow(b *strings.Builder, cells []string) {
	for i, c := range cells {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(quote(c))
	}
}

// quote wraps s in double quotes, doubling any embedded quote.
func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// formatNumber renders f in its shortest round-trip decimal form. NaN counts
// as a missing value.
func formatNumber(f float64) (string, error) {
	if math.IsNaN(f) {
		return "0", nil
	}
	if math.IsInf(f, 0) {
		return "", errNonFinite
	}
	return strconv.FormatFloat(f, 'f', -1, 64), nil
}
