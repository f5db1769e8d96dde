package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/Tiliavir/timeex/internal/model"
	"github.com/Tiliavir/timeex/internal/report"
	"github.com/Tiliavir/timeex/internal/timecalc"
)

// cycleFlags selects the cycle a command works on.
type cycleFlags struct {
	cycle   string
	from    string
	to      string
	project string
	// reports selects the reports-screen flavour of custom cycles.
	reports bool
}

func (f *cycleFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.cycle, "cycle", "current", "Cycle: current, previous, all or custom")
	cmd.Flags().StringVar(&f.from, "from", "", "Start date (YYYY-MM-DD) of a custom cycle")
	cmd.Flags().StringVar(&f.to, "to", "", "End date (YYYY-MM-DD) of a custom cycle")
	cmd.Flags().StringVar(&f.project, "project", "", "Only include entries of this project")
}

func (f *cycleFlags) resolve(now time.Time) (model.Cycle, error) {
	var c model.Cycle
	switch strings.ToLower(f.cycle) {
	case "", "current":
		c = timecalc.CurrentCycle(now)
	case "previous":
		c = timecalc.PreviousCycle(now)
	case "all":
		c = timecalc.AllTimeCycle()
	case "custom":
		if f.reports {
			return timecalc.CustomReportCycle(f.from, f.to, f.project)
		}
		return timecalc.CustomCycle(f.from, f.to, f.project)
	default:
		return model.Cycle{}, model.NewValidationError("cycle", fmt.Sprintf("%q is not one of current, previous, all, custom", f.cycle))
	}
	c.ProjectFilter = f.project
	return c, nil
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	numberStyle = cellStyle.Align(lipgloss.Right)
	titleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#87CEEB")).Bold(true)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))
)

// entryTable renders entries with one row per entry.
func entryTable(entries []model.TimeEntry, withID bool) string {
	headers := []string{"Date", "Project", "Description", "Hours", "Rate", "Total", "Source"}
	if withID {
		headers = append([]string{"ID"}, headers...)
	}
	numeric := map[int]bool{}
	for i, h := range headers {
		if h == "Hours" || h == "Rate" || h == "Total" {
			numeric[i] = true
		}
	}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		row := []string{
			timecalc.FormatDate(e.Date),
			e.Project,
			e.Description,
			timecalc.FormatHours(e.Duration),
			report.FormatCurrency(e.HourlyRate),
			report.FormatCurrency(e.TotalAmount),
			e.Source,
		}
		if withID {
			row = append([]string{e.ID}, row...)
		}
		rows = append(rows, row)
	}

	return table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case numeric[col]:
				return numberStyle
			default:
				return cellStyle
			}
		}).
		Headers(headers...).
		Rows(rows...).
		String()
}

// summaryBlock renders the cycle title and its totals.
func summaryBlock(r report.Report) string {
	s := r.Summary
	lines := []string{
		titleStyle.Render(r.Cycle.Name),
		fmt.Sprintf("%s %s", labelStyle.Render("Total hours:   "), timecalc.FormatHours(s.TotalHours)),
		fmt.Sprintf("%s %d", labelStyle.Render("Entries:       "), s.TotalEntries),
		fmt.Sprintf("%s %s", labelStyle.Render("Earnings:      "), report.FormatCurrency(s.TotalEarnings)),
		fmt.Sprintf("%s %d", labelStyle.Render("Working days:  "), s.WorkingDays),
		fmt.Sprintf("%s %s", labelStyle.Render("Avg per day:   "), timecalc.FormatHours(s.AvgDaily)),
	}
	if r.Cycle.ProjectFilter != "" {
		lines = append(lines, fmt.Sprintf("%s %s", labelStyle.Render("Project:       "), r.Cycle.ProjectFilter))
	}
	return strings.Join(lines, "\n")
}
