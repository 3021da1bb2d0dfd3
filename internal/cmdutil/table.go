package cmdutil

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/leefowlercu/batch-monitor/internal/jobs"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle      = lipgloss.NewStyle().Padding(0, 1)
	completedStyle = cellStyle.Foreground(lipgloss.Color("2"))
	failedStyle    = cellStyle.Foreground(lipgloss.Color("1"))
	runningStyle   = cellStyle.Foreground(lipgloss.Color("3"))
	borderStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

const statusColumn = 2

// JobRow returns the table cells for rec.
func JobRow(rec jobs.Record) []string {
	end := "-"
	duration := "-"
	if rec.EndTime != nil {
		end = rec.EndTime.Local().Format(time.DateTime)
		duration = fmt.Sprintf("%.3fs", rec.Duration().Seconds())
	}
	return []string{
		rec.ID,
		rec.Name,
		string(rec.Status),
		rec.StartTime.Local().Format(time.DateTime),
		end,
		duration,
	}
}

// RenderJobs renders records as a table, one row per job.
func RenderJobs(recs []jobs.Record) string {
	rows := make([][]string, 0, len(recs))
	for _, rec := range recs {
		rows = append(rows, JobRow(rec))
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers("ID", "NAME", "STATUS", "STARTED", "ENDED", "DURATION").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col != statusColumn || row < 0 || row >= len(rows) {
				return cellStyle
			}
			switch jobs.Status(rows[row][statusColumn]) {
			case jobs.StatusCompleted:
				return completedStyle
			case jobs.StatusFailed:
				return failedStyle
			default:
				return runningStyle
			}
		})

	return t.String()
}

// PrintJobs writes the job table to w, or a notice when recs is empty.
func PrintJobs(w io.Writer, recs []jobs.Record) {
	if len(recs) == 0 {
		fmt.Fprintln(w, "No jobs found.")
		return
	}
	fmt.Fprintln(w, RenderJobs(recs))
	fmt.Fprintf(w, "%d job(s)\n", len(recs))
}
