// Package render formats reports for the terminal.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/christopherklint97/marvinr/internal/productivity"
)

const barWidth = 30

// Report writes a human-readable view of out to w.
func Report(w io.Writer, out productivity.Outcome) error {
	var b strings.Builder

	if out.Failure != nil {
		b.WriteString(errorStyle.Render("Report failed: "+out.Failure.Error) + "\n")
		_, err := io.WriteString(w, b.String())
		return err
	}

	s := out.Report
	b.WriteString(titleStyle.Render(fmt.Sprintf("Completed %s → %s", s.StartDate, s.EndDate)) + "\n")
	b.WriteString(subtitleStyle.Render(fmt.Sprintf("%d items over %d days, %.1f per day", s.TotalCompleted, s.TotalDays, s.AveragePerDay)) + "\n\n")

	maxCount := 0
	for _, d := range s.DailyBreakdown {
		if d.Count > maxCount {
			maxCount = d.Count
		}
	}

	for _, d := range s.DailyBreakdown {
		label := fmt.Sprintf("  %s %-9s", d.Date, d.Weekday)
		if d.IsToday {
			label = highlightStyle.Render(label)
		}
		line := fmt.Sprintf("%s %3d %s", label, d.Count, bar(d.Count, maxCount))
		if d.FetchFail != "" {
			line += " " + warningStyle.Render("(fetch failed)")
		}
		b.WriteString(line + "\n")
	}

	if s.MostProductiveDay != nil {
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("Most productive:  %s (%s) %d\n", s.MostProductiveDay.Date, s.MostProductiveDay.Weekday, s.MostProductiveDay.Count))
		b.WriteString(fmt.Sprintf("Least productive: %s (%s) %d\n", s.LeastProductiveDay.Date, s.LeastProductiveDay.Weekday, s.LeastProductiveDay.Count))
	}

	if len(s.TopProjects) > 0 {
		b.WriteString("\n" + titleStyle.Render("Top projects") + "\n")
		if len(s.TopProjectsWithNames) > 0 {
			for _, p := range s.TopProjectsWithNames {
				b.WriteString(fmt.Sprintf("  %-30s %d\n", p.ProjectName, p.Count))
			}
		} else {
			for _, p := range s.TopProjects {
				b.WriteString(fmt.Sprintf("  %-30s %d\n", p.ProjectID, p.Count))
			}
			b.WriteString(dimStyle.Render("  (project names unavailable)") + "\n")
		}
	}

	ce := s.CacheEfficiency
	b.WriteString("\n" + dimStyle.Render(fmt.Sprintf("cache: %d days / %d items held, %d live API calls", ce.CachedDates, ce.TotalCachedItems, ce.TotalAPICalls)) + "\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func bar(count, max int) string {
	if max == 0 || count == 0 {
		return ""
	}
	n := count * barWidth / max
	if n == 0 {
		n = 1
	}
	return successStyle.Render(strings.Repeat("█", n))
}

// Runs writes the report history table.
func Runs(w io.Writer, runs []productivity.Run) error {
	if len(runs) == 0 {
		_, err := io.WriteString(w, "No reports recorded yet.\n")
		return err
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Recent reports") + "\n")
	for _, r := range runs {
		when := r.RequestedAt.Local().Format("2006-01-02 15:04")
		if r.Error != "" {
			b.WriteString(fmt.Sprintf("  %s  %s\n", when, errorStyle.Render("error: "+r.Error)))
			continue
		}
		b.WriteString(fmt.Sprintf("  %s  %s → %s  %3d done  %2d days  %2d API calls\n",
			when, r.StartDate, r.EndDate, r.TotalCompleted, r.TotalDays, r.APICalls))
	}
	_, err := io.WriteString(w, b.String())
	return err
}
