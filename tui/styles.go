package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/lukemcguire/sitepulse/result"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	successStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	warnStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	errorStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	categoryStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	dimStyle      = lipgloss.NewStyle().Faint(true)
	cellStyle     = lipgloss.NewStyle()
)

// categoryOrder is the display order for broken link categories, most
// actionable first.
var categoryOrder = []result.ErrorCategory{
	result.Category4xx,
	result.Category5xx,
	result.CategoryTimeout,
	result.CategoryDNSFailure,
	result.CategoryConnectionRefused,
	result.CategoryTLS,
	result.CategoryRedirectLoop,
	result.CategoryUnknown,
}

func statusStyle(s result.Status) lipgloss.Style {
	switch s {
	case result.StatusOK:
		return successStyle
	case result.StatusWarning:
		return warnStyle
	default:
		return errorStyle
	}
}

// newTable builds a rounded table whose status column is colored by value.
func newTable(headers []string, statusCol int, rows [][]string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == statusCol && row >= 0 && row < len(rows) {
				return statusStyle(result.Status(rows[row][col]))
			}
			return cellStyle
		}).
		Rows(rows...)
}

// RenderSummary produces a Lip Gloss styled summary of a run report.
func RenderSummary(report *result.Report) string {
	if report == nil {
		return errorStyle.Render("No results available.") + "\n"
	}

	var b strings.Builder

	if s := report.SSL; s != nil {
		section(&b, "SSL certificates", s.TotalSites(), s.UnhealthySites())
		rows := make([][]string, 0, len(s.Details))
		for _, d := range s.Details {
			expires, days := "-", "-"
			if !d.NotAfter.IsZero() {
				expires = d.NotAfter.Format(time.DateOnly)
				days = strconv.Itoa(d.DaysRemaining)
			}
			rows = append(rows, []string{d.SiteName, string(d.Status), expires, days, d.Error})
		}
		b.WriteString(newTable([]string{"Site", "Status", "Expires", "Days", "Error"}, 1, rows).Render())
		b.WriteString("\n\n")
	}

	if s := report.Uptime; s != nil {
		section(&b, "Availability", s.TotalSites(), s.UnhealthySites())
		rows := make([][]string, 0, len(s.Details))
		for _, d := range s.Details {
			up := 0
			for _, p := range d.Pages {
				if p.IsUp {
					up++
				}
			}
			rows = append(rows, []string{
				d.SiteName,
				string(d.OverallStatus),
				fmt.Sprintf("%.0fms", d.AvgLatencyMS),
				fmt.Sprintf("%d/%d", up, len(d.Pages)),
			})
		}
		b.WriteString(newTable([]string{"Site", "Status", "Avg latency", "Pages up"}, 1, rows).Render())
		b.WriteString("\n\n")
	}

	if s := report.Links; s != nil {
		section(&b, "Links", s.TotalSites(), s.UnhealthySites())
		rows := make([][]string, 0, len(s.Details))
		var broken []result.BrokenLink
		for _, d := range s.Details {
			rows = append(rows, []string{
				d.SiteName,
				string(d.Status),
				strconv.Itoa(d.LinksChecked),
				strconv.Itoa(len(d.AllBrokenLinks)),
				strconv.Itoa(d.SkippedExternal),
			})
			broken = append(broken, d.AllBrokenLinks...)
		}
		b.WriteString(newTable([]string{"Site", "Status", "Checked", "Broken", "Skipped external"}, 1, rows).Render())
		b.WriteString("\n\n")
		renderBrokenLinks(&b, broken)
	}

	verdict := successStyle.Render("healthy")
	if !report.Healthy() {
		verdict = errorStyle.Render("unhealthy")
	}
	b.WriteString(titleStyle.Render(fmt.Sprintf("Run %s finished in %s: ", report.RunID, report.Duration().Round(time.Millisecond))))
	b.WriteString(verdict)
	b.WriteString("\n")
	return b.String()
}

func section(b *strings.Builder, title string, total, unhealthy int) {
	summary := dimStyle.Render(fmt.Sprintf(" %d sites, %d unhealthy", total, unhealthy))
	b.WriteString(titleStyle.Render(title))
	b.WriteString(summary)
	b.WriteString("\n")
}

// renderBrokenLinks groups broken links by error category.
func renderBrokenLinks(b *strings.Builder, links []result.BrokenLink) {
	if len(links) == 0 {
		return
	}

	grouped := make(map[result.ErrorCategory][]result.BrokenLink)
	for _, link := range links {
		cat := link.ErrorCategory
		if cat == "" {
			cat = result.CategoryUnknown
		}
		grouped[cat] = append(grouped[cat], link)
	}

	for _, cat := range categoryOrder {
		group := grouped[cat]
		if len(group) == 0 {
			continue
		}

		b.WriteString(categoryStyle.Render(fmt.Sprintf("## %s (%d)", result.FormatCategory(cat), len(group))))
		b.WriteString("\n")

		rows := make([][]string, 0, len(group))
		for _, link := range group {
			status := result.StatusText(link.StatusCode)
			if link.Error != "" {
				status = link.Error
			}
			rows = append(rows, []string{link.URL, status, link.FoundOn})
		}
		t := table.New().
			Border(lipgloss.RoundedBorder()).
			Headers("URL", "Status", "Found On").
			StyleFunc(func(row, col int) lipgloss.Style {
				if row == table.HeaderRow {
					return headerStyle
				}
				if col == 1 {
					return errorStyle
				}
				return cellStyle
			}).
			Rows(rows...)
		b.WriteString(t.Render())
		b.WriteString("\n\n")
	}
}
