package result

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

var (
	colorOK    = color.New(color.FgGreen).SprintFunc()
	colorWarn  = color.New(color.FgYellow).SprintFunc()
	colorError = color.New(color.FgRed).SprintFunc()
	colorTitle = color.New(color.Bold).SprintFunc()
)

// ColorStatus wraps a status in its terminal color.
func ColorStatus(s Status) string {
	switch s {
	case StatusOK:
		return colorOK(string(s))
	case StatusWarning:
		return colorWarn(string(s))
	case StatusCritical, StatusDown, StatusError:
		return colorError(string(s))
	default:
		return string(s)
	}
}

// PrintReport writes a plain-text rendering of the report to w.
func PrintReport(w io.Writer, report *Report) {
	writef := func(format string, a ...any) { _, _ = fmt.Fprintf(w, format, a...) }

	if report.SSL != nil {
		writef("%s\n", colorTitle("SSL certificates"))
		for _, c := range report.SSL.Details {
			if c.Error != "" {
				writef("  [%s] %s (%s): %s\n", ColorStatus(c.Status), c.SiteName, c.URL, c.Error)
				continue
			}
			writef("  [%s] %s (%s): expires %s, %d days remaining\n",
				ColorStatus(c.Status), c.SiteName, c.URL, c.NotAfter.Format("2006-01-02"), c.DaysRemaining)
		}
		writef("\n")
	}

	if report.Uptime != nil {
		writef("%s\n", colorTitle("Availability"))
		for _, p := range report.Uptime.Details {
			writef("  [%s] %s (%s): avg %.0fms\n", ColorStatus(p.OverallStatus), p.SiteName, p.URL, p.AvgLatencyMS)
			for _, page := range p.Pages {
				if page.Error != "" {
					writef("    [%s] %s: %s\n", ColorStatus(page.Status), page.URL, page.Error)
					continue
				}
				writef("    [%s] %s: %d in %dms\n", ColorStatus(page.Status), page.URL, page.StatusCode, page.LatencyMS)
			}
		}
		writef("\n")
	}

	if report.Links != nil {
		writef("%s\n", colorTitle("Links"))
		for _, c := range report.Links.Details {
			writef("  [%s] %s (%s): checked %d, broken %d, skipped external %d\n",
				ColorStatus(c.Status), c.SiteName, c.URL, c.LinksChecked, len(c.AllBrokenLinks), c.SkippedExternal)
			for _, page := range c.Pages {
				if page.Error != "" {
					writef("    page %s failed: %s\n", page.URL, page.Error)
				}
			}
			for _, link := range c.AllBrokenLinks {
				writef("    URL: %s\n", link.URL)
				if link.Error != "" {
					writef("    Error: %s\n", link.Error)
				} else {
					writef("    Status: %d\n", link.StatusCode)
				}
				writef("    Found on: %s\n", link.FoundOn)
			}
		}
		writef("\n")
	}

	verdict := colorOK("healthy")
	if !report.Healthy() {
		verdict = colorError("unhealthy")
	}
	writef("Run %s finished in %s: %s\n", report.RunID, report.Duration().Round(1_000_000), verdict)
}
