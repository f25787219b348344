package cmd

import (
	"strings"

	"github.com/fatih/color"

	"github.com/lukemcguire/sitepulse/result"
	"github.com/lukemcguire/sitepulse/site"
)

var (
	colorSuccess = color.New(color.FgGreen).SprintFunc()
	colorInfo    = color.New(color.FgCyan).SprintFunc()
	colorWarn    = color.New(color.FgYellow).SprintFunc()
	colorError   = color.New(color.FgRed).SprintFunc()
	colorMuted   = color.New(color.Faint).SprintFunc()
)

// formatChecks lists every checker kind, enabled ones highlighted.
func formatChecks(c site.Checks) string {
	parts := make([]string, 0, len(site.Kinds))
	for _, k := range site.Kinds {
		if c.Enabled(k) {
			parts = append(parts, colorSuccess(string(k)))
		} else {
			parts = append(parts, colorMuted("-"+string(k)))
		}
	}
	return strings.Join(parts, " ")
}

// formatVerdict renders the overall health of a report.
func formatVerdict(report *result.Report) string {
	if report.Healthy() {
		return colorSuccess("healthy")
	}
	return colorError("unhealthy")
}
