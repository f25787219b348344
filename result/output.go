package result

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"gopkg.in/yaml.v3"
)

// WriteJSON writes the report as indented JSON.
func WriteJSON(w io.Writer, report *Report) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("write json output: %w", err)
	}
	return nil
}

// WriteYAML writes the report as a YAML document.
func WriteYAML(w io.Writer, report *Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("write yaml output: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("flush yaml output: %w", err)
	}
	return nil
}

// WriteCSV writes the broken links of every crawled site as CSV.
// Always includes a header row, even if there are no broken links.
// Column order: site_id, url, status_code, error_type, found_on, href, redirect_target, is_external
func WriteCSV(w io.Writer, report *Report) error {
	cw := csv.NewWriter(w)

	header := []string{"site_id", "url", "status_code", "error_type", "found_on", "href", "redirect_target", "is_external"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	if report != nil && report.Links != nil {
		for _, crawl := range report.Links.Details {
			for _, link := range crawl.AllBrokenLinks {
				record := []string{
					crawl.SiteID,
					link.URL,
					statusCodeStr(link.StatusCode),
					string(link.ErrorCategory),
					link.FoundOn,
					link.Href,
					link.RedirectTarget,
					strconv.FormatBool(link.IsExternal),
				}
				if err := cw.Write(record); err != nil {
					return fmt.Errorf("write csv record for %s: %w", link.URL, err)
				}
			}
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv output: %w", err)
	}
	return nil
}

// statusCodeStr converts an HTTP status code to a string.
// Returns empty string for 0 (no HTTP status).
func statusCodeStr(code int) string {
	if code == 0 {
		return ""
	}
	return strconv.Itoa(code)
}
