// Package output renders crawl outcomes for the CLI.
package output

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/law-makers/pricewatch/pkg/models"
)

// Formats lists the supported output formats
var Formats = []string{"table", "json", "csv", "md", "html"}

// Write renders outcomes to w in the given format
func Write(w io.Writer, format string, outcomes []models.CrawlOutcome) error {
	switch strings.ToLower(format) {
	case "", "table":
		return WriteTable(w, outcomes)
	case "json":
		return WriteJSON(w, outcomes)
	case "csv":
		return WriteCSV(w, outcomes)
	case "md", "markdown":
		return WriteMarkdown(w, outcomes)
	case "html":
		return WriteHTML(w, outcomes)
	default:
		return fmt.Errorf("unknown output format %q (want one of %s)", format, strings.Join(Formats, ", "))
	}
}

// FormatFor picks a format from a file extension, defaulting to JSON
func FormatFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return "csv"
	case ".md", ".markdown":
		return "md"
	case ".html", ".htm":
		return "html"
	case ".txt":
		return "table"
	default:
		return "json"
	}
}

// Save writes outcomes to path in the format implied by its extension
func Save(path string, outcomes []models.CrawlOutcome) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(file, FormatFor(path), outcomes); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// WriteTable prints one aligned line per outcome
func WriteTable(w io.Writer, outcomes []models.CrawlOutcome) error {
	for _, o := range outcomes {
		var err error
		if o.OK() {
			_, err = fmt.Fprintf(w, "%-6d %-14s %-40s %s%.2f  (%.2f) %s\n",
				o.ComponentID, o.SiteID, truncate(o.ComponentName, 40),
				o.Success.Currency, o.Success.Price, o.Success.Similarity, o.Success.URL)
		} else {
			_, err = fmt.Fprintf(w, "%-6d %-14s %-40s FAILED %s\n",
				o.ComponentID, o.SiteID, truncate(o.ComponentName, 40), reason(o))
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func reason(o models.CrawlOutcome) string {
	if o.Failure == nil {
		return ""
	}
	if o.Failure.Detail != "" {
		return o.Failure.Reason + ": " + o.Failure.Detail
	}
	return o.Failure.Reason
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
