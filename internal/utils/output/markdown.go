package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/law-makers/pricewatch/pkg/models"
)

// WriteMarkdown writes outcomes as a GitHub-flavored table
func WriteMarkdown(w io.Writer, outcomes []models.CrawlOutcome) error {
	var sb strings.Builder
	sb.WriteString("| Component | Site | Price | Match | Similarity | Link |\n")
	sb.WriteString("|---|---|---:|---|---:|---|\n")

	for _, o := range outcomes {
		name := escapeCell(o.ComponentName)
		if !o.OK() {
			fmt.Fprintf(&sb, "| %s | %s | n/a | _%s_ | | |\n", name, o.SiteID, escapeCell(reason(o)))
			continue
		}
		s := o.Success
		fmt.Fprintf(&sb, "| %s | %s | %s%.2f | %s | %.2f | [link](%s) |\n",
			name, o.SiteID, s.Currency, s.Price, escapeCell(s.MatchedTitle), s.Similarity, s.URL)
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
