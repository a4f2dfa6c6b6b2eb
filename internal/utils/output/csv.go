package output

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/law-makers/pricewatch/pkg/models"
)

var csvHeader = []string{
	"component_id", "component_name", "site_id", "status",
	"price", "currency", "matched_title", "similarity", "url", "timestamp", "reason",
}

// WriteCSV writes one row per outcome. Failure rows leave the price columns empty.
func WriteCSV(w io.Writer, outcomes []models.CrawlOutcome) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(csvHeader); err != nil {
		return err
	}

	for _, o := range outcomes {
		row := []string{
			strconv.FormatInt(o.ComponentID, 10),
			o.ComponentName,
			o.SiteID,
		}
		if o.OK() {
			s := o.Success
			row = append(row, "ok",
				strconv.FormatFloat(s.Price, 'f', 2, 64),
				s.Currency,
				s.MatchedTitle,
				strconv.FormatFloat(s.Similarity, 'f', 4, 64),
				s.URL,
				s.Timestamp.UTC().Format("2006-01-02T15:04:05Z07:00"),
				"",
			)
		} else {
			row = append(row, "failed", "", "", "", "", "", "", reason(o))
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}
