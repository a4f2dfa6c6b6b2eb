package output

import (
	"encoding/json"
	"io"

	"github.com/law-makers/pricewatch/pkg/models"
)

// WriteJSON writes outcomes as an indented JSON array. An empty pass is [].
func WriteJSON(w io.Writer, outcomes []models.CrawlOutcome) error {
	if outcomes == nil {
		outcomes = []models.CrawlOutcome{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(outcomes)
}
