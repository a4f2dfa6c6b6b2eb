package engine

import (
	"github.com/law-makers/pricewatch/pkg/models"
)

// BestPrice returns the successful outcome with the lowest price. Ties keep
// the earlier outcome. ErrNoValidPrices is returned when nothing succeeded.
func BestPrice(outcomes []models.CrawlOutcome) (models.CrawlOutcome, error) {
	var (
		best  models.CrawlOutcome
		found bool
	)
	for _, o := range outcomes {
		if !o.OK() || o.Success.Price <= 0 {
			continue
		}
		if !found || o.Success.Price < best.Success.Price {
			best = o
			found = true
		}
	}
	if !found {
		return models.CrawlOutcome{}, ErrNoValidPrices
	}
	return best, nil
}
