package engine

import (
	"context"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/law-makers/pricewatch/pkg/models"
)

// Fetcher retrieves a site's search results page as a parsed document
type Fetcher interface {
	// Fetch retrieves and parses the page described by opts. Failures are
	// *EngineError values with TIMEOUT, NETWORK_ERROR or HTTP_STATUS codes.
	Fetch(ctx context.Context, opts models.RequestOptions) (*goquery.Document, error)

	// Name returns the name of the fetcher implementation
	Name() string
}

// Catalog supplies the components to crawl for
type Catalog interface {
	// Items returns one component when id is set, all components otherwise.
	// An unknown id returns ErrComponentNotFound.
	Items(ctx context.Context, id *int64) ([]models.CatalogItem, error)
}

// Sink persists accepted prices
type Sink interface {
	RecordPrice(ctx context.Context, componentID int64, price float64, siteID, url string, ts time.Time) (models.PriceRecord, error)
}
