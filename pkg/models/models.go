package models

import "time"

// Category groups components (GPU, CPU, Memory, ...)
type Category struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// CatalogItem is the read-only view of a component the engine crawls for.
type CatalogItem struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Manufacturer string `json:"manufacturer"`
	Category     string `json:"category"`
}

// Target returns the text a search result is matched against.
func (c CatalogItem) Target() string {
	if c.Manufacturer == "" {
		return c.Name
	}
	return c.Manufacturer + " " + c.Name
}

// FetchMode selects how a site's result page is retrieved
type FetchMode string

const (
	ModeStatic  FetchMode = "static"
	ModeDynamic FetchMode = "dynamic"
	// ModeAuto fetches statically and renders in a browser only when the
	// page turns out to be script-built
	ModeAuto FetchMode = "auto"
)

// Candidate is one product entry parsed from a search results page
type Candidate struct {
	Title    string
	RawPrice string
	RawLink  string
}

// MatchResult is the best candidate chosen for one (item, site) pair
type MatchResult struct {
	Title    string  `json:"title"`
	Score    float64 `json:"score"`
	RawPrice string  `json:"raw_price"`
	URL      string  `json:"url"`
}

// Success carries the accepted price for one (item, site) pair
type Success struct {
	Price        float64   `json:"price"`
	Currency     string    `json:"currency"`
	MatchedTitle string    `json:"matched_title"`
	Similarity   float64   `json:"similarity"`
	URL          string    `json:"url"`
	Timestamp    time.Time `json:"timestamp"`
}

// Failure carries the reason an (item, site) pair produced no price
type Failure struct {
	Reason string `json:"reason"`
	Detail string `json:"detail,omitempty"`
}

// CrawlOutcome is the result of one (item, site) attempt. Exactly one of
// Success and Failure is set.
type CrawlOutcome struct {
	ComponentID   int64    `json:"component_id"`
	ComponentName string   `json:"component_name"`
	SiteID        string   `json:"site_id"`
	Success       *Success `json:"success,omitempty"`
	Failure       *Failure `json:"failure,omitempty"`
}

// OK reports whether the outcome carries a price
func (o CrawlOutcome) OK() bool {
	return o.Success != nil
}

// PriceRecord is a persisted price observation
type PriceRecord struct {
	ID          int64     `json:"id"`
	ComponentID int64     `json:"component_id"`
	Price       float64   `json:"price"`
	SiteID      string    `json:"site_id,omitempty"`
	URL         string    `json:"url,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// RequestOptions describes one search page fetch
type RequestOptions struct {
	URL string
	// SiteID keys rate limiting for fetchers that make more than one request
	SiteID  string
	Headers map[string]string
	Timeout time.Duration
	// WaitSelector is awaited by browser-rendered fetches before the DOM is read
	WaitSelector string
}

// PageData is a fetched page as kept in the page cache
type PageData struct {
	URL          string    `json:"url"`
	StatusCode   int       `json:"status_code"`
	HTML         string    `json:"html"`
	FetchedAt    time.Time `json:"fetched_at"`
	ResponseTime int64     `json:"response_time_ms"`
}
