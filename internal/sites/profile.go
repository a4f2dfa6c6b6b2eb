// Package sites holds the per-site search configuration. Adding a site is a
// configuration change, not a code change.
package sites

import (
	"fmt"
	"strings"
	"time"

	"github.com/andybalholm/cascadia"

	urlutil "github.com/law-makers/pricewatch/internal/utils/url"
	"github.com/law-makers/pricewatch/pkg/models"
)

// TermPlaceholder is replaced by the search term in SearchURL
const TermPlaceholder = "{term}"

// Bounds for the number of candidates taken from one results page
const (
	MinPageResults = 3
	MaxPageResults = 8
)

// Profile declares how to search one site and where results live in its markup
type Profile struct {
	ID                string            `yaml:"id"`
	Name              string            `yaml:"name"`
	BaseURL           string            `yaml:"base_url"`
	SearchURL         string            `yaml:"search_url"`
	ContainerSelector string            `yaml:"container"`
	TitleSelector     string            `yaml:"title"`
	PriceSelector     string            `yaml:"price"`
	LinkSelector      string            `yaml:"link"`
	Currency          string            `yaml:"currency"`
	Mode              models.FetchMode  `yaml:"mode"`
	Headers           map[string]string `yaml:"headers,omitempty"`
	MaxResults        int               `yaml:"max_results,omitempty"`
	RateInterval      time.Duration     `yaml:"rate_interval,omitempty"`
	// WaitSelector is awaited before reading a dynamically rendered page
	WaitSelector string `yaml:"wait_selector,omitempty"`
}

// BuildSearchURL returns the search page URL for an already encoded term
func (p Profile) BuildSearchURL(term string) string {
	if strings.Contains(p.SearchURL, TermPlaceholder) {
		return strings.ReplaceAll(p.SearchURL, TermPlaceholder, term)
	}
	return p.SearchURL + term
}

// ResolveLink turns a result link into an absolute URL on the site
func (p Profile) ResolveLink(href string) string {
	base := p.BaseURL
	if base == "" {
		base = p.SearchURL
	}
	return urlutil.ResolveURL(base, href)
}

// Validate reports the first configuration problem in the profile
func (p Profile) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("site id is required")
	}
	if p.SearchURL == "" {
		return fmt.Errorf("site %s: search_url is required", p.ID)
	}
	if err := urlutil.ValidateURL(p.BuildSearchURL("probe")); err != nil {
		return fmt.Errorf("site %s: search_url: %w", p.ID, err)
	}
	if p.BaseURL != "" {
		if err := urlutil.ValidateURL(p.BaseURL); err != nil {
			return fmt.Errorf("site %s: base_url: %w", p.ID, err)
		}
	}

	selectors := []struct {
		field, value string
	}{
		{"container", p.ContainerSelector},
		{"title", p.TitleSelector},
		{"price", p.PriceSelector},
		{"link", p.LinkSelector},
	}
	for _, s := range selectors {
		if strings.TrimSpace(s.value) == "" {
			return fmt.Errorf("site %s: %s selector is required", p.ID, s.field)
		}
		if _, err := cascadia.Compile(s.value); err != nil {
			return fmt.Errorf("site %s: %s selector %q: %w", p.ID, s.field, s.value, err)
		}
	}
	if p.WaitSelector != "" {
		if _, err := cascadia.Compile(p.WaitSelector); err != nil {
			return fmt.Errorf("site %s: wait_selector %q: %w", p.ID, p.WaitSelector, err)
		}
	}

	if p.Currency == "" {
		return fmt.Errorf("site %s: currency is required", p.ID)
	}
	switch p.Mode {
	case "", models.ModeStatic, models.ModeDynamic, models.ModeAuto:
	default:
		return fmt.Errorf("site %s: mode must be static, dynamic or auto, got %q", p.ID, p.Mode)
	}
	if p.MaxResults != 0 && (p.MaxResults < MinPageResults || p.MaxResults > MaxPageResults) {
		return fmt.Errorf("site %s: max_results must be between %d and %d", p.ID, MinPageResults, MaxPageResults)
	}
	if p.RateInterval < 0 {
		return fmt.Errorf("site %s: rate_interval must be >= 0", p.ID)
	}
	return nil
}

// FetchMode returns the mode, defaulting to static
func (p Profile) FetchMode() models.FetchMode {
	if p.Mode == "" {
		return models.ModeStatic
	}
	return p.Mode
}
