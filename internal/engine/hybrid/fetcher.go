// Package hybrid fetches pages statically and falls back to a browser for
// pages that are built by client-side scripts.
package hybrid

import (
	"context"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"

	"github.com/law-makers/pricewatch/internal/engine"
	"github.com/law-makers/pricewatch/internal/ratelimit"
	urlutil "github.com/law-makers/pricewatch/internal/utils/url"
	"github.com/law-makers/pricewatch/pkg/models"
)

// Fetcher implements engine.Fetcher for sites configured with mode auto
type Fetcher struct {
	static  engine.Fetcher
	dynamic engine.Fetcher
	limiter ratelimit.RateLimiter
}

// New creates an auto-mode fetcher. dynamic may be nil, which disables the fallback.
// The browser fallback is a second request to the site, so it waits on limiter
// under opts.SiteID first. A nil limiter does not wait.
func New(static, dynamic engine.Fetcher, limiter ratelimit.RateLimiter) *Fetcher {
	return &Fetcher{static: static, dynamic: dynamic, limiter: limiter}
}

// Name returns the name of this fetcher
func (f *Fetcher) Name() string {
	return "auto"
}

// Fetch returns the static page when it already holds results. Otherwise,
// if the page looks script-built, it is rendered in the browser.
func (f *Fetcher) Fetch(ctx context.Context, opts models.RequestOptions) (*goquery.Document, error) {
	doc, err := f.static.Fetch(ctx, opts)
	if err != nil {
		return nil, err
	}

	if opts.WaitSelector != "" && doc.Find(opts.WaitSelector).Length() > 0 {
		return doc, nil
	}
	if f.dynamic == nil || !NeedsJavaScript(doc) {
		return doc, nil
	}

	log.Debug().
		Str("host", urlutil.Host(opts.URL)).
		Msg("Static page has no results and needs JavaScript, rendering in browser")

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx, opts.SiteID); err != nil {
			return nil, engine.ClassifyFetchError(err, opts.URL)
		}
	}
	return f.dynamic.Fetch(ctx, opts)
}
