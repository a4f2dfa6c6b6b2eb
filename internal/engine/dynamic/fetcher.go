// internal/engine/dynamic/fetcher.go
package dynamic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"

	"github.com/law-makers/pricewatch/internal/cache"
	"github.com/law-makers/pricewatch/internal/engine"
	"github.com/law-makers/pricewatch/internal/utils/headers"
	"github.com/law-makers/pricewatch/pkg/models"
)

// DefaultTimeout applies when neither the request nor the fetcher sets one
const DefaultTimeout = 30 * time.Second

// MaxSelectorWait bounds how long a fetch waits for results to render
const MaxSelectorWait = 10 * time.Second

// Fetcher implements engine.Fetcher by rendering pages in headless Chrome.
// The browser pool is started on the first fetch.
type Fetcher struct {
	poolOpts BrowserPoolOptions
	pool     *BrowserPool
	poolErr  error
	mu       sync.Mutex
	cache    cache.Cache
	cacheTTL time.Duration
	timeout  time.Duration
	headers  map[string]string
}

// New creates a dynamic fetcher. No browser is started until Fetch is called.
func New(poolOpts BrowserPoolOptions, c cache.Cache, cacheTTL, timeout time.Duration) *Fetcher {
	return &Fetcher{
		poolOpts: poolOpts,
		cache:    c,
		cacheTTL: cacheTTL,
		timeout:  timeout,
	}
}

// SetHeaders sets extra headers sent with every navigation
func (f *Fetcher) SetHeaders(h map[string]string) {
	f.headers = h
}

// Name returns the name of this fetcher
func (f *Fetcher) Name() string {
	return "dynamic"
}

// Started reports whether the browser pool is running
func (f *Fetcher) Started() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pool != nil
}

func (f *Fetcher) ensurePool() (*BrowserPool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.pool != nil {
		return f.pool, nil
	}
	// A browser that failed to start once is not retried for this process
	if f.poolErr != nil {
		return nil, f.poolErr
	}

	pool, err := NewBrowserPool(f.poolOpts)
	if err != nil {
		f.poolErr = fmt.Errorf("%w: %v", engine.ErrBrowserNotFound, err)
		log.Warn().Err(err).Msg("Failed to start browser pool")
		return nil, f.poolErr
	}
	f.pool = pool
	return pool, nil
}

// Fetch renders a search results page and parses the resulting DOM
func (f *Fetcher) Fetch(ctx context.Context, opts models.RequestOptions) (*goquery.Document, error) {
	key := cache.KeyFor(f.Name(), opts.URL)
	if f.cache != nil {
		if page, ok := f.cache.Get(ctx, key); ok {
			return parse(page.HTML, opts.URL)
		}
	}

	page, err := f.render(ctx, opts)
	if err != nil {
		return nil, err
	}

	if f.cache != nil {
		if err := f.cache.Set(ctx, key, page, f.cacheTTL); err != nil {
			log.Warn().Err(err).Str("url", opts.URL).Msg("Failed to cache page")
		}
	}

	return parse(page.HTML, opts.URL)
}

func (f *Fetcher) render(ctx context.Context, opts models.RequestOptions) (*models.PageData, error) {
	start := time.Now()

	pool, err := f.ensurePool()
	if err != nil {
		return nil, engine.NewEngineError(engine.ErrCodeNetworkError, "browser unavailable", err).
			WithDetail("url", opts.URL)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = f.timeout
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	bc, err := pool.Acquire(ctx)
	if err != nil {
		return nil, engine.ClassifyFetchError(err, opts.URL)
	}
	defer pool.Release(bc)

	// Derived from the tab so chromedp finds its target, cancelled with the caller
	runCtx, cancel := context.WithTimeout(bc.Ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	log.Debug().
		Str("url", opts.URL).
		Str("fetcher", f.Name()).
		Dur("timeout", timeout).
		Msg("Starting fetch")

	var status atomic.Int64
	chromedp.ListenTarget(runCtx, func(ev interface{}) {
		if e, ok := ev.(*network.EventResponseReceived); ok && e.Type == network.ResourceTypeDocument {
			status.Store(e.Response.Status)
		}
	})

	extra := headers.Merge(
		map[string]string{"Accept-Language": headers.Browser("")["Accept-Language"]},
		f.headers,
		opts.Headers,
	)
	hdrs := make(network.Headers, len(extra))
	for k, v := range extra {
		// The allocator already sets the user agent
		if strings.EqualFold(k, "User-Agent") {
			continue
		}
		hdrs[k] = v
	}

	err = chromedp.Run(runCtx,
		network.Enable(),
		network.SetExtraHTTPHeaders(hdrs),
		chromedp.Navigate(opts.URL),
	)
	if err != nil {
		return nil, f.classify(ctx, runCtx, err, opts.URL)
	}

	if code := int(status.Load()); code != 0 && (code < 200 || code > 299) {
		return nil, engine.NewHTTPStatusError(code, opts.URL)
	}

	if opts.WaitSelector != "" {
		waitCtx, waitCancel := context.WithTimeout(runCtx, MaxSelectorWait)
		err := chromedp.Run(waitCtx, chromedp.WaitVisible(opts.WaitSelector, chromedp.ByQuery))
		waitCancel()
		if err != nil {
			if runCtx.Err() != nil {
				return nil, f.classify(ctx, runCtx, err, opts.URL)
			}
			// No results rendered; let extraction report an empty page
			log.Debug().Str("selector", opts.WaitSelector).Str("url", opts.URL).Msg("Wait selector not visible")
		}
	}

	var html string
	if err := chromedp.Run(runCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return nil, f.classify(ctx, runCtx, err, opts.URL)
	}

	responseTime := time.Since(start).Milliseconds()

	log.Debug().
		Str("url", opts.URL).
		Int64("status", status.Load()).
		Int("bytes", len(html)).
		Int64("response_time_ms", responseTime).
		Msg("Fetch completed")

	return &models.PageData{
		URL:          opts.URL,
		StatusCode:   int(status.Load()),
		HTML:         html,
		FetchedAt:    time.Now(),
		ResponseTime: responseTime,
	}, nil
}

// classify maps a chromedp failure to the engine's fetch error codes
func (f *Fetcher) classify(parent, runCtx context.Context, err error, url string) error {
	if parent.Err() == nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return engine.NewEngineError(engine.ErrCodeTimeout, "page render timed out", err).
			WithRetry().
			WithDetail("url", url)
	}
	return engine.ClassifyFetchError(err, url)
}

// Close shuts down the browser pool if it was started
func (f *Fetcher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pool == nil {
		return nil
	}
	err := f.pool.Close()
	f.pool = nil
	return err
}

func parse(html, url string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, engine.NewEngineError(engine.ErrCodeNetworkError, "failed to parse HTML", fmt.Errorf("%w: %v", engine.ErrParseError, err)).
			WithDetail("url", url)
	}
	return doc, nil
}
