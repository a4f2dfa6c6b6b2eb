// internal/engine/static/fetcher.go
package static

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/html/charset"

	"github.com/law-makers/pricewatch/internal/cache"
	"github.com/law-makers/pricewatch/internal/engine"
	"github.com/law-makers/pricewatch/internal/proxy"
	"github.com/law-makers/pricewatch/internal/utils/headers"
	"github.com/law-makers/pricewatch/pkg/models"
)

// MaxBodyBytes caps how much of a response is read
const MaxBodyBytes = 10 << 20

// Fetcher implements engine.Fetcher with plain HTTP requests and goquery
type Fetcher struct {
	client    *http.Client
	cache     cache.Cache
	cacheTTL  time.Duration
	proxies   *proxy.ProxyPool
	timeout   time.Duration
	userAgent string
	headers   map[string]string
}

// New creates a static fetcher. The cache and proxy pool are optional.
func New(client *http.Client, c cache.Cache, cacheTTL time.Duration, proxies *proxy.ProxyPool, timeout time.Duration, ua string) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{
		client:    client,
		cache:     c,
		cacheTTL:  cacheTTL,
		proxies:   proxies,
		timeout:   timeout,
		userAgent: ua,
	}
}

// SetHeaders sets headers sent with every request, between the browser
// defaults and a site's own headers
func (f *Fetcher) SetHeaders(h map[string]string) {
	f.headers = h
}

// Name returns the name of this fetcher
func (f *Fetcher) Name() string {
	return "static"
}

// Fetch retrieves a search results page and parses it
func (f *Fetcher) Fetch(ctx context.Context, opts models.RequestOptions) (*goquery.Document, error) {
	key := cache.KeyFor(f.Name(), opts.URL)
	if f.cache != nil {
		if page, ok := f.cache.Get(ctx, key); ok {
			return parse(page.HTML, opts.URL)
		}
	}

	page, err := f.fetch(ctx, opts)
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

func (f *Fetcher) fetch(ctx context.Context, opts models.RequestOptions) (*models.PageData, error) {
	start := time.Now()

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = f.timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if f.proxies != nil {
		ctx = proxy.Track(ctx)
	}

	log.Debug().
		Str("url", opts.URL).
		Str("fetcher", f.Name()).
		Dur("timeout", timeout).
		Msg("Starting fetch")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, opts.URL, nil)
	if err != nil {
		return nil, engine.NewEngineError(engine.ErrCodeNetworkError, "failed to create request", err).
			WithDetail("url", opts.URL)
	}
	for key, value := range headers.Merge(headers.Browser(f.userAgent), f.headers, opts.Headers) {
		req.Header.Set(key, value)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		f.markProxy(ctx, false)
		return nil, engine.ClassifyFetchError(err, opts.URL)
	}
	defer resp.Body.Close()
	f.markProxy(ctx, true)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, engine.NewHTTPStatusError(resp.StatusCode, opts.URL)
	}

	body, err := charset.NewReader(io.LimitReader(resp.Body, MaxBodyBytes), resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, engine.NewEngineError(engine.ErrCodeNetworkError, "unsupported response encoding", err).
			WithDetail("url", opts.URL)
	}
	html, err := io.ReadAll(body)
	if err != nil {
		return nil, engine.ClassifyFetchError(err, opts.URL)
	}

	responseTime := time.Since(start).Milliseconds()

	log.Debug().
		Str("url", opts.URL).
		Int("status", resp.StatusCode).
		Int("bytes", len(html)).
		Int64("response_time_ms", responseTime).
		Msg("Fetch completed")

	return &models.PageData{
		URL:          opts.URL,
		StatusCode:   resp.StatusCode,
		HTML:         string(html),
		FetchedAt:    time.Now(),
		ResponseTime: responseTime,
	}, nil
}

func (f *Fetcher) markProxy(ctx context.Context, healthy bool) {
	if f.proxies == nil {
		return
	}
	chosen := proxy.Chosen(ctx)
	if chosen == "" {
		return
	}
	if healthy {
		f.proxies.MarkHealthy(chosen)
		return
	}
	log.Debug().Str("proxy", chosen).Msg("Marking proxy as failed")
	f.proxies.MarkFailed(chosen)
}

func parse(html, url string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, engine.NewEngineError(engine.ErrCodeNetworkError, "failed to parse HTML", fmt.Errorf("%w: %v", engine.ErrParseError, err)).
			WithDetail("url", url)
	}
	return doc, nil
}

// NewTransport builds the pooled transport shared by all static fetches.
// Requests go through the proxy pool when one is configured.
func NewTransport(proxies *proxy.ProxyPool) *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = 100
	t.MaxIdleConnsPerHost = 10
	t.IdleConnTimeout = 90 * time.Second
	if proxies != nil && proxies.Len() > 0 {
		t.Proxy = proxies.ProxyFunc()
	}
	return t
}
