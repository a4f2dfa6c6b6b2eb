// internal/engine/dynamic/browser_pool.go
package dynamic

import (
	"context"
	"fmt"
	"sync"

	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"

	"github.com/law-makers/pricewatch/internal/utils/headers"
)

// MaxPoolSize bounds the number of browser tabs kept open
const MaxPoolSize = 8

// BrowserPool keeps warmed-up Chrome tabs so dynamic fetches skip browser startup
type BrowserPool struct {
	size        int
	contexts    chan *BrowserContext
	allocCtx    context.Context
	allocCancel context.CancelFunc
	mu          sync.Mutex
	closed      bool
}

// BrowserContext wraps a chromedp context with its cancel function
type BrowserContext struct {
	Ctx    context.Context
	Cancel context.CancelFunc
}

// BrowserPoolOptions configures the browser pool
type BrowserPoolOptions struct {
	Size      int
	Headless  bool
	UserAgent string
	Proxy     string
	ExecPath  string
}

func allocatorOptions(opts BrowserPoolOptions) []chromedp.ExecAllocatorOption {
	allocOpts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-translate", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("blink-settings", "imagesEnabled=false"),
		chromedp.Flag("lang", "en-IN"),
		chromedp.WindowSize(1366, 900),
		chromedp.UserAgent(opts.UserAgent),
	}

	if opts.ExecPath != "" {
		allocOpts = append([]chromedp.ExecAllocatorOption{chromedp.ExecPath(opts.ExecPath)}, allocOpts...)
	}
	if opts.Headless {
		allocOpts = append(allocOpts, chromedp.Flag("headless", "new"))
	} else {
		allocOpts = append(allocOpts, chromedp.Flag("headless", false))
	}
	if opts.Proxy != "" {
		allocOpts = append(allocOpts, chromedp.ProxyServer(opts.Proxy))
	}
	return allocOpts
}

// NewBrowserPool starts Chrome and opens Size warmed-up tabs
func NewBrowserPool(opts BrowserPoolOptions) (*BrowserPool, error) {
	if opts.Size <= 0 {
		opts.Size = 1
	}
	if opts.Size > MaxPoolSize {
		opts.Size = MaxPoolSize
	}
	if opts.UserAgent == "" {
		opts.UserAgent = headers.DefaultUserAgent
	}
	if opts.ExecPath == "" {
		opts.ExecPath = FindChrome()
	}

	log.Debug().Int("size", opts.Size).Str("chrome", opts.ExecPath).Msg("Creating browser pool")

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocatorOptions(opts)...)

	pool := &BrowserPool{
		size:        opts.Size,
		contexts:    make(chan *BrowserContext, opts.Size),
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
	}

	for i := 0; i < opts.Size; i++ {
		browserCtx, browserCancel := chromedp.NewContext(allocCtx)

		if err := chromedp.Run(browserCtx, chromedp.Navigate("about:blank")); err != nil {
			browserCancel()
			pool.Close()
			return nil, fmt.Errorf("failed to start browser tab %d: %w", i, err)
		}

		pool.contexts <- &BrowserContext{Ctx: browserCtx, Cancel: browserCancel}
	}

	log.Info().Int("pool_size", opts.Size).Msg("Browser pool ready")

	return pool, nil
}

// Acquire takes a tab from the pool, blocking until one is free or ctx ends
func (bp *BrowserPool) Acquire(ctx context.Context) (*BrowserContext, error) {
	select {
	case bc, ok := <-bp.contexts:
		if !ok {
			return nil, fmt.Errorf("browser pool is closed")
		}
		bp.mu.Lock()
		defer bp.mu.Unlock()
		if bp.closed {
			bc.Cancel()
			return nil, fmt.Errorf("browser pool is closed")
		}
		return bc, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for browser tab: %w", ctx.Err())
	}
}

// Release resets a tab to a blank page and returns it to the pool
func (bp *BrowserPool) Release(bc *BrowserContext) {
	bp.mu.Lock()
	closed := bp.closed
	bp.mu.Unlock()
	if closed || bc.Ctx.Err() != nil {
		bc.Cancel()
		bp.replace()
		return
	}

	// Best effort, a stale page only costs memory
	_ = chromedp.Run(bc.Ctx, chromedp.Navigate("about:blank"))

	bp.mu.Lock()
	defer bp.mu.Unlock()
	if bp.closed {
		bc.Cancel()
		return
	}
	select {
	case bp.contexts <- bc:
	default:
		bc.Cancel()
		log.Warn().Msg("Browser pool full, discarding tab")
	}
}

// replace opens a fresh tab in place of a dead one
func (bp *BrowserPool) replace() {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	if bp.closed {
		return
	}
	browserCtx, browserCancel := chromedp.NewContext(bp.allocCtx)
	select {
	case bp.contexts <- &BrowserContext{Ctx: browserCtx, Cancel: browserCancel}:
		log.Debug().Msg("Replaced dead browser tab")
	default:
		browserCancel()
	}
}

// Close shuts down all tabs and the browser process
func (bp *BrowserPool) Close() error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if bp.closed {
		return nil
	}
	bp.closed = true

	close(bp.contexts)
	for bc := range bp.contexts {
		bc.Cancel()
	}
	bp.allocCancel()

	log.Info().Msg("Browser pool closed")
	return nil
}

// Size returns the pool size
func (bp *BrowserPool) Size() int {
	return bp.size
}

// Available returns the number of idle tabs
func (bp *BrowserPool) Available() int {
	return len(bp.contexts)
}
