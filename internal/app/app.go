// Package app provides the core application initialization and lifecycle management.
package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/law-makers/pricewatch/internal/cache"
	"github.com/law-makers/pricewatch/internal/config"
	"github.com/law-makers/pricewatch/internal/engine"
	"github.com/law-makers/pricewatch/internal/engine/dynamic"
	"github.com/law-makers/pricewatch/internal/engine/hybrid"
	"github.com/law-makers/pricewatch/internal/engine/match"
	"github.com/law-makers/pricewatch/internal/engine/price"
	"github.com/law-makers/pricewatch/internal/engine/static"
	"github.com/law-makers/pricewatch/internal/proxy"
	"github.com/law-makers/pricewatch/internal/ratelimit"
	"github.com/law-makers/pricewatch/internal/retry"
	"github.com/law-makers/pricewatch/internal/sites"
	"github.com/law-makers/pricewatch/internal/store"
	"github.com/law-makers/pricewatch/internal/utils/headers"
	"github.com/law-makers/pricewatch/pkg/models"
)

// Application holds all application dependencies and manages their lifecycle.
//
// It is created once at startup and shared across all CLI commands.
// Use Close() to ensure proper resource cleanup on shutdown.
type Application struct {
	Config         *config.Config
	Logger         *zerolog.Logger
	Cache          cache.Cache
	Proxies        *proxy.ProxyPool
	RateLimiter    *ratelimit.SiteLimiter
	HTTPClient     *http.Client
	Sites          *sites.Registry
	Store          store.Store
	StaticFetcher  *static.Fetcher
	DynamicFetcher *dynamic.Fetcher
	Orchestrator   *engine.Orchestrator

	engineOpts engine.Options
	startTime  time.Time
}

// New creates and initializes a new Application with all dependencies.
//
// It performs the following initialization steps:
//   - Configures logging based on the provided config
//   - Loads site profiles
//   - Opens and migrates the store
//   - Creates the page cache when enabled
//   - Creates the proxy pool, HTTP client and per-site rate limiter
//   - Creates the fetchers and the crawl orchestrator
//
// The browser is not started here; the dynamic fetcher starts it on first use.
// If any step fails, resources opened so far are released and an error is returned.
func New(ctx context.Context, cfg *config.Config) (*Application, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	logger := NewLogger(cfg.Log, os.Stderr)
	log.Logger = logger

	logger.Debug().
		Str("level", cfg.Log.Level).
		Bool("json", cfg.Log.JSON).
		Msg("Logger initialized")

	registry, err := loadSites(cfg)
	if err != nil {
		return nil, err
	}
	logger.Debug().Strs("sites", registry.IDs()).Msg("Site profiles loaded")

	a := &Application{
		Config:    cfg,
		Logger:    &logger,
		Sites:     registry,
		startTime: time.Now(),
	}

	a.Store, err = store.Open(ctx, cfg.Store.Driver, cfg.Store.DSN)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	logger.Debug().Str("driver", cfg.Store.Driver).Msg("Store opened")

	if cfg.Cache.Enabled {
		a.Cache, err = newCache(ctx, cfg)
		if err != nil {
			a.Store.Close()
			return nil, err
		}
		logger.Debug().
			Str("backend", cfg.Cache.Backend).
			Dur("ttl", cfg.Cache.TTL).
			Msg("Page cache initialized")
	}

	a.Proxies, err = proxy.NewProxyPool(cfg.Crawl.Proxies)
	if err != nil {
		a.release()
		return nil, err
	}

	// Per-request timeouts come from the fetchers' contexts
	a.HTTPClient = &http.Client{Transport: static.NewTransport(a.Proxies)}
	logger.Debug().
		Dur("timeout", cfg.Crawl.RequestTimeout).
		Int("proxies", a.Proxies.Len()).
		Msg("HTTP client initialized")

	a.RateLimiter = ratelimit.NewSiteLimiter(cfg.Crawl.RateInterval)
	logger.Debug().
		Dur("interval", cfg.Crawl.RateInterval).
		Msg("Rate limiter initialized")

	extra := headers.ParseHeaders(cfg.Crawl.Headers)

	var proxyPool *proxy.ProxyPool
	if a.Proxies.Len() > 0 {
		proxyPool = a.Proxies
	}
	a.StaticFetcher = static.New(a.HTTPClient, a.Cache, cfg.Cache.TTL, proxyPool, cfg.Crawl.RequestTimeout, cfg.Crawl.UserAgent)
	a.StaticFetcher.SetHeaders(extra)

	browserProxy := ""
	if len(cfg.Crawl.Proxies) > 0 {
		browserProxy = cfg.Crawl.Proxies[0]
	}
	a.DynamicFetcher = dynamic.New(dynamic.BrowserPoolOptions{
		Size:      cfg.Browser.PoolSize,
		Headless:  cfg.Browser.Headless,
		UserAgent: cfg.Crawl.UserAgent,
		Proxy:     browserProxy,
		ExecPath:  cfg.Browser.ChromePath,
	}, a.Cache, cfg.Cache.TTL, cfg.Crawl.RequestTimeout)
	a.DynamicFetcher.SetHeaders(extra)

	a.engineOpts = engine.Options{
		Fetchers: map[models.FetchMode]engine.Fetcher{
			models.ModeStatic:  a.StaticFetcher,
			models.ModeDynamic: a.DynamicFetcher,
			models.ModeAuto:    hybrid.New(a.StaticFetcher, a.DynamicFetcher, a.RateLimiter),
		},
		Limiter:         a.RateLimiter,
		Sites:           registry,
		Catalog:         a.Store,
		Sink:            a.Store,
		Matcher:         match.New(cfg.Crawl.Threshold),
		PolitenessDelay: cfg.Crawl.PolitenessDelay,
		RequestTimeout:  cfg.Crawl.RequestTimeout,
		Band:            price.Band{Min: cfg.Crawl.MinPrice, Max: cfg.Crawl.MaxPrice},
		Limit:           cfg.Crawl.MaxResults,
		Retry:           retryConfig(cfg.Crawl.RetryAttempts),
		Parallel:        cfg.Crawl.Parallel,
		Workers:         cfg.Crawl.Workers,
	}

	a.Orchestrator, err = engine.NewOrchestrator(a.engineOpts)
	if err != nil {
		a.release()
		return nil, err
	}

	logger.Info().Msg("Application initialized successfully")
	return a, nil
}

// NewOrchestrator builds an orchestrator sharing the application's
// collaborators, with a progress callback and parallel mode set per command
func (a *Application) NewOrchestrator(parallel bool, progress func(models.CrawlOutcome)) (*engine.Orchestrator, error) {
	opts := a.engineOpts
	opts.Parallel = opts.Parallel || parallel
	opts.Progress = progress
	return engine.NewOrchestrator(opts)
}

// NewLogger builds the process logger: JSON to w when configured,
// a console writer otherwise
func NewLogger(cfg config.LogConfig, w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if !cfg.JSON {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).With().Timestamp().Logger()
}

func loadSites(cfg *config.Config) (*sites.Registry, error) {
	registry := sites.Default()
	if cfg.SitesFile != "" {
		var err error
		registry, err = sites.LoadFile(cfg.SitesFile)
		if err != nil {
			return nil, fmt.Errorf("load sites: %w", err)
		}
	}
	if len(cfg.Crawl.Sites) > 0 {
		return registry.Filter(cfg.Crawl.Sites...)
	}
	return registry, nil
}

func newCache(ctx context.Context, cfg *config.Config) (cache.Cache, error) {
	if cfg.Cache.Backend == "redis" {
		rc, err := cache.NewRedisCache(ctx, cache.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		})
		if err != nil {
			return nil, fmt.Errorf("connect redis cache: %w", err)
		}
		return rc, nil
	}
	return cache.NewMemoryCache(cfg.Cache.MaxSizeBytes), nil
}

func retryConfig(attempts int) retry.Config {
	rc := retry.DefaultConfig()
	rc.MaxAttempts = attempts
	return rc
}

func (a *Application) release() {
	if a.Cache != nil {
		a.Cache.Close()
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Error closing store")
		}
	}
}

// Close gracefully shuts down the application and all its resources.
//
// It performs the following cleanup steps in order:
//   - Closes the browser pool if it was started
//   - Closes the cache
//   - Closes the store
//   - Closes idle HTTP connections
//
// Any errors during shutdown are logged but do not prevent other shutdown steps.
func (a *Application) Close(ctx context.Context) error {
	a.Logger.Debug().Msg("Shutting down application")

	if a.DynamicFetcher != nil {
		if err := a.DynamicFetcher.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Error closing browser pool")
		}
	}

	a.release()

	if a.HTTPClient != nil {
		a.HTTPClient.CloseIdleConnections()
	}

	a.Logger.Debug().Dur("uptime", a.Uptime()).Msg("Application shutdown complete")
	return nil
}

// Uptime returns how long the application has been running.
func (a *Application) Uptime() time.Duration {
	return time.Since(a.startTime)
}
