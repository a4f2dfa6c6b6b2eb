package config

import (
	"fmt"

	"github.com/rs/zerolog"
)

func validate(c *Config) error {
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("unknown log level %q", c.Log.Level)
	}

	switch c.Store.Driver {
	case "memory":
	case "sqlite", "postgres":
		if c.Store.DSN == "" {
			return fmt.Errorf("store dsn is required for driver %s", c.Store.Driver)
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}

	if c.Cache.Backend != "memory" && c.Cache.Backend != "redis" {
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	if c.Cache.Enabled && c.Cache.TTL <= 0 {
		return fmt.Errorf("cache ttl must be > 0")
	}
	if c.Cache.MaxSizeBytes <= 0 {
		return fmt.Errorf("cache max size must be > 0")
	}

	if c.Crawl.Threshold < 0 || c.Crawl.Threshold > 1 {
		return fmt.Errorf("match threshold must be between 0 and 1")
	}
	if c.Crawl.PolitenessDelay < 0 {
		return fmt.Errorf("politeness delay must be >= 0")
	}
	if c.Crawl.RateInterval <= 0 {
		return fmt.Errorf("rate interval must be > 0")
	}
	if c.Crawl.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be > 0")
	}
	if c.Crawl.MaxResults < MinMaxResults || c.Crawl.MaxResults > MaxMaxResults {
		return fmt.Errorf("max results must be between %d and %d", MinMaxResults, MaxMaxResults)
	}
	if c.Crawl.MinPrice < 0 || c.Crawl.MaxPrice < 0 {
		return fmt.Errorf("price bounds must be >= 0")
	}
	if c.Crawl.MaxPrice > 0 && c.Crawl.MaxPrice <= c.Crawl.MinPrice {
		return fmt.Errorf("max price must be greater than min price")
	}
	if c.Crawl.RetryAttempts < 1 || c.Crawl.RetryAttempts > MaxRetryAttempts {
		return fmt.Errorf("retry attempts must be between 1 and %d", MaxRetryAttempts)
	}
	if c.Crawl.Workers < 0 {
		return fmt.Errorf("workers must be >= 0")
	}

	if c.Browser.PoolSize <= 0 || c.Browser.PoolSize > DefaultMaxBrowserPoolSize {
		return fmt.Errorf("browser pool size must be between 1 and %d", DefaultMaxBrowserPoolSize)
	}

	if c.Server.Addr == "" {
		return fmt.Errorf("server address is required")
	}
	return nil
}
