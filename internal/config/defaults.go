package config

import (
	"time"

	"github.com/law-makers/pricewatch/internal/sites"
)

// Default constants for application configuration
const (
	DefaultLogLevel = "info"
	DefaultJSONLog  = false

	DefaultStoreDriver = "sqlite"
	DefaultStoreDSN    = "pricewatch.db"

	DefaultCacheEnabled      = false
	DefaultCacheBackend      = "memory"
	DefaultCacheTTL          = 5 * time.Minute
	DefaultCacheMaxSizeBytes = 64 * 1024 * 1024 // 64MB
	DefaultRedisAddr         = "localhost:6379"
	DefaultRedisPrefix       = "pricewatch:"

	DefaultThreshold       = 0.2
	DefaultPolitenessDelay = 2 * time.Second
	DefaultRateInterval    = 10 * time.Second
	DefaultRequestTimeout  = 30 * time.Second
	DefaultMaxResults      = 5
	MinMaxResults          = sites.MinPageResults
	MaxMaxResults          = sites.MaxPageResults
	DefaultMinPrice        = 1000.0
	DefaultMaxPrice        = 500000.0
	DefaultRetryAttempts   = 1
	MaxRetryAttempts       = 10

	DefaultBrowserPoolSize    = 2
	DefaultMaxBrowserPoolSize = 8
	DefaultBrowserHeadless    = true

	DefaultServerAddr = ":8080"
	DefaultSchedule   = "@every 15m"
)
