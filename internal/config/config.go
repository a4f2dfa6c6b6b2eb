package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. PRICEWATCH_STORE_DRIVER
const EnvPrefix = "PRICEWATCH"

// Config holds application configuration values
type Config struct {
	Log       LogConfig     `mapstructure:"log"`
	SitesFile string        `mapstructure:"sites_file"`
	Store     StoreConfig   `mapstructure:"store"`
	Cache     CacheConfig   `mapstructure:"cache"`
	Redis     RedisConfig   `mapstructure:"redis"`
	Crawl     CrawlConfig   `mapstructure:"crawl"`
	Browser   BrowserConfig `mapstructure:"browser"`
	Server    ServerConfig  `mapstructure:"server"`
}

// LogConfig configures zerolog
type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// StoreConfig selects the catalog and price store
type StoreConfig struct {
	Driver string `mapstructure:"driver"` // memory, sqlite or postgres
	DSN    string `mapstructure:"dsn"`
}

// CacheConfig configures the page cache
type CacheConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Backend      string        `mapstructure:"backend"` // memory or redis
	TTL          time.Duration `mapstructure:"ttl"`
	MaxSizeBytes int64         `mapstructure:"max_size_bytes"`
}

// RedisConfig is used when the cache backend is redis
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// CrawlConfig tunes the crawl pass
type CrawlConfig struct {
	Threshold       float64       `mapstructure:"threshold"`
	PolitenessDelay time.Duration `mapstructure:"politeness_delay"`
	RateInterval    time.Duration `mapstructure:"rate_interval"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	MaxResults      int           `mapstructure:"max_results"`
	MinPrice        float64       `mapstructure:"min_price"`
	MaxPrice        float64       `mapstructure:"max_price"`
	RetryAttempts   int           `mapstructure:"retry_attempts"`
	Parallel        bool          `mapstructure:"parallel"`
	Workers         int           `mapstructure:"workers"`
	Sites           []string      `mapstructure:"sites"`
	Proxies         []string      `mapstructure:"proxies"`
	UserAgent       string        `mapstructure:"user_agent"`
	Headers         []string      `mapstructure:"headers"` // "Key: Value"
}

// BrowserConfig configures headless Chrome for dynamic sites
type BrowserConfig struct {
	PoolSize   int    `mapstructure:"pool_size"`
	Headless   bool   `mapstructure:"headless"`
	ChromePath string `mapstructure:"chrome_path"`
}

// ServerConfig configures the serve command
type ServerConfig struct {
	Addr           string   `mapstructure:"addr"`
	Schedule       string   `mapstructure:"schedule"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// flagKeys maps CLI flags to config keys
var flagKeys = map[string]string{
	"log-level":  "log.level",
	"json":       "log.json",
	"sites":      "sites_file",
	"store":      "store.driver",
	"dsn":        "store.dsn",
	"cache":      "cache.enabled",
	"timeout":    "crawl.request_timeout",
	"user-agent": "crawl.user_agent",
	"proxy":      "crawl.proxies",
	"parallel":   "crawl.parallel",
	"site":       "crawl.sites",
	"header":     "crawl.headers",
	"addr":       "server.addr",
	"schedule":   "server.schedule",
}

// Load builds a Config by combining defaults, an optional config file,
// PRICEWATCH_* environment variables, and CLI flags.
// Caller should pass the executing *cobra.Command so flags can be read.
func Load(cmd *cobra.Command) (*Config, error) {
	v := viper.New()

	v.SetConfigName("pricewatch")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/pricewatch")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if cmd != nil {
		if f := cmd.Flags().Lookup("config"); f != nil && f.Value.String() != "" {
			v.SetConfigFile(f.Value.String())
		}
		for name, key := range flagKeys {
			if f := cmd.Flags().Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if cmd != nil {
		if f := cmd.Flags().Lookup("verbose"); f != nil && f.Value.String() == "true" {
			cfg.Log.Level = "debug"
		}
		if f := cmd.Flags().Lookup("quiet"); f != nil && f.Value.String() == "true" {
			cfg.Log.Level = "error"
		}
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.json", DefaultJSONLog)
	v.SetDefault("sites_file", "")

	v.SetDefault("store.driver", DefaultStoreDriver)
	v.SetDefault("store.dsn", DefaultStoreDSN)

	v.SetDefault("cache.enabled", DefaultCacheEnabled)
	v.SetDefault("cache.backend", DefaultCacheBackend)
	v.SetDefault("cache.ttl", DefaultCacheTTL)
	v.SetDefault("cache.max_size_bytes", DefaultCacheMaxSizeBytes)

	v.SetDefault("redis.addr", DefaultRedisAddr)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", DefaultRedisPrefix)

	v.SetDefault("crawl.threshold", DefaultThreshold)
	v.SetDefault("crawl.politeness_delay", DefaultPolitenessDelay)
	v.SetDefault("crawl.rate_interval", DefaultRateInterval)
	v.SetDefault("crawl.request_timeout", DefaultRequestTimeout)
	v.SetDefault("crawl.max_results", DefaultMaxResults)
	v.SetDefault("crawl.min_price", DefaultMinPrice)
	v.SetDefault("crawl.max_price", DefaultMaxPrice)
	v.SetDefault("crawl.retry_attempts", DefaultRetryAttempts)
	v.SetDefault("crawl.parallel", false)
	v.SetDefault("crawl.workers", 0)
	v.SetDefault("crawl.sites", []string{})
	v.SetDefault("crawl.proxies", []string{})
	v.SetDefault("crawl.user_agent", "")
	v.SetDefault("crawl.headers", []string{})

	v.SetDefault("browser.pool_size", DefaultBrowserPoolSize)
	v.SetDefault("browser.headless", DefaultBrowserHeadless)
	v.SetDefault("browser.chrome_path", "")

	v.SetDefault("server.addr", DefaultServerAddr)
	v.SetDefault("server.schedule", DefaultSchedule)
	v.SetDefault("server.allowed_origins", []string{"*"})
}
