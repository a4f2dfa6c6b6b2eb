package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	RegisterFlags(cmd)
	cmd.Flags().Bool("parallel", false, "")
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultLogLevel, cfg.Log.Level)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, DefaultPolitenessDelay, cfg.Crawl.PolitenessDelay)
	assert.Equal(t, DefaultRateInterval, cfg.Crawl.RateInterval)
	assert.Equal(t, DefaultMaxResults, cfg.Crawl.MaxResults)
	assert.Equal(t, 0.2, cfg.Crawl.Threshold)
	assert.Equal(t, 1, cfg.Crawl.RetryAttempts)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, "@every 15m", cfg.Server.Schedule)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("PRICEWATCH_STORE_DRIVER", "memory")
	t.Setenv("PRICEWATCH_CRAWL_POLITENESS_DELAY", "500ms")
	t.Setenv("PRICEWATCH_CACHE_BACKEND", "redis")

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, 500*time.Millisecond, cfg.Crawl.PolitenessDelay)
	assert.Equal(t, "redis", cfg.Cache.Backend)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pricewatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
store:
  driver: postgres
  dsn: postgres://localhost/pricewatch
crawl:
  max_results: 8
  max_price: 250000
  headers:
    - "Accept-Language: hi-IN"
`), 0o644))

	cfg, err := Load(newCmd(t, "--config", path))
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/pricewatch", cfg.Store.DSN)
	assert.Equal(t, 8, cfg.Crawl.MaxResults)
	assert.Equal(t, 250000.0, cfg.Crawl.MaxPrice)
	assert.Equal(t, []string{"Accept-Language: hi-IN"}, cfg.Crawl.Headers)
}

func TestLoad_FlagsWin(t *testing.T) {
	t.Setenv("PRICEWATCH_STORE_DRIVER", "sqlite")

	cfg, err := Load(newCmd(t,
		"--store", "memory",
		"--timeout", "5s",
		"--proxy", "http://p1:8080",
		"--proxy", "socks5://p2:1080",
		"--parallel",
		"--verbose",
	))
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, 5*time.Second, cfg.Crawl.RequestTimeout)
	assert.Equal(t, []string{"http://p1:8080", "socks5://p2:1080"}, cfg.Crawl.Proxies)
	assert.True(t, cfg.Crawl.Parallel)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	_, err := Load(newCmd(t, "--config", filepath.Join(t.TempDir(), "nope.yaml")))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"log level", func(c *Config) { c.Log.Level = "loud" }, "log level"},
		{"store driver", func(c *Config) { c.Store.Driver = "mongo" }, "store driver"},
		{"store dsn", func(c *Config) { c.Store.DSN = "" }, "dsn"},
		{"cache backend", func(c *Config) { c.Cache.Backend = "disk" }, "cache backend"},
		{"threshold", func(c *Config) { c.Crawl.Threshold = 1.5 }, "threshold"},
		{"max results low", func(c *Config) { c.Crawl.MaxResults = 2 }, "max results"},
		{"max results high", func(c *Config) { c.Crawl.MaxResults = 9 }, "max results"},
		{"price band", func(c *Config) { c.Crawl.MinPrice, c.Crawl.MaxPrice = 5000, 1000 }, "max price"},
		{"retry", func(c *Config) { c.Crawl.RetryAttempts = 0 }, "retry"},
		{"rate interval", func(c *Config) { c.Crawl.RateInterval = 0 }, "rate interval"},
		{"browser pool", func(c *Config) { c.Browser.PoolSize = 20 }, "browser pool"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := Load(nil)
			require.NoError(t, err)
			tc.mutate(cfg)

			err = validate(cfg)
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tc.want), "error %q should mention %q", err, tc.want)
		})
	}
}

func TestValidate_MemoryStoreNeedsNoDSN(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)
	cfg.Store.Driver = "memory"
	cfg.Store.DSN = ""
	assert.NoError(t, validate(cfg))
}
