package app

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/law-makers/pricewatch/internal/config"
	"github.com/law-makers/pricewatch/pkg/models"
)

func testConfig() *config.Config {
	return &config.Config{
		Log:   config.LogConfig{Level: "error"},
		Store: config.StoreConfig{Driver: "memory"},
		Cache: config.CacheConfig{
			Enabled:      true,
			Backend:      "memory",
			TTL:          time.Minute,
			MaxSizeBytes: 1 << 20,
		},
		Crawl: config.CrawlConfig{
			Threshold:       config.DefaultThreshold,
			PolitenessDelay: 0,
			RateInterval:    time.Millisecond,
			RequestTimeout:  time.Second,
			MaxResults:      5,
			MinPrice:        1000,
			MaxPrice:        500000,
			RetryAttempts:   1,
			Workers:         2,
		},
		Browser: config.BrowserConfig{PoolSize: 1, Headless: true},
	}
}

func TestNew_WiresDependencies(t *testing.T) {
	a, err := New(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer a.Close(context.Background())

	if a.Store == nil || a.Cache == nil || a.Orchestrator == nil {
		t.Fatal("expected store, cache and orchestrator to be initialized")
	}
	if a.DynamicFetcher.Started() {
		t.Error("browser should start lazily")
	}
	if len(a.Sites.IDs()) == 0 {
		t.Error("expected default site profiles")
	}
	if a.Uptime() < 0 {
		t.Error("uptime should not be negative")
	}
}

func TestNew_FiltersSites(t *testing.T) {
	cfg := testConfig()
	cfg.Crawl.Sites = []string{"amazon_in"}

	a, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer a.Close(context.Background())

	if ids := a.Sites.IDs(); len(ids) != 1 || ids[0] != "amazon_in" {
		t.Errorf("sites = %v, want [amazon_in]", ids)
	}
}

func TestNew_Errors(t *testing.T) {
	if _, err := New(context.Background(), nil); err == nil {
		t.Error("expected error for nil config")
	}

	cfg := testConfig()
	cfg.Crawl.Sites = []string{"nosuchshop"}
	if _, err := New(context.Background(), cfg); err == nil {
		t.Error("expected error for unknown site")
	}

	cfg = testConfig()
	cfg.Crawl.Proxies = []string{"ftp://proxy.example:21"}
	if _, err := New(context.Background(), cfg); err == nil {
		t.Error("expected error for unsupported proxy scheme")
	}
}

func TestNewOrchestrator_Progress(t *testing.T) {
	a, err := New(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer a.Close(context.Background())

	o, err := a.NewOrchestrator(true, func(models.CrawlOutcome) {})
	if err != nil {
		t.Fatalf("NewOrchestrator failed: %v", err)
	}
	if o == nil {
		t.Fatal("expected orchestrator")
	}
}

func TestNewLogger(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var buf bytes.Buffer
	logger := NewLogger(config.LogConfig{Level: "warn", JSON: true}, &buf)
	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info message should be filtered at warn level")
	}
	if !strings.Contains(out, `"message":"shown"`) {
		t.Errorf("expected JSON warn line, got %q", out)
	}
}

func TestNew_ZeroThresholdReachesMatcher(t *testing.T) {
	cfg := testConfig()
	cfg.Crawl.Threshold = 0

	a, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer a.Close(context.Background())

	if got := a.engineOpts.Matcher.Threshold(); got != 0 {
		t.Errorf("matcher threshold = %v, want 0", got)
	}
}
