package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/law-makers/pricewatch/internal/engine"
	"github.com/law-makers/pricewatch/internal/reqctx"
	"github.com/law-makers/pricewatch/internal/store"
	"github.com/law-makers/pricewatch/pkg/models"
)

type fakeCrawler struct {
	mu     sync.Mutex
	runs   []string
	ids    []*int64
	done   chan struct{}
	best   models.CrawlOutcome
	bestEr error
}

func (f *fakeCrawler) RunCrawl(ctx context.Context, id *int64) ([]models.CrawlOutcome, engine.PassReport, error) {
	f.mu.Lock()
	f.runs = append(f.runs, reqctx.GetRun(ctx).RunID)
	f.ids = append(f.ids, id)
	f.mu.Unlock()
	if f.done != nil {
		f.done <- struct{}{}
	}
	return nil, engine.PassReport{}, nil
}

func (f *fakeCrawler) GetBestPrice(ctx context.Context, id int64) (models.CrawlOutcome, error) {
	return f.best, f.bestEr
}

func (f *fakeCrawler) SupportedSites() []string {
	return []string{"amazon_in", "mdcomputers"}
}

func newTestServer(t *testing.T, crawler *fakeCrawler) (*httptest.Server, store.Store) {
	t.Helper()
	st := store.NewMemory()
	if _, err := st.AddComponent(context.Background(), models.CatalogItem{
		Name: "GeForce RTX 4070", Manufacturer: "NVIDIA", Category: "GPU",
	}); err != nil {
		t.Fatal(err)
	}

	srv := NewServer(crawler, st, Options{})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		srv.Close()
	})
	return ts, st
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t, &fakeCrawler{})

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	var body map[string]interface{}
	decode(t, resp, &body)
	if body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestStartCrawl_RunsInBackground(t *testing.T) {
	crawler := &fakeCrawler{done: make(chan struct{}, 1)}
	ts, _ := newTestServer(t, crawler)

	resp, err := http.Post(ts.URL+"/api/v1/crawler/crawl?component_id=1", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}
	var body crawlResponse
	decode(t, resp, &body)
	if body.RunID == "" || body.Status != "processing" {
		t.Fatalf("unexpected body %+v", body)
	}

	select {
	case <-crawler.done:
	case <-time.After(2 * time.Second):
		t.Fatal("background crawl did not run")
	}

	crawler.mu.Lock()
	defer crawler.mu.Unlock()
	if crawler.runs[0] != body.RunID {
		t.Errorf("crawl ran as %q, response said %q", crawler.runs[0], body.RunID)
	}
	if crawler.ids[0] == nil || *crawler.ids[0] != 1 {
		t.Errorf("crawl should be scoped to component 1")
	}
}

func TestStartCrawl_Validation(t *testing.T) {
	ts, _ := newTestServer(t, &fakeCrawler{})

	testCases := []struct {
		query  string
		status int
	}{
		{"component_id=abc", http.StatusBadRequest},
		{"component_id=99", http.StatusNotFound},
	}
	for _, tc := range testCases {
		resp, err := http.Post(ts.URL+"/api/v1/crawler/crawl?"+tc.query, "application/json", nil)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != tc.status {
			t.Errorf("%s: status = %d, want %d", tc.query, resp.StatusCode, tc.status)
		}
	}
}

func TestBestPrice(t *testing.T) {
	crawler := &fakeCrawler{best: models.CrawlOutcome{
		ComponentID: 1,
		SiteID:      "amazon_in",
		Success:     &models.Success{Price: 54999, Currency: "₹", URL: "https://www.amazon.in/dp/B0C"},
	}}
	ts, _ := newTestServer(t, crawler)

	resp, err := http.Get(ts.URL + "/api/v1/crawler/best-price/1")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var out models.CrawlOutcome
	decode(t, resp, &out)
	if out.Success == nil || out.Success.Price != 54999 {
		t.Errorf("unexpected outcome %+v", out)
	}
}

func TestBestPrice_Unavailable(t *testing.T) {
	testCases := []struct {
		name   string
		err    error
		status int
	}{
		{"no prices", engine.ErrNoValidPrices, http.StatusOK},
		{"crawl trouble", fmt.Errorf("load catalog: %w", context.DeadlineExceeded), http.StatusOK},
		{"unknown component", fmt.Errorf("component 9: %w", engine.ErrComponentNotFound), http.StatusNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ts, _ := newTestServer(t, &fakeCrawler{bestEr: tc.err})

			resp, err := http.Get(ts.URL + "/api/v1/crawler/best-price/1")
			if err != nil {
				t.Fatal(err)
			}
			if resp.StatusCode != tc.status {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tc.status)
			}
			if tc.status != http.StatusOK {
				resp.Body.Close()
				return
			}
			var body map[string]interface{}
			decode(t, resp, &body)
			if body["available"] != false || body["reason"] == "" {
				t.Errorf("unexpected body %v", body)
			}
		})
	}
}

func TestSupportedSites(t *testing.T) {
	ts, _ := newTestServer(t, &fakeCrawler{})

	resp, err := http.Get(ts.URL + "/api/v1/crawler/supported-sites")
	if err != nil {
		t.Fatal(err)
	}
	var body map[string][]string
	decode(t, resp, &body)
	if len(body["sites"]) != 2 || body["sites"][0] != "amazon_in" {
		t.Errorf("sites = %v", body["sites"])
	}
}

func TestComponents_CreateAndList(t *testing.T) {
	ts, _ := newTestServer(t, &fakeCrawler{})

	resp, err := http.Post(ts.URL+"/api/v1/components", "application/json",
		strings.NewReader(`{"name":"Ryzen 7 7800X3D","manufacturer":"AMD","category":"CPU"}`))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	var created models.CatalogItem
	decode(t, resp, &created)
	if created.ID != 2 || created.Category != "CPU" {
		t.Errorf("created = %+v", created)
	}

	resp, err = http.Get(ts.URL + "/api/v1/components?category=CPU")
	if err != nil {
		t.Fatal(err)
	}
	var items []models.CatalogItem
	decode(t, resp, &items)
	if len(items) != 1 || items[0].Name != "Ryzen 7 7800X3D" {
		t.Errorf("filtered items = %+v", items)
	}

	resp, err = http.Get(ts.URL + "/api/v1/components/2")
	if err != nil {
		t.Fatal(err)
	}
	var one models.CatalogItem
	decode(t, resp, &one)
	if one != created {
		t.Errorf("get = %+v, want %+v", one, created)
	}
}

func TestComponents_CreateInvalid(t *testing.T) {
	ts, _ := newTestServer(t, &fakeCrawler{})

	for _, body := range []string{`{not json`, `{"name":"","category":"GPU"}`} {
		resp, err := http.Post(ts.URL+"/api/v1/components", "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", body, resp.StatusCode)
		}
	}
}

func TestPriceHistory(t *testing.T) {
	ts, st := newTestServer(t, &fakeCrawler{})
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, p := range []float64{56000, 55000, 54000} {
		if _, err := st.RecordPrice(ctx, 1, p, "amazon_in", "", base.Add(time.Duration(i)*time.Hour)); err != nil {
			t.Fatal(err)
		}
	}

	resp, err := http.Get(ts.URL + "/api/v1/components/1/price-history?limit=2")
	if err != nil {
		t.Fatal(err)
	}
	var history []models.PriceRecord
	decode(t, resp, &history)
	if len(history) != 2 || history[0].Price != 54000 {
		t.Errorf("history = %+v", history)
	}

	testCases := []struct {
		path   string
		status int
	}{
		{"/api/v1/components/99/price-history", http.StatusNotFound},
		{"/api/v1/components/1/price-history?limit=0", http.StatusBadRequest},
		{"/api/v1/components/x/price-history", http.StatusBadRequest},
	}
	for _, tc := range testCases {
		resp, err := http.Get(ts.URL + tc.path)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != tc.status {
			t.Errorf("%s: status = %d, want %d", tc.path, resp.StatusCode, tc.status)
		}
	}
}
