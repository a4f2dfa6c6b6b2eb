package static

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/law-makers/pricewatch/internal/cache"
	"github.com/law-makers/pricewatch/internal/engine"
	"github.com/law-makers/pricewatch/internal/proxy"
	"github.com/law-makers/pricewatch/pkg/models"
)

const resultsHTML = `<!DOCTYPE html>
<html><body>
<div class="result"><h2>NVIDIA GeForce RTX 4070</h2><span class="price">₹54,999</span></div>
</body></html>`

func newFetcher() *Fetcher {
	return New(&http.Client{}, nil, 0, nil, 5*time.Second, "")
}

func reasonOf(t *testing.T, err error) engine.ErrorCode {
	t.Helper()
	var ee *engine.EngineError
	if !errors.As(err, &ee) {
		t.Fatalf("expected *engine.EngineError, got %T: %v", err, err)
	}
	return ee.Code
}

func TestFetcher_Fetch_BasicHTML(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(resultsHTML))
	}))
	defer server.Close()

	doc, err := newFetcher().Fetch(context.Background(), models.RequestOptions{URL: server.URL})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if got := doc.Find("div.result h2").Text(); got != "NVIDIA GeForce RTX 4070" {
		t.Errorf("unexpected title %q", got)
	}
	if got := doc.Find("span.price").Text(); got != "₹54,999" {
		t.Errorf("unexpected price %q", got)
	}
}

func TestFetcher_Fetch_SendsBrowserHeaders(t *testing.T) {
	var got http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Write([]byte(resultsHTML))
	}))
	defer server.Close()

	_, err := newFetcher().Fetch(context.Background(), models.RequestOptions{
		URL:     server.URL,
		Headers: map[string]string{"Accept-Language": "hi-IN", "X-Site": "shop"},
	})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if ua := got.Get("User-Agent"); ua == "" || ua == "Go-http-client/1.1" {
		t.Errorf("expected browser user agent, got %q", ua)
	}
	if got.Get("DNT") != "1" {
		t.Errorf("expected DNT header")
	}
	if got.Get("Accept-Language") != "hi-IN" {
		t.Errorf("profile header should override default, got %q", got.Get("Accept-Language"))
	}
	if got.Get("X-Site") != "shop" {
		t.Errorf("missing profile header")
	}
}

func TestFetcher_Fetch_DecodesCharset(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		// "Café" in Latin-1
		w.Write([]byte("<html><body><h2>Caf\xe9</h2></body></html>"))
	}))
	defer server.Close()

	doc, err := newFetcher().Fetch(context.Background(), models.RequestOptions{URL: server.URL})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if got := doc.Find("h2").Text(); got != "Café" {
		t.Errorf("expected decoded text, got %q", got)
	}
}

func TestFetcher_Fetch_HTTPStatus(t *testing.T) {
	testCases := []struct {
		status    int
		retryable bool
	}{
		{http.StatusNotFound, false},
		{http.StatusForbidden, false},
		{http.StatusTooManyRequests, true},
		{http.StatusServiceUnavailable, true},
	}

	for _, tc := range testCases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			}))
			defer server.Close()

			_, err := newFetcher().Fetch(context.Background(), models.RequestOptions{URL: server.URL})
			if reasonOf(t, err) != engine.ErrCodeHTTPStatus {
				t.Fatalf("expected HTTP_STATUS, got %v", err)
			}
			var ee *engine.EngineError
			errors.As(err, &ee)
			if ee.GetStatusCode() != tc.status {
				t.Errorf("status = %d, want %d", ee.GetStatusCode(), tc.status)
			}
			if ee.Retryable() != tc.retryable {
				t.Errorf("retryable = %v, want %v", ee.Retryable(), tc.retryable)
			}
		})
	}
}

func TestFetcher_Fetch_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer server.Close()

	_, err := newFetcher().Fetch(context.Background(), models.RequestOptions{
		URL:     server.URL,
		Timeout: 50 * time.Millisecond,
	})
	if reasonOf(t, err) != engine.ErrCodeTimeout {
		t.Errorf("expected TIMEOUT, got %v", err)
	}
}

func TestFetcher_Fetch_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := newFetcher().Fetch(context.Background(), models.RequestOptions{URL: url})
	if reasonOf(t, err) != engine.ErrCodeNetworkError {
		t.Errorf("expected NETWORK_ERROR, got %v", err)
	}
}

func TestFetcher_Fetch_UsesCache(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Write([]byte(resultsHTML))
	}))
	defer server.Close()

	mc := cache.NewMemoryCache(1 << 20)
	defer mc.Close()
	f := New(&http.Client{}, mc, time.Minute, nil, 5*time.Second, "")

	for i := 0; i < 3; i++ {
		doc, err := f.Fetch(context.Background(), models.RequestOptions{URL: server.URL})
		if err != nil {
			t.Fatalf("Fetch %d failed: %v", i, err)
		}
		if doc.Find("div.result").Length() != 1 {
			t.Errorf("Fetch %d: cached document lost content", i)
		}
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Errorf("server hits = %d, want 1", n)
	}
}

func TestFetcher_Fetch_RotatesProxies(t *testing.T) {
	// The proxy answers for any absolute-form request it receives
	var proxied int32
	live := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&proxied, 1)
		w.Write([]byte(resultsHTML))
	}))
	defer live.Close()

	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()

	pool, err := proxy.NewProxyPool([]string{deadURL, live.URL})
	if err != nil {
		t.Fatalf("NewProxyPool failed: %v", err)
	}
	client := &http.Client{Transport: NewTransport(pool)}
	f := New(client, nil, 0, pool, 5*time.Second, "")
	opts := models.RequestOptions{URL: "http://shop.example.invalid/s?k=rtx"}

	if _, err := f.Fetch(context.Background(), opts); err == nil {
		t.Fatal("expected first fetch through the dead proxy to fail")
	}
	for i := 0; i < 2; i++ {
		if _, err := f.Fetch(context.Background(), opts); err != nil {
			t.Fatalf("fetch %d should skip the failed proxy: %v", i, err)
		}
	}
	if n := atomic.LoadInt32(&proxied); n != 2 {
		t.Errorf("live proxy requests = %d, want 2", n)
	}
}
