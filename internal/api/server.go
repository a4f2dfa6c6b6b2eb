// Package api exposes the crawler and catalog over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"

	"github.com/law-makers/pricewatch/internal/engine"
	"github.com/law-makers/pricewatch/internal/store"
	"github.com/law-makers/pricewatch/pkg/models"
)

// DefaultRequestTimeout bounds synchronous handlers such as best-price
const DefaultRequestTimeout = 5 * time.Minute

// Crawler is the part of the orchestrator the API drives
type Crawler interface {
	RunCrawl(ctx context.Context, componentID *int64) ([]models.CrawlOutcome, engine.PassReport, error)
	GetBestPrice(ctx context.Context, componentID int64) (models.CrawlOutcome, error)
	SupportedSites() []string
}

// Options tunes the server
type Options struct {
	RequestTimeout time.Duration
	AllowedOrigins []string
}

// Server holds the HTTP handlers and tracks background crawls
type Server struct {
	crawler Crawler
	store   store.Store
	opts    Options

	// base outlives requests; background crawls run under it
	base   context.Context
	cancel context.CancelFunc
	bg     sync.WaitGroup
}

// NewServer creates a server. Call Close to cancel background crawls.
func NewServer(crawler Crawler, st store.Store, opts Options) *Server {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	base, cancel := context.WithCancel(context.Background())
	return &Server{crawler: crawler, store: st, opts: opts, base: base, cancel: cancel}
}

// Handler returns the routed handler
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.opts.RequestTimeout))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/health", s.health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/crawler", func(r chi.Router) {
			r.Post("/crawl", s.startCrawl)
			r.Get("/best-price/{id}", s.bestPrice)
			r.Get("/supported-sites", s.supportedSites)
		})
		r.Route("/components", func(r chi.Router) {
			r.Get("/", s.listComponents)
			r.Post("/", s.createComponent)
			r.Get("/{id}", s.getComponent)
			r.Get("/{id}/price-history", s.priceHistory)
		})
	})

	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully and cancels background crawls
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("API listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.Close()
	log.Info().Msg("API stopped")
	return err
}

// Close cancels background crawls and waits for them to return
func (s *Server) Close() {
	s.cancel()
	s.bg.Wait()
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		log.Debug().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("HTTP request")
	})
}
