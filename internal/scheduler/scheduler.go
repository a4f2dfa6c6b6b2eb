// Package scheduler runs crawl passes on a fixed cadence.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/robfig/cron"
	"github.com/rs/zerolog/log"

	"github.com/law-makers/pricewatch/internal/engine"
	"github.com/law-makers/pricewatch/pkg/models"
)

// DefaultSpec refreshes prices every 15 minutes
const DefaultSpec = "@every 15m"

// Crawler runs one full crawl pass
type Crawler interface {
	RunCrawl(ctx context.Context, componentID *int64) ([]models.CrawlOutcome, engine.PassReport, error)
}

// Scheduler triggers RunCrawl on a cron schedule. A tick that arrives while
// a pass is still running is skipped.
type Scheduler struct {
	crawler Crawler
	spec    string
	cron    *cron.Cron

	running atomic.Bool
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc

	// OnPass is called after every completed pass
	OnPass func(engine.PassReport, error)
}

// New validates spec and creates a stopped scheduler
func New(crawler Crawler, spec string) (*Scheduler, error) {
	if spec == "" {
		spec = DefaultSpec
	}
	if _, err := cron.Parse(spec); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return &Scheduler{crawler: crawler, spec: spec}, nil
}

// Spec returns the schedule expression
func (s *Scheduler) Spec() string {
	return s.spec
}

// Start begins scheduling passes. Passes run with a context derived from ctx.
func (s *Scheduler) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.cron = cron.New()
	if err := s.cron.AddFunc(s.spec, func() { s.Trigger() }); err != nil {
		s.cancel()
		return fmt.Errorf("schedule crawl: %w", err)
	}
	s.cron.Start()

	log.Info().Str("schedule", s.spec).Msg("Scheduler started")
	return nil
}

// Trigger runs a pass now unless one is already running. It reports whether
// a pass was started.
func (s *Scheduler) Trigger() bool {
	if !s.running.CompareAndSwap(false, true) {
		log.Warn().Msg("Previous crawl pass still running, skipping tick")
		return false
	}

	s.wg.Add(1)
	defer s.wg.Done()
	defer s.running.Store(false)

	ctx := s.ctx
	if ctx == nil {
		ctx = context.Background()
	}

	_, report, err := s.crawler.RunCrawl(ctx, nil)
	if err != nil {
		log.Error().Err(err).Msg("Scheduled crawl failed")
	} else {
		log.Info().
			Str("run_id", report.RunID).
			Int("successes", report.Successes).
			Int("failures", report.Failures).
			Dur("duration", report.Duration()).
			Msg("Scheduled crawl completed")
	}

	if s.OnPass != nil {
		s.OnPass(report, err)
	}
	return true
}

// Running reports whether a pass is in progress
func (s *Scheduler) Running() bool {
	return s.running.Load()
}

// Stop halts the schedule, cancels a running pass and waits for it to return
func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	log.Info().Msg("Scheduler stopped")
}

// Run starts the scheduler and blocks until ctx is cancelled
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	s.Stop()
	return nil
}
