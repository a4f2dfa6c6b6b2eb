package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/law-makers/pricewatch/internal/engine/batch"
	"github.com/law-makers/pricewatch/internal/engine/extract"
	"github.com/law-makers/pricewatch/internal/engine/match"
	"github.com/law-makers/pricewatch/internal/engine/price"
	"github.com/law-makers/pricewatch/internal/engine/search"
	"github.com/law-makers/pricewatch/internal/ratelimit"
	"github.com/law-makers/pricewatch/internal/reqctx"
	"github.com/law-makers/pricewatch/internal/retry"
	"github.com/law-makers/pricewatch/internal/sites"
	"github.com/law-makers/pricewatch/pkg/models"
)

// DefaultPolitenessDelay is the pause between two fetches of one pass
const DefaultPolitenessDelay = 2 * time.Second

// Options wires the orchestrator's collaborators. Fetchers, Limiter, Sites
// and Catalog are required; the rest have defaults.
type Options struct {
	Fetchers map[models.FetchMode]Fetcher
	Limiter  ratelimit.RateLimiter
	Sites    *sites.Registry
	Catalog  Catalog
	// Sink may be nil, in which case prices are reported but not persisted
	Sink Sink

	Builder *search.Builder
	Matcher *match.Matcher

	PolitenessDelay time.Duration
	RequestTimeout  time.Duration
	Band            price.Band
	// Limit is the candidate count taken from each results page
	Limit int
	Retry retry.Config

	// Parallel runs one worker per site; Workers caps how many run at once
	Parallel bool
	Workers  int

	// Progress is called once per outcome, from one goroutine at a time
	Progress func(models.CrawlOutcome)
}

// Orchestrator drives crawl passes over (item, site) pairs
type Orchestrator struct {
	opts Options
	now  func() time.Time
}

// NewOrchestrator validates opts and fills in defaults. Per-site rate
// intervals from the registry are applied to the limiter.
func NewOrchestrator(opts Options) (*Orchestrator, error) {
	if len(opts.Fetchers) == 0 {
		return nil, fmt.Errorf("orchestrator: at least one fetcher is required")
	}
	if opts.Limiter == nil {
		return nil, fmt.Errorf("orchestrator: rate limiter is required")
	}
	if opts.Sites == nil {
		return nil, fmt.Errorf("orchestrator: site registry is required")
	}
	if opts.Catalog == nil {
		return nil, fmt.Errorf("orchestrator: catalog is required")
	}
	for _, p := range opts.Sites.All() {
		if _, ok := opts.Fetchers[p.FetchMode()]; !ok {
			return nil, fmt.Errorf("orchestrator: site %q needs a %s fetcher", p.ID, p.FetchMode())
		}
	}

	if opts.Builder == nil {
		opts.Builder = search.NewBuilder()
	}
	if opts.Matcher == nil {
		opts.Matcher = match.New(match.DefaultThreshold)
	}
	if opts.PolitenessDelay < 0 {
		opts.PolitenessDelay = 0
	}
	if opts.Limit <= 0 {
		opts.Limit = extract.DefaultLimit
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry = retry.DefaultConfig()
	}

	if setter, ok := opts.Limiter.(interface {
		SetInterval(string, time.Duration)
	}); ok {
		for _, p := range opts.Sites.All() {
			if p.RateInterval > 0 {
				setter.SetInterval(p.ID, p.RateInterval)
			}
		}
	}

	return &Orchestrator{opts: opts, now: time.Now}, nil
}

// SupportedSites returns the configured site ids, sorted
func (o *Orchestrator) SupportedSites() []string {
	return o.opts.Sites.IDs()
}

// RunCrawl loads items from the catalog (all of them when componentID is nil)
// and crawls every configured site for them. A run already attached to ctx
// is kept, otherwise a new run id is generated.
func (o *Orchestrator) RunCrawl(ctx context.Context, componentID *int64) ([]models.CrawlOutcome, PassReport, error) {
	if !reqctx.HasRun(ctx) {
		ctx = reqctx.WithRun(ctx, "")
	}
	run := reqctx.GetRun(ctx)
	report := PassReport{RunID: run.RunID, StartedAt: run.StartTime}

	items, err := o.opts.Catalog.Items(ctx, componentID)
	if err == nil && componentID != nil && len(items) == 0 {
		err = ErrComponentNotFound
	}
	if err != nil {
		report.FinishedAt = o.now()
		if !errors.Is(err, ErrComponentNotFound) {
			err = fmt.Errorf("load catalog: %w", err)
		}
		return nil, report, reqctx.NewRunError(ctx, err)
	}

	log.Info().
		Str("run_id", run.RunID).
		Int("items", len(items)).
		Strs("sites", o.opts.Sites.IDs()).
		Bool("parallel", o.opts.Parallel).
		Msg("Starting crawl pass")

	outcomes := o.Run(ctx, items, o.opts.Sites.All())

	report = NewPassReport(run.RunID, run.StartTime, o.now(), outcomes)
	report.Cancelled = ctx.Err() != nil
	report.Pairs = len(items) * len(o.opts.Sites.All())

	log.Info().
		Str("run_id", run.RunID).
		Int("successes", report.Successes).
		Int("failures", report.Failures).
		Dur("duration", report.Duration()).
		Bool("cancelled", report.Cancelled).
		Msg("Crawl pass finished")

	return outcomes, report, nil
}

// GetBestPrice crawls every site for one component and returns the cheapest success
func (o *Orchestrator) GetBestPrice(ctx context.Context, componentID int64) (models.CrawlOutcome, error) {
	outcomes, _, err := o.RunCrawl(ctx, &componentID)
	if err != nil {
		return models.CrawlOutcome{}, err
	}
	return BestPrice(outcomes)
}

// Run crawls every (item, site) pair and returns one outcome per attempted
// pair in item-major order. Failures never stop the pass; cancelling ctx
// stops it between pairs and returns the outcomes produced so far.
func (o *Orchestrator) Run(ctx context.Context, items []models.CatalogItem, profiles []sites.Profile) []models.CrawlOutcome {
	pairs := batch.Plan(items, profiles)
	if len(pairs) == 0 {
		return nil
	}

	if !o.opts.Parallel {
		outcomes := make([]models.CrawlOutcome, 0, len(pairs))
		o.runQueue(ctx, pairs, func(_ batch.Pair, out models.CrawlOutcome) {
			outcomes = append(outcomes, out)
			o.progress(out)
		})
		return outcomes
	}

	groups := batch.GroupBySite(pairs)
	slots := make([]*models.CrawlOutcome, len(pairs))
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(batch.SiteWorkers(len(groups), o.opts.Workers))
	for _, group := range groups {
		g.Go(func() error {
			log.Debug().Str("site", group.SiteID).Int("pairs", len(group.Pairs)).Msg("Site worker started")
			o.runQueue(ctx, group.Pairs, func(p batch.Pair, out models.CrawlOutcome) {
				mu.Lock()
				defer mu.Unlock()
				slots[p.Index] = &out
				o.progress(out)
			})
			return nil
		})
	}
	_ = g.Wait()

	outcomes := make([]models.CrawlOutcome, 0, len(pairs))
	for _, out := range slots {
		if out != nil {
			outcomes = append(outcomes, *out)
		}
	}
	return outcomes
}

// runQueue processes pairs in order, pausing between fetches
func (o *Orchestrator) runQueue(ctx context.Context, pairs []batch.Pair, emit func(batch.Pair, models.CrawlOutcome)) {
	fetched := false
	for _, p := range pairs {
		if ctx.Err() != nil {
			return
		}

		term := o.opts.Builder.Build(p.Item)
		if term == "" {
			emit(p, failed(p, ErrCodeUnsearchable, "empty search term"))
			continue
		}

		if fetched {
			if err := sleep(ctx, o.opts.PolitenessDelay); err != nil {
				return
			}
		}
		fetched = true

		emit(p, o.attempt(ctx, p, term))
	}
}

// attempt crawls one pair. A panic is turned into an INTERNAL failure.
func (o *Orchestrator) attempt(ctx context.Context, p batch.Pair, term string) (out models.CrawlOutcome) {
	start := time.Now()
	logger := log.With().
		Str("run_id", reqctx.GetRun(ctx).RunID).
		Int64("component_id", p.Item.ID).
		Str("site", p.Site.ID).
		Str("term", term).
		Logger()

	defer func() {
		if r := recover(); r != nil {
			logger.Error().
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("Recovered panic while crawling pair")
			out = failed(p, ErrCodeInternal, fmt.Sprint(r))
		}
	}()

	logger.Debug().Msg("Crawling pair")

	success, err := o.crawlPair(ctx, p, term)
	if err != nil {
		reason := ReasonOf(err)
		logger.Warn().
			Str("reason", string(reason)).
			Err(err).
			Dur("elapsed", time.Since(start)).
			Msg("Pair failed")
		return failed(p, reason, detailOf(err))
	}

	logger.Debug().
		Float64("price", success.Price).
		Float64("similarity", success.Similarity).
		Str("title", success.MatchedTitle).
		Dur("elapsed", time.Since(start)).
		Msg("Pair priced")

	return models.CrawlOutcome{
		ComponentID:   p.Item.ID,
		ComponentName: p.Item.Name,
		SiteID:        p.Site.ID,
		Success:       success,
	}
}

func (o *Orchestrator) crawlPair(ctx context.Context, p batch.Pair, term string) (*models.Success, error) {
	fetcher := o.opts.Fetchers[p.Site.FetchMode()]
	url := p.Site.BuildSearchURL(term)

	req := models.RequestOptions{
		URL:          url,
		SiteID:       p.Site.ID,
		Headers:      p.Site.Headers,
		Timeout:      o.opts.RequestTimeout,
		WaitSelector: p.Site.WaitSelector,
	}
	if req.WaitSelector == "" && p.Site.FetchMode() != models.ModeStatic {
		req.WaitSelector = p.Site.ContainerSelector
	}

	var doc *goquery.Document
	err := retry.WithRetry(ctx, o.opts.Retry, func() error {
		// Every attempt goes through the limiter so retries keep site spacing
		if err := o.opts.Limiter.Wait(ctx, p.Site.ID); err != nil {
			return ClassifyFetchError(err, url)
		}
		d, err := fetcher.Fetch(ctx, req)
		if err != nil {
			return err
		}
		doc = d
		return nil
	})
	if err != nil {
		return nil, err
	}

	candidates := extract.Extract(doc, p.Site, o.opts.Limit)
	if len(candidates) == 0 {
		return nil, NewEngineError(ErrCodeNoProductsFound, "no products found", nil).
			WithDetail("url", url)
	}

	best, ok := o.opts.Matcher.Match(candidates, p.Item.Target())
	if !ok {
		return nil, NewEngineError(ErrCodeNoConfidentMatch,
			fmt.Sprintf("no candidate reached similarity %.2f", o.opts.Matcher.Threshold()), nil)
	}

	value, ok := price.Normalize(best.RawPrice)
	if !ok || !o.opts.Band.Contains(value) {
		return nil, NewEngineError(ErrCodeInvalidPrice, fmt.Sprintf("unusable price %q", best.RawPrice), nil)
	}

	ts := o.now().UTC()
	if o.opts.Sink != nil {
		rec, err := o.opts.Sink.RecordPrice(ctx, p.Item.ID, value, p.Site.ID, best.URL, ts)
		if err != nil {
			return nil, NewEngineError(ErrCodeSinkError, "failed to record price", err)
		}
		if !rec.Timestamp.IsZero() {
			ts = rec.Timestamp
		}
	}

	return &models.Success{
		Price:        value,
		Currency:     p.Site.Currency,
		MatchedTitle: best.Title,
		Similarity:   best.Score,
		URL:          best.URL,
		Timestamp:    ts,
	}, nil
}

func (o *Orchestrator) progress(out models.CrawlOutcome) {
	if o.opts.Progress != nil {
		o.opts.Progress(out)
	}
}

func failed(p batch.Pair, reason ErrorCode, detail string) models.CrawlOutcome {
	return models.CrawlOutcome{
		ComponentID:   p.Item.ID,
		ComponentName: p.Item.Name,
		SiteID:        p.Site.ID,
		Failure:       &models.Failure{Reason: string(reason), Detail: detail},
	}
}

func detailOf(err error) string {
	var ee *EngineError
	if !errors.As(err, &ee) {
		return err.Error()
	}
	if ee.Underlying == nil || ee.Code == ErrCodeHTTPStatus {
		return ee.Message
	}
	return ee.Message + ": " + ee.Underlying.Error()
}

// sleep waits for d or until ctx is done
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
