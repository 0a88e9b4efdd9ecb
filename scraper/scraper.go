// Package scraper implements the fetch-then-extract pipeline: an
// accessibility probe over candidate sources, a resilient fetcher with
// bounded retries, and a sequential orchestrator that walks listings
// and hands normalized records to the reporting sink.
package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/aluiziolira/go-scrape-listings/config"
	"github.com/aluiziolira/go-scrape-listings/models"
	"github.com/aluiziolira/go-scrape-listings/parser"
	"github.com/aluiziolira/go-scrape-listings/pipeline"
)

// phase names the orchestrator's position in the run. Transitions are
// plain control flow; the value exists for logging and diagnostics.
type phase string

const (
	phaseIdle       phase = "idle"
	phaseProbing    phase = "probing"
	phaseFetching   phase = "fetching"
	phaseExtracting phase = "extracting"
	phaseDelaying   phase = "delaying"
	phaseFinalizing phase = "finalizing"
	phaseDone       phase = "done"
	phaseFailed     phase = "failed"
)

// Scraper sequences probe, fetch, extract, and delay across a bounded
// number of items. The whole run is single-threaded and synchronous:
// the inter-request delay is a deliberate blocking wait for politeness
// toward the target server, not a yield point.
type Scraper struct {
	cfg        *config.Config
	prober     *Prober
	fetcher    *Fetcher
	strategies []parser.Strategy
	Metrics    *Metrics

	limiter *rate.Limiter
	phase   phase

	winningStrategy string
	errorsByType    map[string]int
	failedURLs      []string
}

// NewScraper builds a scraper instance configured from cfg, using the
// default strategy chain.
func NewScraper(cfg *config.Config) (*Scraper, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	metrics := NewMetrics()
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.Delay > 0 {
		limiter = rate.NewLimiter(rate.Every(cfg.Delay), 1)
	}

	return &Scraper{
		cfg:          cfg,
		prober:       NewProber(cfg, metrics),
		fetcher:      NewFetcher(cfg, metrics),
		strategies:   parser.DefaultStrategies(),
		Metrics:      metrics,
		limiter:      limiter,
		phase:        phaseIdle,
		errorsByType: make(map[string]int),
	}, nil
}

// PrependStrategies adds site-specific strategies ahead of the default
// chain; the generic fallbacks stay in place behind them.
func (s *Scraper) PrependStrategies(strategies ...parser.Strategy) {
	s.strategies = append(append([]parser.Strategy{}, strategies...), s.strategies...)
}

// Run executes one scrape: probe candidates, fetch the listings page,
// extract raw listings, then fetch and extract details per item with a
// delay between requests. Per-item failures are logged and skipped; only
// a completely unreachable source aborts the run.
func (s *Scraper) Run(ctx context.Context, sink *pipeline.Sink) (*models.RunResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	result := &models.RunResult{
		StartTime:    time.Now(),
		ErrorsByType: s.errorsByType,
	}

	s.setPhase(phaseProbing)
	source, err := s.prober.Probe(ctx, s.cfg.Candidates())
	if err != nil {
		s.setPhase(phaseFailed)
		return nil, fmt.Errorf("probe candidates: %w", err)
	}
	result.SourceURL = source

	base, err := url.Parse(source)
	if err != nil {
		s.setPhase(phaseFailed)
		return nil, fmt.Errorf("parse source url: %w", err)
	}

	s.setPhase(phaseFetching)
	markup, err := s.fetcher.Fetch(ctx, source)
	if err != nil {
		s.setPhase(phaseFailed)
		s.countError(err)
		return nil, fmt.Errorf("fetch listings page: %w", err)
	}

	s.setPhase(phaseExtracting)
	listings, err := s.extractListings(markup, base)
	if err != nil {
		if errors.Is(err, parser.ErrNoMatch) {
			// Reportable but non-fatal: the run ends with an empty result.
			slog.Warn("no selector strategy matched", slog.String("url", source))
			s.errorsByType["no_match"]++
			return s.finalize(result, sink), nil
		}
		s.setPhase(phaseFailed)
		return nil, err
	}

	if s.cfg.MaxItems > 0 && len(listings) > s.cfg.MaxItems {
		slog.Info("limiting items", slog.Int("found", len(listings)), slog.Int("max", s.cfg.MaxItems))
		listings = listings[:s.cfg.MaxItems]
	}

	for i, raw := range listings {
		slog.Info("processing listing",
			slog.Int("index", i+1),
			slog.Int("total", len(listings)),
			slog.String("title", parser.TrimForDisplay(raw.Title, 60)),
		)

		s.setPhase(phaseDelaying)
		if err := s.limiter.Wait(ctx); err != nil {
			s.setPhase(phaseFailed)
			return nil, fmt.Errorf("inter-request delay: %w", err)
		}

		s.setPhase(phaseFetching)
		listing, err := s.scrapeItem(ctx, raw)
		if err != nil {
			if ctx.Err() != nil {
				s.setPhase(phaseFailed)
				return nil, ctx.Err()
			}
			// Partial-failure semantics: one bad item never aborts the run.
			slog.Error("skipping listing",
				slog.String("url", raw.URL),
				slog.Int("attempts", s.cfg.MaxRetries),
				slog.Any("error", err),
			)
			s.countError(err)
			result.SkippedCount++
			s.failedURLs = append(s.failedURLs, raw.URL)
			continue
		}

		if err := sink.Process(listing); err != nil {
			slog.Warn("sink rejected listing",
				slog.String("url", listing.URL),
				slog.Any("error", err),
			)
			result.SkippedCount++
			continue
		}
		s.Metrics.IncItems()
		result.Listings = append(result.Listings, listing)
	}

	return s.finalize(result, sink), nil
}

func (s *Scraper) extractListings(markup []byte, base *url.URL) ([]models.RawListing, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse listings page: %w", err)
	}

	listings, strategy, err := parser.ExtractListings(doc, base, s.strategies)
	if err != nil {
		return nil, err
	}

	slog.Info("extracted listings",
		slog.Int("count", len(listings)),
		slog.String("strategy", strategy),
	)
	s.Metrics.IncStrategy(strategy)
	s.winningStrategy = strategy
	return listings, nil
}

func (s *Scraper) scrapeItem(ctx context.Context, raw models.RawListing) (*models.Listing, error) {
	markup, err := s.fetcher.Fetch(ctx, raw.URL)
	if err != nil {
		return nil, err
	}

	s.setPhase(phaseExtracting)
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse detail page: %w", err)
	}

	// Details stays full-length on the record; DetailMaxLen only bounds
	// what the text report displays.
	details := parser.ExtractDetails(doc)
	return &models.Listing{
		Title:     raw.Title,
		Price:     details.Price,
		URL:       raw.URL,
		Details:   details.Description,
		ScrapedAt: time.Now(),
	}, nil
}

func (s *Scraper) finalize(result *models.RunResult, sink *pipeline.Sink) *models.RunResult {
	s.setPhase(phaseFinalizing)

	result.EndTime = time.Now()
	result.TotalCount = sink.Processed()
	result.RequestCount = s.fetcher.Requests()
	result.RetryCount = s.fetcher.Retries()
	result.FailedURLs = append([]string(nil), s.failedURLs...)
	result.Strategy = s.winningStrategy
	result.ErrorCount = 0
	for _, n := range s.errorsByType {
		result.ErrorCount += n
	}

	s.setPhase(phaseDone)
	return result
}

func (s *Scraper) countError(err error) {
	var exhausted *FetchExhaustedError
	if errors.As(err, &exhausted) {
		err = exhausted.Err
	}
	s.errorsByType[errorTypeLabel(err)]++
}

func (s *Scraper) setPhase(next phase) {
	if s.phase == next {
		return
	}
	slog.Debug("phase transition",
		slog.String("from", string(s.phase)),
		slog.String("to", string(next)),
	)
	s.phase = next
}
