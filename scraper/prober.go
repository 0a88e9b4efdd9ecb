package scraper

import (
	"context"
	"log/slog"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/aluiziolira/go-scrape-listings/config"
)

// Prober checks candidate base URLs for reachability before the run
// commits to extraction, so a dead source fails fast with a clear
// diagnosis instead of deep inside parsing.
type Prober struct {
	collector *colly.Collector
	metrics   *Metrics

	reachable bool
}

// NewProber builds a probe collector with a short request timeout. Probes
// issue full GETs rather than HEADs so a candidate only passes when its
// content is actually fetchable; redirects are followed, so a 3xx chain
// landing on 2xx counts as accessible.
func NewProber(cfg *config.Config, metrics *Metrics) *Prober {
	collector := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
	)
	collector.SetRequestTimeout(cfg.ProbeTimeout)

	p := &Prober{
		collector: collector,
		metrics:   metrics,
	}

	collector.OnRequest(func(r *colly.Request) {
		r.Ctx.Put("start", time.Now())
		p.metrics.IncRequest("probe")
	})
	collector.OnResponse(func(r *colly.Response) {
		p.reachable = true
		if start, ok := r.Request.Ctx.GetAny("start").(time.Time); ok {
			p.metrics.ObserveDuration(time.Since(start))
		}
	})

	return p
}

// Probe returns the first candidate URL that responds successfully, in
// list order. When none do, it returns ErrNoAccessibleSource.
func (p *Prober) Probe(ctx context.Context, candidates []string) (string, error) {
	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		p.reachable = false
		err := p.collector.Visit(candidate)
		if err == nil && p.reachable {
			slog.Info("source accessible", slog.String("url", candidate))
			p.metrics.IncProbe("accessible")
			return candidate, nil
		}

		slog.Warn("candidate not accessible",
			slog.String("url", candidate),
			slog.Any("error", err),
		)
		p.metrics.IncProbe("unreachable")
	}
	return "", ErrNoAccessibleSource
}
