package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/aluiziolira/go-scrape-listings/config"
)

// Fetcher retrieves raw page markup with bounded retries. One collector
// backs the whole run, so every attempt shares a single transport,
// user agent, and cookie context; there is no per-call re-authentication.
// The run is sequential, so the captured-response fields need no locking.
type Fetcher struct {
	cfg       *config.Config
	collector *colly.Collector
	metrics   *Metrics

	body   []byte
	status int

	requestCount int
	retryCount   int
}

// NewFetcher builds the shared-session fetcher from cfg.
func NewFetcher(cfg *config.Config, metrics *Metrics) *Fetcher {
	collector := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
	)
	collector.SetRequestTimeout(cfg.Timeout)
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	f := &Fetcher{
		cfg:       cfg,
		collector: collector,
		metrics:   metrics,
	}

	collector.OnRequest(func(r *colly.Request) {
		r.Ctx.Put("start", time.Now())
		f.requestCount++
		f.metrics.IncRequest("fetch")
	})
	collector.OnResponse(func(r *colly.Response) {
		f.body = r.Body
		f.status = r.StatusCode
		if start, ok := r.Request.Ctx.GetAny("start").(time.Time); ok {
			f.metrics.ObserveDuration(time.Since(start))
		}
	})
	collector.OnError(func(r *colly.Response, _ error) {
		if r != nil {
			f.status = r.StatusCode
		}
	})

	return f
}

// Fetch retrieves url, retrying up to MaxRetries attempts. A non-2xx
// status counts as a failed attempt just like a transport error. After
// the final attempt the last error is surfaced, wrapped in
// FetchExhaustedError, so the caller decides whether to skip or abort.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	var lastErr error

	for attempt := 1; attempt <= f.cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		f.body = nil
		f.status = 0

		slog.Debug("fetching page",
			slog.String("url", url),
			slog.Int("attempt", attempt),
		)

		err := f.collector.Visit(url)
		if err == nil && f.body != nil {
			return f.body, nil
		}
		if err == nil {
			err = fmt.Errorf("empty response")
		}

		classified := classifyError(err, f.status)
		lastErr = classified
		f.metrics.IncError(errorTypeLabel(classified))
		slog.Warn("fetch attempt failed",
			slog.String("url", url),
			slog.Int("attempt", attempt),
			slog.Int("status", f.status),
			slog.Any("error", classified),
		)

		if attempt < f.cfg.MaxRetries {
			f.retryCount++
			f.metrics.IncRetries()
			if err := sleepCtx(ctx, f.backoff(attempt)); err != nil {
				return nil, err
			}
		}
	}

	return nil, &FetchExhaustedError{
		URL:      url,
		Attempts: f.cfg.MaxRetries,
		Err:      lastErr,
	}
}

// backoff returns the delay before retrying after the given attempt:
// true exponential growth from RetryBackoff, capped at RetryBackoffMax.
func (f *Fetcher) backoff(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}

	base := f.cfg.RetryBackoff
	if base <= 0 {
		base = 100 * time.Millisecond
	}

	delay := base * time.Duration(1<<(attempt-1))
	if max := f.cfg.RetryBackoffMax; max > 0 && delay > max {
		delay = max
	}
	return delay
}

// Requests reports the number of HTTP requests issued so far.
func (f *Fetcher) Requests() int {
	return f.requestCount
}

// Retries reports the number of retry attempts taken so far.
func (f *Fetcher) Retries() int {
	return f.retryCount
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
