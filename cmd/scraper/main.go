package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aluiziolira/go-scrape-listings/config"
	"github.com/aluiziolira/go-scrape-listings/models"
	"github.com/aluiziolira/go-scrape-listings/parser"
	"github.com/aluiziolira/go-scrape-listings/pipeline"
	"github.com/aluiziolira/go-scrape-listings/scraper"
)

func main() {
	defaultCfg := config.DefaultConfig()
	itemsDefault := defaultCfg.MaxItems
	if value, ok, err := config.EnvInt("SCRAPER_MAX_ITEMS"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid SCRAPER_MAX_ITEMS: %v\n", err)
		os.Exit(1)
	} else if ok {
		itemsDefault = value
	}
	baseURLDefault := defaultCfg.BaseURL
	if value, ok := config.EnvString("SCRAPER_BASE_URL"); ok {
		baseURLDefault = value
	}
	outputDefault := defaultCfg.OutputFile
	if value, ok := config.EnvString("SCRAPER_OUTPUT"); ok {
		outputDefault = value
	}
	metricsDefault := defaultCfg.MetricsAddr
	if value, ok := config.EnvString("SCRAPER_METRICS_ADDR"); ok {
		metricsDefault = value
	}

	baseURL := flag.String("base-url", baseURLDefault, "Primary URL to scrape")
	fallbackURLs := flag.String("fallback-urls", strings.Join(defaultCfg.FallbackURLs, ","), "Comma-separated fallback URLs probed in order")
	maxItems := flag.Int("max-items", itemsDefault, "Maximum listings to scrape (0 = unlimited)")
	delayMs := flag.Int("delay", int(defaultCfg.Delay/time.Millisecond), "Delay between requests (milliseconds)")
	maxRetries := flag.Int("max-retries", defaultCfg.MaxRetries, "Maximum fetch attempts per URL")
	retryBackoffMs := flag.Int("retry-backoff", int(defaultCfg.RetryBackoff/time.Millisecond), "Initial retry backoff (milliseconds)")
	retryBackoffMaxMs := flag.Int("retry-backoff-max", int(defaultCfg.RetryBackoffMax/time.Millisecond), "Maximum retry backoff (milliseconds)")
	outputFile := flag.String("output", outputDefault, "Output file path")
	outputFormat := flag.String("format", defaultCfg.OutputFormat, "Output format: text, json, or dual")
	metricsAddr := flag.String("metrics-addr", metricsDefault, "Prometheus metrics listen address (e.g. :9090)")
	verbose := flag.Bool("v", false, "Enable verbose logging")

	flag.Parse()

	logger, level := newLogger(*verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	cfg := buildConfigFromFlags(*baseURL, *fallbackURLs, *maxItems, *delayMs, *maxRetries, *retryBackoffMs, *retryBackoffMaxMs, *outputFile, *outputFormat, *metricsAddr, *verbose)
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	slog.Info("starting scrape",
		slog.String("base_url", cfg.BaseURL),
		slog.Int("fallbacks", len(cfg.FallbackURLs)),
		slog.Int("max_items", cfg.MaxItems),
		slog.Duration("delay", cfg.Delay),
	)

	s, err := scraper.NewScraper(cfg)
	if err != nil {
		slog.Error("initialising scraper", slog.Any("error", err))
		os.Exit(1)
	}

	writer, err := pipeline.NewWriter(cfg.OutputFormat, cfg.OutputFile, cfg.DetailMaxLen)
	if err != nil {
		slog.Error("creating writer", slog.Any("error", err))
		os.Exit(1)
	}

	sink, err := pipeline.NewSink(writer, cfg)
	if err != nil {
		slog.Error("creating sink", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" && s.Metrics != nil {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(s.Metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	startTime := time.Now()
	result, err := s.Run(ctx, sink)
	if err != nil {
		slog.Error("scraping failed", slog.Any("error", err))
		sink.Close()
		os.Exit(1)
	}

	if err := sink.Close(); err != nil {
		slog.Error("closing sink", slog.Any("error", err))
		os.Exit(1)
	}
	if err := writer.Validate(); err != nil {
		slog.Error("output validation failed", slog.Any("error", err))
		os.Exit(1)
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}

	printSummary(result, time.Since(startTime), cfg.OutputFile, sink.Dropped())
}

func buildConfigFromFlags(baseURL, fallbackURLs string, maxItems, delayMs, maxRetries, retryBackoffMs, retryBackoffMaxMs int, outputFile, outputFormat, metricsAddr string, verbose bool) *config.Config {
	cfg := config.DefaultConfig()
	cfg.BaseURL = baseURL
	cfg.FallbackURLs = splitURLList(fallbackURLs)
	cfg.MaxItems = maxItems
	cfg.Delay = time.Duration(delayMs) * time.Millisecond
	cfg.MaxRetries = maxRetries
	cfg.RetryBackoff = time.Duration(retryBackoffMs) * time.Millisecond
	cfg.RetryBackoffMax = time.Duration(retryBackoffMaxMs) * time.Millisecond
	cfg.OutputFile = outputFile
	cfg.OutputFormat = strings.ToLower(outputFormat)
	cfg.MetricsAddr = metricsAddr
	cfg.Verbose = verbose
	return cfg
}

func splitURLList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func printSummary(result *models.RunResult, duration time.Duration, outputFile string, dropped map[string]int) {
	separator := strings.Repeat("=", 60)
	fmt.Println("\n" + separator)
	fmt.Println("SCRAPING SUMMARY")
	fmt.Println(separator)

	priced := 0
	for _, listing := range result.Listings {
		if listing.Price != parser.PriceNA {
			priced++
		}
	}

	fmt.Printf("  Source:        %s\n", result.SourceURL)
	fmt.Printf("  Total items:   %d\n", result.TotalCount)
	fmt.Printf("  With prices:   %d\n", priced)
	fmt.Printf("  Skipped:       %d\n", result.SkippedCount)
	fmt.Printf("  Requests:      %d\n", result.RequestCount)
	fmt.Printf("  Retries:       %d\n", result.RetryCount)
	fmt.Printf("  Failed URLs:   %d\n", len(result.FailedURLs))
	if result.Strategy != "" {
		fmt.Printf("  Strategy:      %s\n", result.Strategy)
	}
	if len(result.ErrorsByType) > 0 {
		fmt.Printf("  Error types:   %v\n", result.ErrorsByType)
	}
	if len(dropped) > 0 {
		fmt.Printf("  Dropped:       %v\n", dropped)
	}
	fmt.Printf("  Duration:      %v\n", duration)
	fmt.Printf("  Output file:   %s\n", outputFile)

	if len(result.Listings) > 0 {
		fmt.Println("\nSample items:")
		for i, listing := range result.Listings {
			if i >= 3 {
				break
			}
			fmt.Printf("  %d. %s - %s\n", i+1, parser.TrimForDisplay(listing.Title, 60), listing.Price)
		}
	}
	fmt.Println(separator)
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
