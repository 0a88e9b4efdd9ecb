package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

// Config holds scraper configuration for a single run. It is read-only
// once the run starts; callers wanting several configurations build
// several values instead of mutating shared state.
type Config struct {
	BaseURL         string
	FallbackURLs    []string
	MaxItems        int // <= 0 means unlimited
	Delay           time.Duration
	Timeout         time.Duration
	ProbeTimeout    time.Duration
	MaxRetries      int
	RetryBackoff    time.Duration
	RetryBackoffMax time.Duration
	OutputFile      string
	OutputFormat    string // text, json, or dual
	UserAgent       string
	DetailMaxLen    int
	DedupeMaxSize   int
	MetricsAddr     string
	Verbose         bool
}

// DefaultConfig returns conservative defaults for the demo targets.
func DefaultConfig() *Config {
	return &Config{
		BaseURL: "https://quotes.toscrape.com/",
		FallbackURLs: []string{
			"https://books.toscrape.com/",
			"https://httpbin.org/html",
		},
		MaxItems:        10,
		Delay:           time.Second,
		Timeout:         10 * time.Second,
		ProbeTimeout:    5 * time.Second,
		MaxRetries:      3,
		RetryBackoff:    time.Second,
		RetryBackoffMax: 30 * time.Second,
		OutputFile:      "output/scraped_listings.txt",
		OutputFormat:    "text",
		UserAgent:       "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		DetailMaxLen:    200,
		DedupeMaxSize:   10000,
		MetricsAddr:     "",
		Verbose:         false,
	}
}

// Candidates returns the base URL followed by the fallbacks, in probe order.
func (c *Config) Candidates() []string {
	out := make([]string, 0, len(c.FallbackURLs)+1)
	out = append(out, c.BaseURL)
	out = append(out, c.FallbackURLs...)
	return out
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}
	if err := validateURL(c.BaseURL); err != nil {
		return fmt.Errorf("base URL: %w", err)
	}
	for _, fallback := range c.FallbackURLs {
		if err := validateURL(fallback); err != nil {
			return fmt.Errorf("fallback URL %q: %w", fallback, err)
		}
	}

	if c.Delay < 0 {
		return fmt.Errorf("delay cannot be negative")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.ProbeTimeout <= 0 {
		return fmt.Errorf("probe timeout must be positive")
	}
	if c.MaxRetries <= 0 {
		return fmt.Errorf("max retries must be positive")
	}
	if c.RetryBackoff < 0 {
		return fmt.Errorf("retry backoff cannot be negative")
	}
	if c.RetryBackoffMax < 0 {
		return fmt.Errorf("retry backoff max cannot be negative")
	}
	if c.RetryBackoffMax > 0 && c.RetryBackoff > c.RetryBackoffMax {
		return fmt.Errorf("retry backoff (%s) cannot exceed retry backoff max (%s)", c.RetryBackoff, c.RetryBackoffMax)
	}
	if c.OutputFile == "" {
		return fmt.Errorf("output file cannot be empty")
	}
	if c.OutputFormat != "text" && c.OutputFormat != "json" && c.OutputFormat != "dual" {
		return fmt.Errorf("output format must be text, json, or dual")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if c.DetailMaxLen <= 0 {
		return fmt.Errorf("detail max length must be positive")
	}
	if c.DedupeMaxSize <= 0 {
		return fmt.Errorf("dedupe max size must be positive")
	}

	return nil
}

func validateURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Host == "" {
		return fmt.Errorf("URL must include a host")
	}
	return nil
}

// EnvInt reads an integer environment variable. The second return value
// reports whether the variable was set.
func EnvInt(key string) (int, bool, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return 0, false, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("parse %s: %w", key, err)
	}
	return value, true, nil
}

// EnvString reads a string environment variable.
func EnvString(key string) (string, bool) {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return "", false
	}
	return raw, true
}
