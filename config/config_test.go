package config

import (
	"strings"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name: "empty base url",
			mutate: func(cfg *Config) {
				cfg.BaseURL = ""
			},
			wantErr: "base URL",
		},
		{
			name: "invalid base url format",
			mutate: func(cfg *Config) {
				cfg.BaseURL = "http://"
			},
			wantErr: "base URL",
		},
		{
			name: "invalid fallback url",
			mutate: func(cfg *Config) {
				cfg.FallbackURLs = []string{"http://"}
			},
			wantErr: "fallback URL",
		},
		{
			name: "negative delay",
			mutate: func(cfg *Config) {
				cfg.Delay = -time.Second
			},
			wantErr: "delay",
		},
		{
			name: "negative timeout",
			mutate: func(cfg *Config) {
				cfg.Timeout = -1 * time.Second
			},
			wantErr: "timeout",
		},
		{
			name: "zero max retries",
			mutate: func(cfg *Config) {
				cfg.MaxRetries = 0
			},
			wantErr: "max retries",
		},
		{
			name: "backoff exceeds cap",
			mutate: func(cfg *Config) {
				cfg.RetryBackoff = time.Minute
				cfg.RetryBackoffMax = time.Second
			},
			wantErr: "retry backoff",
		},
		{
			name: "unknown output format",
			mutate: func(cfg *Config) {
				cfg.OutputFormat = "xml"
			},
			wantErr: "output format",
		},
		{
			name: "zero detail max length",
			mutate: func(cfg *Config) {
				cfg.DetailMaxLen = 0
			},
			wantErr: "detail max length",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
}

func TestCandidatesOrder(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BaseURL = "http://primary.test/"
	cfg.FallbackURLs = []string{"http://second.test/", "http://third.test/"}

	candidates := cfg.Candidates()
	want := []string{"http://primary.test/", "http://second.test/", "http://third.test/"}
	if len(candidates) != len(want) {
		t.Fatalf("candidates=%d, want %d", len(candidates), len(want))
	}
	for i := range want {
		if candidates[i] != want[i] {
			t.Fatalf("candidates[%d]=%q, want %q", i, candidates[i], want[i])
		}
	}
}

func TestEnvInt(t *testing.T) {
	t.Setenv("SCRAPER_TEST_INT", "7")
	value, ok, err := EnvInt("SCRAPER_TEST_INT")
	if err != nil || !ok || value != 7 {
		t.Fatalf("EnvInt = (%d, %v, %v), want (7, true, nil)", value, ok, err)
	}

	t.Setenv("SCRAPER_TEST_INT", "not-a-number")
	if _, _, err := EnvInt("SCRAPER_TEST_INT"); err == nil {
		t.Fatalf("expected parse error")
	}

	if _, ok, _ := EnvInt("SCRAPER_TEST_UNSET"); ok {
		t.Fatalf("unset variable should report ok=false")
	}
}
