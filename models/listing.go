// Package models defines data structures for the scraper.
package models

import "time"

// RawListing is a candidate item located on a listings page before the
// detail pass. URL is always absolute.
type RawListing struct {
	Title string
	URL   string
}

// Listing is the normalized output unit handed to the reporting sink.
// Records are immutable once constructed.
type Listing struct {
	Title     string    `json:"title"`
	Price     string    `json:"price"`
	URL       string    `json:"url"`
	Details   string    `json:"details,omitempty"`
	ScrapedAt time.Time `json:"scraped_at"`
}

// RunResult holds the overall result of a scraping run.
type RunResult struct {
	Listings     []*Listing
	SourceURL    string
	StartTime    time.Time
	EndTime      time.Time
	TotalCount   int
	SkippedCount int
	ErrorCount   int
	RetryCount   int
	RequestCount int
	FailedURLs   []string
	ErrorsByType map[string]int
	Strategy     string
}
