// Package pipeline is the reporting sink: record validation, URL
// de-duplication, and output writing.
package pipeline

import (
	"errors"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/aluiziolira/go-scrape-listings/config"
	"github.com/aluiziolira/go-scrape-listings/models"
	"github.com/aluiziolira/go-scrape-listings/parser"
)

// ErrDuplicate is returned when a listing's URL was already emitted.
var ErrDuplicate = errors.New("pipeline: duplicate listing URL")

// OutputWriter defines the interface for data output.
type OutputWriter interface {
	Write(listings []*models.Listing) error
	Close() error
	Validate() error
}

// Sink validates records, drops duplicates, and forwards the survivors
// to the writer. The run feeding it is sequential, so the sink is
// deliberately synchronous; the dedupe set is a bounded LRU so a long
// unlimited run cannot grow memory without bound.
type Sink struct {
	writer OutputWriter
	seen   *lru.Cache[string, struct{}]

	processed int
	dropped   map[string]int
}

// NewSink builds a sink writing to writer, with dedupe capacity taken
// from cfg.DedupeMaxSize.
func NewSink(writer OutputWriter, cfg *config.Config) (*Sink, error) {
	seen, err := lru.New[string, struct{}](cfg.DedupeMaxSize)
	if err != nil {
		return nil, fmt.Errorf("create dedupe cache: %w", err)
	}
	return &Sink{
		writer:  writer,
		seen:    seen,
		dropped: make(map[string]int),
	}, nil
}

// Process validates and writes a single listing. Records with an empty
// title or a non-absolute URL are dropped, never written with blank
// fields. Duplicate URLs return ErrDuplicate.
func (s *Sink) Process(listing *models.Listing) error {
	if listing != nil && listing.ScrapedAt.IsZero() {
		listing.ScrapedAt = time.Now()
	}

	if err := parser.ValidateListing(listing); err != nil {
		s.dropped["invalid_record"]++
		return fmt.Errorf("validate listing: %w", err)
	}

	if _, ok := s.seen.Get(listing.URL); ok {
		s.dropped["duplicate_url"]++
		return ErrDuplicate
	}
	s.seen.Add(listing.URL, struct{}{})

	if err := s.writer.Write([]*models.Listing{listing}); err != nil {
		return fmt.Errorf("write listing: %w", err)
	}
	s.processed++
	return nil
}

// Close closes the underlying writer.
func (s *Sink) Close() error {
	return s.writer.Close()
}

// Validate delegates to the underlying writer's output validation.
func (s *Sink) Validate() error {
	return s.writer.Validate()
}

// Processed reports the number of records written.
func (s *Sink) Processed() int {
	return s.processed
}

// Dropped returns a snapshot of drop counts by reason.
func (s *Sink) Dropped() map[string]int {
	out := make(map[string]int, len(s.dropped))
	for k, v := range s.dropped {
		out[k] = v
	}
	return out
}
