package pipeline

import (
	"errors"
	"testing"
	"time"

	"github.com/aluiziolira/go-scrape-listings/config"
	"github.com/aluiziolira/go-scrape-listings/models"
)

type stubWriter struct {
	written  []*models.Listing
	writeErr error
	closed   bool
}

func (sw *stubWriter) Write(listings []*models.Listing) error {
	if sw.writeErr != nil {
		return sw.writeErr
	}
	sw.written = append(sw.written, listings...)
	return nil
}

func (sw *stubWriter) Close() error {
	sw.closed = true
	return nil
}

func (sw *stubWriter) Validate() error { return nil }

func validListing(url string) *models.Listing {
	return &models.Listing{
		Title:     "A Light in the Attic",
		Price:     "£51.77",
		URL:       url,
		Details:   "Poetry collection.",
		ScrapedAt: time.Now(),
	}
}

func newSinkForTest(t *testing.T) (*Sink, *stubWriter) {
	t.Helper()
	writer := &stubWriter{}
	sink, err := NewSink(writer, config.DefaultConfig())
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}
	return sink, writer
}

func TestSinkProcessWritesValidListing(t *testing.T) {
	sink, writer := newSinkForTest(t)

	if err := sink.Process(validListing("http://books.toscrape.com/catalogue/a-light-in-the-attic_1000/")); err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(writer.written) != 1 {
		t.Fatalf("written=%d, want 1", len(writer.written))
	}
	if sink.Processed() != 1 {
		t.Fatalf("processed=%d, want 1", sink.Processed())
	}
}

func TestSinkProcessStampsMissingTimestamp(t *testing.T) {
	sink, writer := newSinkForTest(t)

	listing := validListing("http://books.toscrape.com/catalogue/item/")
	listing.ScrapedAt = time.Time{}
	if err := sink.Process(listing); err != nil {
		t.Fatalf("process: %v", err)
	}
	if writer.written[0].ScrapedAt.IsZero() {
		t.Fatal("timestamp not stamped on write")
	}
}

func TestSinkProcessRejectsInvalidListings(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.Listing)
	}{
		{name: "empty title", mutate: func(l *models.Listing) { l.Title = "" }},
		{name: "relative URL", mutate: func(l *models.Listing) { l.URL = "/catalogue/item" }},
		{name: "empty price", mutate: func(l *models.Listing) { l.Price = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink, writer := newSinkForTest(t)
			listing := validListing("http://books.toscrape.com/catalogue/item/")
			tt.mutate(listing)

			if err := sink.Process(listing); err == nil {
				t.Fatal("expected validation error")
			}
			if len(writer.written) != 0 {
				t.Fatalf("invalid listing was written: %+v", writer.written)
			}
			if sink.Dropped()["invalid_record"] != 1 {
				t.Fatalf("dropped=%v, want invalid_record=1", sink.Dropped())
			}
		})
	}
}

func TestSinkProcessDeduplicatesByURL(t *testing.T) {
	sink, writer := newSinkForTest(t)
	url := "http://books.toscrape.com/catalogue/item/"

	if err := sink.Process(validListing(url)); err != nil {
		t.Fatalf("first process: %v", err)
	}
	err := sink.Process(validListing(url))
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("err=%v, want ErrDuplicate", err)
	}
	if len(writer.written) != 1 {
		t.Fatalf("written=%d, want 1", len(writer.written))
	}
	if sink.Dropped()["duplicate_url"] != 1 {
		t.Fatalf("dropped=%v, want duplicate_url=1", sink.Dropped())
	}
	if sink.Processed() != 1 {
		t.Fatalf("processed=%d, want 1", sink.Processed())
	}
}

func TestSinkProcessPropagatesWriterError(t *testing.T) {
	writer := &stubWriter{writeErr: errors.New("disk full")}
	sink, err := NewSink(writer, config.DefaultConfig())
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}

	if err := sink.Process(validListing("http://books.toscrape.com/catalogue/item/")); err == nil {
		t.Fatal("expected write error")
	}
	if sink.Processed() != 0 {
		t.Fatalf("processed=%d, want 0", sink.Processed())
	}
}

func TestSinkCloseClosesWriter(t *testing.T) {
	sink, writer := newSinkForTest(t)
	if err := sink.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !writer.closed {
		t.Fatal("writer not closed")
	}
}
