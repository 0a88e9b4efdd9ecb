package pipeline

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aluiziolira/go-scrape-listings/models"
	"github.com/aluiziolira/go-scrape-listings/parser"
)

const (
	reportTimeLayout = "2006-01-02 15:04:05"
	reportRule       = "--------------------------------------------------------------------------------"
	reportHeaderRule = "================================================================================"
)

// TextWriter renders listings as the flat text report: a header line
// with the run timestamp, then one ITEM block per record. detailLimit
// bounds the displayed Details length; the record itself is untouched.
type TextWriter struct {
	file        *os.File
	writer      *bufio.Writer
	count       int
	detailLimit int
}

// NewTextWriter initialises the report file and writes the run header.
// detailLimit <= 0 disables display truncation.
func NewTextWriter(filename string, detailLimit int) (*TextWriter, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}

	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create report file: %w", err)
	}

	writer := bufio.NewWriter(f)
	fmt.Fprintf(writer, "Web Scraper Results - Scraped on %s\n", time.Now().Format(reportTimeLayout))
	fmt.Fprintf(writer, "%s\n\n", reportHeaderRule)
	if err := writer.Flush(); err != nil {
		f.Close()
		return nil, fmt.Errorf("write report header: %w", err)
	}

	return &TextWriter{
		file:        f,
		writer:      writer,
		detailLimit: detailLimit,
	}, nil
}

// Write appends listings to the report.
func (tw *TextWriter) Write(listings []*models.Listing) error {
	for _, listing := range listings {
		tw.count++
		fmt.Fprintf(tw.writer, "ITEM #%d\n", tw.count)
		fmt.Fprintf(tw.writer, "Title: %s\n", listing.Title)
		fmt.Fprintf(tw.writer, "Price: %s\n", listing.Price)
		fmt.Fprintf(tw.writer, "URL: %s\n", listing.URL)
		fmt.Fprintf(tw.writer, "Details: %s\n", parser.TrimForDisplay(listing.Details, tw.detailLimit))
		fmt.Fprintf(tw.writer, "Scraped: %s\n", listing.ScrapedAt.Format(reportTimeLayout))
		fmt.Fprintf(tw.writer, "%s\n\n", reportRule)
	}
	if err := tw.writer.Flush(); err != nil {
		return fmt.Errorf("flush report: %w", err)
	}
	return nil
}

// Close flushes and closes the report file.
func (tw *TextWriter) Close() error {
	if err := tw.writer.Flush(); err != nil {
		return fmt.Errorf("flush report: %w", err)
	}
	return tw.file.Close()
}

// Validate ensures the report file has content.
func (tw *TextWriter) Validate() error {
	info, err := tw.file.Stat()
	if err != nil {
		return fmt.Errorf("stat report file: %w", err)
	}
	if info.Size() <= 0 {
		return fmt.Errorf("report file is empty")
	}
	return nil
}

// JSONWriter writes newline-delimited JSON records.
type JSONWriter struct {
	file    *os.File
	writer  *bufio.Writer
	encoder *json.Encoder
}

// NewJSONWriter initialises the JSON writer.
func NewJSONWriter(filename string) (*JSONWriter, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}

	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create json file: %w", err)
	}

	buffer := bufio.NewWriter(f)
	return &JSONWriter{
		file:    f,
		writer:  buffer,
		encoder: json.NewEncoder(buffer),
	}, nil
}

// Write appends listings in JSONL format.
func (jw *JSONWriter) Write(listings []*models.Listing) error {
	for _, listing := range listings {
		if err := jw.encoder.Encode(listing); err != nil {
			return fmt.Errorf("encode json record: %w", err)
		}
	}
	if err := jw.writer.Flush(); err != nil {
		return fmt.Errorf("flush json writer: %w", err)
	}
	return nil
}

// Close flushes buffers and closes the underlying file.
func (jw *JSONWriter) Close() error {
	if err := jw.writer.Flush(); err != nil {
		return fmt.Errorf("flush json writer: %w", err)
	}
	return jw.file.Close()
}

// Validate ensures the JSON file has data.
func (jw *JSONWriter) Validate() error {
	info, err := jw.file.Stat()
	if err != nil {
		return fmt.Errorf("stat json file: %w", err)
	}
	if info.Size() <= 0 {
		return fmt.Errorf("json file is empty")
	}
	return nil
}

// NewWriter builds the writer for the requested output format.
// detailLimit applies to the text report only; JSONL keeps full records.
func NewWriter(format, filename string, detailLimit int) (OutputWriter, error) {
	switch format {
	case "text":
		return NewTextWriter(filename, detailLimit)
	case "json":
		return NewJSONWriter(filename)
	case "dual":
		jsonFilename := strings.TrimSuffix(filename, filepath.Ext(filename)) + ".jsonl"
		return NewDualWriter(filename, jsonFilename, detailLimit)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
