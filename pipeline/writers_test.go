package pipeline

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aluiziolira/go-scrape-listings/models"
)

func sampleListings() []*models.Listing {
	scraped := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
	return []*models.Listing{
		{
			Title:     "A Light in the Attic",
			Price:     "£51.77",
			URL:       "http://books.toscrape.com/catalogue/a-light-in-the-attic_1000/",
			Details:   "Poetry collection.",
			ScrapedAt: scraped,
		},
		{
			Title:     "Tipping the Velvet",
			Price:     "N/A",
			URL:       "http://books.toscrape.com/catalogue/tipping-the-velvet_999/",
			Details:   "Historical fiction.",
			ScrapedAt: scraped,
		},
	}
}

func TestTextWriterReportFormat(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "report.txt")

	tw, err := NewTextWriter(filename, 0)
	if err != nil {
		t.Fatalf("new text writer: %v", err)
	}
	if err := tw.Write(sampleListings()); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := tw.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	report := string(data)

	if !strings.HasPrefix(report, "Web Scraper Results - Scraped on ") {
		t.Fatalf("missing header line, got %q", firstLine(report))
	}
	for _, want := range []string{
		"ITEM #1",
		"Title: A Light in the Attic",
		"Price: £51.77",
		"URL: http://books.toscrape.com/catalogue/a-light-in-the-attic_1000/",
		"Details: Poetry collection.",
		"Scraped: 2024-03-15 10:30:00",
		"ITEM #2",
		"Price: N/A",
	} {
		if !strings.Contains(report, want) {
			t.Fatalf("report missing %q:\n%s", want, report)
		}
	}
	if strings.Count(report, reportRule) != 2 {
		t.Fatalf("want one separator per item, got %d", strings.Count(report, reportRule))
	}
}

func TestTextWriterNumbersItemsAcrossWrites(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "report.txt")

	tw, err := NewTextWriter(filename, 0)
	if err != nil {
		t.Fatalf("new text writer: %v", err)
	}
	listings := sampleListings()
	if err := tw.Write(listings[:1]); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := tw.Write(listings[1:]); err != nil {
		t.Fatalf("second write: %v", err)
	}
	tw.Close()

	data, _ := os.ReadFile(filename)
	if !strings.Contains(string(data), "ITEM #2") {
		t.Fatalf("item numbering did not carry across writes:\n%s", data)
	}
}

func TestDetailLimitTrimsReportNotRecord(t *testing.T) {
	dir := t.TempDir()
	textFile := filepath.Join(dir, "report.txt")
	jsonFile := filepath.Join(dir, "report.jsonl")

	longDetails := strings.Repeat("All work and no play makes Jack a dull boy. ", 10)
	listing := sampleListings()[0]
	listing.Details = longDetails

	dw, err := NewDualWriter(textFile, jsonFile, 40)
	if err != nil {
		t.Fatalf("new dual writer: %v", err)
	}
	if err := dw.Write([]*models.Listing{listing}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := dw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	textData, _ := os.ReadFile(textFile)
	if !strings.Contains(string(textData), "Details: "+longDetails[:40]+"...") {
		t.Fatalf("report details not trimmed to limit:\n%s", textData)
	}
	if strings.Contains(string(textData), longDetails) {
		t.Fatal("report carries untrimmed details")
	}

	jsonData, _ := os.ReadFile(jsonFile)
	var decoded models.Listing
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(jsonData))), &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Details != longDetails {
		t.Fatalf("stored record was truncated: %d chars, want %d", len(decoded.Details), len(longDetails))
	}
}

func TestTextWriterValidateEmptyFails(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "report.txt")

	f, err := os.Create(filename)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	tw := &TextWriter{file: f, writer: bufio.NewWriter(f)}
	defer tw.Close()

	if err := tw.Validate(); err == nil {
		t.Fatal("expected validation failure for empty file")
	}
}

func TestJSONWriterEmitsJSONL(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "listings.jsonl")

	jw, err := NewJSONWriter(filename)
	if err != nil {
		t.Fatalf("new json writer: %v", err)
	}
	if err := jw.Write(sampleListings()); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := jw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines=%d, want 2", len(lines))
	}

	var decoded models.Listing
	if err := json.Unmarshal([]byte(lines[0]), &decoded); err != nil {
		t.Fatalf("unmarshal first line: %v", err)
	}
	if decoded.Title != "A Light in the Attic" || decoded.Price != "£51.77" {
		t.Fatalf("decoded record mismatch: %+v", decoded)
	}
}

func TestDualWriterWritesBothOutputs(t *testing.T) {
	dir := t.TempDir()
	textFile := filepath.Join(dir, "report.txt")
	jsonFile := filepath.Join(dir, "report.jsonl")

	dw, err := NewDualWriter(textFile, jsonFile, 0)
	if err != nil {
		t.Fatalf("new dual writer: %v", err)
	}
	if err := dw.Write(sampleListings()); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := dw.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if err := dw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	textData, _ := os.ReadFile(textFile)
	if !strings.Contains(string(textData), "ITEM #1") {
		t.Fatal("text output missing item block")
	}
	jsonData, _ := os.ReadFile(jsonFile)
	if !strings.Contains(string(jsonData), "\"title\":") {
		t.Fatal("json output missing records")
	}
}

func TestNewWriterFormats(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		format  string
		wantErr bool
	}{
		{format: "text"},
		{format: "json"},
		{format: "dual"},
		{format: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			w, err := NewWriter(tt.format, filepath.Join(dir, tt.format+"-out.txt"), 200)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error for unsupported format")
				}
				return
			}
			if err != nil {
				t.Fatalf("new writer: %v", err)
			}
			w.Close()
		})
	}
}

func TestNewWriterCreatesMissingDirectory(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "nested", "deeper", "report.txt")

	w, err := NewWriter("text", filename, 200)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	defer w.Close()

	if _, err := os.Stat(filename); err != nil {
		t.Fatalf("report file not created: %v", err)
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
