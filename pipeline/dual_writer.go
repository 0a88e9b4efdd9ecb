package pipeline

import (
	"fmt"

	"github.com/aluiziolira/go-scrape-listings/models"
)

// DualWriter outputs to both the text report and JSONL simultaneously.
type DualWriter struct {
	textWriter *TextWriter
	jsonWriter *JSONWriter
}

// NewDualWriter creates a writer producing both output files.
func NewDualWriter(textFilename, jsonFilename string, detailLimit int) (*DualWriter, error) {
	textWriter, err := NewTextWriter(textFilename, detailLimit)
	if err != nil {
		return nil, fmt.Errorf("create text writer: %w", err)
	}

	jsonWriter, err := NewJSONWriter(jsonFilename)
	if err != nil {
		textWriter.Close()
		return nil, fmt.Errorf("create json writer: %w", err)
	}

	return &DualWriter{
		textWriter: textWriter,
		jsonWriter: jsonWriter,
	}, nil
}

// Write writes listings to both outputs.
func (dw *DualWriter) Write(listings []*models.Listing) error {
	if err := dw.textWriter.Write(listings); err != nil {
		return fmt.Errorf("text write failed: %w", err)
	}
	if err := dw.jsonWriter.Write(listings); err != nil {
		return fmt.Errorf("json write failed: %w", err)
	}
	return nil
}

// Close closes both writers.
func (dw *DualWriter) Close() error {
	var errs []error

	if err := dw.textWriter.Close(); err != nil {
		errs = append(errs, fmt.Errorf("text close failed: %w", err))
	}
	if err := dw.jsonWriter.Close(); err != nil {
		errs = append(errs, fmt.Errorf("json close failed: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("multiple errors: %v", errs)
	}
	return nil
}

// Validate validates both output files.
func (dw *DualWriter) Validate() error {
	var errs []error

	if err := dw.textWriter.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("text validation failed: %w", err))
	}
	if err := dw.jsonWriter.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("json validation failed: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation errors: %v", errs)
	}
	return nil
}
