package sink

import (
	"fmt"
	"sync"

	"github.com/catalogcrawl/bookscraper/models"
)

// DualWriter outputs to both text and JSON destinations simultaneously.
type DualWriter struct {
	text *TextWriter
	json *JSONWriter
	mu   sync.Mutex
}

// NewDualWriter creates both destinations.
func NewDualWriter(textPath, jsonPath string) (*DualWriter, error) {
	textWriter, err := NewTextWriter(textPath)
	if err != nil {
		return nil, fmt.Errorf("create text writer: %w", err)
	}

	jsonWriter, err := NewJSONWriter(jsonPath)
	if err != nil {
		textWriter.Close()
		return nil, fmt.Errorf("create json writer: %w", err)
	}

	return &DualWriter{
		text: textWriter,
		json: jsonWriter,
	}, nil
}

// Write writes books to both destinations.
func (dw *DualWriter) Write(books []*models.Book) error {
	dw.mu.Lock()
	defer dw.mu.Unlock()

	if err := dw.text.Write(books); err != nil {
		return fmt.Errorf("text write failed: %w", err)
	}
	if err := dw.json.Write(books); err != nil {
		return fmt.Errorf("json write failed: %w", err)
	}
	return nil
}

// Close closes both writers.
func (dw *DualWriter) Close() error {
	dw.mu.Lock()
	defer dw.mu.Unlock()

	var errs []error
	if err := dw.text.Close(); err != nil {
		errs = append(errs, fmt.Errorf("text close failed: %w", err))
	}
	if err := dw.json.Close(); err != nil {
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
	if err := dw.text.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("text validation failed: %w", err))
	}
	if err := dw.json.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("json validation failed: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("validation errors: %v", errs)
	}
	return nil
}
