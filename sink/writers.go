package sink

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/catalogcrawl/bookscraper/models"
)

// TextWriter writes one deterministic key/value line per record, the flat
// format the output file has always used.
type TextWriter struct {
	path   string
	file   *os.File
	writer *bufio.Writer
	mu     sync.Mutex
}

// NewTextWriter creates (truncating) the destination file.
func NewTextWriter(path string) (*TextWriter, error) {
	if err := ensureDir(path); err != nil {
		return nil, err
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, &WriteError{Path: path, Err: err}
	}

	return &TextWriter{
		path:   path,
		file:   f,
		writer: bufio.NewWriter(f),
	}, nil
}

// Write appends books to the text output.
func (tw *TextWriter) Write(books []*models.Book) error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	for _, book := range books {
		if book == nil {
			continue
		}
		if _, err := tw.writer.WriteString(formatLine(book) + "\n"); err != nil {
			return &WriteError{Path: tw.path, Err: err}
		}
	}
	if err := tw.writer.Flush(); err != nil {
		return &WriteError{Path: tw.path, Err: err}
	}
	return nil
}

// Close flushes and closes the file handle.
func (tw *TextWriter) Close() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if err := tw.writer.Flush(); err != nil {
		return &WriteError{Path: tw.path, Err: err}
	}
	return tw.file.Close()
}

// Validate ensures the file has content.
func (tw *TextWriter) Validate() error {
	info, err := tw.file.Stat()
	if err != nil {
		return fmt.Errorf("stat text file: %w", err)
	}
	if info.Size() <= 0 {
		return fmt.Errorf("text file is empty")
	}
	return nil
}

// formatLine renders a record as quoted key/value pairs in a fixed field
// order, so the output is deterministic for a given record.
func formatLine(b *models.Book) string {
	return fmt.Sprintf(
		"title=%q price=%q price_excl_tax=%q price_incl_tax=%q tax=%q "+
			"availability=%q availability_count=%q rating=%q description=%q "+
			"upc=%q product_type=%q number_of_reviews=%q",
		b.Title, b.Price, b.PriceExclTax, b.PriceInclTax, b.Tax,
		b.Availability, b.AvailabilityCount, b.Rating, b.Description,
		b.UPC, b.ProductType, b.NumberOfReviews,
	)
}

// JSONWriter writes newline-delimited JSON records, all fields preserved.
type JSONWriter struct {
	path    string
	file    *os.File
	writer  *bufio.Writer
	encoder *json.Encoder
	mu      sync.Mutex
}

// NewJSONWriter creates (truncating) the destination file.
func NewJSONWriter(path string) (*JSONWriter, error) {
	if err := ensureDir(path); err != nil {
		return nil, err
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, &WriteError{Path: path, Err: err}
	}

	buffer := bufio.NewWriter(f)
	return &JSONWriter{
		path:    path,
		file:    f,
		writer:  buffer,
		encoder: json.NewEncoder(buffer),
	}, nil
}

// Write appends books in JSONL format.
func (jw *JSONWriter) Write(books []*models.Book) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	for _, book := range books {
		if book == nil {
			continue
		}
		if err := jw.encoder.Encode(book); err != nil {
			return &WriteError{Path: jw.path, Err: err}
		}
	}
	if err := jw.writer.Flush(); err != nil {
		return &WriteError{Path: jw.path, Err: err}
	}
	return nil
}

// Close flushes buffers and closes the underlying file.
func (jw *JSONWriter) Close() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	if err := jw.writer.Flush(); err != nil {
		return &WriteError{Path: jw.path, Err: err}
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
