// Package sink persists crawl results to flat files. The destination is
// always created fresh: saving twice to the same path overwrites, so the
// file holds exactly the records from the most recent save.
package sink

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/catalogcrawl/bookscraper/models"
)

// Writer defines the interface for result output.
type Writer interface {
	Write(books []*models.Book) error
	Close() error
	Validate() error
}

// WriteError indicates the destination could not be created or written.
// It is fatal to the save step only; the in-memory result stays valid.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// New builds a writer for the given format: text, json, or dual.
func New(format, path string) (Writer, error) {
	switch format {
	case "text":
		return NewTextWriter(path)
	case "json":
		return NewJSONWriter(path)
	case "dual":
		jsonPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".json"
		return NewDualWriter(path, jsonPath)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// Save writes the whole collection to a fresh destination and returns the
// count written.
func Save(books []*models.Book, format, path string) (int, error) {
	w, err := New(format, path)
	if err != nil {
		return 0, err
	}

	if err := w.Write(books); err != nil {
		w.Close()
		return 0, err
	}
	if len(books) > 0 {
		if err := w.Validate(); err != nil {
			w.Close()
			return 0, err
		}
	}
	if err := w.Close(); err != nil {
		return 0, err
	}
	return len(books), nil
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &WriteError{Path: dir, Err: err}
	}
	return nil
}
