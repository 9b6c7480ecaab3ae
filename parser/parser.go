// Package parser holds record validation and normalization helpers.
package parser

import (
	"fmt"
	"strings"

	"github.com/catalogcrawl/bookscraper/models"
)

var ratingScale = map[string]int{
	"One":   1,
	"Two":   2,
	"Three": 3,
	"Four":  4,
	"Five":  5,
}

// IsValidRating reports whether s is one of the five recognized rating words.
func IsValidRating(s string) bool {
	_, ok := ratingScale[strings.TrimSpace(s)]
	return ok
}

// RatingToNumeric converts the textual rating to a numeric scale.
// Unrecognized ratings map to zero.
func RatingToNumeric(rating string) int {
	return ratingScale[strings.TrimSpace(rating)]
}

// NormalizeSpace collapses runs of whitespace into single spaces and trims
// the ends. Listing markup pads stock text with newlines and indentation.
func NormalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ValidateBook ensures the extractor captured the mandatory fields.
func ValidateBook(b *models.Book) error {
	if b == nil {
		return fmt.Errorf("book is nil")
	}
	if strings.TrimSpace(b.Title) == "" {
		return fmt.Errorf("book missing title")
	}
	if strings.TrimSpace(b.Price) == "" {
		return fmt.Errorf("book missing price for %s", b.Title)
	}
	if strings.TrimSpace(b.Availability) == "" {
		return fmt.Errorf("book missing availability for %s", b.Title)
	}
	if !IsValidRating(b.Rating) {
		return fmt.Errorf("book has invalid rating %q for %s", b.Rating, b.Title)
	}
	return nil
}
