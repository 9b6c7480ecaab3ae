// Package models defines data structures for the catalog crawler.
package models

import "time"

// Book is one fully-extracted record from a book detail page. Prices and
// counters stay exactly as the source renders them (currency symbol included,
// counts unparsed); RatingNumeric is the only derived field.
type Book struct {
	Title             string    `json:"title"`
	Price             string    `json:"price"`
	PriceExclTax      string    `json:"price_excl_tax"`
	PriceInclTax      string    `json:"price_incl_tax"`
	Tax               string    `json:"tax"`
	Availability      string    `json:"availability"`
	AvailabilityCount string    `json:"availability_count"`
	Rating            string    `json:"rating"`
	RatingNumeric     int       `json:"rating_numeric"`
	Description       string    `json:"description"`
	UPC               string    `json:"upc"`
	ProductType       string    `json:"product_type"`
	NumberOfReviews   string    `json:"number_of_reviews"`
	URL               string    `json:"url"`
	ScrapedAt         time.Time `json:"scraped_at"`
}

// CrawlResult holds the outcome of one crawl invocation. Books contains
// whatever was gathered before termination, whichever cause ended the crawl.
type CrawlResult struct {
	Books        []*Book
	StartTime    time.Time
	EndTime      time.Time
	PageCount    int
	RequestCount int
	ErrorCount   int
	FailedURLs   []string
	ErrorsByType map[string]int
}
