package scraper

import (
	"bytes"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/catalogcrawl/bookscraper/models"
	"github.com/catalogcrawl/bookscraper/parser"
	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding/charmap"
)

// tableFields maps the product-information table labels onto record fields.
// Rows absent from the table degrade to empty strings.
var tableFields = map[string]func(*models.Book, string){
	"UPC":               func(b *models.Book, v string) { b.UPC = v },
	"Product Type":      func(b *models.Book, v string) { b.ProductType = v },
	"Price (excl. tax)": func(b *models.Book, v string) { b.PriceExclTax = v },
	"Price (incl. tax)": func(b *models.Book, v string) { b.PriceInclTax = v },
	"Tax":               func(b *models.Book, v string) { b.Tax = v },
	"Availability":      func(b *models.Book, v string) { b.AvailabilityCount = v },
	"Number of reviews": func(b *models.Book, v string) { b.NumberOfReviews = v },
}

// parseBook extracts one record from a detail page body. Title, price,
// availability, and rating are mandatory; their absence is a *ParseError.
func parseBook(pageURL string, raw []byte) (*models.Book, error) {
	body, err := decodeBody(raw)
	if err != nil {
		return nil, &ParseError{URL: pageURL, Field: "encoding"}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &ParseError{URL: pageURL, Field: "document"}
	}

	b := &models.Book{
		URL:       pageURL,
		ScrapedAt: time.Now(),
	}

	b.Title = strings.TrimSpace(doc.Find("div.product_main h1").First().Text())
	if b.Title == "" {
		return nil, &ParseError{URL: pageURL, Field: "title"}
	}

	b.Price = strings.TrimSpace(doc.Find("p.price_color").First().Text())
	if b.Price == "" {
		return nil, &ParseError{URL: pageURL, Field: "price"}
	}

	b.Availability = parser.NormalizeSpace(doc.Find("p.instock.availability").First().Text())
	if b.Availability == "" {
		return nil, &ParseError{URL: pageURL, Field: "availability"}
	}

	b.Rating = ratingToken(doc.Find("p.star-rating").First())
	if !parser.IsValidRating(b.Rating) {
		return nil, &ParseError{URL: pageURL, Field: "rating"}
	}
	b.RatingNumeric = parser.RatingToNumeric(b.Rating)

	b.Description = descriptionText(doc)

	info := productTable(doc)
	for label, assign := range tableFields {
		assign(b, info[label])
	}

	return b, nil
}

// ratingToken picks the rating word out of the star-rating class list, e.g.
// "star-rating Three" yields "Three".
func ratingToken(sel *goquery.Selection) string {
	class, _ := sel.Attr("class")
	for _, token := range strings.Fields(class) {
		if token != "star-rating" {
			return token
		}
	}
	return ""
}

// descriptionText returns the long-form description, the first paragraph
// sibling following the description marker. Absence means empty string.
func descriptionText(doc *goquery.Document) string {
	marker := doc.Find("#product_description").First()
	if marker.Length() == 0 {
		return ""
	}
	return strings.TrimSpace(marker.NextAllFiltered("p").First().Text())
}

func productTable(doc *goquery.Document) map[string]string {
	info := make(map[string]string)
	doc.Find("table.table.table-striped tr").Each(func(_ int, row *goquery.Selection) {
		key := strings.TrimSpace(row.Find("th").First().Text())
		if key == "" {
			return
		}
		info[key] = strings.TrimSpace(row.Find("td").First().Text())
	})
	return info
}

// decodeBody applies the narrow encoding policy inherited from the source
// site: when the apparent charset mentions "utf" the body is taken as UTF-8,
// anything else falls back to ISO-8859-1. This is not a general detector.
func decodeBody(raw []byte) ([]byte, error) {
	return decodeWith(raw, apparentCharset(raw))
}

func apparentCharset(raw []byte) string {
	result, err := chardet.NewTextDetector().DetectBest(raw)
	if err != nil || result == nil {
		return ""
	}
	return result.Charset
}

func decodeWith(raw []byte, charset string) ([]byte, error) {
	if strings.Contains(strings.ToLower(charset), "utf") {
		return raw, nil
	}
	return charmap.ISO8859_1.NewDecoder().Bytes(raw)
}
