package scraper

import (
	"errors"
	"strings"
	"testing"

	"github.com/catalogcrawl/bookscraper/config"
	"github.com/jarcoal/httpmock"
)

func newTestFetcher(t *testing.T, transport *httpmock.MockTransport) *Fetcher {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.BaseURL = testBase

	f, err := NewFetcher(cfg, NewMetrics())
	if err != nil {
		t.Fatalf("new fetcher: %v", err)
	}
	f.WithTransport(transport)
	return f
}

func TestFetchListingLinks(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", listingURL(1),
		htmlResponder(buildListingPage(1, 3, true)))

	f := newTestFetcher(t, transport)
	listing, err := f.FetchListing(listingURL(1))
	if err != nil {
		t.Fatalf("fetch listing: %v", err)
	}

	want := []string{detailURL(1), detailURL(2), detailURL(3)}
	if len(listing.Links) != len(want) {
		t.Fatalf("links = %v, want %v", listing.Links, want)
	}
	for i, link := range want {
		if listing.Links[i] != link {
			t.Errorf("links[%d] = %q, want %q", i, listing.Links[i], link)
		}
	}
	if !listing.HasNext {
		t.Errorf("HasNext = false, want true")
	}
	if listing.EndOfCatalog() {
		t.Errorf("EndOfCatalog = true for a populated page")
	}
}

func TestFetchListingLastPage(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", listingURL(2),
		htmlResponder(buildListingPage(2, 2, false)))

	f := newTestFetcher(t, transport)
	listing, err := f.FetchListing(listingURL(2))
	if err != nil {
		t.Fatalf("fetch listing: %v", err)
	}
	if listing.HasNext {
		t.Errorf("HasNext = true on the last page")
	}
	if got := len(listing.Links); got != 2 {
		t.Errorf("links = %d, want 2", got)
	}
}

func TestFetchListingEmptyPage(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", listingURL(1),
		htmlResponder("<html><body><section></section></body></html>"))

	f := newTestFetcher(t, transport)
	listing, err := f.FetchListing(listingURL(1))
	if err != nil {
		t.Fatalf("fetch listing: %v", err)
	}
	if !listing.EndOfCatalog() {
		t.Errorf("EndOfCatalog = false for an empty page")
	}
}

func TestFetchListingHTTPError(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", listingURL(1),
		httpmock.NewStringResponder(404, "gone"))

	f := newTestFetcher(t, transport)
	_, err := f.FetchListing(listingURL(1))

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected *FetchError, got %v", err)
	}
	if fetchErr.StatusCode != 404 {
		t.Errorf("status = %d, want 404", fetchErr.StatusCode)
	}
	if got := errorLabel(err); got != "not_found" {
		t.Errorf("label = %q, want not_found", got)
	}
	if !strings.Contains(fetchErr.Error(), listingURL(1)) {
		t.Errorf("error %q should carry the address", fetchErr.Error())
	}
}

func TestFetchBook(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", detailURL(1000),
		htmlResponder(buildDetailPage(sampleDetailPage("A Light in the Attic"))))

	f := newTestFetcher(t, transport)
	book, err := f.FetchBook(detailURL(1000))
	if err != nil {
		t.Fatalf("fetch book: %v", err)
	}
	if book.Title != "A Light in the Attic" {
		t.Errorf("title = %q", book.Title)
	}
	if !strings.Contains(book.Price, "£") {
		t.Errorf("price %q should contain the pound symbol", book.Price)
	}
}

func TestFetchBookParseError(t *testing.T) {
	page := sampleDetailPage("No Title")
	page.Title = ""

	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", detailURL(1),
		htmlResponder(buildDetailPage(page)))

	f := newTestFetcher(t, transport)
	_, err := f.FetchBook(detailURL(1))

	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected *ParseError, got %v", err)
	}
	if parseErr.Field != "title" {
		t.Errorf("field = %q, want title", parseErr.Field)
	}
}

func TestFetchBookHTTPError(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", detailURL(1),
		httpmock.NewStringResponder(500, "boom"))

	f := newTestFetcher(t, transport)
	_, err := f.FetchBook(detailURL(1))

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected *FetchError, got %v", err)
	}
	if fetchErr.StatusCode != 500 {
		t.Errorf("status = %d, want 500", fetchErr.StatusCode)
	}
	if got := errorLabel(err); got != "fetch" {
		t.Errorf("label = %q, want fetch", got)
	}
}

func TestFetcherCountsRequests(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", listingURL(1),
		htmlResponder(buildListingPage(1, 1, false)))

	f := newTestFetcher(t, transport)
	if _, err := f.FetchListing(listingURL(1)); err != nil {
		t.Fatalf("fetch listing: %v", err)
	}
	if got := f.Requests(); got != 1 {
		t.Errorf("requests = %d, want 1", got)
	}
}
