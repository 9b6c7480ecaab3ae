package scraper

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/catalogcrawl/bookscraper/config"
	"github.com/catalogcrawl/bookscraper/models"
	"github.com/gocolly/colly/v2"
)

// Context keys for per-request result slots.
const (
	listingKey = "listing"
	bookKey    = "book"
	statusKey  = "status"
	startKey   = "start"
)

// Listing is the tagged outcome of fetching one catalog listing page. An
// empty Links slice is the end-of-catalog signal, not an error. HasNext is
// detected from the same response that produced the links, so a listing page
// is requested exactly once.
type Listing struct {
	Links   []string
	HasNext bool
}

// EndOfCatalog reports whether the page yielded no book links.
func (l *Listing) EndOfCatalog() bool {
	return len(l.Links) == 0
}

// Fetcher issues the crawler's HTTP requests. It keeps two synchronous colly
// collectors over one shared transport: one configured with listing-page
// handlers, one with the detail-page extraction hook. Scheduling (sequential
// pacing, worker fan-out) belongs to the Crawler; a Fetcher call is always
// one blocking round-trip.
type Fetcher struct {
	cfg     *config.Config
	metrics *Metrics
	listing *colly.Collector
	detail  *colly.Collector

	requestCount int64
}

// NewFetcher builds a fetcher configured from cfg.
func NewFetcher(cfg *config.Config, metrics *Metrics) (*Fetcher, error) {
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("base url must include a host")
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	f := &Fetcher{cfg: cfg, metrics: metrics}
	f.listing = f.newCollector(parsed.Host, transport)
	f.detail = f.newCollector(parsed.Host, transport)

	f.listing.OnHTML("h3 > a[href]", func(e *colly.HTMLElement) {
		l, ok := e.Request.Ctx.GetAny(listingKey).(*Listing)
		if !ok {
			return
		}
		l.Links = append(l.Links, e.Request.AbsoluteURL(e.Attr("href")))
	})
	f.listing.OnHTML("li.next a[href]", func(e *colly.HTMLElement) {
		if l, ok := e.Request.Ctx.GetAny(listingKey).(*Listing); ok {
			l.HasNext = true
		}
	})

	f.detail.OnResponse(func(r *colly.Response) {
		slot, ok := r.Ctx.GetAny(bookKey).(*bookSlot)
		if !ok {
			return
		}
		slot.book, slot.err = parseBook(r.Request.URL.String(), r.Body)
	})

	return f, nil
}

func (f *Fetcher) newCollector(host string, transport http.RoundTripper) *colly.Collector {
	c := colly.NewCollector(
		colly.AllowedDomains(host),
		colly.UserAgent(f.cfg.UserAgent),
		colly.AllowURLRevisit(),
	)
	c.SetRequestTimeout(f.cfg.Timeout)
	c.IgnoreRobotsTxt = true
	c.WithTransport(transport)

	c.OnRequest(func(r *colly.Request) {
		atomic.AddInt64(&f.requestCount, 1)
		r.Ctx.Put(startKey, time.Now())
		f.metrics.IncRequest()
	})
	c.OnResponse(func(r *colly.Response) {
		if start, ok := r.Request.Ctx.GetAny(startKey).(time.Time); ok {
			f.metrics.ObserveDuration(time.Since(start))
		}
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil && r.Request != nil {
			r.Request.Ctx.Put(statusKey, r.StatusCode)
		}
	})

	return c
}

// WithTransport swaps the HTTP transport on both collectors. Tests inject
// mock transports here.
func (f *Fetcher) WithTransport(rt http.RoundTripper) {
	f.listing.WithTransport(rt)
	f.detail.WithTransport(rt)
}

// Requests returns the total number of HTTP requests issued so far.
func (f *Fetcher) Requests() int64 {
	return atomic.LoadInt64(&f.requestCount)
}

// FetchListing performs one GET against a listing page and returns the book
// detail links discovered via anchors nested in heading elements, in document
// order, together with the next-page flag. Transport errors, timeouts, and
// non-2xx statuses surface as *FetchError.
func (f *Fetcher) FetchListing(pageURL string) (*Listing, error) {
	l := &Listing{}
	rctx := colly.NewContext()
	rctx.Put(listingKey, l)

	if err := f.listing.Request(http.MethodGet, pageURL, nil, rctx, nil); err != nil {
		return nil, &FetchError{URL: pageURL, StatusCode: statusFromCtx(rctx), Err: err}
	}
	return l, nil
}

type bookSlot struct {
	book *models.Book
	err  error
}

// FetchBook performs one GET against a book detail page and extracts the
// record. HTTP-level failures surface as *FetchError, missing mandatory
// markup as *ParseError. No retries at this layer.
func (f *Fetcher) FetchBook(bookURL string) (*models.Book, error) {
	slot := &bookSlot{}
	rctx := colly.NewContext()
	rctx.Put(bookKey, slot)

	if err := f.detail.Request(http.MethodGet, bookURL, nil, rctx, nil); err != nil {
		return nil, &FetchError{URL: bookURL, StatusCode: statusFromCtx(rctx), Err: err}
	}
	if slot.err != nil {
		return nil, slot.err
	}
	if slot.book == nil {
		return nil, &ParseError{URL: bookURL, Field: "document"}
	}
	return slot.book, nil
}

func statusFromCtx(ctx *colly.Context) int {
	if status, ok := ctx.GetAny(statusKey).(int); ok {
		return status
	}
	return 0
}
