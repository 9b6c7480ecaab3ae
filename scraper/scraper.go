// Package scraper crawls the paginated book catalog: listing pages fetched
// one at a time, detail pages extracted sequentially or through a bounded
// worker pool. The crawl is best-effort: a listing failure terminates it
// with partial results, a per-book failure is logged and skipped.
package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/catalogcrawl/bookscraper/config"
	"github.com/catalogcrawl/bookscraper/models"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"
)

// seenCacheSize bounds the within-run detail-URL dedupe cache. The demo
// catalog holds 1000 books.
const seenCacheSize = 8192

// Crawler drives the page loop and owns the result accumulation.
type Crawler struct {
	cfg     *config.Config
	fetcher *Fetcher
	seen    *lru.Cache[string, struct{}]
	Metrics *Metrics
}

// NewCrawler builds a crawler configured from cfg.
func NewCrawler(cfg *config.Config) (*Crawler, error) {
	metrics := NewMetrics()
	fetcher, err := NewFetcher(cfg, metrics)
	if err != nil {
		return nil, err
	}
	seen, err := lru.New[string, struct{}](seenCacheSize)
	if err != nil {
		return nil, fmt.Errorf("seen cache: %w", err)
	}
	return &Crawler{
		cfg:     cfg,
		fetcher: fetcher,
		seen:    seen,
		Metrics: metrics,
	}, nil
}

// WithTransport swaps the HTTP transport. Tests inject mock transports here.
func (c *Crawler) WithTransport(rt http.RoundTripper) {
	c.fetcher.WithTransport(rt)
}

// Run crawls the catalog from page 1 until exhaustion, an empty page, a
// listing fetch error, the configured page cap, or context cancellation.
// All termination causes converge on the same contract: the result carries
// whatever was gathered.
func (c *Crawler) Run(ctx context.Context) *models.CrawlResult {
	if ctx == nil {
		ctx = context.Background()
	}
	c.seen.Purge() // runs are independent, no dedupe across runs

	run := newCrawlRun()
	start := time.Now()
	startRequests := c.fetcher.Requests()
	limiter := rate.NewLimiter(rate.Every(c.cfg.Delay), 1)

	page := 1
	for ctx.Err() == nil {
		pageURL := c.pageURL(page)

		listing, err := c.fetcher.FetchListing(pageURL)
		if err != nil {
			slog.Error("listing fetch failed, stopping crawl",
				slog.Int("page", page),
				slog.String("url", pageURL),
				slog.Any("error", err),
			)
			run.recordError(pageURL, err)
			c.Metrics.IncError(errorLabel(err))
			break
		}
		run.pages++
		c.Metrics.IncPages()

		if listing.EndOfCatalog() {
			slog.Info("catalog exhausted", slog.Int("page", page))
			break
		}

		slog.Info("listing page fetched",
			slog.Int("page", page),
			slog.Int("links", len(listing.Links)),
		)

		if c.cfg.Concurrent {
			c.extractConcurrent(ctx, run, listing.Links)
		} else {
			c.extractSequential(ctx, run, limiter, listing.Links)
		}

		if !listing.HasNext {
			break
		}
		if c.cfg.MaxPages > 0 && page >= c.cfg.MaxPages {
			slog.Info("page cap reached", slog.Int("page", page))
			break
		}
		page++
	}

	result := run.result(start)
	result.RequestCount = int(c.fetcher.Requests() - startRequests)
	return result
}

// pageURL computes a listing page address: page 1 is the root index, pages
// two onward use the numbered pagination template.
func (c *Crawler) pageURL(page int) string {
	base := strings.TrimSuffix(c.cfg.BaseURL, "/")
	if page <= 1 {
		return base + "/index.html"
	}
	return fmt.Sprintf("%s/catalogue/page-%d.html", base, page)
}

// extractSequential walks the links in listing order, pacing requests with
// the shared limiter. A failed book never aborts the page.
func (c *Crawler) extractSequential(ctx context.Context, run *crawlRun, limiter *rate.Limiter, links []string) {
	for _, link := range links {
		if !c.markSeen(link) {
			continue
		}
		if err := limiter.Wait(ctx); err != nil {
			return
		}
		c.extractOne(run, link)
	}
}

// extractConcurrent fans one page's links out to a fixed worker pool.
// Pages are never fetched in parallel with each other; only the per-page
// detail fetches run concurrently, and results append in completion order.
func (c *Crawler) extractConcurrent(ctx context.Context, run *crawlRun, links []string) {
	workers := c.cfg.Workers
	if workers > len(links) {
		workers = len(links)
	}

	jobs := make(chan string)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for link := range jobs {
				c.extractOne(run, link)
			}
		}()
	}

	for _, link := range links {
		if ctx.Err() != nil {
			break
		}
		if !c.markSeen(link) {
			continue
		}
		jobs <- link
	}
	close(jobs)
	wg.Wait()
}

func (c *Crawler) extractOne(run *crawlRun, link string) {
	book, err := c.fetcher.FetchBook(link)
	if err != nil {
		slog.Warn("skipping book",
			slog.String("url", link),
			slog.String("cause", errorLabel(err)),
			slog.Any("error", err),
		)
		run.recordError(link, err)
		c.Metrics.IncError(errorLabel(err))
		return
	}
	run.append(book)
	c.Metrics.IncBooks()
}

func (c *Crawler) markSeen(link string) bool {
	if _, ok := c.seen.Get(link); ok {
		slog.Debug("duplicate link skipped", slog.String("url", link))
		return false
	}
	c.seen.Add(link, struct{}{})
	return true
}

// crawlRun accumulates one Run invocation. The mutex makes appends safe for
// the concurrent mode's workers; no other component touches the collection.
type crawlRun struct {
	mu           sync.Mutex
	books        []*models.Book
	failedURLs   []string
	errorsByType map[string]int
	pages        int
}

func newCrawlRun() *crawlRun {
	return &crawlRun{
		errorsByType: make(map[string]int),
	}
}

func (r *crawlRun) append(book *models.Book) {
	r.mu.Lock()
	r.books = append(r.books, book)
	r.mu.Unlock()
}

func (r *crawlRun) recordError(url string, err error) {
	r.mu.Lock()
	r.failedURLs = append(r.failedURLs, url)
	r.errorsByType[errorLabel(err)]++
	r.mu.Unlock()
}

func (r *crawlRun) result(start time.Time) *models.CrawlResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	errorCount := 0
	errorsByType := make(map[string]int, len(r.errorsByType))
	for label, count := range r.errorsByType {
		errorsByType[label] = count
		errorCount += count
	}
	failed := make([]string, len(r.failedURLs))
	copy(failed, r.failedURLs)

	return &models.CrawlResult{
		Books:        r.books,
		StartTime:    start,
		EndTime:      time.Now(),
		PageCount:    r.pages,
		ErrorCount:   errorCount,
		FailedURLs:   failed,
		ErrorsByType: errorsByType,
	}
}
