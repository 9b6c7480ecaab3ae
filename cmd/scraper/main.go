package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/catalogcrawl/bookscraper/config"
	"github.com/catalogcrawl/bookscraper/models"
	"github.com/catalogcrawl/bookscraper/scraper"
	"github.com/catalogcrawl/bookscraper/sink"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
)

func main() {
	defaultCfg := config.DefaultConfig()

	pagesDefault := defaultCfg.MaxPages
	if value, ok, err := config.EnvInt("SCRAPER_PAGES"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid SCRAPER_PAGES: %v\n", err)
		os.Exit(1)
	} else if ok {
		pagesDefault = value
	}
	workersDefault := defaultCfg.Workers
	if value, ok, err := config.EnvInt("SCRAPER_WORKERS"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid SCRAPER_WORKERS: %v\n", err)
		os.Exit(1)
	} else if ok {
		workersDefault = value
	}
	concurrentDefault := defaultCfg.Concurrent
	if value, ok, err := config.EnvBool("SCRAPER_CONCURRENT"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid SCRAPER_CONCURRENT: %v\n", err)
		os.Exit(1)
	} else if ok {
		concurrentDefault = value
	}
	outputDefault := defaultCfg.OutputFile
	if value, ok := config.EnvString("SCRAPER_OUTPUT"); ok {
		outputDefault = value
	}
	metricsDefault := defaultCfg.MetricsAddr
	if value, ok := config.EnvString("SCRAPER_METRICS_ADDR"); ok {
		metricsDefault = value
	}

	maxPages := flag.Int("pages", pagesDefault, "Maximum catalog pages to crawl (0 = all)")
	concurrent := flag.Bool("concurrent", concurrentDefault, "Extract books with a worker pool instead of sequentially")
	workers := flag.Int("workers", workersDefault, "Worker pool size in concurrent mode")
	delay := flag.Duration("delay", defaultCfg.Delay, "Inter-request delay in sequential mode")
	timeout := flag.Duration("timeout", defaultCfg.Timeout, "Per-request timeout")
	save := flag.Bool("save", defaultCfg.SaveToFile, "Save results to the output file")
	outputFile := flag.String("output", outputDefault, "Output file path")
	outputFormat := flag.String("format", defaultCfg.OutputFormat, "Output format: text, json, or dual")
	baseURL := flag.String("base-url", defaultCfg.BaseURL, "Catalog root address")
	schedule := flag.String("schedule", "", "Run daily at this wall-clock time (HH:MM); empty runs once")
	metricsAddr := flag.String("metrics-addr", metricsDefault, "Prometheus metrics listen address (e.g. :9090)")
	verbose := flag.Bool("v", false, "Enable verbose logging")

	flag.Parse()

	logger, level := newLogger(*verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	cfg := defaultCfg
	cfg.BaseURL = *baseURL
	cfg.MaxPages = *maxPages
	cfg.Concurrent = *concurrent
	cfg.Workers = *workers
	cfg.Delay = *delay
	cfg.Timeout = *timeout
	cfg.SaveToFile = *save
	cfg.OutputFile = *outputFile
	cfg.OutputFormat = strings.ToLower(*outputFormat)
	cfg.Verbose = *verbose
	cfg.MetricsAddr = *metricsAddr
	cfg.ScheduleAt = *schedule

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	crawler, err := scraper.NewCrawler(cfg)
	if err != nil {
		slog.Error("initialising crawler", slog.Any("error", err))
		os.Exit(1)
	}

	metricsServer := startMetricsServer(cfg.MetricsAddr, crawler.Metrics)

	var runErr error
	if cfg.ScheduleAt != "" {
		runErr = runScheduled(ctx, crawler, cfg)
	} else {
		runErr = runOnce(ctx, crawler, cfg)
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}

	if runErr != nil {
		slog.Error("run failed", slog.Any("error", runErr))
		os.Exit(1)
	}
}

// runOnce performs a single crawl and, when enabled, the save step. A save
// failure is surfaced but never discards the crawl result.
func runOnce(ctx context.Context, crawler *scraper.Crawler, cfg *config.Config) error {
	slog.Info("starting crawl",
		slog.String("base_url", cfg.BaseURL),
		slog.Int("pages", cfg.MaxPages),
		slog.Bool("concurrent", cfg.Concurrent),
		slog.Int("workers", cfg.Workers),
	)

	start := time.Now()
	result := crawler.Run(ctx)

	saved := 0
	var saveErr error
	if cfg.SaveToFile {
		saved, saveErr = sink.Save(result.Books, cfg.OutputFormat, cfg.OutputFile)
		if saveErr != nil {
			slog.Error("saving results failed",
				slog.String("path", cfg.OutputFile),
				slog.Any("error", saveErr),
			)
		} else {
			slog.Info("results saved",
				slog.Int("count", saved),
				slog.String("path", cfg.OutputFile),
			)
		}
	}

	printSummary(result, time.Since(start), saved, cfg)
	return saveErr
}

// runScheduled registers a daily crawl at the configured wall-clock time and
// blocks until interrupted. A failed run is logged and the schedule keeps
// going.
func runScheduled(ctx context.Context, crawler *scraper.Crawler, cfg *config.Config) error {
	spec, err := cronSpec(cfg.ScheduleAt)
	if err != nil {
		return err
	}

	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		if err := runOnce(ctx, crawler, cfg); err != nil {
			slog.Error("scheduled run failed", slog.Any("error", err))
		}
	}); err != nil {
		return fmt.Errorf("register schedule: %w", err)
	}

	c.Start()
	slog.Info("scheduler started, waiting for next run",
		slog.String("at", cfg.ScheduleAt),
	)

	<-ctx.Done()
	slog.Info("shutdown signal received, waiting for in-flight run to finish")
	<-c.Stop().Done()
	return nil
}

// cronSpec converts an HH:MM wall-clock time into a daily cron expression.
func cronSpec(at string) (string, error) {
	t, err := time.Parse("15:04", at)
	if err != nil {
		return "", fmt.Errorf("invalid schedule time %q: %w", at, err)
	}
	return fmt.Sprintf("%d %d * * *", t.Minute(), t.Hour()), nil
}

func startMetricsServer(addr string, metrics *scraper.Metrics) *http.Server {
	if addr == "" || metrics == nil {
		return nil
	}

	server := &http.Server{
		Addr:    addr,
		Handler: promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}),
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", slog.Any("error", err))
		}
	}()
	slog.Info("metrics server enabled", slog.String("addr", addr))
	return server
}

func printSummary(result *models.CrawlResult, duration time.Duration, saved int, cfg *config.Config) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Crawl complete")

	fmt.Printf("  Total books:   %d\n", len(result.Books))
	fmt.Printf("  Pages:         %d\n", result.PageCount)
	fmt.Printf("  Requests:      %d\n", result.RequestCount)
	fmt.Printf("  Errors:        %d\n", result.ErrorCount)
	fmt.Printf("  Failed URLs:   %d\n", len(result.FailedURLs))
	if len(result.ErrorsByType) > 0 {
		fmt.Printf("  Error types:   %v\n", result.ErrorsByType)
	}
	fmt.Printf("  Duration:      %v\n", duration)
	if duration.Seconds() > 0 {
		fmt.Printf("  Books/sec:     %.2f\n", float64(len(result.Books))/duration.Seconds())
	}
	if cfg.SaveToFile {
		fmt.Printf("  Saved:         %d\n", saved)
		fmt.Printf("  Output file:   %s\n", cfg.OutputFile)
	}
	fmt.Println(separator)
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
