package config

import (
	"fmt"
	"net/url"
	"time"
)

// Config holds crawler configuration. Defaults live in DefaultConfig only;
// everything else receives the struct explicitly.
type Config struct {
	BaseURL      string
	MaxPages     int // 0 crawls until the catalog is exhausted
	Concurrent   bool
	Workers      int
	Delay        time.Duration // inter-request delay in sequential mode
	Timeout      time.Duration
	SaveToFile   bool
	OutputFile   string
	OutputFormat string // text, json, or dual
	UserAgent    string
	Verbose      bool
	MetricsAddr  string
	ScheduleAt   string // daily run time as HH:MM, empty runs once
}

// DefaultConfig returns conservative defaults for the demo target.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:      "https://books.toscrape.com",
		MaxPages:     0,
		Concurrent:   false,
		Workers:      8,
		Delay:        50 * time.Millisecond,
		Timeout:      15 * time.Second,
		SaveToFile:   true,
		OutputFile:   "artifacts/books_data.txt",
		OutputFormat: "text",
		UserAgent:    "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
		Verbose:      false,
		MetricsAddr:  "",
		ScheduleAt:   "",
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	parsedURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("base URL must include a host")
	}

	if c.MaxPages < 0 {
		return fmt.Errorf("max pages cannot be negative")
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive")
	}
	if c.Delay < 0 {
		return fmt.Errorf("delay cannot be negative")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.SaveToFile && c.OutputFile == "" {
		return fmt.Errorf("output file cannot be empty")
	}
	if c.OutputFormat != "text" && c.OutputFormat != "json" && c.OutputFormat != "dual" {
		return fmt.Errorf("output format must be text, json, or dual")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if c.ScheduleAt != "" {
		if _, err := time.Parse("15:04", c.ScheduleAt); err != nil {
			return fmt.Errorf("schedule time must be HH:MM: %w", err)
		}
	}

	return nil
}
