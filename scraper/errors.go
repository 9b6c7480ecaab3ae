package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// FetchError indicates a network, transport, or HTTP-status failure while
// requesting a page. StatusCode is zero when the request never produced a
// response.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ParseError indicates a mandatory structural element was absent from an
// otherwise successfully fetched page.
type ParseError struct {
	URL   string
	Field string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: missing %s", e.URL, e.Field)
}

// errorLabel buckets an error for counters and log lines.
func errorLabel(err error) string {
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		return "parse"
	}

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		return "other"
	}

	switch fetchErr.StatusCode {
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusTooManyRequests:
		return "rate_limited"
	}

	if errors.Is(fetchErr.Err, context.DeadlineExceeded) {
		return "timeout"
	}
	var netErr net.Error
	if errors.As(fetchErr.Err, &netErr) && netErr.Timeout() {
		return "timeout"
	}
	var opErr *net.OpError
	if errors.As(fetchErr.Err, &opErr) {
		return "connection"
	}

	return "fetch"
}
