package pipeline

import (
	"errors"
	"fmt"
)

// FetchErrorKind classifies why a fetch failed.
type FetchErrorKind string

// Fetch failure classes. Timeout, connection, and 5xx status errors are
// retryable; everything else fails the request immediately.
const (
	FetchTimeout      FetchErrorKind = "timeout"
	FetchConnection   FetchErrorKind = "connection"
	FetchHTTPStatus   FetchErrorKind = "http-status"
	FetchRedirectLoop FetchErrorKind = "redirect-loop"
)

// FetchError wraps a failed fetch with its classification and the HTTP status
// code when one was observed.
type FetchError struct {
	Kind       FetchErrorKind
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch %s: %s (status %d)", e.URL, e.Kind, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Retryable reports whether the failure class is worth another attempt.
// 429 is treated as transient throttling; other 4xx statuses are not.
func (e *FetchError) Retryable() bool {
	switch e.Kind {
	case FetchTimeout, FetchConnection:
		return true
	case FetchHTTPStatus:
		return e.StatusCode >= 500 || e.StatusCode == 429
	default:
		return false
	}
}

// ParseError indicates the document could not be parsed as markup at all.
// Malformed fields inside parseable markup are not parse errors.
type ParseError struct {
	URL string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.URL, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ValidationError marks a candidate that failed basic checks (e.g. empty
// title). Such candidates are discarded and not counted as found.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid candidate: %s %s", e.Field, e.Reason)
}

// SinkError wraps persistence failures. A failed upsert degrades the one
// candidate; it never aborts the source or the run.
type SinkError struct {
	Op  string
	Err error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("sink %s: %v", e.Op, e.Err)
}

func (e *SinkError) Unwrap() error { return e.Err }

// ErrNoSources is the canonical orchestration-level failure: with nothing
// configured, continuing is meaningless.
var ErrNoSources = errors.New("no sources configured")
