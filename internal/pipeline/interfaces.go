package pipeline

import (
	"context"
	"time"
)

// Fetcher retrieves one URL and returns the raw document.
type Fetcher interface {
	Fetch(ctx context.Context, req FetchRequest) (Document, error)
}

// Sink is the persistence contract consumed by the orchestrator. Upsert
// merges by EventKey rather than blindly overwriting; FindByKey returns
// (zero, false, nil) when no record shares the key.
type Sink interface {
	Upsert(ctx context.Context, event CanonicalEvent) (UpsertResult, error)
	FindByKey(ctx context.Context, normalizedTitle, isoDate, hhmm string) (CanonicalEvent, bool, error)
	ListSnapshot(ctx context.Context) ([]CanonicalEvent, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock.
type SystemClock struct{}

// Now returns the wall-clock time in UTC.
func (SystemClock) Now() time.Time { return time.Now().UTC() }
