// Package orchestrator sequences fetch, extraction, and persistence across
// the configured sources and reports progress through the job tracker.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/ozayn/planner/internal/identity"
	"github.com/ozayn/planner/internal/jobtrack"
	"github.com/ozayn/planner/internal/metrics"
	"github.com/ozayn/planner/internal/pipeline"
)

// Extractor produces candidates from a fetched document.
type Extractor interface {
	Extract(doc pipeline.Document, src pipeline.Source) ([]pipeline.EventCandidate, error)
}

// Config controls run behavior.
type Config struct {
	// Concurrency bounds the source worker pool; 1 means sequential.
	Concurrency int
	// FetchTimeout is the per-fetch budget passed to the fetcher.
	FetchTimeout time.Duration
	// MinConfidence discards candidates scoring below it. Zero keeps all.
	MinConfidence float64
	// Persist toggles sink upserts; discovery-only runs leave it false.
	Persist bool
}

// Orchestrator executes discovery runs. One source failing never aborts the
// others; a run fails only on orchestration-level errors.
type Orchestrator struct {
	fetcher   pipeline.Fetcher
	extractor Extractor
	sink      pipeline.Sink
	clock     pipeline.Clock
	cfg       Config
	logger    *zap.Logger

	current atomic.Pointer[jobtrack.Tracker]
}

// New constructs an Orchestrator. sink may be nil for discovery-only runs.
func New(
	fetcher pipeline.Fetcher,
	ext Extractor,
	sink pipeline.Sink,
	clock pipeline.Clock,
	cfg Config,
	logger *zap.Logger,
) *Orchestrator {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 15 * time.Second
	}
	if clock == nil {
		clock = pipeline.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		fetcher:   fetcher,
		extractor: ext,
		sink:      sink,
		clock:     clock,
		cfg:       cfg,
		logger:    logger,
	}
}

// Current returns the tracker of the most recent run, or nil before the
// first run. External observers poll its Snapshot.
func (o *Orchestrator) Current() *jobtrack.Tracker {
	return o.current.Load()
}

// runState carries the mutable aggregates shared by source workers. The seen
// set suppresses intra-run duplicates; sink counters detect a sink that is
// down for every call.
type runState struct {
	mu           sync.Mutex
	seen         map[identity.Key]struct{}
	completed    atomic.Int64
	sinkAttempts atomic.Int64
	sinkFailures atomic.Int64
}

func (s *runState) markIfNew(key identity.Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.seen[key]; dup {
		return false
	}
	s.seen[key] = struct{}{}
	return true
}

// Run processes all sources and returns the terminal job state. The caller's
// context carries the overall run deadline; it is checked before each source
// starts, and cancellation drives the run to failed with reason "cancelled".
func (o *Orchestrator) Run(ctx context.Context, sources []pipeline.Source) jobtrack.State {
	tracker := jobtrack.New(o.clock)
	o.current.Store(tracker)

	if len(sources) == 0 {
		tracker.Fail(pipeline.ErrNoSources.Error())
		metrics.ObserveRun(string(jobtrack.StatusFailed))
		return tracker.Snapshot()
	}

	tracker.Start("starting discovery")
	state := &runState{seen: make(map[identity.Key]struct{})}

	jobs := make(chan pipeline.Source)
	var wg sync.WaitGroup
	for i := 0; i < o.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for src := range jobs {
				o.processSource(ctx, src, tracker, state, len(sources))
			}
		}()
	}

feed:
	for _, src := range sources {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- src:
		}
	}
	close(jobs)
	wg.Wait()

	return o.finish(ctx, tracker, state)
}

func (o *Orchestrator) finish(ctx context.Context, tracker *jobtrack.Tracker, state *runState) jobtrack.State {
	switch {
	case ctx.Err() != nil:
		tracker.Fail("cancelled")
	case state.sinkAttempts.Load() > 0 && state.sinkFailures.Load() == state.sinkAttempts.Load():
		tracker.Fail("sink unavailable")
	default:
		tracker.Complete()
	}
	snap := tracker.Snapshot()
	metrics.ObserveRun(string(snap.Status))
	o.logger.Info("discovery run finished",
		zap.String("run_id", snap.RunID),
		zap.String("status", string(snap.Status)),
		zap.Int("sources_attempted", snap.Counters.SourcesAttempted),
		zap.Int("sources_failed", snap.Counters.SourcesFailed),
		zap.Int("events_found", snap.Counters.EventsFound),
		zap.Int("events_persisted", snap.Counters.EventsPersisted),
	)
	return snap
}

func (o *Orchestrator) processSource(
	ctx context.Context,
	src pipeline.Source,
	tracker *jobtrack.Tracker,
	state *runState,
	totalSources int,
) {
	// The run deadline is honored before starting work on a new source.
	if ctx.Err() != nil {
		return
	}
	tracker.Advance(fmt.Sprintf("scraping %s", src.DisplayName), progressPercent(state.completed.Load(), totalSources))

	failed := o.scrapeSource(ctx, src, tracker, state)
	tracker.SourceAttempted(failed)

	done := state.completed.Add(1)
	tracker.Advance(fmt.Sprintf("finished %s", src.DisplayName), progressPercent(done, totalSources))
}

// scrapeSource runs fetch → extract → dedupe → upsert for one source and
// reports whether the source failed outright. All errors are contained here.
func (o *Orchestrator) scrapeSource(
	ctx context.Context,
	src pipeline.Source,
	tracker *jobtrack.Tracker,
	state *runState,
) bool {
	doc, err := o.fetcher.Fetch(ctx, pipeline.FetchRequest{
		SourceID: src.ID,
		URL:      src.RootURL,
		Timeout:  o.cfg.FetchTimeout,
		RateMin:  src.RateMin,
		RateMax:  src.RateMax,
	})
	if err != nil {
		tracker.Log(fmt.Sprintf("%s: fetch failed: %s", src.ID, errorClass(err)))
		o.logger.Warn("source fetch failed",
			zap.String("source", src.ID),
			zap.String("url", src.RootURL),
			zap.Error(err),
		)
		return true
	}

	candidates, err := o.extractor.Extract(doc, src)
	if err != nil {
		tracker.Log(fmt.Sprintf("%s: parse failed", src.ID))
		o.logger.Warn("source parse failed", zap.String("source", src.ID), zap.Error(err))
		return true
	}

	accepted := 0
	persisted := 0
	for _, candidate := range candidates {
		if err := validateCandidate(candidate); err != nil {
			o.logger.Debug("candidate rejected", zap.String("source", src.ID), zap.Error(err))
			continue
		}
		if o.cfg.MinConfidence > 0 && candidate.Confidence < o.cfg.MinConfidence {
			continue
		}
		if !state.markIfNew(identity.OfCandidate(candidate)) {
			continue
		}
		accepted++

		if o.cfg.Persist && o.sink != nil {
			if o.upsertCandidate(ctx, src, candidate, tracker, state) {
				persisted++
			}
		}
	}

	tracker.AddFound(accepted)
	tracker.AddPersisted(persisted)
	metrics.ObserveEventsFound(src.ID, accepted)
	tracker.Log(fmt.Sprintf("%s: %d events found", src.ID, accepted))
	return false
}

// upsertCandidate persists one candidate. Sink calls hold no pipeline locks;
// a failing sink degrades this candidate only.
func (o *Orchestrator) upsertCandidate(
	ctx context.Context,
	src pipeline.Source,
	candidate pipeline.EventCandidate,
	tracker *jobtrack.Tracker,
	state *runState,
) bool {
	state.sinkAttempts.Add(1)
	_, err := o.sink.Upsert(ctx, pipeline.FromCandidate(candidate))
	if err != nil {
		state.sinkFailures.Add(1)
		tracker.Log(fmt.Sprintf("%s: not persisted: %q", src.ID, candidate.Title))
		o.logger.Warn("candidate not persisted",
			zap.String("source", src.ID),
			zap.String("title", candidate.Title),
			zap.Error(err),
		)
		return false
	}
	metrics.ObserveEventPersisted(src.ID)
	return true
}

// validateCandidate rejects candidates that fail basic checks. Rejected
// candidates are not counted as found.
func validateCandidate(c pipeline.EventCandidate) error {
	if strings.TrimSpace(c.Title) == "" {
		return &pipeline.ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if c.Confidence < 0 || c.Confidence > 1 {
		return &pipeline.ValidationError{Field: "confidence", Reason: "out of range"}
	}
	return nil
}

func progressPercent(done int64, total int) int {
	if total <= 0 {
		return 100
	}
	return int(done * 100 / int64(total))
}

func errorClass(err error) string {
	var fetchErr *pipeline.FetchError
	if errors.As(err, &fetchErr) {
		return string(fetchErr.Kind)
	}
	var parseErr *pipeline.ParseError
	if errors.As(err, &parseErr) {
		return "parse"
	}
	return "error"
}
