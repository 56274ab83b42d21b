// Package jobtrack models the lifecycle of one discovery run and exposes a
// poll-friendly snapshot for external observers.
package jobtrack

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ozayn/planner/internal/pipeline"
)

// Status is the lifecycle state of a run.
type Status string

// Run states. in_progress re-enters itself as the orchestrator advances
// through sources; completed and failed are terminal.
const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

const defaultLogCapacity = 20

// Counters aggregates per-run totals. All fields are cumulative and only grow.
type Counters struct {
	SourcesAttempted int `json:"sources_attempted"`
	SourcesFailed    int `json:"sources_failed"`
	EventsFound      int `json:"events_found"`
	EventsPersisted  int `json:"events_persisted"`
}

// LogEntry is one line of the bounded run log.
type LogEntry struct {
	At      time.Time `json:"at"`
	Message string    `json:"message"`
}

// State is an immutable snapshot of a run, safe to hand to pollers.
type State struct {
	RunID           string     `json:"run_id"`
	Status          Status     `json:"status"`
	CurrentStep     string     `json:"current_step"`
	ProgressPercent int        `json:"progress_percent"`
	Counters        Counters   `json:"counters"`
	LogEntries      []LogEntry `json:"log_entries"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`
	ErrorText       string     `json:"error_text,omitempty"`
}

// Tracker owns the mutable state of exactly one run. All updates go through
// its mutex so concurrent source workers preserve the monotonicity
// invariants: ProgressPercent and EventsFound never regress within a run.
type Tracker struct {
	mu       sync.RWMutex
	runID    string
	status   Status
	step     string
	percent  int
	counters Counters
	log      *ringLog
	started  *time.Time
	finished *time.Time
	errText  string
	clock    pipeline.Clock
}

// New creates a Tracker in not_started with a fresh run ID.
func New(clock pipeline.Clock) *Tracker {
	if clock == nil {
		clock = pipeline.SystemClock{}
	}
	return &Tracker{
		runID:  uuid.NewString(),
		status: StatusNotStarted,
		log:    newRingLog(defaultLogCapacity),
		clock:  clock,
	}
}

// Start transitions to in_progress. Calling Start on a run that already
// started is a no-op.
func (t *Tracker) Start(step string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != StatusNotStarted {
		return
	}
	now := t.clock.Now()
	t.status = StatusInProgress
	t.started = &now
	t.step = step
	t.log.append(LogEntry{At: now, Message: "run started"})
}

// Advance records a self-transition: a new step label and a progress value.
// Progress below the current value is clamped so the percentage never
// regresses.
func (t *Tracker) Advance(step string, percent int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.terminalLocked() {
		return
	}
	t.step = step
	if percent > 100 {
		percent = 100
	}
	if percent > t.percent {
		t.percent = percent
	}
}

// AddFound adds to the cumulative events-found counter.
func (t *Tracker) AddFound(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if n > 0 {
		t.counters.EventsFound += n
	}
}

// AddPersisted adds to the cumulative events-persisted counter.
func (t *Tracker) AddPersisted(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if n > 0 {
		t.counters.EventsPersisted += n
	}
}

// SourceAttempted bumps the attempted counter, and the failed counter too
// when the source produced a fatal error.
func (t *Tracker) SourceAttempted(failed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counters.SourcesAttempted++
	if failed {
		t.counters.SourcesFailed++
	}
}

// Log appends a message to the bounded run log, evicting the oldest entry
// when the buffer is full.
func (t *Tracker) Log(message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.log.append(LogEntry{At: t.clock.Now(), Message: message})
}

// Complete marks the run completed. Partial per-source failures still
// complete; failure is reserved for orchestration-level errors.
func (t *Tracker) Complete() {
	t.finish(StatusCompleted, "")
}

// Fail marks the run failed with a reason.
func (t *Tracker) Fail(reason string) {
	t.finish(StatusFailed, reason)
}

func (t *Tracker) finish(status Status, errText string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.terminalLocked() {
		return
	}
	now := t.clock.Now()
	t.status = status
	t.finished = &now
	t.errText = errText
	if status == StatusCompleted {
		t.percent = 100
	}
	message := "run " + string(status)
	if errText != "" {
		message += ": " + errText
	}
	t.log.append(LogEntry{At: now, Message: message})
}

// Snapshot returns a copy of the current state for pollers. The tracker
// never pushes notifications; observers call this on their own schedule.
func (t *Tracker) Snapshot() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return State{
		RunID:           t.runID,
		Status:          t.status,
		CurrentStep:     t.step,
		ProgressPercent: t.percent,
		Counters:        t.counters,
		LogEntries:      t.log.entries(),
		StartedAt:       copyTime(t.started),
		FinishedAt:      copyTime(t.finished),
		ErrorText:       t.errText,
	}
}

func (t *Tracker) terminalLocked() bool {
	return t.status == StatusCompleted || t.status == StatusFailed
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	ts := *t
	return &ts
}
