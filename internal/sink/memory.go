package sink

import (
	"context"
	"sort"
	"sync"

	"github.com/ozayn/planner/internal/identity"
	"github.com/ozayn/planner/internal/pipeline"
)

// Memory is an in-memory Sink for development and tests. Records are keyed
// by their normalized identity; upserts on an existing key field-merge and
// advance UpdatedAt. Nothing is ever deleted.
type Memory struct {
	mu     sync.RWMutex
	events map[identity.Key]pipeline.CanonicalEvent
	nextID int64
	clock  pipeline.Clock
}

// NewMemory constructs an empty Memory sink.
func NewMemory(clock pipeline.Clock) *Memory {
	if clock == nil {
		clock = pipeline.SystemClock{}
	}
	return &Memory{
		events: make(map[identity.Key]pipeline.CanonicalEvent),
		nextID: 1,
		clock:  clock,
	}
}

// Upsert inserts the record, or merges it into the existing record sharing
// its identity key.
func (m *Memory) Upsert(_ context.Context, event pipeline.CanonicalEvent) (pipeline.UpsertResult, error) {
	key := identity.OfEvent(event)
	now := m.clock.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.events[key]; ok {
		merged := merge(existing, event)
		merged.UpdatedAt = now
		m.events[key] = merged
		return pipeline.UpsertResult{ID: merged.ID, IsNew: false}, nil
	}

	event.ID = m.nextID
	m.nextID++
	event.CreatedAt = now
	event.UpdatedAt = now
	m.events[key] = event
	return pipeline.UpsertResult{ID: event.ID, IsNew: true}, nil
}

// FindByKey looks up the record sharing the given identity components.
func (m *Memory) FindByKey(_ context.Context, normalizedTitle, isoDate, hhmm string) (pipeline.CanonicalEvent, bool, error) {
	key := identity.Key{Title: normalizedTitle, Date: isoDate, Time: hhmm}
	m.mu.RLock()
	defer m.mu.RUnlock()
	event, ok := m.events[key]
	return event, ok, nil
}

// ListSnapshot returns all records ordered by surrogate ID.
func (m *Memory) ListSnapshot(_ context.Context) ([]pipeline.CanonicalEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]pipeline.CanonicalEvent, 0, len(m.events))
	for _, event := range m.events {
		out = append(out, event)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
