// Package reconcile compares two snapshots of event records keyed by their
// normalized identity, yielding set differences and field-level deltas.
package reconcile

import (
	"sort"

	"github.com/ozayn/planner/internal/identity"
	"github.com/ozayn/planner/internal/pipeline"
)

// Pair holds the two records matched under one key.
type Pair struct {
	A pipeline.CanonicalEvent `json:"a"`
	B pipeline.CanonicalEvent `json:"b"`
}

// FieldDelta records one tracked field that differs between matched records.
type FieldDelta struct {
	Field  string `json:"field"`
	ValueA string `json:"value_a"`
	ValueB string `json:"value_b"`
}

// Result is the outcome of comparing snapshot A against snapshot B. OnlyInA,
// OnlyInB, and the keys of Matched partition the union of both key sets.
type Result struct {
	OnlyInA map[identity.Key]pipeline.CanonicalEvent `json:"only_in_a"`
	OnlyInB map[identity.Key]pipeline.CanonicalEvent `json:"only_in_b"`
	Matched map[identity.Key]Pair                    `json:"matched"`
	Changed map[identity.Key][]FieldDelta            `json:"changed"`
}

// TrackedField names a comparable field and how to read it from a record.
type TrackedField struct {
	Name string
	Get  func(pipeline.CanonicalEvent) string
}

// DefaultTrackedFields is the standard comparison list. Callers may pass
// their own subset to Reconcile.
func DefaultTrackedFields() []TrackedField {
	return []TrackedField{
		{Name: "title", Get: func(e pipeline.CanonicalEvent) string { return e.Title }},
		{Name: "start_date", Get: func(e pipeline.CanonicalEvent) string { return e.StartDate }},
		{Name: "end_date", Get: func(e pipeline.CanonicalEvent) string { return e.EndDate }},
		{Name: "start_time", Get: func(e pipeline.CanonicalEvent) string { return e.StartTime }},
		{Name: "end_time", Get: func(e pipeline.CanonicalEvent) string { return e.EndTime }},
		{Name: "location_text", Get: func(e pipeline.CanonicalEvent) string { return e.LocationText }},
		{Name: "price_text", Get: func(e pipeline.CanonicalEvent) string { return e.PriceText }},
		{Name: "source_url", Get: func(e pipeline.CanonicalEvent) string { return e.SourceURL }},
	}
}

// BuildIndex maps each record to its identity key. When two records in the
// same snapshot collide on a key, the later one in iteration order wins; the
// tie-break is deterministic but lossy.
func BuildIndex(records []pipeline.CanonicalEvent) map[identity.Key]pipeline.CanonicalEvent {
	index := make(map[identity.Key]pipeline.CanonicalEvent, len(records))
	for _, record := range records {
		index[identity.OfEvent(record)] = record
	}
	return index
}

// Reconcile compares the two snapshots in O(n) using key lookups. Passing no
// tracked fields compares the default list.
func Reconcile(a, b []pipeline.CanonicalEvent, fields ...TrackedField) Result {
	if len(fields) == 0 {
		fields = DefaultTrackedFields()
	}
	indexA := BuildIndex(a)
	indexB := BuildIndex(b)

	result := Result{
		OnlyInA: make(map[identity.Key]pipeline.CanonicalEvent),
		OnlyInB: make(map[identity.Key]pipeline.CanonicalEvent),
		Matched: make(map[identity.Key]Pair),
		Changed: make(map[identity.Key][]FieldDelta),
	}

	for key, recordA := range indexA {
		recordB, ok := indexB[key]
		if !ok {
			result.OnlyInA[key] = recordA
			continue
		}
		result.Matched[key] = Pair{A: recordA, B: recordB}
		if deltas := compareFields(recordA, recordB, fields); len(deltas) > 0 {
			result.Changed[key] = deltas
		}
	}
	for key, recordB := range indexB {
		if _, ok := indexA[key]; !ok {
			result.OnlyInB[key] = recordB
		}
	}
	return result
}

func compareFields(a, b pipeline.CanonicalEvent, fields []TrackedField) []FieldDelta {
	var deltas []FieldDelta
	for _, field := range fields {
		va, vb := field.Get(a), field.Get(b)
		if va != vb {
			deltas = append(deltas, FieldDelta{Field: field.Name, ValueA: va, ValueB: vb})
		}
	}
	return deltas
}

// SortedKeys returns the keys of a result map in stable lexical order, for
// deterministic report output.
func SortedKeys[V any](m map[identity.Key]V) []identity.Key {
	keys := make([]identity.Key, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}
