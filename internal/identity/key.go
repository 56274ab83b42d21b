// Package identity derives the stable, ID-independent key used to decide
// whether two event records describe the same event.
package identity

import (
	"strings"

	"github.com/ozayn/planner/internal/pipeline"
)

// Key is the normalized (title, date, time) triple. Two records with equal
// keys are the same event for deduplication and reconciliation, regardless
// of surrogate IDs. Keys are valid map keys.
type Key struct {
	Title string // lower-cased, whitespace-collapsed
	Date  string // ISO yyyy-mm-dd, or "" when unparseable
	Time  string // HH:MM, or "" when unparseable
}

// String renders the key in a stable pipe-delimited form for logs and dumps.
func (k Key) String() string {
	return k.Title + "|" + k.Date + "|" + k.Time
}

// KeyOf derives a Key from raw title, date, and time text. It is a pure
// function: identical inputs always yield identical keys, independent of
// caller timezone or locale. Comparisons are on the literal extracted text,
// never on a computed absolute instant.
func KeyOf(title, dateText, timeText string) Key {
	return Key{
		Title: NormalizeTitle(title),
		Date:  normalizeDate(dateText),
		Time:  normalizeTime(timeText),
	}
}

// OfCandidate derives the Key for an extraction result.
func OfCandidate(c pipeline.EventCandidate) Key {
	return KeyOf(c.Title, c.StartDate, c.StartTime)
}

// OfEvent derives the Key for a persisted record.
func OfEvent(e pipeline.CanonicalEvent) Key {
	return KeyOf(e.Title, e.StartDate, e.StartTime)
}

// NormalizeTitle lower-cases, trims, and collapses internal whitespace runs
// to single spaces.
func NormalizeTitle(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(title)), " ")
}

// normalizeDate keeps the date component only when it parses to an ISO
// calendar date. Already-ISO input passes through the same parser so junk
// like "2025-13-40" is rejected rather than propagated.
func normalizeDate(dateText string) string {
	return ParseDateText(dateText)
}

// normalizeTime truncates to hour:minute and drops anything unparseable.
func normalizeTime(timeText string) string {
	return ParseTimeText(timeText)
}
