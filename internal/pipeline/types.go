// Package pipeline defines core types shared across subsystems.
package pipeline

import (
	"time"
)

// SourceKind distinguishes the flavor of a configured origin.
type SourceKind string

// Supported source kinds.
const (
	SourceKindWebsite SourceKind = "website"
	SourceKindSocial  SourceKind = "social"
)

// Source is the read-only configuration for one origin. It is owned by the
// configuration layer and never mutated during a run.
type Source struct {
	ID          string        `json:"id" mapstructure:"id"`
	DisplayName string        `json:"display_name" mapstructure:"display_name"`
	RootURL     string        `json:"root_url" mapstructure:"root_url"`
	Kind        SourceKind    `json:"kind" mapstructure:"kind"`
	Profiles    []ProfileRule `json:"profiles" mapstructure:"profiles"`
	// RateMin/RateMax bound the randomized inter-request delay for this source.
	RateMin time.Duration `json:"rate_min" mapstructure:"rate_min"`
	RateMax time.Duration `json:"rate_max" mapstructure:"rate_max"`
}

// RuleType tags a ProfileRule variant.
type RuleType string

// Profile rule variants. A selector rule locates structural blocks via a CSS
// selector; a regex rule scans the page text line by line.
const (
	RuleSelector RuleType = "selector"
	RuleRegex    RuleType = "regex"
)

// ProfileRule is one entry in a source's ordered extraction profile.
type ProfileRule struct {
	Type    RuleType `json:"type" mapstructure:"type"`
	Pattern string   `json:"pattern" mapstructure:"pattern"`
}

// EventCandidate is an extraction result, not yet canonical. Candidates are
// never mutated after creation; a new extraction attempt produces new values.
type EventCandidate struct {
	Title        string  `json:"title"`
	Description  string  `json:"description,omitempty"`
	StartDate    string  `json:"start_date,omitempty"` // ISO yyyy-mm-dd or empty
	EndDate      string  `json:"end_date,omitempty"`
	StartTime    string  `json:"start_time,omitempty"` // HH:MM or empty
	EndTime      string  `json:"end_time,omitempty"`
	LocationText string  `json:"location_text,omitempty"`
	PriceText    string  `json:"price_text,omitempty"`
	SourceURL    string  `json:"source_url"`
	Organizer    string  `json:"organizer,omitempty"`
	Confidence   float64 `json:"confidence"`
	RawSnippet   string  `json:"raw_snippet,omitempty"`
}

// CanonicalEvent is the persisted shape accepted by the sink. Venue and city
// resolution belongs to an external collaborator; the pipeline carries the
// fields through untouched.
type CanonicalEvent struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	StartDate    string    `json:"start_date,omitempty"`
	EndDate      string    `json:"end_date,omitempty"`
	StartTime    string    `json:"start_time,omitempty"`
	EndTime      string    `json:"end_time,omitempty"`
	LocationText string    `json:"location_text,omitempty"`
	PriceText    string    `json:"price_text,omitempty"`
	SourceURL    string    `json:"source_url"`
	Organizer    string    `json:"organizer,omitempty"`
	Confidence   float64   `json:"confidence"`
	VenueID      *int64    `json:"venue_id,omitempty"`
	CityID       *int64    `json:"city_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// FromCandidate builds the persistable shape from an extraction result.
func FromCandidate(c EventCandidate) CanonicalEvent {
	return CanonicalEvent{
		Title:        c.Title,
		Description:  c.Description,
		StartDate:    c.StartDate,
		EndDate:      c.EndDate,
		StartTime:    c.StartTime,
		EndTime:      c.EndTime,
		LocationText: c.LocationText,
		PriceText:    c.PriceText,
		SourceURL:    c.SourceURL,
		Organizer:    c.Organizer,
		Confidence:   c.Confidence,
	}
}

// UpsertResult reports what the sink did with a record.
type UpsertResult struct {
	ID    int64 `json:"id"`
	IsNew bool  `json:"is_new"`
}

// FetchRequest captures everything needed to fetch a URL.
type FetchRequest struct {
	SourceID string
	URL      string
	Timeout  time.Duration
	// RateMin/RateMax carry the source's inter-request delay window to the
	// rate limiter; zero values fall back to the limiter defaults.
	RateMin time.Duration
	RateMax time.Duration
}

// Document is the raw result returned by a Fetcher implementation.
type Document struct {
	URL        string
	StatusCode int
	Body       []byte
	Duration   time.Duration
}
