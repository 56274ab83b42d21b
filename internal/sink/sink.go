// Package sink provides persistence implementations of the pipeline's Sink
// contract: Postgres for production and an in-memory store for development
// and tests.
package sink

import (
	"github.com/ozayn/planner/internal/pipeline"
)

// merge folds an incoming record into an existing one without blindly
// overwriting: only non-empty incoming fields replace existing values, and
// the surrogate ID and creation timestamp are preserved.
func merge(existing, incoming pipeline.CanonicalEvent) pipeline.CanonicalEvent {
	out := existing
	if incoming.Description != "" {
		out.Description = incoming.Description
	}
	if incoming.EndDate != "" {
		out.EndDate = incoming.EndDate
	}
	if incoming.EndTime != "" {
		out.EndTime = incoming.EndTime
	}
	if incoming.LocationText != "" {
		out.LocationText = incoming.LocationText
	}
	if incoming.PriceText != "" {
		out.PriceText = incoming.PriceText
	}
	if incoming.SourceURL != "" {
		out.SourceURL = incoming.SourceURL
	}
	if incoming.Organizer != "" {
		out.Organizer = incoming.Organizer
	}
	if incoming.Confidence > out.Confidence {
		out.Confidence = incoming.Confidence
	}
	if incoming.VenueID != nil {
		out.VenueID = incoming.VenueID
	}
	if incoming.CityID != nil {
		out.CityID = incoming.CityID
	}
	return out
}
