package extractor

import "strings"

// Weights tunes the additive confidence score. The values are empirical
// starting points, not fixed law; config may override them.
type Weights struct {
	Title       float64 `mapstructure:"title"`
	Date        float64 `mapstructure:"date"`
	Time        float64 `mapstructure:"time"`
	Description float64 `mapstructure:"description"`
	Keyword     float64 `mapstructure:"keyword"`
}

// DefaultWeights returns the standard scoring weights.
func DefaultWeights() Weights {
	return Weights{
		Title:       0.4,
		Date:        0.2,
		Time:        0.1,
		Description: 0.15,
		Keyword:     0.15,
	}
}

// domainKeywords signal event-like content when present in the block text.
var domainKeywords = []string{
	"exhibition",
	"tour",
	"workshop",
	"talk",
	"lecture",
	"concert",
	"festival",
	"opening",
	"screening",
	"performance",
}

// score computes the weighted presence sum for a candidate, clamped to [0,1].
// The score is advisory; callers pick their own acceptance threshold.
func (w Weights) score(title, date, timeOfDay, description, blockText string) float64 {
	total := 0.0
	if title != "" {
		total += w.Title
	}
	if date != "" {
		total += w.Date
	}
	if timeOfDay != "" {
		total += w.Time
	}
	if description != "" {
		total += w.Description
	}
	if containsKeyword(blockText) {
		total += w.Keyword
	}
	if total > 1 {
		total = 1
	}
	if total < 0 {
		total = 0
	}
	return total
}

func containsKeyword(text string) bool {
	lowered := strings.ToLower(text)
	for _, kw := range domainKeywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}
