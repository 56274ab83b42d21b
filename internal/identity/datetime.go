package identity

import (
	"strings"
	"time"
)

// dateLayouts are tried in order against cleaned date text. Month-name forms
// first, then numeric, then ISO.
var dateLayouts = []string{
	"January 2, 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"2 January 2006",
	"01/02/2006",
	"1/2/2006",
	"01/02/06",
	"1.2.2006",
	"1.2.06",
	"2006-01-02",
}

// timeLayouts are tried in order against cleaned time text.
var timeLayouts = []string{
	"15:04:05",
	"15:04",
	"3:04 PM",
	"3:04PM",
	"3 PM",
	"3PM",
}

// ParseDateText parses free-form date text into ISO yyyy-mm-dd.
// Returns "" if no known layout matches.
func ParseDateText(text string) string {
	cleaned := strings.TrimSpace(text)
	if cleaned == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, cleaned); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return ""
}

// ParseTimeText parses free-form time-of-day text into HH:MM, discarding
// seconds. Returns "" if no known layout matches.
func ParseTimeText(text string) string {
	cleaned := strings.ToUpper(strings.TrimSpace(text))
	if cleaned == "" {
		return ""
	}
	// Normalize "2:00 p.m." style markers before layout matching.
	cleaned = strings.ReplaceAll(cleaned, ".", "")
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, cleaned); err == nil {
			return t.Format("15:04")
		}
	}
	return ""
}
