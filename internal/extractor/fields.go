package extractor

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ozayn/planner/internal/identity"
)

const minTitleLength = 4

// titleSelectors are the ordered locations tried for a block's title.
var titleSelectors = []string{
	"h1", "h2", "h3", "h4",
	"[class*=title]",
	"[class*=name]",
	"strong",
	"a",
}

// titleDenylist holds navigational text that is never an event title.
var titleDenylist = map[string]struct{}{
	"home":      {},
	"about":     {},
	"menu":      {},
	"contact":   {},
	"search":    {},
	"login":     {},
	"sign in":   {},
	"sign up":   {},
	"events":    {},
	"calendar":  {},
	"news":      {},
	"visit":     {},
	"shop":      {},
	"tickets":   {},
	"read more": {},
	"more":      {},
}

// Date patterns tried in priority order: month-name, numeric, ISO.
var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:January|February|March|April|May|June|July|August|September|October|November|December|Jan|Feb|Mar|Apr|Jun|Jul|Aug|Sep|Sept|Oct|Nov|Dec)\.?\s+\d{1,2}(?:st|nd|rd|th)?,?\s+\d{4}\b`),
	regexp.MustCompile(`\b\d{1,2}[/.]\d{1,2}[/.]\d{2,4}\b`),
	regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`),
}

var (
	ordinalSuffix  = regexp.MustCompile(`(\d{1,2})(?:st|nd|rd|th)\b`)
	monthAbbrevDot = regexp.MustCompile(`(?i)\b(Jan|Feb|Mar|Apr|Jun|Jul|Aug|Sep|Sept|Oct|Nov|Dec)\.`)
	septLongAbbrev = regexp.MustCompile(`(?i)\bSept\b`)
)

// Clock-time patterns: HH:MM (optionally with am/pm), then bare "7 pm".
var timePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b\d{1,2}:\d{2}(?::\d{2})?\s*(?:[ap]\.?m\.?)?`),
	regexp.MustCompile(`(?i)\b\d{1,2}\s*[ap]\.?m\.?`),
}

var (
	locationLabel = regexp.MustCompile(`(?i)(?:location|venue|where)\s*:\s*(.+)`)
	priceLabel    = regexp.MustCompile(`(?i)(?:price|admission|cost)\s*:\s*(.+)`)
	pricePattern  = regexp.MustCompile(`(?i)\bfree\b|\$\s?\d+(?:\.\d{2})?`)
)

// acceptableTitle applies the minimum length and denylist filters.
func acceptableTitle(title string) bool {
	cleaned := strings.TrimSpace(title)
	if len(cleaned) < minTitleLength {
		return false
	}
	_, denied := titleDenylist[strings.ToLower(cleaned)]
	return !denied
}

// extractTitle walks the ordered candidate locations and returns the first
// acceptable title, or "".
func extractTitle(sel *goquery.Selection) string {
	title := ""
	for _, location := range titleSelectors {
		sel.Find(location).EachWithBreak(func(_ int, node *goquery.Selection) bool {
			text := collapseWhitespace(node.Text())
			if acceptableTitle(text) {
				title = text
				return false
			}
			return true
		})
		if title != "" {
			return title
		}
	}
	// The block may itself be a heading with no child elements.
	if text := collapseWhitespace(sel.Text()); sel.Children().Length() == 0 && acceptableTitle(text) {
		return text
	}
	return ""
}

// extractDates returns the first and second date matches in the block text as
// ISO strings. Unmatched components stay empty; nothing is guessed.
func extractDates(text string) (start, end string) {
	for _, pattern := range datePatterns {
		matches := pattern.FindAllString(text, 2)
		if len(matches) == 0 {
			continue
		}
		start = identity.ParseDateText(cleanDateText(matches[0]))
		if len(matches) > 1 {
			end = identity.ParseDateText(cleanDateText(matches[1]))
		}
		if start != "" {
			return start, end
		}
	}
	return "", ""
}

// extractTimes returns the first and second clock-time matches as HH:MM.
func extractTimes(text string) (start, end string) {
	for _, pattern := range timePatterns {
		matches := pattern.FindAllString(text, 2)
		if len(matches) == 0 {
			continue
		}
		start = identity.ParseTimeText(matches[0])
		if len(matches) > 1 {
			end = identity.ParseTimeText(matches[1])
		}
		if start != "" {
			return start, end
		}
	}
	return "", ""
}

// extractDescription picks the first paragraph-like text of useful length.
func extractDescription(sel *goquery.Selection) string {
	description := ""
	sel.Find("p").EachWithBreak(func(_ int, node *goquery.Selection) bool {
		text := collapseWhitespace(node.Text())
		if len(text) >= 20 {
			description = text
			return false
		}
		return true
	})
	return description
}

// extractLocation tries structural hints first, then a labeled-field scan.
func extractLocation(sel *goquery.Selection, text string) string {
	location := ""
	sel.Find("[class*=location], [class*=venue], address").EachWithBreak(func(_ int, node *goquery.Selection) bool {
		if t := collapseWhitespace(node.Text()); t != "" {
			location = t
			return false
		}
		return true
	})
	if location != "" {
		return location
	}
	if m := locationLabel.FindStringSubmatch(text); m != nil {
		return collapseWhitespace(firstLine(m[1]))
	}
	return ""
}

// extractPrice prefers a labeled field, then any recognizable price token.
func extractPrice(text string) string {
	if m := priceLabel.FindStringSubmatch(text); m != nil {
		return collapseWhitespace(firstLine(m[1]))
	}
	return pricePattern.FindString(text)
}

func cleanDateText(text string) string {
	cleaned := ordinalSuffix.ReplaceAllString(text, "$1")
	cleaned = monthAbbrevDot.ReplaceAllString(cleaned, "$1")
	return septLongAbbrev.ReplaceAllString(cleaned, "Sep")
}

func collapseWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

func firstLine(text string) string {
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		return text[:idx]
	}
	return text
}
