// Package extractor turns raw HTML documents into event candidates using the
// ordered rules of a source's extraction profile.
package extractor

import (
	"bytes"
	"regexp"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/ozayn/planner/internal/identity"
	"github.com/ozayn/planner/internal/pipeline"
)

const maxSnippetLength = 240

// Extractor applies a source's extraction profile to a fetched document.
// Extraction never panics on malformed markup; it fails only when the
// document cannot be parsed at all.
type Extractor struct {
	weights Weights
	logger  *zap.Logger
}

// New builds an Extractor with the given scoring weights.
func New(weights Weights, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{weights: weights, logger: logger}
}

// Extract produces zero or more candidates from the document. Rules are tried
// in profile order; the first rule yielding at least one structural match is
// used, and no merging happens across rules for one page. An empty result
// after title filtering is a valid, non-error outcome.
func (e *Extractor) Extract(doc pipeline.Document, src pipeline.Source) ([]pipeline.EventCandidate, error) {
	gdoc, err := goquery.NewDocumentFromReader(bytes.NewReader(doc.Body))
	if err != nil {
		return nil, &pipeline.ParseError{URL: doc.URL, Err: err}
	}

	for _, rule := range src.Profiles {
		switch rule.Type {
		case pipeline.RuleSelector:
			blocks := gdoc.Find(rule.Pattern)
			if blocks.Length() == 0 {
				continue
			}
			return e.fromSelectorBlocks(blocks, doc, src), nil
		case pipeline.RuleRegex:
			candidates, matched := e.fromRegexLines(gdoc, rule.Pattern, doc, src)
			if !matched {
				continue
			}
			return candidates, nil
		default:
			e.logger.Warn("unknown profile rule type",
				zap.String("source", src.ID),
				zap.String("type", string(rule.Type)),
			)
		}
	}
	return nil, nil
}

func (e *Extractor) fromSelectorBlocks(
	blocks *goquery.Selection,
	doc pipeline.Document,
	src pipeline.Source,
) []pipeline.EventCandidate {
	candidates := make([]pipeline.EventCandidate, 0, blocks.Length())
	seen := make(map[identity.Key]struct{})

	blocks.Each(func(_ int, sel *goquery.Selection) {
		blockText := sel.Text()
		title := extractTitle(sel)
		if title == "" {
			e.logger.Debug("block rejected: no acceptable title", zap.String("source", src.ID))
			return
		}

		startDate, endDate := extractDates(blockText)
		startTime, endTime := extractTimes(blockText)

		candidate := pipeline.EventCandidate{
			Title:        title,
			Description:  extractDescription(sel),
			StartDate:    startDate,
			EndDate:      endDate,
			StartTime:    startTime,
			EndTime:      endTime,
			LocationText: extractLocation(sel, blockText),
			PriceText:    extractPrice(blockText),
			SourceURL:    doc.URL,
			Organizer:    src.DisplayName,
			RawSnippet:   snippet(blockText),
		}
		candidate.Confidence = e.weights.score(
			candidate.Title, candidate.StartDate, candidate.StartTime, candidate.Description, blockText,
		)

		key := identity.OfCandidate(candidate)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		candidates = append(candidates, candidate)
	})
	return candidates
}

// fromRegexLines scans the page text line by line. Each matching line becomes
// one candidate; capture group 1, when present, supplies the title.
func (e *Extractor) fromRegexLines(
	gdoc *goquery.Document,
	pattern string,
	doc pipeline.Document,
	src pipeline.Source,
) ([]pipeline.EventCandidate, bool) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		e.logger.Warn("invalid regex rule skipped",
			zap.String("source", src.ID),
			zap.String("pattern", pattern),
			zap.Error(err),
		)
		return nil, false
	}

	matched := false
	var candidates []pipeline.EventCandidate
	seen := make(map[identity.Key]struct{})

	for _, line := range splitLines(gdoc.Text()) {
		m := re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		matched = true

		title := m[0]
		if len(m) > 1 && m[1] != "" {
			title = m[1]
		}
		title = collapseWhitespace(title)
		if !acceptableTitle(title) {
			continue
		}

		startDate, endDate := extractDates(line)
		startTime, endTime := extractTimes(line)

		candidate := pipeline.EventCandidate{
			Title:      title,
			StartDate:  startDate,
			EndDate:    endDate,
			StartTime:  startTime,
			EndTime:    endTime,
			PriceText:  extractPrice(line),
			SourceURL:  doc.URL,
			Organizer:  src.DisplayName,
			RawSnippet: snippet(line),
		}
		candidate.Confidence = e.weights.score(
			candidate.Title, candidate.StartDate, candidate.StartTime, "", line,
		)

		key := identity.OfCandidate(candidate)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		candidates = append(candidates, candidate)
	}
	return candidates, matched
}

// snippet bounds the retained block text, cutting on a rune boundary so the
// result stays valid UTF-8.
func snippet(text string) string {
	collapsed := collapseWhitespace(text)
	if len(collapsed) <= maxSnippetLength {
		return collapsed
	}
	cut := maxSnippetLength
	for cut > 0 && !utf8.RuneStart(collapsed[cut]) {
		cut--
	}
	return collapsed[:cut]
}

func splitLines(text string) []string {
	var lines []string
	start := 0
	for i := 0; i <= len(text); i++ {
		if i == len(text) || text[i] == '\n' {
			line := collapseWhitespace(text[start:i])
			if line != "" {
				lines = append(lines, line)
			}
			start = i + 1
		}
	}
	return lines
}
