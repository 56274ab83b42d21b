package extractor

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"

	"github.com/ozayn/planner/internal/pipeline"
)

func testSource(rules ...pipeline.ProfileRule) pipeline.Source {
	return pipeline.Source{
		ID:          "museum",
		DisplayName: "City Museum",
		RootURL:     "https://museum.example/events",
		Kind:        pipeline.SourceKindWebsite,
		Profiles:    rules,
	}
}

func extract(t *testing.T, html string, src pipeline.Source) []pipeline.EventCandidate {
	t.Helper()
	e := New(DefaultWeights(), nil)
	candidates, err := e.Extract(pipeline.Document{URL: src.RootURL, Body: []byte(html)}, src)
	require.NoError(t, err)
	return candidates
}

func TestExtract_ListingBlock(t *testing.T) {
	t.Parallel()
	html := `<html><body>
		<div class="event">
			<h2>Autumn Print Workshop</h2>
			<p>Join our printmakers for an afternoon of monotype experiments in the studio.</p>
			<span>November 12, 2025 at 14:00</span>
		</div>
	</body></html>`
	src := testSource(pipeline.ProfileRule{Type: pipeline.RuleSelector, Pattern: "div.event"})

	candidates := extract(t, html, src)
	require.Len(t, candidates, 1)
	c := candidates[0]
	require.Equal(t, "Autumn Print Workshop", c.Title)
	require.Equal(t, "2025-11-12", c.StartDate)
	require.Equal(t, "14:00", c.StartTime)
	require.Greater(t, c.Confidence, 0.5)
	require.LessOrEqual(t, c.Confidence, 1.0)
	require.Equal(t, "City Museum", c.Organizer)
	require.NotEmpty(t, c.RawSnippet)
}

func TestExtract_FirstMatchingRuleWins(t *testing.T) {
	t.Parallel()
	html := `<html><body>
		<article><h3>Gallery Talk: Modern Prints</h3></article>
		<div class="card"><h3>Should Not Appear Twice</h3></div>
	</body></html>`
	src := testSource(
		pipeline.ProfileRule{Type: pipeline.RuleSelector, Pattern: "section.missing"},
		pipeline.ProfileRule{Type: pipeline.RuleSelector, Pattern: "article"},
		pipeline.ProfileRule{Type: pipeline.RuleSelector, Pattern: "div.card"},
	)

	candidates := extract(t, html, src)
	require.Len(t, candidates, 1)
	require.Equal(t, "Gallery Talk: Modern Prints", candidates[0].Title)
}

func TestExtract_DenylistedTitlesFiltered(t *testing.T) {
	t.Parallel()
	html := `<html><body>
		<li><a>Home</a></li>
		<li><a>About</a></li>
		<li><a>Menu</a></li>
	</body></html>`
	src := testSource(pipeline.ProfileRule{Type: pipeline.RuleSelector, Pattern: "li"})

	candidates := extract(t, html, src)
	require.Empty(t, candidates)
}

func TestExtract_ShortTitlesRejected(t *testing.T) {
	t.Parallel()
	html := `<div class="event"><h2>Go</h2></div>`
	src := testSource(pipeline.ProfileRule{Type: pipeline.RuleSelector, Pattern: "div.event"})
	require.Empty(t, extract(t, html, src))
}

func TestExtract_MalformedAndEmptyInput(t *testing.T) {
	t.Parallel()
	src := testSource(pipeline.ProfileRule{Type: pipeline.RuleSelector, Pattern: "div.event"})
	require.Empty(t, extract(t, "", src))
	require.Empty(t, extract(t, "<div><<<<not really html", src))
}

func TestExtract_UnmatchedFieldsStayEmpty(t *testing.T) {
	t.Parallel()
	html := `<div class="event"><h2>Mystery Evening Event</h2><span>date to be announced</span></div>`
	src := testSource(pipeline.ProfileRule{Type: pipeline.RuleSelector, Pattern: "div.event"})

	candidates := extract(t, html, src)
	require.Len(t, candidates, 1)
	require.Empty(t, candidates[0].StartDate)
	require.Empty(t, candidates[0].StartTime)
}

func TestExtract_DateAndTimeRanges(t *testing.T) {
	t.Parallel()
	html := `<div class="event">
		<h2>Winter Sculpture Exhibition</h2>
		<span>December 1, 2025 to December 20, 2025, 10:00 - 17:30</span>
	</div>`
	src := testSource(pipeline.ProfileRule{Type: pipeline.RuleSelector, Pattern: "div.event"})

	candidates := extract(t, html, src)
	require.Len(t, candidates, 1)
	c := candidates[0]
	require.Equal(t, "2025-12-01", c.StartDate)
	require.Equal(t, "2025-12-20", c.EndDate)
	require.Equal(t, "10:00", c.StartTime)
	require.Equal(t, "17:30", c.EndTime)
}

func TestExtract_RegexRule(t *testing.T) {
	t.Parallel()
	html := `<html><body><pre>
DC - Portrait Gallery Tour 11/12/2025 - Washington
DC - Free Jazz in the Garden 6/15/2025 - Washington
not an event line
</pre></body></html>`
	src := testSource(pipeline.ProfileRule{
		Type:    pipeline.RuleRegex,
		Pattern: `^[A-Z]{2} - (.+?) - \w+`,
	})

	candidates := extract(t, html, src)
	require.Len(t, candidates, 2)
	require.Equal(t, "Portrait Gallery Tour 11/12/2025", candidates[0].Title)
	require.Equal(t, "2025-11-12", candidates[0].StartDate)
}

func TestExtract_IntraDocumentDedupe(t *testing.T) {
	t.Parallel()
	html := `<html><body>
		<div class="event"><h2>Gallery Talk</h2><span>2025-12-10</span></div>
		<div class="event"><h2>  gallery   TALK </h2><span>2025-12-10</span></div>
	</body></html>`
	src := testSource(pipeline.ProfileRule{Type: pipeline.RuleSelector, Pattern: "div.event"})

	candidates := extract(t, html, src)
	require.Len(t, candidates, 1)
}

func TestExtract_PriceAndLocationHeuristics(t *testing.T) {
	t.Parallel()
	html := `<div class="event">
		<h2>Evening Lecture Series</h2>
		<p>A deep dive into the museum's conservation lab and its ongoing projects.</p>
		<div class="location">East Wing Auditorium</div>
		<span>Admission: $12</span>
	</div>`
	src := testSource(pipeline.ProfileRule{Type: pipeline.RuleSelector, Pattern: "div.event"})

	candidates := extract(t, html, src)
	require.Len(t, candidates, 1)
	require.Equal(t, "East Wing Auditorium", candidates[0].LocationText)
	require.Equal(t, "$12", candidates[0].PriceText)
	require.NotEmpty(t, candidates[0].Description)
}

func TestConfidence_ClampedAndAdditive(t *testing.T) {
	t.Parallel()
	w := DefaultWeights()
	require.InDelta(t, 0.4, w.score("Some Title", "", "", "", ""), 1e-9)
	full := w.score("Some Title", "2025-11-12", "14:00", "a description", "guided tour of the exhibition")
	require.LessOrEqual(t, full, 1.0)
	require.GreaterOrEqual(t, full, 0.0)
	require.Equal(t, 0.0, w.score("", "", "", "", ""))
}

func TestSnippetTruncatesOnRuneBoundary(t *testing.T) {
	t.Parallel()

	// The leading ASCII byte misaligns the two-byte runes so a byte-offset
	// cut at the limit would land mid-rune.
	long := "x" + strings.Repeat("é", maxSnippetLength)
	got := snippet(long)
	require.True(t, utf8.ValidString(got))
	require.LessOrEqual(t, len(got), maxSnippetLength)
	require.NotEmpty(t, got)

	html := `<div class="event"><h2>Café Nights Concert</h2><p>` +
		strings.Repeat("über ", 80) + `</p></div>`
	src := testSource(pipeline.ProfileRule{Type: pipeline.RuleSelector, Pattern: "div.event"})
	candidates := extract(t, html, src)
	require.Len(t, candidates, 1)
	require.True(t, utf8.ValidString(candidates[0].RawSnippet))
	require.LessOrEqual(t, len(candidates[0].RawSnippet), maxSnippetLength)
}
