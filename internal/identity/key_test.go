package identity

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ozayn/planner/internal/pipeline"
)

func TestKeyOf_Deterministic(t *testing.T) {
	t.Parallel()
	first := KeyOf("Gallery Talk", "2025-12-10", "14:00")
	second := KeyOf("Gallery Talk", "2025-12-10", "14:00")
	require.Equal(t, first, second)
}

func TestKeyOf_TitleNormalization(t *testing.T) {
	t.Parallel()
	base := KeyOf("Autumn Print Workshop", "2025-11-12", "")
	require.Equal(t, base, KeyOf("  autumn   PRINT workshop ", "2025-11-12", ""))
	require.Equal(t, "autumn print workshop", base.Title)
}

func TestKeyOf_UnparseableDateAndTimeAreEmpty(t *testing.T) {
	t.Parallel()
	key := KeyOf("Tour", "sometime soon", "after lunch")
	require.Empty(t, key.Date)
	require.Empty(t, key.Time)
}

func TestKeyOf_RejectsInvalidISODate(t *testing.T) {
	t.Parallel()
	key := KeyOf("Tour", "2025-13-40", "")
	require.Empty(t, key.Date)
}

func TestKeyOf_TimeTruncatedToMinutes(t *testing.T) {
	t.Parallel()
	key := KeyOf("Tour", "2025-11-12", "14:00:37")
	require.Equal(t, "14:00", key.Time)
}

func TestOfCandidateAndOfEventAgree(t *testing.T) {
	t.Parallel()
	candidate := pipeline.EventCandidate{Title: "Night at the Museum", StartDate: "2025-10-03", StartTime: "19:30"}
	event := pipeline.FromCandidate(candidate)
	require.Equal(t, OfCandidate(candidate), OfEvent(event))
}

func TestKeyString_StableForm(t *testing.T) {
	t.Parallel()
	key := KeyOf("Gallery Talk", "2025-12-10", "14:00")
	require.Equal(t, "gallery talk|2025-12-10|14:00", key.String())
}
