package identity

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseDateText(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in   string
		want string
	}{
		{"November 12, 2025", "2025-11-12"},
		{"Nov 12, 2025", "2025-11-12"},
		{"Nov 12 2025", "2025-11-12"},
		{"12 November 2025", "2025-11-12"},
		{"11/12/2025", "2025-11-12"},
		{"11/12/25", "2025-11-12"},
		{"11.12.25", "2025-11-12"},
		{"2025-11-12", "2025-11-12"},
		{"  2025-11-12  ", "2025-11-12"},
		{"", ""},
		{"next Tuesday", ""},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, ParseDateText(tc.in), "input %q", tc.in)
	}
}

func TestParseTimeText(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in   string
		want string
	}{
		{"14:00", "14:00"},
		{"14:00:59", "14:00"},
		{"2:00 PM", "14:00"},
		{"2:00pm", "14:00"},
		{"2:00 p.m.", "14:00"},
		{"7 PM", "19:00"},
		{"", ""},
		{"noonish", ""},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, ParseTimeText(tc.in), "input %q", tc.in)
	}
}
