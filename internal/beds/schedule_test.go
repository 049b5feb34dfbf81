package beds

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyCheckout(t *testing.T) {
	now := time.Date(2024, 1, 5, 22, 30, 0, 0, time.UTC)
	day := func(d int) time.Time { return time.Date(2024, 1, d, 9, 0, 0, 0, time.UTC) }

	testCases := []struct {
		name      string
		scheduled time.Time
		expected  Schedule
		label     string
	}{
		{"three days late", day(2), Schedule{Kind: Overdue, Days: 3}, "Overdue by 3 days"},
		{"one day late", day(4), Schedule{Kind: Overdue, Days: 1}, "Overdue by 1 day"},
		{"today", day(5), Schedule{Kind: DueToday}, "Due today"},
		{"tomorrow", day(6), Schedule{Kind: DueTomorrow, Days: 1}, "Due tomorrow"},
		{"later", day(9), Schedule{Kind: DueLater, Days: 4}, "Due in 4 days"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := ClassifyCheckout(now, tc.scheduled, time.UTC)
			assert.Equal(t, tc.expected, got)
			assert.Equal(t, tc.label, got.Label())
		})
	}
}

func TestClassifyCheckout_UsesLocalCalendar(t *testing.T) {
	chicago, err := time.LoadLocation("America/Chicago")
	require.NoError(t, err)

	// 03:00 UTC on the 6th is still the evening of the 5th in Chicago.
	now := time.Date(2024, 1, 6, 3, 0, 0, 0, time.UTC)
	scheduled := time.Date(2024, 1, 5, 12, 0, 0, 0, chicago)

	got := ClassifyCheckout(now, scheduled, chicago)
	assert.Equal(t, DueToday, got.Kind)
	assert.True(t, got.NeedsAttention())

	got = ClassifyCheckout(now, scheduled, time.UTC)
	assert.Equal(t, Overdue, got.Kind)
}

func TestClassifyCheckout_AcrossDaylightSaving(t *testing.T) {
	chicago, err := time.LoadLocation("America/Chicago")
	require.NoError(t, err)

	now := time.Date(2024, 3, 9, 8, 0, 0, 0, chicago)
	scheduled := time.Date(2024, 3, 11, 8, 0, 0, 0, chicago)

	got := ClassifyCheckout(now, scheduled, chicago)
	assert.Equal(t, Schedule{Kind: DueLater, Days: 2}, got)
	assert.False(t, got.NeedsAttention())
}
