package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)

func TestToAbsoluteTime(t *testing.T) {
	tests := []struct {
		phrase string
		want   string
	}{
		{"3h", fixedNow.Add(-3 * time.Hour).Format(time.RFC3339)},
		{"2 hrs", fixedNow.Add(-2 * time.Hour).Format(time.RFC3339)},
		{"15m", fixedNow.Add(-15 * time.Minute).Format(time.RFC3339)},
		{"10 mins", fixedNow.Add(-10 * time.Minute).Format(time.RFC3339)},
		{"45s", fixedNow.Add(-45 * time.Second).Format(time.RFC3339)},
		{"5 days", fixedNow.Add(-5 * 24 * time.Hour).Format(time.RFC3339)},
		{"2d", fixedNow.Add(-2 * 24 * time.Hour).Format(time.RFC3339)},
		{"1 D", fixedNow.Add(-24 * time.Hour).Format(time.RFC3339)},
		{"1d 4h", fixedNow.Add(-1 * time.Hour).Format(time.RFC3339)},
		{"gibberish", FailedToFetch},
		{"3 weeks", FailedToFetch},
		{"h", FailedToFetch},
		{"", FailedToFetch},
		{"9999999999h", FailedToFetch},
		{"99999999999999 days", FailedToFetch},
	}
	for _, tt := range tests {
		t.Run(tt.phrase, func(t *testing.T) {
			assert.Equal(t, tt.want, ToAbsoluteTime(tt.phrase, fixedNow))
		})
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		label string
		want  time.Time
	}{
		{"Monday, January 15, 2024 at 10:30 AM", time.Date(2024, time.January, 15, 10, 30, 0, 0, time.UTC)},
		{"March 3 at 10:15 AM", time.Date(2024, time.March, 3, 10, 15, 0, 0, time.UTC)},
		{"Sunday, March 3 at 10:15 AM", time.Date(2024, time.March, 3, 10, 15, 0, 0, time.UTC)},
		{"March 3", time.Date(2024, time.March, 3, 0, 0, 0, 0, time.UTC)},
		{"3 March at 10:15", time.Date(2024, time.March, 3, 10, 15, 0, 0, time.UTC)},
		// A yearless date after now belongs to last year.
		{"December 24 at 8:00 PM", time.Date(2023, time.December, 24, 20, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			got, err := ParseTimestamp(tt.label, fixedNow)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, label := range []string{"not a date at all", "5 days", "", "at 10:15"} {
		_, err := ParseTimestamp(label, fixedNow)
		assert.Error(t, err, label)
	}
}

func TestResolveCreatedAt(t *testing.T) {
	assert.Equal(t, "2024-01-15T10:30:00Z",
		ResolveCreatedAt("Monday, January 15, 2024 at 10:30 AM", fixedNow, true))
	assert.Equal(t, fixedNow.Add(-3*time.Hour).Format(time.RFC3339),
		ResolveCreatedAt("3h", fixedNow, true))
	assert.Equal(t, fixedNow.Add(-5*24*time.Hour).Format(time.RFC3339),
		ResolveCreatedAt("5 days", fixedNow, false))
	assert.Equal(t, "2024-03-03T10:15:00Z", ResolveCreatedAt("March 3 at 10:15 AM", fixedNow, true))
	assert.Equal(t, "2024-03-03T00:00:00Z", ResolveCreatedAt("March 3", fixedNow, true))
	assert.Equal(t, fixedNow.Add(-15*time.Hour).Format(time.RFC3339),
		ResolveCreatedAt("15 hours", fixedNow, true))
	assert.Empty(t, ResolveCreatedAt("9999999999h", fixedNow, true))
	assert.Empty(t, ResolveCreatedAt("yesterday", fixedNow, false))
	assert.Empty(t, ResolveCreatedAt("  ", fixedNow, true))
}
