package timewindow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestResolveAtNoBounds(t *testing.T) {
	w := ResolveAt(now, 3600, nil, nil)
	assert.Equal(t, now.Add(-time.Hour), w.Start)
	assert.Equal(t, now, w.End)
	assert.Equal(t, time.Hour, w.Duration())
}

func TestResolveAtBothBoundsVerbatim(t *testing.T) {
	start := now.Add(-48 * time.Hour)
	end := now.Add(-47 * time.Hour)

	for _, duration := range []int{60, 3600, 999999} {
		w := ResolveAt(now, duration, &start, &end)
		assert.Equal(t, start, w.Start, "duration=%d", duration)
		assert.Equal(t, end, w.End, "duration=%d", duration)
	}
}

func TestResolveAtEndOnly(t *testing.T) {
	end := now.Add(-time.Hour)
	w := ResolveAt(now, 600, nil, &end)
	assert.Equal(t, end.Add(-10*time.Minute), w.Start)
	assert.Equal(t, end, w.End)
}

func TestResolveAtStartOnlyRunsUntilNow(t *testing.T) {
	start := now.Add(-2 * time.Hour)
	w := ResolveAt(now, 600, &start, nil)
	assert.Equal(t, start, w.Start)
	assert.Equal(t, now, w.End)
}

func TestResolveAtSwapsReversedBounds(t *testing.T) {
	start := now
	end := now.Add(-time.Hour)
	w := ResolveAt(now, 3600, &start, &end)
	assert.True(t, w.Start.Before(w.End) || w.Start.Equal(w.End))
	assert.Equal(t, end, w.Start)
	assert.Equal(t, start, w.End)
}

func TestResolveAtZeroDurationFallsBack(t *testing.T) {
	w := ResolveAt(now, 0, nil, nil)
	assert.Equal(t, time.Duration(DefaultDurationSeconds)*time.Second, w.Duration())
}

func TestContainsHalfOpen(t *testing.T) {
	w := Window{Start: now, End: now.Add(time.Hour)}
	assert.True(t, w.Contains(now))
	assert.True(t, w.Contains(now.Add(30*time.Minute)))
	assert.False(t, w.Contains(now.Add(time.Hour)))
	assert.False(t, w.Contains(now.Add(-time.Second)))
}

func TestMillis(t *testing.T) {
	w := Window{Start: now, End: now.Add(time.Hour)}
	assert.Equal(t, now.UnixMilli(), w.StartMillis())
	assert.Equal(t, now.Add(time.Hour).UnixMilli(), w.EndMillis())
}

func TestParseTimeUnixSeconds(t *testing.T) {
	ts, err := ParseTime("1714560000", "start_time")
	require.NoError(t, err)
	assert.Equal(t, time.Unix(1714560000, 0).UTC(), ts)
}

func TestParseTimeRejectsNegativeUnix(t *testing.T) {
	_, err := ParseTime("-5", "start_time")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-negative")
}

func TestParseTimeRFC3339(t *testing.T) {
	ts, err := ParseTime("2024-05-01T13:00:00+01:00", "end_time")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), ts)
}

func TestParseTimeHumanReadableNaiveIsUTC(t *testing.T) {
	ts, err := ParseTime("2024-05-01", "start_time")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), ts)
}

func TestParseTimeRejectsGarbage(t *testing.T) {
	_, err := ParseTime("not a date at all @@@", "start_time")
	require.Error(t, err)
}

func TestParseTimeRequiresValue(t *testing.T) {
	_, err := ParseTime("", "start_time")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required")
}

func TestParseOptionalTime(t *testing.T) {
	ts, err := ParseOptionalTime("", "start_time")
	require.NoError(t, err)
	assert.Nil(t, ts)

	ts, err = ParseOptionalTime("2024-05-01T00:00:00Z", "start_time")
	require.NoError(t, err)
	require.NotNil(t, ts)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), *ts)

	_, err = ParseOptionalTime("@@@ nope @@@", "start_time")
	require.Error(t, err)
}
