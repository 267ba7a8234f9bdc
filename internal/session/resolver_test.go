package session

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// January 2024 in America/Los_Angeles: the 6th is a Saturday, the 7th a
// Sunday, the 8th a Monday. No DST transition in range.
func losAngeles(t *testing.T) *time.Location {
	t.Helper()
	zone, err := time.LoadLocation("America/Los_Angeles")
	require.NoError(t, err)
	return zone
}

func at(t *testing.T, zone *time.Location, day int, hour, min, sec int) int64 {
	t.Helper()
	return time.Date(2024, time.January, day, hour, min, sec, 0, zone).Unix()
}

func TestResolve_MorningBelongsToCurrentDay(t *testing.T) {
	zone := losAngeles(t)

	// Monday 1:00 PM -> Monday's session.
	res, err := Resolve(at(t, zone, 8, 13, 0, 0), zone)
	require.NoError(t, err)
	assert.False(t, res.Halt)
	assert.Equal(t, "2024-01-08", res.Day)

	// Midnight still belongs to the current calendar date.
	res, err = Resolve(at(t, zone, 8, 0, 0, 0), zone)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-08", res.Day)
}

func TestResolve_EveningRollsToNextDay(t *testing.T) {
	zone := losAngeles(t)

	// Sunday 3:00 PM -> Monday's session.
	res, err := Resolve(at(t, zone, 7, 15, 0, 0), zone)
	require.NoError(t, err)
	assert.False(t, res.Halt)
	assert.Equal(t, "2024-01-08", res.Day)

	// 11:59:59 PM same rule.
	res, err = Resolve(at(t, zone, 7, 23, 59, 59), zone)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-08", res.Day)
}

func TestResolve_HaltWindow(t *testing.T) {
	zone := losAngeles(t)

	// Monday 2:30 PM -> halt, no session.
	res, err := Resolve(at(t, zone, 8, 14, 30, 0), zone)
	require.NoError(t, err)
	assert.True(t, res.Halt)
	assert.Empty(t, res.Day)
}

func TestResolve_HaltBoundaries(t *testing.T) {
	zone := losAngeles(t)

	cases := []struct {
		name       string
		hour, min  int
		sec        int
		wantHalt   bool
		wantDay    string
	}{
		{"last second before halt", 13, 59, 59, false, "2024-01-08"},
		{"halt opens at 14:00:00", 14, 0, 0, true, ""},
		{"last second of halt", 14, 59, 59, true, ""},
		{"cutover at 15:00:00", 15, 0, 0, false, "2024-01-09"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := Resolve(at(t, zone, 8, tc.hour, tc.min, tc.sec), zone)
			require.NoError(t, err)
			assert.Equal(t, tc.wantHalt, res.Halt)
			assert.Equal(t, tc.wantDay, res.Day)
		})
	}
}

func TestResolve_SaturdayFails(t *testing.T) {
	zone := losAngeles(t)

	// Saturday fails at any hour, including inside the would-be halt
	// window and at the cutover boundary.
	for _, hour := range []int{0, 12, 14, 15, 23} {
		ts := at(t, zone, 6, hour, 0, 0)
		_, err := Resolve(ts, zone)
		require.Error(t, err, "hour %d", hour)

		var ise *InvalidSessionError
		require.ErrorAs(t, err, &ise)
		assert.Equal(t, ts, ise.Timestamp)
		assert.Contains(t, err.Error(), "Saturday")
	}
}

func TestResolve_HourSweep(t *testing.T) {
	zone := losAngeles(t)

	// Sunday the 7th: [0,14) -> current date, [14,15) -> halt,
	// [15,24) -> next date.
	for hour := 0; hour < 24; hour++ {
		res, err := Resolve(at(t, zone, 7, hour, 30, 0), zone)
		require.NoError(t, err, "hour %d", hour)
		switch {
		case hour >= 14 && hour < 15:
			assert.True(t, res.Halt, "hour %d", hour)
		case hour >= 15:
			assert.Equal(t, "2024-01-08", res.Day, "hour %d", hour)
		default:
			assert.Equal(t, "2024-01-07", res.Day, "hour %d", hour)
		}
	}
}

func TestResolve_YearRollover(t *testing.T) {
	zone := losAngeles(t)

	// Sunday 2023-12-31 4:00 PM -> 2024-01-01 session.
	ts := time.Date(2023, time.December, 31, 16, 0, 0, 0, zone).Unix()
	res, err := Resolve(ts, zone)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01", res.Day)
}

func TestResolve_Pure(t *testing.T) {
	zone := losAngeles(t)
	ts := at(t, zone, 8, 13, 0, 0)

	first, err := Resolve(ts, zone)
	require.NoError(t, err)
	second, err := Resolve(ts, zone)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestResolve_ZoneMatters(t *testing.T) {
	losAngeles := losAngeles(t)
	utc := time.UTC

	// 22:30 UTC is 14:30 in Los Angeles in January: halt there, plain
	// evening hour in UTC.
	ts := time.Date(2024, time.January, 8, 22, 30, 0, 0, utc).Unix()

	res, err := Resolve(ts, losAngeles)
	require.NoError(t, err)
	assert.True(t, res.Halt)

	res, err = Resolve(ts, utc)
	require.NoError(t, err)
	assert.False(t, res.Halt)
	assert.Equal(t, "2024-01-09", res.Day)
}

func TestIsInvalidSessionViaErrorsAs(t *testing.T) {
	zone := losAngeles(t)
	_, err := Resolve(at(t, zone, 6, 12, 0, 0), zone)
	var ise *InvalidSessionError
	assert.True(t, errors.As(err, &ise))
}
