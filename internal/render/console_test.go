package render

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kmtracker/internal/database"
	"kmtracker/internal/gpx"
	"kmtracker/internal/tracker"
)

func ptr[V any](v V) *V {
	return &v
}

var ts = time.Date(2025, 8, 11, 7, 30, 0, 0, time.Local)

func TestRidesEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewConsole(&buf).Rides(nil))
	assert.Equal(t, "Nothing to show.\n", buf.String())
}

func TestRidesTable(t *testing.T) {
	var buf bytes.Buffer
	rides := []*database.Ride{
		{ID: 1, Distance: 12, Timestamp: ts, Duration: ptr(36 * time.Minute), Comment: ptr("commute"), Segments: 1},
		{ID: 2, Distance: 3.45, Timestamp: ts.AddDate(0, 0, 1), Segments: 2, GPX: ptr("<gpx/>")},
	}
	require.NoError(t, NewConsole(&buf).Rides(rides))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)

	assert.Equal(t, []string{
		"ID", "Date", "Distance", "(km)", "Duration", "(hh:mm:ss)", "Avg.", "speed", "(km/h)", "Comment", "Segments", "GPX",
	}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"1", "2025-08-11", "12.0", "00:36:00", "20.0", "commute", "1", "-"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"2", "2025-08-12", "3.5", "-", "-", "-", "2", "yes"}, strings.Fields(lines[2]))
}

func TestRideCellsMatchLabels(t *testing.T) {
	r := &database.Ride{ID: 1, Distance: 1, Timestamp: ts}
	assert.Len(t, RideCells(r), len(RideLabels()))
}

func TestAliasesTable(t *testing.T) {
	var buf bytes.Buffer
	aliases := []*database.Alias{
		{ID: 4, Name: "work", Distance: ptr(12.5), Duration: ptr(35 * time.Minute), Segments: 1},
	}
	require.NoError(t, NewConsole(&buf).Aliases(aliases))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "Name"))
	assert.Equal(t, []string{"work", "12.5", "00:35:00", "-", "1"}, strings.Fields(lines[1]))
}

func TestAliasesEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewConsole(&buf).Aliases(nil))
	assert.Equal(t, "Nothing to show.\n", buf.String())
}

func TestSummary(t *testing.T) {
	var buf bytes.Buffer
	avg := 20.04
	s := &database.Summary{
		TotalDistance:    35.4,
		TotalRides:       4,
		LongestRide:      &database.Record{Value: 12, Timestamp: ts},
		MaxDailyDistance: &database.DayRecord{Value: 20, Day: ts},
		MaxSpeed:         &database.Record{Value: 25.56, Timestamp: ts},
		AverageSpeed:     &avg,
		LongestStreak:    &database.Streak{Anchor: database.DayOf(ts), Days: 3},
	}
	require.NoError(t, NewConsole(&buf).Summary(s))

	out := buf.String()
	assert.Contains(t, out, "total distance           : 35.4 km (4 rides)\n")
	assert.Contains(t, out, "longest ride             : 12.0 km (on 2025-08-11)\n")
	assert.Contains(t, out, "maximum distance on a day: 20.0 km (on 2025-08-11)\n")
	assert.Contains(t, out, "average speed            : 20.0 km/h\n")
	assert.Contains(t, out, "fastest ride             : 25.6 km/h (on 2025-08-11)\n")
	assert.Contains(t, out, "longest streak           : 3 days (until 2025-08-11)\n")
}

func TestSummaryEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewConsole(&buf).Summary(&database.Summary{}))

	out := buf.String()
	assert.Contains(t, out, "total distance           : 0.0 km (0 rides)\n")
	assert.Contains(t, out, "average speed            : -\n")
	assert.Contains(t, out, "longest streak           : -\n")
}

func TestEntryWithTrack(t *testing.T) {
	var buf bytes.Buffer
	e := &tracker.Entry{
		Ride: &database.Ride{ID: 1, Distance: 10, Timestamp: ts, GPX: ptr("<gpx/>")},
		Track: &gpx.Details{
			MovingTime:  30 * time.Minute,
			StoppedTime: 5 * time.Minute,
			MovingSpeed: 20,
			MaxSpeed:    41.26,
			Uphill:      120.4,
			Downhill:    98.6,
		},
	}
	require.NoError(t, NewConsole(&buf).Entry(e))

	out := buf.String()
	assert.Contains(t, out, "time in motion         : 00:30:00\n")
	assert.Contains(t, out, "time at rest           : 00:05:00\n")
	assert.Contains(t, out, "maximum speed          : 41.3 km/h\n")
	assert.Contains(t, out, "uphill                 : 120 m\n")
	assert.Contains(t, out, "downhill               : 99 m\n")
}

func TestEntryWithBrokenTrack(t *testing.T) {
	var buf bytes.Buffer
	e := &tracker.Entry{
		Ride:     &database.Ride{ID: 1, Distance: 10, Timestamp: ts, GPX: ptr("junk")},
		TrackErr: errors.New("could not parse gpx file"),
	}
	require.NoError(t, NewConsole(&buf).Entry(e))
	assert.Contains(t, buf.String(), "error: could not parse gpx file\n")
}

func TestStreak(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	require.NoError(t, c.Streak(0))
	require.NoError(t, c.Streak(1))
	assert.Empty(t, buf.String())

	require.NoError(t, c.Streak(3))
	assert.Equal(t, "You're on a streak! 3 days in a row\n", buf.String())
}
