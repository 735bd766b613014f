package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummaryEmptyStore(t *testing.T) {
	db := setupTestDB(t)

	s, err := db.Summary()
	require.NoError(t, err)
	assert.Zero(t, s.TotalDistance)
	assert.Zero(t, s.TotalRides)
	assert.Nil(t, s.LongestRide)
	assert.Nil(t, s.MaxDailyDistance)
	assert.Nil(t, s.MaxSpeed)
	assert.Nil(t, s.AverageSpeed)
	assert.Nil(t, s.LongestStreak)
}

func TestSummary(t *testing.T) {
	db := setupTestDB(t)

	addRide(t, db, &Ride{Distance: 12, Timestamp: day(8), Duration: ptr(36 * time.Minute)})
	addRide(t, db, &Ride{Distance: 20, Timestamp: day(9), Segments: 2})
	addRide(t, db, &Ride{Distance: 3.4, Timestamp: day(10)})

	s, err := db.Summary()
	require.NoError(t, err)
	assert.InDelta(t, 35.4, s.TotalDistance, 1e-9)
	assert.Equal(t, int64(4), s.TotalRides)

	require.NotNil(t, s.LongestRide)
	assert.InDelta(t, 12.0, s.LongestRide.Value, 1e-9)

	require.NotNil(t, s.MaxDailyDistance)
	assert.InDelta(t, 20.0, s.MaxDailyDistance.Value, 1e-9)

	require.NotNil(t, s.MaxSpeed)
	assert.InDelta(t, 20.0, s.MaxSpeed.Value, 1e-9)
	require.NotNil(t, s.AverageSpeed)
	assert.InDelta(t, 20.0, *s.AverageSpeed, 1e-9)

	require.NotNil(t, s.LongestStreak)
	assert.Equal(t, 3, s.LongestStreak.Days)
	assert.Equal(t, DayOf(day(10)), s.LongestStreak.Anchor)
}
