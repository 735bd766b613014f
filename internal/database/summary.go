package database

import "errors"

// Summary collects the ride statistics shown by `stats`. Records that do
// not exist yet (empty store, no timed rides, no streak) are nil.
type Summary struct {
	TotalDistance    float64
	TotalRides       int64
	LongestRide      *Record
	MaxDailyDistance *DayRecord
	MaxSpeed         *Record
	AverageSpeed     *float64
	LongestStreak    *Streak
}

// Summary computes all ride statistics
func (db *DB) Summary() (*Summary, error) {
	var s Summary
	var err error

	if s.TotalDistance, err = db.TotalDistance(); err != nil {
		return nil, err
	}
	if s.TotalRides, err = db.TotalRides(); err != nil {
		return nil, err
	}
	if s.LongestRide, err = db.LongestRide(); failed(err) {
		return nil, err
	}
	if s.MaxDailyDistance, err = db.MaxDailyDistance(); failed(err) {
		return nil, err
	}
	if s.MaxSpeed, err = db.MaxSpeed(); failed(err) {
		return nil, err
	}

	avg, err := db.AverageSpeed()
	switch {
	case err == nil:
		s.AverageSpeed = &avg
	case !errors.Is(err, ErrNoTimedRides):
		return nil, err
	}

	streaks, err := db.Streaks()
	if err != nil {
		return nil, err
	}
	if longest, ok := LongestStreak(streaks); ok {
		s.LongestStreak = &longest
	}

	return &s, nil
}

// failed reports whether err is a real failure rather than a missing record
func failed(err error) bool {
	return err != nil && !errors.Is(err, ErrNotFound)
}
