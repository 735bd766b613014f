package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"kmtracker/internal/metrics"
)

// DefaultSegments is the segment count of a ride that was not split
const DefaultSegments = 1

// Ride is one logged ride
type Ride struct {
	ID        int64
	Distance  float64 // km
	Timestamp time.Time
	Duration  *time.Duration
	Comment   *string
	// Segments splits the ride into equal legs. Zero means DefaultSegments.
	Segments int64
	GPX      *string
}

// Speed returns the average speed in km/h, or nil without a duration
func (r *Ride) Speed() *float64 {
	if r.Duration == nil || *r.Duration <= 0 {
		return nil
	}
	speed := r.Distance / r.Duration.Seconds() * 3600
	return &speed
}

// HasGPX reports whether a source track is stored with the ride
func (r *Ride) HasGPX() bool {
	return r.GPX != nil
}

// Ride column names
const (
	RideID        = "id"
	RideDistance  = "distance_km"
	RideTimestamp = "timestamp"
	RideDuration  = "duration_s"
	RideComment   = "comment"
	RideSegments  = "segments"
	RideGPX       = "gpx"
)

// RideSchema declares the rides table
var RideSchema = &Schema[Ride]{
	Table:         "rides",
	RecencyColumn: RideTimestamp,
	Columns: []Column[Ride]{
		{
			Name: RideID, Label: "ID", Field: IdentityField,
			Get: func(r *Ride) any { return r.ID },
			Set: func(r *Ride, v any) { r.ID = asInt64(v) },
		},
		{
			Name: RideDistance, Label: "Distance (km)", Field: FloatField,
			Get: func(r *Ride) any { return r.Distance },
			Set: func(r *Ride, v any) {
				if x, ok := v.(float64); ok {
					r.Distance = x
				}
			},
		},
		{
			Name: RideTimestamp, Label: "Date", Field: DatetimeField,
			Get: func(r *Ride) any {
				if r.Timestamp.IsZero() {
					return nil
				}
				return r.Timestamp
			},
			Set: func(r *Ride, v any) {
				if t, ok := v.(time.Time); ok {
					r.Timestamp = t
				}
			},
		},
		{
			Name: RideDuration, Label: "Duration (hh:mm:ss)", Field: DurationField,
			Get: func(r *Ride) any { return optional(r.Duration) },
			Set: func(r *Ride, v any) { r.Duration = setOptional[time.Duration](v) },
		},
		{
			Name: RideComment, Label: "Comment", Field: IdentityField,
			Get: func(r *Ride) any { return optional(r.Comment) },
			Set: func(r *Ride, v any) { r.Comment = optionalString(v) },
		},
		{
			Name: RideSegments, Label: "Segments", Field: IdentityField,
			Get: func(r *Ride) any {
				if r.Segments == 0 {
					return int64(DefaultSegments)
				}
				return r.Segments
			},
			Set: func(r *Ride, v any) {
				r.Segments = asInt64(v)
				if r.Segments == 0 {
					r.Segments = DefaultSegments
				}
			},
		},
		{
			Name: RideGPX, Label: "GPX", Field: IdentityField,
			Get: func(r *Ride) any { return optional(r.GPX) },
			Set: func(r *Ride, v any) { r.GPX = optionalString(v) },
		},
	},
}

// SaveRide inserts r when it has no ID and updates it otherwise
func (db *DB) SaveRide(r *Ride) error {
	return Save(db, RideSchema, r)
}

// GetRide retrieves a ride by ID
func (db *DB) GetRide(id int64) (*Ride, error) {
	return GetByKey(db, RideSchema, id)
}

// GetLatestRide returns the most recently added ride
func (db *DB) GetLatestRide() (*Ride, error) {
	return GetMostRecent(db, RideSchema)
}

// ListLatestRides returns the n newest rides by timestamp, oldest first.
// A negative n returns every ride.
func (db *DB) ListLatestRides(n int) ([]*Ride, error) {
	return ListMostRecent(db, RideSchema, n)
}

// CountRides returns the number of stored ride rows
func (db *DB) CountRides() (int, error) {
	var n int
	if err := db.aggregate(&n, `SELECT COUNT(*) FROM rides`); err != nil {
		return 0, fmt.Errorf("failed to count rides: %w", err)
	}
	return n, nil
}

// Record is a maximum value together with the time of the ride that set it
type Record struct {
	Value     float64
	Timestamp time.Time
}

// DayRecord is a maximum value reached on one calendar day
type DayRecord struct {
	Value float64
	Day   time.Time
}

// TotalDistance returns the summed distance of all rides in km
func (db *DB) TotalDistance() (float64, error) {
	var total sql.NullFloat64
	if err := db.aggregate(&total, `SELECT SUM(distance_km) FROM rides`); err != nil {
		return 0, fmt.Errorf("failed to get total distance: %w", err)
	}
	return total.Float64, nil
}

// TotalRides returns the number of rides, where a ride split into n
// segments counts n times
func (db *DB) TotalRides() (int64, error) {
	var total sql.NullInt64
	if err := db.aggregate(&total, `SELECT SUM(segments) FROM rides`); err != nil {
		return 0, fmt.Errorf("failed to get total rides: %w", err)
	}
	return total.Int64, nil
}

// LongestRide returns the largest per-segment distance
func (db *DB) LongestRide() (*Record, error) {
	return db.record(`
		SELECT distance_km * 1.0 / segments AS value, timestamp
		FROM rides
		ORDER BY value DESC
		LIMIT 1
	`, "longest ride")
}

// MaxSpeed returns the highest average speed in km/h of a timed ride
func (db *DB) MaxSpeed() (*Record, error) {
	return db.record(`
		SELECT distance_km * 3600.0 / duration_s AS value, timestamp
		FROM rides
		WHERE duration_s IS NOT NULL
		ORDER BY value DESC
		LIMIT 1
	`, "max speed")
}

// MaxDailyDistance returns the largest distance covered on one day
func (db *DB) MaxDailyDistance() (*DayRecord, error) {
	var value float64
	var day string
	err := db.aggregate([]any{&value, &day}, `
		SELECT SUM(distance_km) AS daily_distance, substr(timestamp, 1, 10) AS day
		FROM rides
		GROUP BY day
		ORDER BY daily_distance DESC
		LIMIT 1
	`)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("max daily distance: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get max daily distance: %w", err)
	}

	t, err := time.ParseInLocation(dateLayout, day, time.Local)
	if err != nil {
		return nil, fmt.Errorf("failed to parse day %q: %w", day, err)
	}
	return &DayRecord{Value: value, Day: t}, nil
}

// AverageSpeed returns total distance over total time of all timed rides
// in km/h. It fails with ErrNoTimedRides when no ride has a duration.
func (db *DB) AverageSpeed() (float64, error) {
	var distance sql.NullFloat64
	var seconds sql.NullInt64
	err := db.aggregate([]any{&distance, &seconds}, `
		SELECT SUM(distance_km), SUM(duration_s)
		FROM rides
		WHERE duration_s IS NOT NULL
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to get average speed: %w", err)
	}
	if !seconds.Valid || seconds.Int64 == 0 {
		return 0, ErrNoTimedRides
	}
	return distance.Float64 / (float64(seconds.Int64) / 3600), nil
}

// DailyDistance is the distance covered on one calendar day
type DailyDistance struct {
	Day      time.Time
	Distance float64
}

// DailyDistances returns per-day distance totals in date order
func (db *DB) DailyDistances() ([]DailyDistance, error) {
	timer := prometheus.NewTimer(metrics.DBOperationDuration.WithLabelValues(metrics.DBOpAggregate, RideSchema.Table))
	defer timer.ObserveDuration()

	rows, err := db.conn.Query(`
		SELECT substr(timestamp, 1, 10) AS day, SUM(distance_km)
		FROM rides
		GROUP BY day
		ORDER BY day ASC
	`)
	if err != nil {
		metrics.DBOperationErrorsTotal.WithLabelValues(metrics.DBOpAggregate, RideSchema.Table).Inc()
		return nil, fmt.Errorf("failed to get daily distances: %w", err)
	}
	defer rows.Close()

	var days []DailyDistance
	for rows.Next() {
		var day string
		var d DailyDistance
		if err := rows.Scan(&day, &d.Distance); err != nil {
			return nil, fmt.Errorf("failed to scan daily distance: %w", err)
		}
		if d.Day, err = time.ParseInLocation(dateLayout, day, time.Local); err != nil {
			return nil, fmt.Errorf("failed to parse day %q: %w", day, err)
		}
		days = append(days, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily distances: %w", err)
	}
	return days, nil
}

// RideDays returns the distinct calendar days with a ride, most recent first
func (db *DB) RideDays() ([]time.Time, error) {
	timer := prometheus.NewTimer(metrics.DBOperationDuration.WithLabelValues(metrics.DBOpAggregate, RideSchema.Table))
	defer timer.ObserveDuration()

	rows, err := db.conn.Query(`SELECT timestamp FROM rides ORDER BY timestamp DESC`)
	if err != nil {
		metrics.DBOperationErrorsTotal.WithLabelValues(metrics.DBOpAggregate, RideSchema.Table).Inc()
		return nil, fmt.Errorf("failed to get ride timestamps: %w", err)
	}
	defer rows.Close()

	var stamps []time.Time
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan timestamp: %w", err)
		}
		v, err := DatetimeField.Parse(raw)
		if err != nil {
			return nil, err
		}
		if t, ok := v.(time.Time); ok {
			stamps = append(stamps, t)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating timestamps: %w", err)
	}
	return DistinctDays(stamps), nil
}

// Streaks returns the streaks of consecutive ride days, most recent first
func (db *DB) Streaks() ([]Streak, error) {
	days, err := db.RideDays()
	if err != nil {
		return nil, err
	}
	return Streaks(days), nil
}

func (db *DB) record(query, what string) (*Record, error) {
	var value float64
	var raw string
	err := db.aggregate([]any{&value, &raw}, query)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", what, err)
	}

	v, err := DatetimeField.Parse(raw)
	if err != nil {
		return nil, err
	}
	ts, _ := v.(time.Time)
	return &Record{Value: value, Timestamp: ts}, nil
}

// aggregate runs a single-row query over the rides table. dest is either a
// single scan target or a []any of targets.
func (db *DB) aggregate(dest any, query string) error {
	timer := prometheus.NewTimer(metrics.DBOperationDuration.WithLabelValues(metrics.DBOpAggregate, RideSchema.Table))
	defer timer.ObserveDuration()

	targets, ok := dest.([]any)
	if !ok {
		targets = []any{dest}
	}
	err := db.conn.QueryRow(query).Scan(targets...)
	if err != nil && err != sql.ErrNoRows {
		metrics.DBOperationErrorsTotal.WithLabelValues(metrics.DBOpAggregate, RideSchema.Table).Inc()
	}
	return err
}
