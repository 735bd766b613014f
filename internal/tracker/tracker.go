package tracker

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"kmtracker/internal/database"
	"kmtracker/internal/gpx"
	"kmtracker/internal/metrics"
)

var (
	// ErrInvalidRide is returned when ride values fail validation
	ErrInvalidRide = errors.New("invalid ride")

	// ErrAliasExists is returned when adding an alias whose name is taken
	ErrAliasExists = errors.New("alias already exists")

	// ErrNoTracks is returned when a GPX document holds no usable track
	ErrNoTracks = errors.New("no tracks in gpx file")
)

// RideInput carries user supplied ride values. Nil fields are unset.
type RideInput struct {
	// Alias names the alias whose values fill unset fields on Add
	Alias     string
	Distance  *float64
	Timestamp *time.Time
	Duration  *time.Duration
	Comment   *string
	Segments  *int64
	GPX       *string
}

// Entry is a single ride with the statistics of its stored track
type Entry struct {
	Ride  *database.Ride
	Track *gpx.Details
	// TrackErr is set when the stored track could not be analyzed
	TrackErr error
}

// Tracker implements the ride log operations on top of the store
type Tracker struct {
	db  *database.DB
	now func() time.Time
}

// New creates a tracker. The store must already be migrated.
func New(db *database.DB) *Tracker {
	return &Tracker{db: db, now: time.Now}
}

// Add logs a new ride. Fields left unset take the alias values when an
// alias is named; the timestamp defaults to now.
func (t *Tracker) Add(in RideInput) (*database.Ride, error) {
	if err := checkInput(in); err != nil {
		return nil, err
	}
	if in.Alias != "" {
		alias, err := t.db.GetAliasByName(in.Alias)
		if err != nil {
			return nil, err
		}
		in = withAliasDefaults(in, alias)
	}
	if in.Distance == nil {
		return nil, fmt.Errorf("%w: distance is required", ErrInvalidRide)
	}

	ride := &database.Ride{Timestamp: t.now(), Segments: database.DefaultSegments}
	apply(ride, in)
	if err := validate(ride); err != nil {
		return nil, err
	}

	if err := t.db.SaveRide(ride); err != nil {
		return nil, fmt.Errorf("failed to add ride: %w", err)
	}

	slog.Info("Added ride", "id", ride.ID, "distance_km", ride.Distance)
	return ride, nil
}

// Amend overwrites the supplied fields of the ride with the given ID, or
// of the most recently added ride when id is nil
func (t *Tracker) Amend(id *int64, in RideInput) (*database.Ride, error) {
	if err := checkInput(in); err != nil {
		return nil, err
	}

	var ride *database.Ride
	var err error
	if id == nil {
		ride, err = t.db.GetLatestRide()
	} else {
		ride, err = t.db.GetRide(*id)
	}
	if err != nil {
		return nil, err
	}

	apply(ride, in)
	if err := validate(ride); err != nil {
		return nil, err
	}

	if err := t.db.SaveRide(ride); err != nil {
		return nil, fmt.Errorf("failed to amend ride %d: %w", ride.ID, err)
	}

	slog.Info("Amended ride", "id", ride.ID)
	return ride, nil
}

// AddAlias stores a named set of ride defaults
func (t *Tracker) AddAlias(name string, in RideInput) (*database.Alias, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: alias name must not be empty", ErrInvalidRide)
	}
	if err := checkInput(in); err != nil {
		return nil, err
	}

	alias := &database.Alias{
		Name:     name,
		Distance: in.Distance,
		Duration: in.Duration,
		Comment:  in.Comment,
	}
	if in.Segments != nil {
		alias.Segments = *in.Segments
	}
	if err := validateDefaults(alias); err != nil {
		return nil, err
	}

	if err := t.db.CreateAlias(alias); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %q", ErrAliasExists, name)
		}
		return nil, err
	}
	return alias, nil
}

// Aliases lists all aliases by name
func (t *Tracker) Aliases() ([]*database.Alias, error) {
	return t.db.ListAliases()
}

// ImportGPX adds one ride per track of a GPX document. Each ride keeps the
// whole document as its source track.
func (t *Tracker) ImportGPX(data []byte) ([]*database.Ride, error) {
	tracks, err := gpx.ParseTracks(data)
	if err != nil {
		return nil, err
	}
	return t.ImportTracks(tracks, string(data))
}

// ImportTracks adds one ride per track. Tracks without distance are
// skipped.
func (t *Tracker) ImportTracks(tracks []gpx.Track, source string) ([]*database.Ride, error) {
	var rides []*database.Ride
	for _, trk := range tracks {
		if trk.Distance <= 0 {
			slog.Warn("Skipping track without distance", "track", trk.Name)
			continue
		}

		ride := &database.Ride{
			Distance:  trk.Distance,
			Timestamp: trk.Start.Local(),
			Segments:  int64(max(trk.Segments, database.DefaultSegments)),
			GPX:       &source,
		}
		if trk.Start.IsZero() {
			ride.Timestamp = t.now()
		}
		if trk.MovingTime > 0 {
			ride.Duration = &trk.MovingTime
		}
		if trk.Name != "" {
			ride.Comment = &trk.Name
		}

		if err := t.db.SaveRide(ride); err != nil {
			return rides, fmt.Errorf("failed to import track %q: %w", trk.Name, err)
		}
		metrics.RidesImportedTotal.Inc()
		rides = append(rides, ride)
	}

	if len(rides) == 0 {
		return nil, ErrNoTracks
	}
	slog.Info("Imported GPX tracks", "rides", len(rides))
	return rides, nil
}

// Latest returns the n newest rides, oldest first; n < 0 returns all
func (t *Tracker) Latest(n int) ([]*database.Ride, error) {
	return t.db.ListLatestRides(n)
}

// Entry returns a ride and, when it has a stored track, the track's
// motion statistics
func (t *Tracker) Entry(id int64) (*Entry, error) {
	ride, err := t.db.GetRide(id)
	if err != nil {
		return nil, err
	}

	entry := &Entry{Ride: ride}
	if ride.HasGPX() {
		entry.Track, entry.TrackErr = gpx.Analyze([]byte(*ride.GPX))
	}
	return entry, nil
}

// Summary computes all ride statistics
func (t *Tracker) Summary() (*database.Summary, error) {
	return t.db.Summary()
}

// StreakOn returns the length of the streak that ends on day, or 0
func (t *Tracker) StreakOn(day time.Time) (int, error) {
	streaks, err := t.db.Streaks()
	if err != nil {
		return 0, err
	}
	return database.StreakAt(streaks, day), nil
}

// CurrentStreak returns the length of the streak that ends today
func (t *Tracker) CurrentStreak() (int, error) {
	return t.StreakOn(t.now())
}

// DailyDistances returns the distance covered per day, in date order
func (t *Tracker) DailyDistances() ([]database.DailyDistance, error) {
	return t.db.DailyDistances()
}

// TotalRides returns the number of rides counting every segment
func (t *Tracker) TotalRides() (int64, error) {
	return t.db.TotalRides()
}

// TotalDistance returns the summed distance of all rides
func (t *Tracker) TotalDistance() (float64, error) {
	return t.db.TotalDistance()
}

func withAliasDefaults(in RideInput, a *database.Alias) RideInput {
	if in.Distance == nil {
		in.Distance = a.Distance
	}
	if in.Duration == nil {
		in.Duration = a.Duration
	}
	if in.Comment == nil {
		in.Comment = a.Comment
	}
	if in.Segments == nil && a.Segments != 0 {
		segments := a.Segments
		in.Segments = &segments
	}
	return in
}

func apply(r *database.Ride, in RideInput) {
	if in.Distance != nil {
		r.Distance = *in.Distance
	}
	if in.Timestamp != nil {
		r.Timestamp = *in.Timestamp
	}
	if in.Duration != nil {
		r.Duration = in.Duration
	}
	if in.Comment != nil {
		r.Comment = in.Comment
	}
	if in.Segments != nil {
		r.Segments = *in.Segments
	}
	if in.GPX != nil {
		r.GPX = in.GPX
	}
}

// checkInput rejects explicit values the store would treat as unset
func checkInput(in RideInput) error {
	if in.Segments != nil && *in.Segments <= 0 {
		return fmt.Errorf("%w: segments must be positive, got %d", ErrInvalidRide, *in.Segments)
	}
	return nil
}

func validate(r *database.Ride) error {
	if r.Distance <= 0 {
		return fmt.Errorf("%w: distance must be positive, got %v", ErrInvalidRide, r.Distance)
	}
	if r.Timestamp.IsZero() {
		return fmt.Errorf("%w: timestamp is required", ErrInvalidRide)
	}
	if r.Duration != nil && *r.Duration < time.Second {
		return fmt.Errorf("%w: duration must be at least one second", ErrInvalidRide)
	}
	if r.Segments < 0 {
		return fmt.Errorf("%w: segments must be positive, got %d", ErrInvalidRide, r.Segments)
	}
	return nil
}

func validateDefaults(a *database.Alias) error {
	if a.Distance != nil && *a.Distance <= 0 {
		return fmt.Errorf("%w: distance must be positive, got %v", ErrInvalidRide, *a.Distance)
	}
	if a.Duration != nil && *a.Duration < time.Second {
		return fmt.Errorf("%w: duration must be at least one second", ErrInvalidRide)
	}
	if a.Segments < 0 {
		return fmt.Errorf("%w: segments must be positive, got %d", ErrInvalidRide, a.Segments)
	}
	return nil
}
