package gpx

import (
	"errors"
	"fmt"
	"math"
	"time"

	gpxgo "github.com/tkrajina/gpxgo/gpx"
)

// ErrInvalidGPX is returned for documents that cannot be parsed as GPX
var ErrInvalidGPX = errors.New("could not parse gpx file")

// Track summarizes one <trk> of a GPX document as a ride
type Track struct {
	Name       string
	Start      time.Time // zero when the track has no timestamps
	Distance   float64   // km in motion
	MovingTime time.Duration
	Segments   int
}

// Details are the motion statistics shown for a ride with a stored track
type Details struct {
	MovingTime  time.Duration
	StoppedTime time.Duration
	MovingSpeed float64 // km/h
	MaxSpeed    float64 // km/h
	Uphill      float64 // m
	Downhill    float64 // m
}

func parse(data []byte) (*gpxgo.GPX, error) {
	doc, err := gpxgo.ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGPX, err)
	}
	return doc, nil
}

// ParseTracks reads every track of a GPX document
func ParseTracks(data []byte) ([]Track, error) {
	doc, err := parse(data)
	if err != nil {
		return nil, err
	}

	tracks := make([]Track, 0, len(doc.Tracks))
	for i := range doc.Tracks {
		trk := &doc.Tracks[i]
		moving := trk.MovingData()
		tracks = append(tracks, Track{
			Name:       trk.Name,
			Start:      trk.TimeBounds().StartTime,
			Distance:   moving.MovingDistance / 1000,
			MovingTime: seconds(moving.MovingTime),
			Segments:   len(trk.Segments),
		})
	}
	return tracks, nil
}

// Analyze computes motion statistics over the whole document
func Analyze(data []byte) (*Details, error) {
	doc, err := parse(data)
	if err != nil {
		return nil, err
	}

	moving := doc.MovingData()
	elevation := doc.UphillDownhill()

	d := &Details{
		MovingTime:  seconds(moving.MovingTime),
		StoppedTime: seconds(moving.StoppedTime),
		MaxSpeed:    moving.MaxSpeed * 3.6,
		Uphill:      elevation.Uphill,
		Downhill:    elevation.Downhill,
	}
	if moving.MovingTime > 0 {
		d.MovingSpeed = moving.MovingDistance / moving.MovingTime * 3.6
	}
	return d, nil
}

func seconds(s float64) time.Duration {
	return time.Duration(math.Round(s)) * time.Second
}
