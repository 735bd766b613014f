package handlers

import (
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"kmtracker/internal/database"
	"kmtracker/internal/gpx"
	"kmtracker/internal/render"
	"kmtracker/internal/tracker"
)

//go:embed templates/*.html
var templateFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// RideJSON is the API representation of a ride
type RideJSON struct {
	ID         int64     `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	DistanceKM float64   `json:"distance_km"`
	DurationS  *int64    `json:"duration_s,omitempty"`
	SpeedKMH   *float64  `json:"speed_kmh,omitempty"`
	Comment    *string   `json:"comment,omitempty"`
	Segments   int64     `json:"segments"`
	HasGPX     bool      `json:"has_gpx"`
}

// EntryJSON is a ride with the statistics of its stored track
type EntryJSON struct {
	RideJSON
	Track      *gpx.Details `json:"track,omitempty"`
	TrackError string       `json:"track_error,omitempty"`
}

// DailyJSON is the distance covered on one day
type DailyJSON struct {
	Day        string  `json:"day"`
	DistanceKM float64 `json:"distance_km"`
}

func newRideJSON(r *database.Ride) RideJSON {
	out := RideJSON{
		ID:         r.ID,
		Timestamp:  r.Timestamp,
		DistanceKM: r.Distance,
		SpeedKMH:   r.Speed(),
		Comment:    r.Comment,
		Segments:   r.Segments,
		HasGPX:     r.HasGPX(),
	}
	if r.Duration != nil {
		secs := int64(*r.Duration / time.Second)
		out.DurationS = &secs
	}
	return out
}

// RidesHandler serves the ride table and the read-only ride API
type RidesHandler struct {
	tracker *tracker.Tracker
	logger  *slog.Logger
}

// NewRidesHandler creates a new rides handler
func NewRidesHandler(t *tracker.Tracker) *RidesHandler {
	return &RidesHandler{
		tracker: t,
		logger:  slog.Default(),
	}
}

// HandleIndex renders all rides as an HTML table, newest first
func (h *RidesHandler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	rides, err := h.tracker.Latest(-1)
	if err != nil {
		h.serverError(w, "Failed to list rides", err)
		return
	}
	distance, err := h.tracker.TotalDistance()
	if err != nil {
		h.serverError(w, "Failed to get total distance", err)
		return
	}
	total, err := h.tracker.TotalRides()
	if err != nil {
		h.serverError(w, "Failed to get total rides", err)
		return
	}

	slices.Reverse(rides)
	rows := make([][]string, len(rides))
	for i, ride := range rides {
		rows[i] = render.RideCells(ride)
	}

	data := struct {
		TotalDistance string
		TotalRides    int64
		Columns       []string
		Rows          [][]string
	}{
		TotalDistance: database.FormatFloat(distance),
		TotalRides:    total,
		Columns:       render.RideLabels(),
		Rows:          rows,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, data); err != nil {
		h.logger.Error("Failed to render index", "error", err)
	}
}

// HandleRides handles GET /api/rides
// Query parameters:
//   - n: number of newest rides to return (default: all)
func (h *RidesHandler) HandleRides(w http.ResponseWriter, r *http.Request) {
	n := -1
	if s := r.URL.Query().Get("n"); s != "" {
		var err error
		n, err = strconv.Atoi(s)
		if err != nil {
			http.Error(w, "Invalid n parameter", http.StatusBadRequest)
			return
		}
	}

	rides, err := h.tracker.Latest(n)
	if err != nil {
		h.serverError(w, "Failed to list rides", err)
		return
	}

	out := make([]RideJSON, len(rides))
	for i, ride := range rides {
		out[i] = newRideJSON(ride)
	}
	writeJSON(w, map[string]any{"rides": out})
}

// HandleRide handles GET /api/rides/{id}
func (h *RidesHandler) HandleRide(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid ride ID", http.StatusBadRequest)
		return
	}

	entry, err := h.tracker.Entry(id)
	if errors.Is(err, database.ErrNotFound) {
		http.Error(w, "Ride not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.serverError(w, "Failed to get ride", err)
		return
	}

	out := EntryJSON{RideJSON: newRideJSON(entry.Ride), Track: entry.Track}
	if entry.TrackErr != nil {
		out.TrackError = entry.TrackErr.Error()
	}
	writeJSON(w, out)
}

// HandleDaily handles GET /api/daily
func (h *RidesHandler) HandleDaily(w http.ResponseWriter, r *http.Request) {
	days, err := h.tracker.DailyDistances()
	if err != nil {
		h.serverError(w, "Failed to get daily distances", err)
		return
	}

	out := make([]DailyJSON, len(days))
	for i, d := range days {
		out[i] = DailyJSON{Day: d.Day.Format("2006-01-02"), DistanceKM: d.Distance}
	}
	writeJSON(w, map[string]any{"days": out})
}

func (h *RidesHandler) serverError(w http.ResponseWriter, msg string, err error) {
	h.logger.Error(msg, "error", err)
	http.Error(w, "Internal server error", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
