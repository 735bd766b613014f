package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"kmtracker/internal/database"
	"kmtracker/internal/metrics"
)

const summaryKey = "summary"

// SummarySource computes the ride statistics
type SummarySource interface {
	Summary() (*database.Summary, error)
}

// StatsHandler serves the ride statistics, cached for a short time since
// rides are added by a different process
type StatsHandler struct {
	source SummarySource
	cache  *cache.Cache
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger
}

// NewStatsHandler caches summaries for ttl; a zero ttl disables caching
func NewStatsHandler(source SummarySource, ttl time.Duration) *StatsHandler {
	return &StatsHandler{
		source: source,
		cache:  cache.New(ttl, time.Minute),
		ttl:    ttl,
		logger: slog.Default(),
	}
}

// StatsJSON is the API representation of the ride statistics
type StatsJSON struct {
	TotalDistanceKM    float64    `json:"total_distance_km"`
	TotalRides         int64      `json:"total_rides"`
	LongestRideKM      *float64   `json:"longest_ride_km"`
	LongestRideAt      *time.Time `json:"longest_ride_at,omitempty"`
	MaxDailyDistanceKM *float64   `json:"max_daily_distance_km"`
	MaxDailyDistanceOn *string    `json:"max_daily_distance_on,omitempty"`
	AverageSpeedKMH    *float64   `json:"average_speed_kmh"`
	MaxSpeedKMH        *float64   `json:"max_speed_kmh"`
	MaxSpeedAt         *time.Time `json:"max_speed_at,omitempty"`
	LongestStreakDays  int        `json:"longest_streak_days"`
	LongestStreakUntil *string    `json:"longest_streak_until,omitempty"`
}

func newStatsJSON(s *database.Summary) StatsJSON {
	out := StatsJSON{
		TotalDistanceKM: s.TotalDistance,
		TotalRides:      s.TotalRides,
		AverageSpeedKMH: s.AverageSpeed,
	}
	if r := s.LongestRide; r != nil {
		out.LongestRideKM, out.LongestRideAt = &r.Value, &r.Timestamp
	}
	if r := s.MaxDailyDistance; r != nil {
		day := r.Day.Format("2006-01-02")
		out.MaxDailyDistanceKM, out.MaxDailyDistanceOn = &r.Value, &day
	}
	if r := s.MaxSpeed; r != nil {
		out.MaxSpeedKMH, out.MaxSpeedAt = &r.Value, &r.Timestamp
	}
	if st := s.LongestStreak; st != nil {
		until := st.Anchor.Format("2006-01-02")
		out.LongestStreakDays, out.LongestStreakUntil = st.Days, &until
	}
	return out
}

// HandleStats handles GET /api/stats
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats()
	if err != nil {
		h.logger.Error("Failed to compute summary", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, stats)
}

func (h *StatsHandler) stats() (StatsJSON, error) {
	if h.ttl > 0 {
		if v, found := h.cache.Get(summaryKey); found {
			metrics.StatsCacheRequestsTotal.WithLabelValues(metrics.CacheHit).Inc()
			return v.(StatsJSON), nil
		}
		metrics.StatsCacheRequestsTotal.WithLabelValues(metrics.CacheMiss).Inc()
	}

	// concurrent misses share one computation
	v, err, _ := h.group.Do(summaryKey, func() (any, error) {
		summary, err := h.source.Summary()
		if err != nil {
			return nil, err
		}
		stats := newStatsJSON(summary)
		if h.ttl > 0 {
			h.cache.Set(summaryKey, stats, h.ttl)
		}
		return stats, nil
	})
	if err != nil {
		return StatsJSON{}, err
	}
	return v.(StatsJSON), nil
}
