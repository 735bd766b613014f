package metrics

import (
	"context"
	"log/slog"
	"time"
)

// RideStats is the source of the ride gauges
type RideStats interface {
	TotalRides() (int64, error)
	TotalDistance() (float64, error)
	CurrentStreak() (int, error)
}

// StartRideStatsCollector periodically refreshes the ride gauges until ctx
// is cancelled. Rides are written by the CLI, so the server polls.
func StartRideStatsCollector(ctx context.Context, src RideStats, interval time.Duration) {
	logger := slog.Default()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Collect once immediately
	collectRideStats(src, logger)

	for {
		select {
		case <-ctx.Done():
			logger.Info("Ride stats collector stopping")
			return
		case <-ticker.C:
			collectRideStats(src, logger)
		}
	}
}

func collectRideStats(src RideStats, logger *slog.Logger) {
	if total, err := src.TotalRides(); err != nil {
		logger.Error("Failed to get total rides", "error", err)
	} else {
		RidesTotal.Set(float64(total))
	}

	if distance, err := src.TotalDistance(); err != nil {
		logger.Error("Failed to get total distance", "error", err)
	} else {
		RideDistanceKilometers.Set(distance)
	}

	if streak, err := src.CurrentStreak(); err != nil {
		logger.Error("Failed to get current streak", "error", err)
	} else {
		RideCurrentStreakDays.Set(float64(streak))
	}
}
