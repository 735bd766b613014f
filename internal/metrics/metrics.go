package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Label value constants to prevent typos
const (
	// HTTP endpoints
	EndpointIndex  = "index"
	EndpointRides  = "rides"
	EndpointRide   = "ride"
	EndpointStats  = "stats"
	EndpointDaily  = "daily"
	EndpointHealth = "health"

	// Database operations
	DBOpInsert         = "insert"
	DBOpUpdate         = "update"
	DBOpGetByKey       = "get_by_key"
	DBOpGetMostRecent  = "get_most_recent"
	DBOpListMostRecent = "list_most_recent"
	DBOpGetByName      = "get_by_name"
	DBOpList           = "list"
	DBOpAggregate      = "aggregate"
	DBOpMigrate        = "migrate"

	// Migration results
	ResultSuccess = "success"
	ResultFailure = "failure"

	// Stats cache outcomes
	CacheHit  = "hit"
	CacheMiss = "miss"
)

// HTTP Metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"endpoint", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"endpoint", "status_code"},
	)

	HTTPRateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "http_rate_limited_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
	)

	StatsCacheRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stats_cache_requests_total",
			Help: "Summary cache lookups by outcome",
		},
		[]string{"outcome"},
	)
)

// Database Metrics
var (
	DBOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_operation_duration_seconds",
			Help:    "Database operation latency in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"operation", "table"},
	)

	DBOperationErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_operation_errors_total",
			Help: "Total number of database operation errors",
		},
		[]string{"operation", "table"},
	)

	MigrationRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "migration_runs_total",
			Help: "Total number of migration invocations by result",
		},
		[]string{"result"},
	)

	MigrationsAppliedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "migrations_applied_total",
			Help: "Total number of migration units applied",
		},
	)
)

// Ride Metrics
var (
	RidesTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rides_total",
			Help: "Number of logged rides, counting every segment",
		},
	)

	RideDistanceKilometers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ride_distance_kilometers",
			Help: "Total distance of all logged rides",
		},
	)

	RideCurrentStreakDays = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ride_current_streak_days",
			Help: "Length of the streak that includes today (0 when none)",
		},
	)

	RidesImportedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rides_imported_total",
			Help: "Total number of rides created from GPX tracks",
		},
	)
)
