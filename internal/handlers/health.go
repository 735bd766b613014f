package handlers

import (
	"log/slog"
	"net/http"
)

// Pinger reports whether the store is reachable
type Pinger interface {
	Health() error
}

// HandleHealth answers 200 OK while the database is reachable
func HandleHealth(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.Health(); err != nil {
			slog.Error("Health check failed", "error", err)
			http.Error(w, "Database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}
}
