package handlers

import (
	"context"
	"net/http"
	"time"
)

// Pinger reports whether a dependency is reachable. *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthResponse struct {
	Status      string  `json:"status"`
	Timestamp   string  `json:"timestamp"`
	Uptime      float64 `json:"uptime"`
	Environment string  `json:"environment"`
	Database    string  `json:"database"`
}

// Health returns a handler that pings db and reports 503 when it is down.
func Health(db Pinger, environment string, started time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{
			Status:      "OK",
			Timestamp:   time.Now().UTC().Format(time.RFC3339),
			Uptime:      time.Since(started).Seconds(),
			Environment: environment,
			Database:    "connected",
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		if db == nil || db.PingContext(ctx) != nil {
			resp.Status = "ERROR"
			resp.Database = "disconnected"
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, resp)
	}
}

// NotFound answers unknown routes with the failure envelope.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "route not found")
}

// TooManyRequests answers rate-limited requests with the failure envelope.
func TooManyRequests(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusTooManyRequests, "too many requests from this IP, please try again later")
}
