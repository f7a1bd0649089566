package handler

import (
	"log/slog"
	"net/http"
	"time"
)

type healthResponse struct {
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Health reports liveness. It checks nothing beyond the process answering.
//
// HTTP: GET /health
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "OK",
		Message:   "Recipe Share API is running",
		Timestamp: time.Now().UTC(),
	})
}

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping() error
}

// Ready reports whether the database answers. Load balancers should route
// traffic only while it returns 200.
//
// HTTP: GET /ready
func Ready(db Pinger, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(); err != nil {
			logger.Error("readiness check failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{
				Error:   "unavailable",
				Message: "Database unreachable",
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
	}
}
