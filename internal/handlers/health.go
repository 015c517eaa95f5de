package handlers

//go:generate mockgen -source=health.go -destination=mock_health.go -package=handlers

import (
	"context"
	"net/http"
	"time"
)

// Pinger checks a dependency is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// NewHealthHandler returns an HTTP handler reporting whether the database answers.
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} handlers.Response "OK"
// @Failure 503 {object} handlers.Response "Database unavailable"
// @Router /health [get]
func NewHealthHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, Response{Status: StatusError, Code: "UNAVAILABLE", Message: "database unavailable"})
			return
		}

		writeSuccess(w, http.StatusOK, "OK", "ok", nil)
	}
}
