package http

import (
	"net/http"
	"time"

	"github.com/cobaltleaf/doorman/pkg/httpx"
)

// HealthResponse is the body of the liveness and readiness probes.
type HealthResponse struct {
	Status  string            `json:"status"`
	Uptime  string            `json:"uptime"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// LivezHandler always reports ok while the process is running.
func LivezHandler(startTime time.Time, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Uptime:  time.Since(startTime).String(),
			Version: version,
		})
	}
}
