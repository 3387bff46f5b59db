package http

import (
	"net/http"
	"time"

	"github.com/cobaltleaf/doorman/internal/identity/store"
	"github.com/cobaltleaf/doorman/pkg/httpx"
)

// ReadyzHandler reports whether the service can actually serve: the probe
// checks datastore connectivity and degrades to 503 when it fails.
func ReadyzHandler(startTime time.Time, version string, st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"database": "ok",
		}
		overallStatus := "ok"
		statusCode := http.StatusOK

		if err := st.Ping(r.Context()); err != nil {
			checks["database"] = "error: " + err.Error()
			overallStatus = "degraded"
			statusCode = http.StatusServiceUnavailable
		}

		httpx.WriteJSON(w, statusCode, HealthResponse{
			Status:  overallStatus,
			Uptime:  time.Since(startTime).String(),
			Version: version,
			Checks:  checks,
		})
	}
}
