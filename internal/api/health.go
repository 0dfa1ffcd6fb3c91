// Package api provides the HTTP handlers for the bintangbuddy API
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// HealthResponse represents the response for health check endpoints
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// ReadinessCheck reports whether a dependency is usable
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// HealthLiveHandler handles Kubernetes liveness checks
func HealthLiveHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "UP"})
}

// NewHealthReadyHandler returns a readiness handler that runs every check.
// Any failing check makes the endpoint answer 503.
func NewHealthReadyHandler(checks ...ReadinessCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		response := HealthResponse{Status: "UP"}
		status := http.StatusOK
		for _, c := range checks {
			if response.Checks == nil {
				response.Checks = make(map[string]string, len(checks))
			}
			if err := c.Check(ctx); err != nil {
				response.Checks[c.Name] = err.Error()
				response.Status = "DOWN"
				status = http.StatusServiceUnavailable
				continue
			}
			response.Checks[c.Name] = "UP"
		}

		writeJSON(w, status, response)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
