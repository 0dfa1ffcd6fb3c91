package api

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// SetupRoutes configures the HTTP routes for the API. events may be nil when
// progress streaming is not wanted.
func SetupRoutes(finder Finder, loc *time.Location, events http.Handler, logger *zap.Logger, checks ...ReadinessCheck) *http.ServeMux {
	mux := http.NewServeMux()

	// Health check endpoints for Kubernetes
	mux.HandleFunc("/health/live", HealthLiveHandler)
	mux.Handle("/health/ready", NewHealthReadyHandler(checks...))

	mux.Handle("/api/availability", NewAvailabilityHandler(finder, loc, logger))

	if events != nil {
		mux.Handle("/events", events)
	}

	return mux
}

// Wrap applies the request id and access log middleware to h
func Wrap(h http.Handler, logger *zap.Logger) http.Handler {
	return RequestID(AccessLog(logger)(h))
}
