package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teoh/bintangbuddy/internal/models"
	"github.com/teoh/bintangbuddy/internal/render"
	"github.com/teoh/bintangbuddy/internal/service"
	"github.com/teoh/bintangbuddy/internal/timecodec"
	"github.com/teoh/bintangbuddy/internal/utils"
)

// Finder runs an availability query
type Finder interface {
	Find(ctx context.Context, q service.Query) (*models.Matrix, error)
}

// ErrorResponse is the body of every non-2xx API answer
type ErrorResponse struct {
	Error string `json:"error"`
}

// AvailabilityHandler handles GET /api/availability
type AvailabilityHandler struct {
	finder Finder
	loc    *time.Location
	logger *zap.Logger
	now    func() time.Time
}

// NewAvailabilityHandler creates a new availability handler
func NewAvailabilityHandler(finder Finder, loc *time.Location, logger *zap.Logger) *AvailabilityHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityHandler{
		finder: finder,
		loc:    loc,
		logger: logger,
		now:    time.Now,
	}
}

// ServeHTTP answers with the availability matrix for the requested day and locations.
//
// Query parameters:
//   - date: YYYY-MM-DD, defaults to today
//   - location: repeatable or comma separated, defaults to every location
//   - run: id attached to progress events, generated when absent
func (h *AvailabilityHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "method not allowed"})
		return
	}

	query := r.URL.Query()

	date := timecodec.StartOfDay(h.now(), h.loc)
	if raw := strings.TrimSpace(query.Get("date")); raw != "" {
		parsed, err := timecodec.ParseDate(raw, h.loc)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		date = parsed
	}

	var locations []string
	for _, v := range query["location"] {
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				locations = append(locations, name)
			}
		}
	}

	runID := query.Get("run")
	if runID == "" {
		runID = uuid.NewString()
	}
	w.Header().Set("X-Run-ID", runID)

	matrix, err := h.finder.Find(r.Context(), service.Query{
		Date:      date,
		Locations: locations,
		RunID:     runID,
	})
	if err != nil {
		status := statusFor(err)
		if status == statusClientClosedRequest {
			h.logger.Debug("api.availability.canceled",
				zap.String("run_id", utils.SanitizeLogString(runID)))
			w.WriteHeader(status)
			return
		}
		h.logger.Warn("api.availability.failed",
			zap.String("run_id", utils.SanitizeLogString(runID)),
			zap.Int("status", status),
			zap.Error(err))
		writeJSON(w, status, ErrorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, render.NewDocument(matrix, date))
}

// statusClientClosedRequest is answered when the caller went away mid query
const statusClientClosedRequest = 499

// statusFor maps pipeline errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, context.Canceled):
		return statusClientClosedRequest
	case errors.Is(err, models.ErrUnknownLocation):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNoResourcesFound):
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}
