// Package service contains the availability pipeline: catalog lookup,
// concurrent schedule fetching and aggregation into a matrix
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/teoh/bintangbuddy/internal/models"
	"github.com/teoh/bintangbuddy/internal/timecodec"
	"github.com/teoh/bintangbuddy/internal/utils"
)

var tracer = otel.Tracer("github.com/teoh/bintangbuddy/internal/service")

// ErrNoResourcesFound is returned when the requested locations have no bookable resources
var ErrNoResourcesFound = errors.New("no resources found")

// CatalogClient lists the resources of a location
type CatalogClient interface {
	FetchResources(ctx context.Context, locationID string) ([]models.Resource, error)
}

// ProgressCallback is a function type for progress update callbacks
type ProgressCallback func(models.Progress)

// Query describes one availability lookup
type Query struct {
	// Date is any instant on the requested day; it is truncated to local midnight
	Date time.Time
	// Locations are location names; empty means all
	Locations []string
	// RunID tags progress updates
	RunID string
}

// AvailabilityService runs the availability pipeline
type AvailabilityService struct {
	catalog   CatalogClient
	fetcher   *Fetcher
	table     models.LocationTable
	logger    *zap.Logger
	mu        sync.RWMutex
	callbacks []ProgressCallback
}

// NewAvailabilityService creates a new AvailabilityService
func NewAvailabilityService(catalog CatalogClient, fetcher *Fetcher, table models.LocationTable, logger *zap.Logger) *AvailabilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityService{
		catalog:   catalog,
		fetcher:   fetcher,
		table:     table,
		logger:    logger,
		callbacks: make([]ProgressCallback, 0),
	}
}

// RegisterProgressCallback registers a callback function to be called as the pipeline advances
func (s *AvailabilityService) RegisterProgressCallback(callback ProgressCallback) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callbacks = append(s.callbacks, callback)
}

// notifyProgress calls all registered callbacks with the update
func (s *AvailabilityService) notifyProgress(p models.Progress) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, callback := range s.callbacks {
		callback(p)
	}
}

// ResolveLocations maps names to locations without touching the network
func (s *AvailabilityService) ResolveLocations(names []string) ([]models.Location, error) {
	return s.table.Resolve(names)
}

// FetchCatalogs lists the resources of each location, one location at a time
func (s *AvailabilityService) FetchCatalogs(ctx context.Context, runID string, locations []models.Location) ([]models.LocationResources, error) {
	groups := make([]models.LocationResources, 0, len(locations))
	for i, loc := range locations {
		resources, err := s.catalog.FetchResources(ctx, loc.ID)
		if err != nil {
			return nil, fmt.Errorf("location %s: %w", loc.Name, err)
		}
		s.logger.Debug("service.catalog.fetched",
			zap.String("location", loc.Name),
			zap.Int("resources", len(resources)))
		groups = append(groups, models.LocationResources{Location: loc, Resources: resources})
		s.notifyProgress(models.Progress{RunID: runID, Stage: models.StageCatalog, Done: i + 1, Total: len(locations)})
	}
	return groups, nil
}

// Flatten concatenates the resources of every location in order
func Flatten(groups []models.LocationResources) []models.Resource {
	var n int
	for _, g := range groups {
		n += len(g.Resources)
	}
	resources := make([]models.Resource, 0, n)
	for _, g := range groups {
		resources = append(resources, g.Resources...)
	}
	return resources
}

// Find runs the whole pipeline for a query and returns the availability matrix.
// Unknown locations are rejected before any request is made.
func (s *AvailabilityService) Find(ctx context.Context, q Query) (*models.Matrix, error) {
	locations, err := s.ResolveLocations(q.Locations)
	if err != nil {
		s.logger.Info("service.find.rejected",
			zap.String("run_id", utils.SanitizeLogString(q.RunID)),
			zap.Strings("requested", utils.SanitizeLogStrings(q.Locations)))
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "service.Find")
	defer span.End()

	date := timecodec.StartOfDay(q.Date, s.fetcher.Location())
	span.SetAttributes(
		attribute.String("run.id", q.RunID),
		attribute.String("date", date.Format(timecodec.DateLayout)),
		attribute.Int("locations", len(locations)),
	)

	names := make([]string, len(locations))
	for i, loc := range locations {
		names[i] = loc.Name
	}
	s.logger.Info("service.find.start",
		zap.String("run_id", utils.SanitizeLogString(q.RunID)),
		zap.String("date", date.Format(timecodec.DateLayout)),
		zap.Strings("requested", utils.SanitizeLogStrings(q.Locations)),
		zap.Strings("locations", names))

	groups, err := s.FetchCatalogs(ctx, q.RunID, locations)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "catalog")
		return nil, err
	}

	resources := Flatten(groups)
	if len(resources) == 0 {
		return nil, fmt.Errorf("%w at %v", ErrNoResourcesFound, names)
	}

	records, err := s.fetcher.FetchAll(ctx, resources, date, func(done, total int) {
		s.notifyProgress(models.Progress{RunID: q.RunID, Stage: models.StageSchedule, Done: done, Total: total})
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "schedule")
		return nil, err
	}

	matrix := BuildMatrix(records)
	s.logger.Info("service.find.done",
		zap.String("run_id", utils.SanitizeLogString(q.RunID)),
		zap.Int("resources", len(matrix.Rows)),
		zap.Int("columns", len(matrix.Columns)))

	return matrix, nil
}
