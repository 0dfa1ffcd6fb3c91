package service

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/teoh/bintangbuddy/internal/models"
	"github.com/teoh/bintangbuddy/internal/timecodec"
)

// DefaultConcurrency is the number of schedule requests allowed in flight at once
const DefaultConcurrency = 10

// ScheduleClient reads the hourly levels of a single resource
type ScheduleClient interface {
	FetchSchedule(ctx context.Context, resourceID int64, date time.Time) ([]models.TimeSlot, error)
}

// ProgressFunc is told how many resources have been fetched so far
type ProgressFunc func(done, total int)

// Fetcher fans schedule requests out over a bounded number of goroutines
type Fetcher struct {
	client      ScheduleClient
	concurrency int
	loc         *time.Location
	logger      *zap.Logger
}

// NewFetcher creates a Fetcher. A concurrency below 1 falls back to DefaultConcurrency.
func NewFetcher(client ScheduleClient, concurrency int, loc *time.Location, logger *zap.Logger) *Fetcher {
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		client:      client,
		concurrency: concurrency,
		loc:         loc,
		logger:      logger,
	}
}

// Location returns the zone records are converted to
func (f *Fetcher) Location() *time.Location {
	return f.loc
}

// FetchAll fetches the schedule of every resource for date and flattens the
// slots into availability records in the fetcher's zone. The first failure
// cancels the remaining requests and is returned without any records.
// Record order is unspecified.
func (f *Fetcher) FetchAll(ctx context.Context, resources []models.Resource, date time.Time, progress ProgressFunc) ([]models.AvailabilityRecord, error) {
	ctx, span := tracer.Start(ctx, "service.FetchAll")
	defer span.End()
	span.SetAttributes(
		attribute.Int("resources", len(resources)),
		attribute.Int("concurrency", f.concurrency),
	)

	if len(resources) == 0 {
		return []models.AvailabilityRecord{}, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)

	results := make(chan []models.AvailabilityRecord)
	collected := make(chan struct{})
	records := make([]models.AvailabilityRecord, 0, len(resources)*24)

	// Only the collector touches records
	go func() {
		defer close(collected)
		done := 0
		for batch := range results {
			records = append(records, batch...)
			done++
			if progress != nil {
				progress(done, len(resources))
			}
		}
	}()

	for _, res := range resources {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			slots, err := f.client.FetchSchedule(gctx, res.ID, date)
			if err != nil {
				return fmt.Errorf("schedule for %q (%d): %w", res.Name, res.ID, err)
			}

			batch := make([]models.AvailabilityRecord, 0, len(slots))
			for _, slot := range slots {
				batch = append(batch, models.AvailabilityRecord{
					Resource:     res.Name,
					Availability: slot.Availability(),
					Time:         timecodec.ToLocalZone(slot.Start, f.loc),
				})
			}

			select {
			case results <- batch:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	}

	err := g.Wait()
	close(results)
	<-collected

	if err != nil {
		span.RecordError(err)
		f.logger.Warn("service.fetch_all.failed", zap.Int("resources", len(resources)), zap.Error(err))
		return nil, err
	}

	f.logger.Debug("service.fetch_all.done",
		zap.Int("resources", len(resources)),
		zap.Int("records", len(records)))

	return records, nil
}
