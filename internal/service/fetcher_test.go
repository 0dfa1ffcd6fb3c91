package service_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teoh/bintangbuddy/internal/models"
	"github.com/teoh/bintangbuddy/internal/service"
	"github.com/teoh/bintangbuddy/internal/timecodec"
)

func ptr(v float64) *float64 { return &v }

func utc(s string) time.Time {
	t, err := timecodec.ParseRemoteInstant(s)
	if err != nil {
		panic(err)
	}
	return t
}

// fakeSchedules serves canned slots per resource id
type fakeSchedules struct {
	slots map[int64][]models.TimeSlot
	errs  map[int64]error
	delay time.Duration

	calls    atomic.Int32
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func (f *fakeSchedules) FetchSchedule(ctx context.Context, resourceID int64, date time.Time) ([]models.TimeSlot, error) {
	f.calls.Add(1)
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		seen := f.maxSeen.Load()
		if n <= seen || f.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := f.errs[resourceID]; err != nil {
		return nil, err
	}
	return f.slots[resourceID], nil
}

func laZone(t *testing.T) *time.Location {
	t.Helper()
	loc, err := timecodec.LoadZone("America/Los_Angeles")
	require.NoError(t, err)
	return loc
}

func TestFetchAll(t *testing.T) {
	loc := laZone(t)
	client := &fakeSchedules{slots: map[int64][]models.TimeSlot{
		1: {
			{Start: utc("2024-06-01T17:00:00Z"), Value: ptr(0)},
			{Start: utc("2024-06-02T01:00:00Z"), Value: ptr(1)},
		},
		2: {
			{Start: utc("2024-06-01T17:00:00Z"), Value: nil},
		},
	}}
	fetcher := service.NewFetcher(client, 4, loc, nil)

	var progress [][2]int
	records, err := fetcher.FetchAll(context.Background(), []models.Resource{
		{Name: "Court A", ID: 1},
		{Name: "Court B", ID: 2},
	}, time.Now(), func(done, total int) {
		progress = append(progress, [2]int{done, total})
	})
	require.NoError(t, err)
	require.Len(t, records, 3)

	for _, rec := range records {
		assert.Equal(t, loc, rec.Time.Location())
	}

	assert.ElementsMatch(t, []models.AvailabilityRecord{
		{Resource: "Court A", Availability: models.Unavailable, Time: utc("2024-06-01T17:00:00Z").In(loc)},
		{Resource: "Court A", Availability: models.Available, Time: utc("2024-06-02T01:00:00Z").In(loc)},
		{Resource: "Court B", Availability: models.Unavailable, Time: utc("2024-06-01T17:00:00Z").In(loc)},
	}, records)
	assert.Equal(t, [][2]int{{1, 2}, {2, 2}}, progress)
}

func TestFetchAllNoResources(t *testing.T) {
	client := &fakeSchedules{}
	records, err := service.NewFetcher(client, 2, time.UTC, nil).FetchAll(context.Background(), nil, time.Now(), nil)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, int32(0), client.calls.Load())
}

func TestFetchAllRespectsConcurrencyLimit(t *testing.T) {
	client := &fakeSchedules{delay: 20 * time.Millisecond}
	resources := make([]models.Resource, 12)
	for i := range resources {
		resources[i] = models.Resource{Name: "Court", ID: int64(i)}
	}

	_, err := service.NewFetcher(client, 3, time.UTC, nil).FetchAll(context.Background(), resources, time.Now(), nil)
	require.NoError(t, err)
	assert.Equal(t, int32(12), client.calls.Load())
	assert.LessOrEqual(t, client.maxSeen.Load(), int32(3))
	assert.Greater(t, client.maxSeen.Load(), int32(1))
}

func TestFetchAllFailsFast(t *testing.T) {
	boom := errors.New("boom")
	client := &fakeSchedules{
		delay: 10 * time.Millisecond,
		errs:  map[int64]error{0: boom},
		slots: map[int64][]models.TimeSlot{},
	}
	resources := make([]models.Resource, 50)
	for i := range resources {
		resources[i] = models.Resource{Name: "Court", ID: int64(i)}
		client.slots[int64(i)] = []models.TimeSlot{{Start: utc("2024-06-01T17:00:00Z"), Value: ptr(1)}}
	}

	records, err := service.NewFetcher(client, 2, time.UTC, nil).FetchAll(context.Background(), resources, time.Now(), nil)
	assert.Nil(t, records)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Less(t, client.calls.Load(), int32(50), "pending requests should be skipped after a failure")
}

func TestFetchAllCancelledContext(t *testing.T) {
	client := &fakeSchedules{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	records, err := service.NewFetcher(client, 2, time.UTC, nil).FetchAll(ctx, []models.Resource{{Name: "A", ID: 1}}, time.Now(), nil)
	assert.Nil(t, records)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(0), client.calls.Load())
}

func TestFetchAllProgressIsSerialized(t *testing.T) {
	client := &fakeSchedules{delay: time.Millisecond}
	resources := make([]models.Resource, 30)
	for i := range resources {
		resources[i] = models.Resource{Name: "Court", ID: int64(i)}
	}

	var mu sync.Mutex
	var dones []int
	_, err := service.NewFetcher(client, 8, time.UTC, nil).FetchAll(context.Background(), resources, time.Now(), func(done, total int) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, 30, total)
		dones = append(dones, done)
	})
	require.NoError(t, err)
	require.Len(t, dones, 30)
	for i, d := range dones {
		assert.Equal(t, i+1, d)
	}
}

func TestNewFetcherDefaultsConcurrency(t *testing.T) {
	client := &fakeSchedules{delay: 5 * time.Millisecond}
	resources := make([]models.Resource, 25)
	for i := range resources {
		resources[i] = models.Resource{Name: "Court", ID: int64(i)}
	}

	_, err := service.NewFetcher(client, 0, nil, nil).FetchAll(context.Background(), resources, time.Now(), nil)
	require.NoError(t, err)
	assert.LessOrEqual(t, client.maxSeen.Load(), int32(service.DefaultConcurrency))
}
