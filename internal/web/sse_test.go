package web_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/r3labs/sse/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teoh/bintangbuddy/internal/models"
	"github.com/teoh/bintangbuddy/internal/web"
)

func TestProgressBroadcaster_CORSPreflight(t *testing.T) {
	b := web.NewProgressBroadcaster(nil)
	defer b.Shutdown()

	recorder := httptest.NewRecorder()
	b.ServeHTTP(recorder, httptest.NewRequest(http.MethodOptions, "/events", nil))

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "*", recorder.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, OPTIONS", recorder.Header().Get("Access-Control-Allow-Methods"))
}

func TestProgressBroadcaster_Stream(t *testing.T) {
	b := web.NewProgressBroadcaster(nil)
	server := httptest.NewServer(b)
	defer server.Close()
	defer b.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	events := make(chan *sse.Event, 8)
	client := sse.NewClient(server.URL + "/events")
	require.NoError(t, client.SubscribeChanWithContext(ctx, web.ProgressStream, events))
	defer client.Unsubscribe(events)

	want := []models.Progress{
		{RunID: "run-1", Stage: models.StageCatalog, Done: 1, Total: 1},
		{RunID: "run-1", Stage: models.StageSchedule, Done: 1, Total: 2},
	}
	for _, p := range want {
		b.NotifyProgress(p)
	}

	for i, expected := range want {
		select {
		case ev := <-events:
			assert.Equal(t, web.ProgressEvent, string(ev.Event))
			var got models.Progress
			require.NoError(t, json.Unmarshal(ev.Data, &got))
			assert.Equal(t, expected, got)
		case <-ctx.Done():
			t.Fatalf("timed out waiting for event %d", i)
		}
	}
}

func TestProgressBroadcaster_DefaultsStreamParam(t *testing.T) {
	b := web.NewProgressBroadcaster(nil)
	server := httptest.NewServer(b)
	defer server.Close()
	defer b.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/events", nil)
	require.NoError(t, err)
	resp, err := server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	assert.Equal(t, "no", resp.Header.Get("X-Accel-Buffering"))
}

func TestProgressBroadcaster_Shutdown(t *testing.T) {
	b := web.NewProgressBroadcaster(nil)
	b.Shutdown()
	b.Shutdown()

	// publishing after shutdown is a no-op
	b.NotifyProgress(models.Progress{Stage: models.StageCatalog, Done: 1, Total: 1})

	recorder := httptest.NewRecorder()
	b.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/events", nil))
	assert.Equal(t, http.StatusServiceUnavailable, recorder.Code)
}
