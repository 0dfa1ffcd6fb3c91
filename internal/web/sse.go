// Package web streams pipeline progress to browsers over server-sent events
package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync/atomic"

	"github.com/r3labs/sse/v2"
	"go.uber.org/zap"

	"github.com/teoh/bintangbuddy/internal/models"
)

const (
	// ProgressStream is the SSE stream progress events are published on
	ProgressStream = "progress"
	// ProgressEvent is the SSE event name of progress updates
	ProgressEvent = "progress"
)

// ProgressBroadcaster fans progress updates out to every connected SSE client
type ProgressBroadcaster struct {
	server *sse.Server
	logger *zap.Logger
	seq    atomic.Uint64
	closed atomic.Bool
}

// NewProgressBroadcaster creates a broadcaster with its stream ready
func NewProgressBroadcaster(logger *zap.Logger) *ProgressBroadcaster {
	if logger == nil {
		logger = zap.NewNop()
	}

	server := sse.New()
	server.AutoStream = false
	server.AutoReplay = false
	server.Headers = map[string]string{
		"Access-Control-Allow-Origin": "*",
		"X-Accel-Buffering":           "no",
	}
	server.CreateStream(ProgressStream)

	return &ProgressBroadcaster{server: server, logger: logger}
}

// NotifyProgress publishes one progress update. It has the signature of a
// service.ProgressCallback.
func (b *ProgressBroadcaster) NotifyProgress(p models.Progress) {
	if b.closed.Load() {
		return
	}
	data, err := json.Marshal(p)
	if err != nil {
		b.logger.Error("web.sse.marshal_failed", zap.Error(err))
		return
	}
	b.server.Publish(ProgressStream, &sse.Event{
		ID:    []byte(strconv.FormatUint(b.seq.Add(1), 10)),
		Event: []byte(ProgressEvent),
		Data:  data,
	})
}

// ServeHTTP implements the http.Handler interface for SSE connections.
// Clients do not need to name the stream.
func (b *ProgressBroadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Last-Event-ID")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}
	if b.closed.Load() {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}

	if r.URL.Query().Get("stream") == "" {
		r = r.Clone(r.Context())
		q := r.URL.Query()
		q.Set("stream", ProgressStream)
		r.URL.RawQuery = q.Encode()
	}
	b.logger.Debug("web.sse.client_connected", zap.String("remote_addr", r.RemoteAddr))
	b.server.ServeHTTP(w, r)
	b.logger.Debug("web.sse.client_disconnected", zap.String("remote_addr", r.RemoteAddr))
}

// Shutdown disconnects every client and stops publishing
func (b *ProgressBroadcaster) Shutdown() {
	if b.closed.Swap(true) {
		return
	}
	b.logger.Info("web.sse.shutdown")
	b.server.Close()
}
