// Package limiter defines the outbound request limiter used before every call
// to the booking service
package limiter

import "context"

// Limiter blocks until one more request may be sent or ctx is done
type Limiter interface {
	Wait(ctx context.Context) error
}

// Pinger is implemented by limiters backed by an external service
type Pinger interface {
	Ping(ctx context.Context) error
}
