package bukza

import "errors"

var (
	// ErrCatalogUnavailable is returned when the resource catalog cannot be read
	ErrCatalogUnavailable = errors.New("catalog unavailable")
	// ErrScheduleUnavailable is returned when a resource schedule cannot be read
	// or comes back without the expected resource/day structure
	ErrScheduleUnavailable = errors.New("schedule unavailable")
	// ErrAuthUnavailable is returned when no bearer token could be obtained
	ErrAuthUnavailable = errors.New("authentication unavailable")
)
