package models

import (
	"fmt"
	"time"
)

// Resource is a bookable unit (a court) at a location
type Resource struct {
	Name string `json:"name"`
	ID   int64  `json:"resource_id"`
}

// TimeSlot is one hourly occupancy level for a resource.
// Value is nil when the service sent null or omitted it.
type TimeSlot struct {
	Start time.Time `json:"start"`
	Value *float64  `json:"value"`
}

// Availability is the binary availability flag derived from a slot
type Availability int

const (
	Unavailable Availability = iota
	Available
)

// String returns the string representation of an availability flag
func (a Availability) String() string {
	if a == Available {
		return "AVAILABLE"
	}
	return "UNAVAILABLE"
}

// MarshalText encodes the flag by name
func (a Availability) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText decodes a flag written by MarshalText
func (a *Availability) UnmarshalText(text []byte) error {
	switch string(text) {
	case "AVAILABLE":
		*a = Available
	case "UNAVAILABLE":
		*a = Unavailable
	default:
		return fmt.Errorf("invalid availability %q", text)
	}
	return nil
}

// AvailabilityFromValue derives the flag from a raw occupancy value:
// nil and zero mean unavailable, any other number means available.
func AvailabilityFromValue(v *float64) Availability {
	if v == nil || *v == 0 {
		return Unavailable
	}
	return Available
}

// Availability returns the flag for this slot
func (s TimeSlot) Availability() Availability {
	return AvailabilityFromValue(s.Value)
}

// AvailabilityRecord is the normalized unit consumed by the aggregator
type AvailabilityRecord struct {
	Resource     string       `json:"resource"`
	Availability Availability `json:"availability"`
	Time         time.Time    `json:"time"`
}
