// Package timecodec converts between the booking service's UTC wire timestamps
// and zone-aware local instants.
package timecodec

import (
	"errors"
	"fmt"
	"time"

	// Embedded zone database so the binary does not depend on the host's.
	_ "time/tzdata"
)

const (
	// RemoteLayout is the layout of timestamps returned by the booking service.
	RemoteLayout = "2006-01-02T15:04:05Z"
	// RemoteRequestLayout is the layout the booking service expects in request bodies.
	RemoteRequestLayout = "2006-01-02T15:04:05.000000Z"
	// DisplayLayout renders a 12-hour clock with an AM/PM suffix, e.g. "06:00PM".
	DisplayLayout = "03:04PM"
	// DateLayout is the calendar date accepted from users.
	DateLayout = "2006-01-02"
)

// ErrMalformedTimestamp is returned when a timestamp is missing or does not match RemoteLayout.
var ErrMalformedTimestamp = errors.New("malformed timestamp")

// ParseRemoteInstant parses a UTC timestamp such as "2022-01-13T18:00:00Z".
// A fractional-seconds field after the seconds is tolerated, which lets the
// output of FormatRemoteInstant parse back.
func ParseRemoteInstant(text string) (time.Time, error) {
	if !wellFormed(text) {
		return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedTimestamp, text)
	}
	t, err := time.Parse(RemoteLayout, text)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedTimestamp, text)
	}
	return t.UTC(), nil
}

// wellFormed checks the fixed-width shape YYYY-MM-DDTHH:MM:SS[.f+]Z, which
// time.Parse alone does not enforce for single-digit fields.
func wellFormed(text string) bool {
	const seconds = len("2006-01-02T15:04:05")
	if len(text) < seconds+1 || text[len(text)-1] != 'Z' {
		return false
	}
	for i := 0; i < seconds; i++ {
		c := text[i]
		switch i {
		case 4, 7:
			if c != '-' {
				return false
			}
		case 10:
			if c != 'T' {
				return false
			}
		case 13, 16:
			if c != ':' {
				return false
			}
		default:
			if c < '0' || c > '9' {
				return false
			}
		}
	}
	frac := text[seconds : len(text)-1]
	if frac == "" {
		return true
	}
	if len(frac) < 2 || frac[0] != '.' {
		return false
	}
	for i := 1; i < len(frac); i++ {
		if frac[i] < '0' || frac[i] > '9' {
			return false
		}
	}
	return true
}

// FormatRemoteInstant renders t in UTC with microsecond precision, e.g. "2022-01-13T08:00:00.000000Z".
func FormatRemoteInstant(t time.Time) string {
	return t.UTC().Format(RemoteRequestLayout)
}

// ToLocalZone returns the same instant expressed in loc.
func ToLocalZone(t time.Time, loc *time.Location) time.Time {
	return t.In(loc)
}

// FormatDisplayTime renders the wall-clock time of t, e.g. "08:30PM".
func FormatDisplayTime(t time.Time) string {
	return t.Format(DisplayLayout)
}

// LoadZone loads a named IANA zone.
func LoadZone(name string) (*time.Location, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", name, err)
	}
	return loc, nil
}

// ParseDate parses a YYYY-MM-DD date and returns local midnight of that day in loc.
func ParseDate(text string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, text, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD: %w", text, err)
	}
	return t, nil
}

// StartOfDay returns midnight of t's calendar day as observed in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}
