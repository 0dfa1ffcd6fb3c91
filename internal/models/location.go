package models

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnknownLocation is returned when a requested location name is not in the table
var ErrUnknownLocation = errors.New("unknown location")

// Location is a physical facility known to the booking service
type Location struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// LocationResources pairs a location with the resources found there
type LocationResources struct {
	Location  Location   `json:"location"`
	Resources []Resource `json:"resources"`
}

// DefaultLocations is the built-in table of gyms. New gyms have to be added here
// or through the "locations" configuration key.
var DefaultLocations = map[string]string{
	"campbell":   "17047",
	"dublin":     "17100",
	"milpitas":   "17043",
	"san carlos": "17099",
	"sunnyvale":  "17098",
}

// LocationTable maps case-insensitive location names to provider ids.
// It is read-only once constructed.
type LocationTable struct {
	byName map[string]Location
	names  []string
}

// NewLocationTable builds a table from a name to id mapping
func NewLocationTable(ids map[string]string) LocationTable {
	table := LocationTable{
		byName: make(map[string]Location, len(ids)),
		names:  make([]string, 0, len(ids)),
	}
	for name, id := range ids {
		key := normalizeLocationName(name)
		if key == "" || id == "" {
			continue
		}
		if _, exists := table.byName[key]; !exists {
			table.names = append(table.names, key)
		}
		table.byName[key] = Location{Name: key, ID: id}
	}
	sort.Strings(table.names)
	return table
}

// Names returns all known location names in sorted order
func (t LocationTable) Names() []string {
	names := make([]string, len(t.names))
	copy(names, t.names)
	return names
}

// Lookup finds a location by name, ignoring case and surrounding whitespace
func (t LocationTable) Lookup(name string) (Location, bool) {
	loc, ok := t.byName[normalizeLocationName(name)]
	return loc, ok
}

// Resolve maps requested names to locations. An empty request selects every
// known location. Any unknown name fails the whole request, and duplicates are
// collapsed while keeping the first occurrence's position.
func (t LocationTable) Resolve(names []string) ([]Location, error) {
	if len(names) == 0 {
		names = t.names
	}

	var unknown []string
	seen := make(map[string]struct{}, len(names))
	locations := make([]Location, 0, len(names))
	for _, name := range names {
		loc, ok := t.Lookup(name)
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		if _, dup := seen[loc.Name]; dup {
			continue
		}
		seen[loc.Name] = struct{}{}
		locations = append(locations, loc)
	}

	if len(unknown) > 0 {
		return nil, fmt.Errorf("%w: %s (known: %s)", ErrUnknownLocation,
			strings.Join(unknown, ", "), strings.Join(t.names, ", "))
	}
	return locations, nil
}

func normalizeLocationName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
