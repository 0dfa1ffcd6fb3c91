package models

import "time"

// Matrix is a dense resource × time grid of availability flags.
// Rows are sorted by name and columns chronologically; Cells[i][j] holds the
// flag for Rows[i] at Columns[j]. A Matrix must not be modified after it is built.
type Matrix struct {
	Rows    []string
	Columns []time.Time
	Labels  []string
	Cells   [][]Availability
}

// Cell returns the flag at a row/column position
func (m *Matrix) Cell(row, col int) Availability {
	return m.Cells[row][col]
}

// Row returns the flags for a resource, or false when the resource is not in the matrix
func (m *Matrix) Row(name string) ([]Availability, bool) {
	for i, r := range m.Rows {
		if r == name {
			return m.Cells[i], true
		}
	}
	return nil, false
}

// Lookup returns the flag for a resource at a display label. When two columns
// share a label the later column wins.
func (m *Matrix) Lookup(name, label string) (Availability, bool) {
	row, ok := m.Row(name)
	if !ok {
		return Unavailable, false
	}
	found := false
	value := Unavailable
	for j, l := range m.Labels {
		if l == label {
			value = row[j]
			found = true
		}
	}
	return value, found
}

// Empty reports whether the matrix has no cells
func (m *Matrix) Empty() bool {
	return len(m.Rows) == 0 || len(m.Columns) == 0
}
