// Package render turns an availability matrix into text for the terminal or JSON
package render

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/teoh/bintangbuddy/internal/models"
)

const (
	availableMark   = "✅"
	unavailableMark = "❌"

	// cellPadding separates columns
	cellPadding = 2
)

// Table writes the matrix as an aligned grid with one line per resource.
// Columns are sized by terminal display width, so wide glyphs such as the
// availability marks and CJK court names line up.
func Table(w io.Writer, m *models.Matrix) error {
	if m.Empty() {
		_, err := fmt.Fprintln(w, "No availability data.")
		return err
	}

	grid := make([][]string, 0, len(m.Rows)+1)
	grid = append(grid, append([]string{"Name"}, m.Labels...))
	for i, name := range m.Rows {
		line := make([]string, 0, len(m.Columns)+1)
		line = append(line, name)
		for j := range m.Columns {
			line = append(line, mark(m.Cell(i, j)))
		}
		grid = append(grid, line)
	}

	widths := make([]int, len(grid[0]))
	for _, line := range grid {
		for j, cell := range line {
			widths[j] = max(widths[j], runewidth.StringWidth(cell))
		}
	}

	bw := bufio.NewWriter(w)
	for _, line := range grid {
		var sb strings.Builder
		for j, cell := range line {
			sb.WriteString(runewidth.FillRight(cell, widths[j]+cellPadding))
		}
		bw.WriteString(strings.TrimRight(sb.String(), " "))
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

func mark(a models.Availability) string {
	if a == models.Available {
		return availableMark
	}
	return unavailableMark
}
