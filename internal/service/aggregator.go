package service

import (
	"sort"
	"time"

	"github.com/teoh/bintangbuddy/internal/models"
	"github.com/teoh/bintangbuddy/internal/timecodec"
)

// BuildMatrix pivots a flat record stream into a dense resource × time grid.
//
// The first pass collects the distinct resource names and instants, the second
// fills a grid whose cells start out Unavailable. Several records for the same
// resource and instant are combined so that Available wins, which makes the
// result independent of record order.
func BuildMatrix(records []models.AvailabilityRecord) *models.Matrix {
	rowSet := make(map[string]struct{})
	colSet := make(map[int64]time.Time)
	for _, rec := range records {
		rowSet[rec.Resource] = struct{}{}
		key := rec.Time.UnixNano()
		if prev, ok := colSet[key]; !ok || rec.Time.Location().String() < prev.Location().String() {
			colSet[key] = rec.Time
		}
	}

	rows := make([]string, 0, len(rowSet))
	for name := range rowSet {
		rows = append(rows, name)
	}
	sort.Strings(rows)

	keys := make([]int64, 0, len(colSet))
	for k := range colSet {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	rowIndex := make(map[string]int, len(rows))
	for i, name := range rows {
		rowIndex[name] = i
	}
	colIndex := make(map[int64]int, len(keys))
	columns := make([]time.Time, len(keys))
	labels := make([]string, len(keys))
	for j, k := range keys {
		colIndex[k] = j
		columns[j] = colSet[k]
		labels[j] = timecodec.FormatDisplayTime(columns[j])
	}

	cells := make([][]models.Availability, len(rows))
	for i := range cells {
		cells[i] = make([]models.Availability, len(columns))
		for j := range cells[i] {
			cells[i][j] = models.Unavailable
		}
	}

	for _, rec := range records {
		if rec.Availability != models.Available {
			continue
		}
		cells[rowIndex[rec.Resource]][colIndex[rec.Time.UnixNano()]] = models.Available
	}

	return &models.Matrix{
		Rows:    rows,
		Columns: columns,
		Labels:  labels,
		Cells:   cells,
	}
}
