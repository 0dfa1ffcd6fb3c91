package render_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teoh/bintangbuddy/internal/models"
	"github.com/teoh/bintangbuddy/internal/render"
	"github.com/teoh/bintangbuddy/internal/timecodec"
)

func sampleMatrix(t *testing.T) (*models.Matrix, time.Time) {
	t.Helper()
	loc, err := timecodec.LoadZone("America/Los_Angeles")
	require.NoError(t, err)
	date, err := timecodec.ParseDate("2024-06-01", loc)
	require.NoError(t, err)

	return &models.Matrix{
		Rows:    []string{"Court A", "Court B"},
		Columns: []time.Time{date.Add(10 * time.Hour), date.Add(18 * time.Hour)},
		Labels:  []string{"10:00AM", "06:00PM"},
		Cells: [][]models.Availability{
			{models.Unavailable, models.Available},
			{models.Unavailable, models.Unavailable},
		},
	}, date
}

func TestTable(t *testing.T) {
	m, _ := sampleMatrix(t)

	var buf bytes.Buffer
	require.NoError(t, render.Table(&buf, m))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"Name", "10:00AM", "06:00PM"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"Court", "A", "❌", "✅"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"Court", "B", "❌", "❌"}, strings.Fields(lines[2]))
}

func TestTableAlignsByDisplayWidth(t *testing.T) {
	m, _ := sampleMatrix(t)

	var buf bytes.Buffer
	require.NoError(t, render.Table(&buf, m))
	assert.Equal(t, "Name     10:00AM  06:00PM\n"+
		"Court A  ❌       ✅\n"+
		"Court B  ❌       ❌\n", buf.String())
}

func TestTableAlignsWideNames(t *testing.T) {
	m, _ := sampleMatrix(t)
	m.Rows = []string{"球场一", "Court 10"}

	var buf bytes.Buffer
	require.NoError(t, render.Table(&buf, m))

	// every column starts at the same display offset on every line
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	var offsets [][]int
	for _, line := range lines {
		offsets = append(offsets, columnOffsets(line))
	}
	assert.Equal(t, []int{0, 10, 19}, offsets[0])
	assert.Equal(t, offsets[0], offsets[1])
	assert.Equal(t, offsets[0], offsets[2])
}

// columnOffsets returns the display column where each space separated field
// starts. Fields are split on runs of two or more spaces.
func columnOffsets(line string) []int {
	var offsets []int
	col, spaces := 0, 0
	for i, r := range line {
		if r == ' ' {
			spaces++
		} else {
			if i == 0 || spaces >= 2 {
				offsets = append(offsets, col)
			}
			spaces = 0
		}
		col += runewidth.RuneWidth(r)
	}
	return offsets
}

func TestTableEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, render.Table(&buf, &models.Matrix{}))
	assert.Equal(t, "No availability data.\n", buf.String())
}

func TestJSON(t *testing.T) {
	m, date := sampleMatrix(t)

	var buf bytes.Buffer
	require.NoError(t, render.JSON(&buf, m, date))
	assert.JSONEq(t, `{
		"date": "2024-06-01",
		"timezone": "America/Los_Angeles",
		"columns": ["10:00AM", "06:00PM"],
		"rows": [
			{"name": "Court A", "availability": ["UNAVAILABLE", "AVAILABLE"]},
			{"name": "Court B", "availability": ["UNAVAILABLE", "UNAVAILABLE"]}
		]
	}`, buf.String())
}

func TestNewDocumentEmpty(t *testing.T) {
	doc := render.NewDocument(&models.Matrix{}, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"date":"2024-06-01","timezone":"UTC","columns":[],"rows":[]}`, string(data))
}
