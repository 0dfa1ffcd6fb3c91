package render

import (
	"encoding/json"
	"io"
	"time"

	"github.com/teoh/bintangbuddy/internal/models"
	"github.com/teoh/bintangbuddy/internal/timecodec"
)

// Document is the JSON form of a matrix
type Document struct {
	Date     string   `json:"date"`
	Timezone string   `json:"timezone"`
	Columns  []string `json:"columns"`
	Rows     []Row    `json:"rows"`
}

// Row is one resource line of a Document
type Row struct {
	Name         string                `json:"name"`
	Availability []models.Availability `json:"availability"`
}

// NewDocument builds the JSON form of m for the given day
func NewDocument(m *models.Matrix, date time.Time) Document {
	doc := Document{
		Date:     date.Format(timecodec.DateLayout),
		Timezone: date.Location().String(),
		Columns:  append([]string{}, m.Labels...),
		Rows:     make([]Row, len(m.Rows)),
	}
	for i, name := range m.Rows {
		doc.Rows[i] = Row{Name: name, Availability: append([]models.Availability{}, m.Cells[i]...)}
	}
	return doc
}

// JSON writes the matrix as an indented JSON document
func JSON(w io.Writer, m *models.Matrix, date time.Time) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewDocument(m, date))
}
