// Package export renders report tables into downloadable CSV and PDF files.
package export

import (
	"fmt"
	"time"
)

// Table is the rendered form of one report: a title, an ordered column
// set and positional rows. Row cells line up with Columns by index.
type Table struct {
	Title       string
	GeneratedAt time.Time
	Columns     []string
	Rows        [][]string
}

func (t Table) validate() error {
	if len(t.Columns) == 0 {
		return fmt.Errorf("table has no columns")
	}
	for i, row := range t.Rows {
		if len(row) != len(t.Columns) {
			return fmt.Errorf("row %d has %d cells, want %d", i+1, len(row), len(t.Columns))
		}
	}
	return nil
}
