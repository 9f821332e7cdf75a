// Package dataset holds the in-memory tabular data handed to and returned by the store.
package dataset

import (
	"fmt"
	"slices"
)

// Dataset is an ordered, rectangular table of string cells.
// Every row has exactly len(Columns) cells.
type Dataset struct {
	Columns []string
	Rows    [][]string
}

// New builds a Dataset and validates it.
func New(columns []string, rows [][]string) (*Dataset, error) {
	d := &Dataset{Columns: columns, Rows: rows}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// Validate checks that column names are unique and every row matches the header width.
func (d *Dataset) Validate() error {
	if d == nil {
		return nil
	}
	if err := checkColumns(d.Columns); err != nil {
		return err
	}
	for i, row := range d.Rows {
		if len(row) != len(d.Columns) {
			return &ErrRowWidth{Row: i, Got: len(row), Want: len(d.Columns)}
		}
	}
	return nil
}

func checkColumns(columns []string) error {
	seen := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		if _, dup := seen[c]; dup {
			return &ErrDuplicateColumn{Column: c}
		}
		seen[c] = struct{}{}
	}
	return nil
}

// Empty returns a dataset with no columns and no rows.
func Empty() *Dataset {
	return &Dataset{}
}

type ErrRowWidth struct {
	Row  int
	Got  int
	Want int
}

func (e *ErrRowWidth) Error() string {
	return fmt.Sprintf("row %d has %d cells, header has %d", e.Row, e.Got, e.Want)
}

type ErrDuplicateColumn struct {
	Column string
}

func (e *ErrDuplicateColumn) Error() string {
	return fmt.Sprintf("column %q appears more than once in the header", e.Column)
}

// NumRows returns the row count.
func (d *Dataset) NumRows() int {
	if d == nil {
		return 0
	}
	return len(d.Rows)
}

// Slice returns rows [from, to) sharing the column header.
// The row slice aliases the receiver's backing array.
func (d *Dataset) Slice(from, to int) *Dataset {
	return &Dataset{Columns: d.Columns, Rows: d.Rows[from:to:to]}
}

// Append merges other into d. Columns missing on either side are added in
// first-seen order and filled with empty cells.
func (d *Dataset) Append(other *Dataset) {
	if other == nil || (len(other.Columns) == 0 && len(other.Rows) == 0) {
		return
	}
	if len(d.Columns) == 0 && len(d.Rows) == 0 {
		d.Columns = slices.Clone(other.Columns)
		d.Rows = append(d.Rows, other.Rows...)
		return
	}
	if slices.Equal(d.Columns, other.Columns) {
		d.Rows = append(d.Rows, other.Rows...)
		return
	}

	index := make(map[string]int, len(d.Columns))
	for i, c := range d.Columns {
		index[c] = i
	}
	added := false
	for _, c := range other.Columns {
		if _, ok := index[c]; !ok {
			index[c] = len(d.Columns)
			d.Columns = append(d.Columns, c)
			added = true
		}
	}
	if added {
		for i, row := range d.Rows {
			d.Rows[i] = padRow(row, len(d.Columns))
		}
	}
	for _, row := range other.Rows {
		merged := make([]string, len(d.Columns))
		for j, c := range other.Columns {
			merged[index[c]] = row[j]
		}
		d.Rows = append(d.Rows, merged)
	}
}

func padRow(row []string, width int) []string {
	if len(row) >= width {
		return row
	}
	padded := make([]string, width)
	copy(padded, row)
	return padded
}
