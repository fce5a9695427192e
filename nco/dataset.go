package nco

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/cases"
)

// Dataset is a rectangular table of string cells. An empty cell is a missing value.
type Dataset struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
	Source  string     `json:"source,omitempty"`
}

// Len reports the number of data rows.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Rows)
}

// ColumnIndex finds a column by name, ignoring case. Names of the form #n
// select the n-th column (1-based).
func (d *Dataset) ColumnIndex(name string) (int, error) {
	if d == nil {
		return -1, &ColumnNotFoundError{Column: name}
	}
	idx, _, err := matchExplicitColumn(d.Columns, name)
	if err != nil {
		return -1, err
	}
	if idx < 0 {
		return -1, &ColumnNotFoundError{Column: name}
	}
	return idx, nil
}

// Value returns the cell at row/col or "" when it is out of range.
func (d *Dataset) Value(row, col int) string {
	if row < 0 || row >= len(d.Rows) || col < 0 || col >= len(d.Rows[row]) {
		return ""
	}
	return d.Rows[row][col]
}

// Head returns a copy holding at most n rows.
func (d *Dataset) Head(n int) *Dataset {
	if n < 0 || n > d.Len() {
		n = d.Len()
	}
	out := &Dataset{Columns: cloneStrings(d.Columns), Source: d.Source, Rows: make([][]string, n)}
	for i := 0; i < n; i++ {
		out.Rows[i] = cloneStrings(d.Rows[i])
	}
	return out
}

// Clone returns a deep copy.
func (d *Dataset) Clone() *Dataset {
	return d.Head(-1)
}

// FilterContains returns the rows whose value in column contains value under
// Unicode case folding. Missing values never match.
func (d *Dataset) FilterContains(column, value string) (*Dataset, error) {
	if strings.TrimSpace(value) == "" {
		return nil, ErrEmptyQuery
	}
	col, err := d.ColumnIndex(column)
	if err != nil {
		return nil, err
	}
	fold := cases.Fold()
	needle := fold.String(value)
	out := &Dataset{Columns: cloneStrings(d.Columns), Source: d.Source}
	for i, row := range d.Rows {
		cell := d.Value(i, col)
		if cell == "" {
			continue
		}
		if strings.Contains(fold.String(cell), needle) {
			out.Rows = append(out.Rows, cloneStrings(row))
		}
	}
	return out, nil
}

// WithColumn returns a copy with column set to values, appending the column
// when it does not exist yet. values must have one entry per row.
func (d *Dataset) WithColumn(name string, values []string) (*Dataset, error) {
	if len(values) != d.Len() {
		return nil, fmt.Errorf("column %s: got %d values for %d rows", name, len(values), d.Len())
	}
	out := d.Clone()
	col := -1
	for i, c := range out.Columns {
		if strings.EqualFold(c, name) {
			col = i
			break
		}
	}
	if col < 0 {
		out.Columns = append(out.Columns, name)
		col = len(out.Columns) - 1
	}
	for i := range out.Rows {
		for len(out.Rows[i]) <= col {
			out.Rows[i] = append(out.Rows[i], "")
		}
		out.Rows[i][col] = values[i]
	}
	return out, nil
}

// WriteCSV writes the header and all rows comma separated.
func (d *Dataset) WriteCSV(w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(d.Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range d.Rows {
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}
