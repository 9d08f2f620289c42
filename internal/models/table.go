package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrColumnNotFound  = errors.New("column not found")
	ErrDuplicateColumn = errors.New("duplicate column")
	ErrRowCount        = errors.New("row count mismatch")
)

// ColumnType is the element type of a column
type ColumnType string

const (
	ColumnString ColumnType = "string"
	ColumnFloat  ColumnType = "float"
	ColumnInt    ColumnType = "int"
)

// Column is a named, typed vector of cells. Columns are never modified in
// place once built, so tables may share them.
type Column struct {
	Name string
	Type ColumnType

	strs   []string
	floats []float64
	ints   []int64
}

// NewStringColumn creates a string column
func NewStringColumn(name string, values []string) *Column {
	return &Column{Name: name, Type: ColumnString, strs: values}
}

// NewFloatColumn creates a float column
func NewFloatColumn(name string, values []float64) *Column {
	return &Column{Name: name, Type: ColumnFloat, floats: values}
}

// NewIntColumn creates an int column
func NewIntColumn(name string, values []int64) *Column {
	return &Column{Name: name, Type: ColumnInt, ints: values}
}

// Len returns the number of cells
func (c *Column) Len() int {
	switch c.Type {
	case ColumnFloat:
		return len(c.floats)
	case ColumnInt:
		return len(c.ints)
	default:
		return len(c.strs)
	}
}

// Strings returns the cells of a string column, nil for other types.
func (c *Column) Strings() []string { return c.strs }

// Floats returns the cells of a float column, nil for other types.
func (c *Column) Floats() []float64 { return c.floats }

// Ints returns the cells of an int column, nil for other types.
func (c *Column) Ints() []int64 { return c.ints }

// Value returns cell i as an interface value
func (c *Column) Value(i int) any {
	switch c.Type {
	case ColumnFloat:
		return c.floats[i]
	case ColumnInt:
		return c.ints[i]
	default:
		return c.strs[i]
	}
}

func (c *Column) renamed(name string) *Column {
	cp := *c
	cp.Name = name
	return &cp
}

// Table is an ordered set of equal-length named columns. Rows have no identity
// other than their position.
type Table struct {
	columns []*Column
	index   map[string]int
	rows    int
}

// NewTable creates an empty table holding rows rows
func NewTable(rows int) *Table {
	return &Table{
		index: make(map[string]int),
		rows:  rows,
	}
}

// NumRows returns the row count
func (t *Table) NumRows() int { return t.rows }

// NumColumns returns the column count
func (t *Table) NumColumns() int { return len(t.columns) }

// Names returns the column names in order
func (t *Table) Names() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// Columns returns the columns in order
func (t *Table) Columns() []*Column {
	out := make([]*Column, len(t.columns))
	copy(out, t.columns)
	return out
}

// Column looks a column up by name
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.columns[i], true
}

// HasColumn reports whether name is present
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// AddColumn appends a column. The column must have exactly NumRows cells and
// a name not already used.
func (t *Table) AddColumn(c *Column) error {
	if _, ok := t.index[c.Name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateColumn, c.Name)
	}
	if c.Len() != t.rows {
		return fmt.Errorf("%w: column %q has %d cells, table has %d rows", ErrRowCount, c.Name, c.Len(), t.rows)
	}
	t.index[c.Name] = len(t.columns)
	t.columns = append(t.columns, c)
	return nil
}

// DropIfPresent removes every named column that exists and ignores the rest.
// It returns how many columns were removed.
func (t *Table) DropIfPresent(names ...string) int {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		if t.HasColumn(n) {
			drop[n] = true
		}
	}
	if len(drop) == 0 {
		return 0
	}

	kept := t.columns[:0:0]
	for _, c := range t.columns {
		if !drop[c.Name] {
			kept = append(kept, c)
		}
	}
	t.columns = kept
	t.reindex()
	return len(drop)
}

// Drop removes the named columns, failing without changes if any is missing.
func (t *Table) Drop(names ...string) error {
	for _, n := range names {
		if !t.HasColumn(n) {
			return fmt.Errorf("%w: %q", ErrColumnNotFound, n)
		}
	}
	t.DropIfPresent(names...)
	return nil
}

// Rename changes a column's name in place
func (t *Table) Rename(from, to string) error {
	i, ok := t.index[from]
	if !ok {
		return fmt.Errorf("%w: %q", ErrColumnNotFound, from)
	}
	if from == to {
		return nil
	}
	if t.HasColumn(to) {
		return fmt.Errorf("%w: %q", ErrDuplicateColumn, to)
	}
	t.columns[i] = t.columns[i].renamed(to)
	t.reindex()
	return nil
}

// Merge appends other's columns to t by row position. Both tables must have
// the same row count and no column name in common.
func (t *Table) Merge(other *Table) error {
	if other.rows != t.rows {
		return fmt.Errorf("%w: %d rows vs %d rows", ErrRowCount, t.rows, other.rows)
	}
	for _, c := range other.columns {
		if t.HasColumn(c.Name) {
			return fmt.Errorf("%w: %q", ErrDuplicateColumn, c.Name)
		}
	}
	for _, c := range other.columns {
		t.index[c.Name] = len(t.columns)
		t.columns = append(t.columns, c)
	}
	return nil
}

// Project returns a new table holding only the named columns, in that order.
func (t *Table) Project(names []string) (*Table, error) {
	out := NewTable(t.rows)
	for _, n := range names {
		c, ok := t.Column(n)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, n)
		}
		if err := out.AddColumn(c); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Clone returns a table with its own column list. Cells are shared.
func (t *Table) Clone() *Table {
	out := NewTable(t.rows)
	out.columns = make([]*Column, len(t.columns))
	copy(out.columns, t.columns)
	out.reindex()
	return out
}

// Row returns row i as a slice of cell values in column order
func (t *Table) Row(i int) []any {
	row := make([]any, len(t.columns))
	for j, c := range t.columns {
		row[j] = c.Value(i)
	}
	return row
}

func (t *Table) reindex() {
	t.index = make(map[string]int, len(t.columns))
	for i, c := range t.columns {
		t.index[c.Name] = i
	}
}

// ColumnInfo describes one column in the JSON form of a table
type ColumnInfo struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
}

type tableJSON struct {
	Columns []ColumnInfo `json:"columns"`
	Rows    [][]any      `json:"rows"`
}

// MarshalJSON encodes the table as {"columns": [...], "rows": [[...]]}.
func (t *Table) MarshalJSON() ([]byte, error) {
	out := tableJSON{
		Columns: make([]ColumnInfo, len(t.columns)),
		Rows:    make([][]any, t.rows),
	}
	for i, c := range t.columns {
		out.Columns[i] = ColumnInfo{Name: c.Name, Type: c.Type}
	}
	for i := 0; i < t.rows; i++ {
		out.Rows[i] = t.Row(i)
	}
	return json.Marshal(out)
}
