// Package model contains the domain data passed between layers: the sample
// metadata table, the two diversity measures and batch jobs.
package model

import (
	"fmt"
	"strings"
)

// ColumnKind is the declared type of a metadata column.
type ColumnKind string

const (
	Categorical ColumnKind = "categorical"
	Numeric     ColumnKind = "numeric"
)

// Cell is one metadata value. Missing cells have Present == false.
type Cell struct {
	Value   string
	Present bool
}

// Missing is the zero cell.
var Missing = Cell{}

// PresentCell builds a non-missing cell.
func PresentCell(v string) Cell { return Cell{Value: v, Present: true} }

// Column is a named, typed series of cells aligned with the table index.
type Column struct {
	Name  string
	Kind  ColumnKind
	Cells []Cell
}

// Table is an immutable sample metadata table keyed by sample id.
// Row order and column order are preserved from construction.
type Table struct {
	ids     []string
	rows    map[string]int
	columns []Column
	byName  map[string]int
}

// NewTable validates and copies the given index and columns.
func NewTable(ids []string, columns ...Column) (*Table, error) {
	t := &Table{
		ids:     make([]string, len(ids)),
		rows:    make(map[string]int, len(ids)),
		columns: make([]Column, 0, len(columns)),
		byName:  make(map[string]int, len(columns)),
	}
	for i, id := range ids {
		if strings.TrimSpace(id) == "" {
			return nil, fmt.Errorf("%w: row %d", ErrEmptySampleID, i)
		}
		if _, dup := t.rows[id]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateSample, id)
		}
		t.ids[i] = id
		t.rows[id] = i
	}
	for _, c := range columns {
		if err := t.appendColumn(c); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *Table) appendColumn(c Column) error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrInvalidColumnName
	}
	if _, dup := t.byName[c.Name]; dup {
		return &DuplicateColumnError{Name: c.Name}
	}
	if len(c.Cells) != len(t.ids) {
		return fmt.Errorf("%w: column %q has %d cells for %d rows", ErrInvalidTable, c.Name, len(c.Cells), len(t.ids))
	}
	kind := c.Kind
	if kind == "" {
		kind = Categorical
	}
	if kind != Categorical && kind != Numeric {
		return fmt.Errorf("%w: column %q has unknown kind %q", ErrInvalidTable, c.Name, kind)
	}
	cells := make([]Cell, len(c.Cells))
	copy(cells, c.Cells)
	t.byName[c.Name] = len(t.columns)
	t.columns = append(t.columns, Column{Name: c.Name, Kind: kind, Cells: cells})
	return nil
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.ids) }

// IDs returns a copy of the sample ids in row order.
func (t *Table) IDs() []string {
	out := make([]string, len(t.ids))
	copy(out, t.ids)
	return out
}

// ID returns the sample id of row i.
func (t *Table) ID(i int) string { return t.ids[i] }

// Row returns the row index of a sample id.
func (t *Table) Row(id string) (int, bool) {
	i, ok := t.rows[id]
	return i, ok
}

// ColumnNames returns the column names in table order.
func (t *Table) ColumnNames() []string {
	out := make([]string, len(t.columns))
	for i, c := range t.columns {
		out[i] = c.Name
	}
	return out
}

// HasColumn reports whether a column exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.byName[name]
	return ok
}

// Column returns a copy of the named column.
func (t *Table) Column(name string) (Column, error) {
	i, ok := t.byName[name]
	if !ok {
		return Column{}, &ColumnNotFoundError{Name: name}
	}
	c := t.columns[i]
	cells := make([]Cell, len(c.Cells))
	copy(cells, c.Cells)
	return Column{Name: c.Name, Kind: c.Kind, Cells: cells}, nil
}

// Columns returns copies of all columns in table order.
func (t *Table) Columns() []Column {
	out := make([]Column, len(t.columns))
	for i, c := range t.columns {
		cells := make([]Cell, len(c.Cells))
		copy(cells, c.Cells)
		out[i] = Column{Name: c.Name, Kind: c.Kind, Cells: cells}
	}
	return out
}

// WithColumn returns a copy of t with c appended. t is not modified.
func (t *Table) WithColumn(c Column) (*Table, error) {
	out, err := NewTable(t.ids, t.columns...)
	if err != nil {
		return nil, err
	}
	if err := out.appendColumn(c); err != nil {
		return nil, err
	}
	return out, nil
}
