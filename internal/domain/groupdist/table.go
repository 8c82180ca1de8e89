// Package groupdist holds the grouped long-form distributions produced by
// timepoint grouping, their record encoding and per-group summaries.
package groupdist

import (
	"fmt"
	"math"
	"slices"
)

// Row is one observation. Subject is empty when absent.
type Row struct {
	Group   Label
	Value   float64
	Subject string
}

// Table is an immutable set of rows sharing one Kind.
type Table struct {
	kind Kind
	rows []Row
}

// New validates rows against kind and copies them.
func New(kind Kind, rows []Row) (*Table, error) {
	if kind != Ordinal && kind != Nominal {
		return nil, fmt.Errorf("%w: %v", ErrUnknownKind, kind)
	}
	type cell struct {
		subject string
		time    int64
	}
	seen := make(map[cell]int)
	out := make([]Row, len(rows))
	for i, r := range rows {
		if r.Group.kind != kind {
			return nil, mismatch(0, "row %d: %s label %q in %s table", i, r.Group.kind, r.Group, kind)
		}
		if kind == Nominal && r.Group.name == "" {
			return nil, mismatch(0, "row %d: empty nominal group", i)
		}
		if kind == Nominal && r.Subject != "" {
			return nil, mismatch(0, "row %d: nominal row has subject %q", i, r.Subject)
		}
		if math.IsNaN(r.Value) || math.IsInf(r.Value, 0) {
			return nil, mismatch(0, "row %d: value %v is not finite", i, r.Value)
		}
		if kind == Ordinal && r.Subject != "" {
			k := cell{subject: r.Subject, time: r.Group.ord}
			if j, dup := seen[k]; dup {
				return nil, &DuplicateSubjectTimepointError{
					Subject: r.Subject,
					Time:    r.Group.ord,
					First:   fmt.Sprintf("row %d", j),
					Second:  fmt.Sprintf("row %d", i),
				}
			}
			seen[k] = i
		}
		out[i] = r
	}
	return &Table{kind: kind, rows: out}, nil
}

// Kind returns the table tag.
func (t *Table) Kind() Kind { return t.kind }

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Rows returns a copy of the rows in emission order.
func (t *Table) Rows() []Row { return slices.Clone(t.rows) }

// Groups returns the distinct labels in label order.
func (t *Table) Groups() []Label {
	seen := make(map[Label]struct{})
	var out []Label
	for _, r := range t.rows {
		if _, ok := seen[r.Group]; ok {
			continue
		}
		seen[r.Group] = struct{}{}
		out = append(out, r.Group)
	}
	slices.SortFunc(out, func(a, b Label) int {
		switch {
		case a.less(b):
			return -1
		case b.less(a):
			return 1
		default:
			return 0
		}
	})
	return out
}

// Equal reports whether t and o have the same kind and the same multiset
// of rows. Row order is not significant.
func (t *Table) Equal(o *Table) bool {
	if t == nil || o == nil {
		return t == o
	}
	if t.kind != o.kind || len(t.rows) != len(o.rows) {
		return false
	}
	counts := make(map[Row]int, len(t.rows))
	for _, r := range t.rows {
		counts[r]++
	}
	for _, r := range o.rows {
		if counts[r] == 0 {
			return false
		}
		counts[r]--
	}
	return true
}
