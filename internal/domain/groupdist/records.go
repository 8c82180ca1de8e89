package groupdist

import (
	"math"
	"strconv"
)

// Header is the exact column layout of the record encoding.
var Header = []string{"group", "value", "subject"}

// Records encodes t as a header followed by one record per row. Values use
// the shortest representation that parses back to the same float64.
func (t *Table) Records() [][]string {
	out := make([][]string, 0, len(t.rows)+1)
	out = append(out, append([]string(nil), Header...))
	for _, r := range t.rows {
		out = append(out, []string{
			r.Group.String(),
			strconv.FormatFloat(r.Value, 'g', -1, 64),
			r.Subject,
		})
	}
	return out
}

// FromRecords decodes records produced by Records, re-validating every label
// against kind.
func FromRecords(kind Kind, records [][]string) (*Table, error) {
	if kind != Ordinal && kind != Nominal {
		return nil, &SchemaMismatchError{Reason: "unknown kind " + kind.String()}
	}
	if len(records) == 0 {
		return nil, mismatch(1, "missing header")
	}
	if !sameHeader(records[0]) {
		return nil, mismatch(1, "header %q, want %q", records[0], Header)
	}
	rows := make([]Row, 0, len(records)-1)
	for i, rec := range records[1:] {
		line := i + 2
		if len(rec) != len(Header) {
			return nil, mismatch(line, "%d fields, want %d", len(rec), len(Header))
		}
		label, err := parseLabel(kind, rec[0])
		if err != nil {
			return nil, mismatch(line, "%v", err)
		}
		v, err := strconv.ParseFloat(rec[1], 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, mismatch(line, "value %q is not a finite number", rec[1])
		}
		if kind == Nominal && rec[2] != "" {
			return nil, mismatch(line, "nominal row has subject %q", rec[2])
		}
		rows = append(rows, Row{Group: label, Value: v, Subject: rec[2]})
	}
	return New(kind, rows)
}

func sameHeader(h []string) bool {
	if len(h) != len(Header) {
		return false
	}
	for i := range h {
		if h[i] != Header[i] {
			return false
		}
	}
	return true
}
