package tsv

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/gocarina/gocsv"
	"github.com/lizgehret/q2-fmt/internal/domain/groupdist"
)

type groupDistRecord struct {
	Group   string `csv:"group"`
	Value   string `csv:"value"`
	Subject string `csv:"subject"`
}

// WriteGroupDist writes t as tab-separated group, value and subject columns.
func WriteGroupDist(w io.Writer, t *groupdist.Table) error {
	recs := t.Records()
	out := make([]*groupDistRecord, 0, len(recs)-1)
	for _, r := range recs[1:] {
		out = append(out, &groupDistRecord{Group: r[0], Value: r[1], Subject: r[2]})
	}

	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	cw.Comma = '\t'
	if err := gocsv.MarshalCSV(&out, gocsv.NewSafeCSVWriter(cw)); err != nil {
		return fmt.Errorf("encode group distribution: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// ReadGroupDist parses a table written by WriteGroupDist and validates it
// against kind. Layout problems are groupdist.SchemaMismatchError.
func ReadGroupDist(r io.Reader, kind groupdist.Kind) (*groupdist.Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.FieldsPerRecord = -1
	var records [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			line := 0
			if errors.As(err, &pe) {
				line = pe.Line
			}
			return nil, &groupdist.SchemaMismatchError{Line: line, Reason: err.Error()}
		}
		records = append(records, rec)
	}
	return groupdist.FromRecords(kind, records)
}
