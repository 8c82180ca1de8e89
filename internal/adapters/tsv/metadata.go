// Package tsv reads and writes the tab-separated text encodings of sample
// metadata, distance matrices, alpha diversity series and grouped
// distributions.
package tsv

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/lizgehret/q2-fmt/internal/domain/model"
)

// IDHeader is the id column header written by WriteMetadata.
const IDHeader = "id"

const typesDirective = "#q2:types"

var (
	idHeadersFold  = []string{"id", "sampleid", "sample id", "sample-id", "featureid", "feature id", "feature-id"}
	idHeadersExact = []string{"#SampleID", "#Sample ID", "#OTUID", "#OTU ID", "sample_name"}
)

func isIDHeader(s string) bool {
	for _, h := range idHeadersExact {
		if s == h {
			return true
		}
	}
	for _, h := range idHeadersFold {
		if strings.EqualFold(s, h) {
			return true
		}
	}
	return false
}

// ReadMetadata parses a QIIME metadata table. Empty cells are missing.
// Column kinds come from a #q2:types row when present and are inferred
// otherwise: a column whose present values all parse as numbers is numeric.
func ReadMetadata(r io.Reader, opts ...Option) (*model.Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmpty
	}
	o := newOptions(opts)
	cr := newReader(data, o.delimiterFor(data))

	var (
		header []string
		kinds  []model.ColumnKind
		ids    []string
		rows   [][]string
	)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrParse, err)
		}
		line, _ := cr.FieldPos(0)
		for i := range rec {
			rec[i] = strings.TrimSpace(rec[i])
		}
		if allEmpty(rec) {
			continue
		}

		if header == nil {
			if isIDHeader(rec[0]) {
				header = rec
				continue
			}
			if strings.HasPrefix(rec[0], "#") {
				continue
			}
			return nil, fmt.Errorf("%w: %q", ErrIDHeader, rec[0])
		}

		if rec[0] == typesDirective {
			if kinds != nil || ids != nil {
				return nil, parseErr(line, "%s must directly follow the header", typesDirective)
			}
			if kinds, err = parseKinds(rec, len(header)-1, line); err != nil {
				return nil, err
			}
			continue
		}
		if strings.HasPrefix(rec[0], "#") {
			continue
		}
		if len(rec) > len(header) && !allEmpty(rec[len(header):]) {
			return nil, parseErr(line, "%d fields, header has %d", len(rec), len(header))
		}
		for len(rec) < len(header) {
			rec = append(rec, "")
		}
		ids = append(ids, rec[0])
		rows = append(rows, rec[1:len(header)])
	}
	if header == nil {
		return nil, ErrEmpty
	}

	columns := make([]model.Column, len(header)-1)
	for j := range columns {
		c := model.Column{Name: header[j+1], Cells: make([]model.Cell, len(rows))}
		for i, row := range rows {
			if row[j] != "" {
				c.Cells[i] = model.PresentCell(row[j])
			}
		}
		if kinds != nil {
			c.Kind = kinds[j]
			if c.Kind == model.Numeric && !allNumeric(c.Cells) {
				return nil, fmt.Errorf("%w: column %q is declared numeric but has non-numeric values", ErrParse, c.Name)
			}
		} else if allNumeric(c.Cells) && anyPresent(c.Cells) {
			c.Kind = model.Numeric
		} else {
			c.Kind = model.Categorical
		}
		columns[j] = c
	}
	return model.NewTable(ids, columns...)
}

func parseKinds(rec []string, n, line int) ([]model.ColumnKind, error) {
	kinds := make([]model.ColumnKind, n)
	for j := 0; j < n; j++ {
		v := ""
		if j+1 < len(rec) {
			v = strings.ToLower(rec[j+1])
		}
		switch v {
		case "categorical", "":
			kinds[j] = model.Categorical
		case "numeric":
			kinds[j] = model.Numeric
		default:
			return nil, fmt.Errorf("%w: line %d: column %d type %q", ErrTypeDirective, line, j+1, v)
		}
	}
	return kinds, nil
}

func allEmpty(rec []string) bool {
	for _, v := range rec {
		if v != "" {
			return false
		}
	}
	return true
}

func allNumeric(cells []model.Cell) bool {
	for _, c := range cells {
		if !c.Present {
			continue
		}
		if _, err := strconv.ParseFloat(c.Value, 64); err != nil {
			return false
		}
	}
	return true
}

func anyPresent(cells []model.Cell) bool {
	for _, c := range cells {
		if c.Present {
			return true
		}
	}
	return false
}

// WriteMetadata writes t with an id header and a #q2:types row.
func WriteMetadata(w io.Writer, t *model.Table, opts ...Option) error {
	o := newOptions(opts)
	var buf bytes.Buffer
	cw := newWriter(&buf, o.delimiter)

	columns := t.Columns()
	header := make([]string, 0, len(columns)+1)
	types := make([]string, 0, len(columns)+1)
	header = append(header, IDHeader)
	types = append(types, typesDirective)
	for _, c := range columns {
		header = append(header, c.Name)
		types = append(types, string(c.Kind))
	}
	records := [][]string{header, types}
	for i := 0; i < t.Len(); i++ {
		rec := make([]string, 0, len(columns)+1)
		rec = append(rec, t.ID(i))
		for _, c := range columns {
			rec = append(rec, c.Cells[i].Value)
		}
		records = append(records, rec)
	}
	if err := writeAll(cw, records); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}

func writeAll(cw *csv.Writer, records [][]string) error {
	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}
