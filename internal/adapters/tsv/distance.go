package tsv

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/lizgehret/q2-fmt/internal/domain/model"
)

// ReadDistanceMatrix parses a scikit-bio style matrix: a header of an empty
// cell followed by sample ids, then one row per sample id in the same order.
func ReadDistanceMatrix(r io.Reader, opts ...Option) (*model.DistanceMatrix, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmpty
	}
	o := newOptions(opts)
	cr := newReader(data, o.delimiterFor(data))

	var ids []string
	var rows [][]float64
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrParse, err)
		}
		line, _ := cr.FieldPos(0)
		if allEmpty(rec) || strings.HasPrefix(rec[0], "#") {
			continue
		}
		if ids == nil {
			ids = trimAll(rec[1:])
			continue
		}
		id := strings.TrimSpace(rec[0])
		if len(rows) >= len(ids) {
			return nil, parseErr(line, "more rows than ids")
		}
		if id != ids[len(rows)] {
			return nil, parseErr(line, "row id %q does not match column id %q", id, ids[len(rows)])
		}
		row := make([]float64, len(rec)-1)
		for j, cell := range rec[1:] {
			v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
			if err != nil {
				return nil, parseErr(line, "d(%s, %s) = %q is not a number", id, ids[min(j, len(ids)-1)], cell)
			}
			row[j] = v
		}
		rows = append(rows, row)
	}
	if ids == nil {
		return nil, ErrEmpty
	}
	return model.NewDistanceMatrix(ids, rows)
}

// WriteDistanceMatrix writes m in the layout ReadDistanceMatrix accepts.
func WriteDistanceMatrix(w io.Writer, m *model.DistanceMatrix, opts ...Option) error {
	o := newOptions(opts)
	var buf bytes.Buffer
	cw := newWriter(&buf, o.delimiter)

	ids := m.IDs()
	records := make([][]string, 0, len(ids)+1)
	records = append(records, append([]string{""}, ids...))
	for _, id := range ids {
		row, _ := m.Row(id)
		rec := make([]string, 0, len(row)+1)
		rec = append(rec, id)
		for _, v := range row {
			rec = append(rec, formatFloat(v))
		}
		records = append(records, rec)
	}
	if err := writeAll(cw, records); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}

func trimAll(rec []string) []string {
	out := make([]string, len(rec))
	for i, v := range rec {
		out[i] = strings.TrimSpace(v)
	}
	return out
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
