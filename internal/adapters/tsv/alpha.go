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

// ReadAlphaSeries parses a two column table: a header of an id cell and the
// metric name, then one sample id and score per row.
func ReadAlphaSeries(r io.Reader, opts ...Option) (*model.AlphaSeries, error) {
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
		name   string
		header bool
		ids    []string
		values []float64
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
		rec = trimAll(rec)
		if allEmpty(rec) {
			continue
		}
		if !header {
			if len(rec) != 2 {
				return nil, parseErr(line, "header has %d fields, want 2", len(rec))
			}
			if rec[0] != "" && !isIDHeader(rec[0]) {
				return nil, fmt.Errorf("%w: %q", ErrIDHeader, rec[0])
			}
			name, header = rec[1], true
			continue
		}
		if strings.HasPrefix(rec[0], "#") {
			continue
		}
		if len(rec) != 2 {
			return nil, parseErr(line, "%d fields, want 2", len(rec))
		}
		v, err := strconv.ParseFloat(rec[1], 64)
		if err != nil {
			return nil, parseErr(line, "value %q for %q is not a number", rec[1], rec[0])
		}
		ids = append(ids, rec[0])
		values = append(values, v)
	}
	if !header {
		return nil, ErrEmpty
	}
	return model.NewAlphaSeries(name, ids, values)
}

// WriteAlphaSeries writes s in the layout ReadAlphaSeries accepts.
func WriteAlphaSeries(w io.Writer, s *model.AlphaSeries, opts ...Option) error {
	o := newOptions(opts)
	var buf bytes.Buffer
	cw := newWriter(&buf, o.delimiter)

	ids := s.IDs()
	records := make([][]string, 0, len(ids)+1)
	records = append(records, []string{"", s.Name()})
	for _, id := range ids {
		v, _ := s.Value(id)
		records = append(records, []string{id, formatFloat(v)})
	}
	if err := writeAll(cw, records); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}
