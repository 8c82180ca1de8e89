package model

import (
	"math"
	"strings"
)

// AlphaSeries holds one alpha diversity score per sample.
type AlphaSeries struct {
	name   string
	ids    []string
	values map[string]float64
}

// NewAlphaSeries validates and copies a named per-sample series.
func NewAlphaSeries(name string, ids []string, values []float64) (*AlphaSeries, error) {
	if len(ids) != len(values) {
		return nil, seriesErrorf(ErrInvalidTable, "%d ids but %d values", len(ids), len(values))
	}
	s := &AlphaSeries{
		name:   name,
		ids:    make([]string, len(ids)),
		values: make(map[string]float64, len(ids)),
	}
	for i, id := range ids {
		v := values[i]
		switch {
		case strings.TrimSpace(id) == "":
			return nil, seriesErrorf(ErrEmptySampleID, "position %d", i)
		case math.IsNaN(v) || math.IsInf(v, 0):
			return nil, seriesErrorf(ErrNonFinite, "sample %q", id)
		case v < 0:
			return nil, seriesErrorf(ErrNegative, "sample %q = %g", id, v)
		}
		if _, dup := s.values[id]; dup {
			return nil, seriesErrorf(ErrDuplicateSample, "%q", id)
		}
		s.ids[i] = id
		s.values[id] = v
	}
	return s, nil
}

// Name returns the metric name, e.g. "shannon_entropy".
func (s *AlphaSeries) Name() string { return s.name }

// Len returns the number of samples.
func (s *AlphaSeries) Len() int { return len(s.ids) }

// IDs returns a copy of the sample ids in input order.
func (s *AlphaSeries) IDs() []string {
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

// Has reports whether id has a score.
func (s *AlphaSeries) Has(id string) bool {
	_, ok := s.values[id]
	return ok
}

// Value returns the score of id.
func (s *AlphaSeries) Value(id string) (float64, bool) {
	v, ok := s.values[id]
	return v, ok
}
