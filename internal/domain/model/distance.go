package model

import (
	"math"
	"strings"
)

// symmetryTol bounds |d(i,j) - d(j,i)| for a matrix to count as symmetric.
const symmetryTol = 1e-9

// DistanceMatrix is a validated, immutable sample-by-sample dissimilarity
// matrix: square, symmetric, hollow, finite and non-negative.
type DistanceMatrix struct {
	ids  []string
	pos  map[string]int
	data []float64 // row-major, len(ids)^2
}

// NewDistanceMatrix validates data against ids and copies both.
func NewDistanceMatrix(ids []string, data [][]float64) (*DistanceMatrix, error) {
	n := len(ids)
	if len(data) != n {
		return nil, matrixErrorf(ErrNonSquare, "%d ids but %d rows", n, len(data))
	}
	m := &DistanceMatrix{
		ids:  make([]string, n),
		pos:  make(map[string]int, n),
		data: make([]float64, n*n),
	}
	for i, id := range ids {
		if strings.TrimSpace(id) == "" {
			return nil, matrixErrorf(ErrEmptySampleID, "axis position %d", i)
		}
		if _, dup := m.pos[id]; dup {
			return nil, matrixErrorf(ErrDuplicateSample, "%q", id)
		}
		m.ids[i] = id
		m.pos[id] = i
	}
	for i, row := range data {
		if len(row) != n {
			return nil, matrixErrorf(ErrNonSquare, "row %q has %d values, want %d", ids[i], len(row), n)
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, matrixErrorf(ErrNonFinite, "d(%s, %s)", ids[i], ids[j])
			}
			if v < 0 {
				return nil, matrixErrorf(ErrNegative, "d(%s, %s) = %g", ids[i], ids[j], v)
			}
			m.data[i*n+j] = v
		}
	}
	for i := 0; i < n; i++ {
		if m.data[i*n+i] != 0 {
			return nil, matrixErrorf(ErrNonZeroDiagonal, "d(%s, %s) = %g", ids[i], ids[i], m.data[i*n+i])
		}
		// upper triangle only
		for j := i + 1; j < n; j++ {
			if math.Abs(m.data[i*n+j]-m.data[j*n+i]) > symmetryTol {
				return nil, matrixErrorf(ErrAsymmetric, "d(%s, %s) = %g but d(%s, %s) = %g",
					ids[i], ids[j], m.data[i*n+j], ids[j], ids[i], m.data[j*n+i])
			}
		}
	}
	return m, nil
}

// Len returns the number of samples on each axis.
func (m *DistanceMatrix) Len() int { return len(m.ids) }

// IDs returns a copy of the axis ids.
func (m *DistanceMatrix) IDs() []string {
	out := make([]string, len(m.ids))
	copy(out, m.ids)
	return out
}

// Has reports whether id is on the matrix axes.
func (m *DistanceMatrix) Has(id string) bool {
	_, ok := m.pos[id]
	return ok
}

// Distance returns d(a, b).
func (m *DistanceMatrix) Distance(a, b string) (float64, bool) {
	i, ok := m.pos[a]
	if !ok {
		return 0, false
	}
	j, ok := m.pos[b]
	if !ok {
		return 0, false
	}
	return m.data[i*len(m.ids)+j], true
}

// Row returns a copy of the distances from id to every axis sample.
func (m *DistanceMatrix) Row(id string) ([]float64, bool) {
	i, ok := m.pos[id]
	if !ok {
		return nil, false
	}
	n := len(m.ids)
	out := make([]float64, n)
	copy(out, m.data[i*n:(i+1)*n])
	return out, true
}
