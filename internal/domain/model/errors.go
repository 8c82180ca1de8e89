package model

import (
	"errors"
	"fmt"
)

// Sentinel kinds for data model errors.
var (
	ErrColumnNotFound    = errors.New("column not found")
	ErrDuplicateColumn   = errors.New("duplicate column")
	ErrInvalidColumnName = errors.New("invalid column name")
	ErrDuplicateSample   = errors.New("duplicate sample id")
	ErrEmptySampleID     = errors.New("empty sample id")
	ErrInvalidTable      = errors.New("invalid metadata table")

	ErrInvalidMatrix   = errors.New("invalid distance matrix")
	ErrNonSquare       = errors.New("matrix is not square")
	ErrAsymmetric      = errors.New("matrix is not symmetric")
	ErrNonZeroDiagonal = errors.New("matrix diagonal is not zero")
	ErrNegative        = errors.New("negative value")
	ErrNonFinite       = errors.New("NaN or Inf value")

	ErrInvalidSeries = errors.New("invalid alpha series")
)

// DuplicateColumnError reports a column name that already exists on a table.
type DuplicateColumnError struct {
	Name string
}

func (e *DuplicateColumnError) Error() string {
	return fmt.Sprintf("column %q already exists", e.Name)
}

func (e *DuplicateColumnError) Unwrap() error { return ErrDuplicateColumn }

// ColumnNotFoundError reports a column name that could not be resolved.
type ColumnNotFoundError struct {
	Name string
}

func (e *ColumnNotFoundError) Error() string {
	return fmt.Sprintf("column %q not found in metadata", e.Name)
}

func (e *ColumnNotFoundError) Unwrap() error { return ErrColumnNotFound }

// matrixErrorf tags a distance matrix violation so callers can match both
// ErrInvalidMatrix and the specific cause.
func matrixErrorf(cause error, format string, args ...any) error {
	return fmt.Errorf("%w: %w: %s", ErrInvalidMatrix, cause, fmt.Sprintf(format, args...))
}

func seriesErrorf(cause error, format string, args ...any) error {
	return fmt.Errorf("%w: %w: %s", ErrInvalidSeries, cause, fmt.Sprintf(format, args...))
}
