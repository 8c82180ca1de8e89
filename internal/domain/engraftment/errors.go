package engraftment

import (
	"errors"
	"fmt"
)

var (
	ErrAmbiguousMeasure        = errors.New("both a distance matrix and an alpha series were provided")
	ErrMissingMeasure          = errors.New("neither a distance matrix nor an alpha series was provided")
	ErrMissingSample           = errors.New("sample missing from diversity measure")
	ErrInvalidTimeValue        = errors.New("time value is not an integer")
	ErrControlReferenceOverlap = errors.New("control and reference samples overlap")
)

// IndexColumn names the metadata id axis in MissingSampleError.Column.
const IndexColumn = "id"

// MissingSampleError reports a sample id required by grouping that the
// diversity measure does not index. Column is the metadata column the id
// was read from, or IndexColumn for the row's own id.
type MissingSampleError struct {
	SampleID string
	Column   string
}

func (e *MissingSampleError) Error() string {
	return fmt.Sprintf("sample %q (from metadata column %q) is not present in the diversity measure", e.SampleID, e.Column)
}

func (e *MissingSampleError) Unwrap() error { return ErrMissingSample }

// InvalidTimeValueError reports a time cell that cannot be read as an integer.
type InvalidTimeValueError struct {
	Sample string
	Value  string
}

func (e *InvalidTimeValueError) Error() string {
	return fmt.Sprintf("sample %q has non-integer time value %q", e.Sample, e.Value)
}

func (e *InvalidTimeValueError) Unwrap() error { return ErrInvalidTimeValue }

// ControlReferenceOverlapError reports a sample that is both a control and a
// treatment-side sample. Reference is empty when the sample is a control
// that also carries a timepoint.
type ControlReferenceOverlapError struct {
	Sample    string
	Reference string
}

func (e *ControlReferenceOverlapError) Error() string {
	if e.Reference == "" {
		return fmt.Sprintf("sample %q is in the control group and also has a timepoint", e.Sample)
	}
	return fmt.Sprintf("control %q is used as the reference of treatment sample %q", e.Reference, e.Sample)
}

func (e *ControlReferenceOverlapError) Unwrap() error { return ErrControlReferenceOverlap }
