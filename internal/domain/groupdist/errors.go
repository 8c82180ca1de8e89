package groupdist

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateSubjectTimepoint = errors.New("duplicate subject at timepoint")
	ErrSchemaMismatch            = errors.New("group distribution schema mismatch")
	ErrUnknownKind               = errors.New("unknown group distribution kind")
)

// DuplicateSubjectTimepointError reports two observations for the same
// subject at the same timepoint. First and Second identify the colliding
// observations (sample ids when known, row positions otherwise).
type DuplicateSubjectTimepointError struct {
	Subject string
	Time    int64
	First   string
	Second  string
}

func (e *DuplicateSubjectTimepointError) Error() string {
	return fmt.Sprintf("subject %q has more than one observation at timepoint %d (%s, %s)",
		e.Subject, e.Time, e.First, e.Second)
}

func (e *DuplicateSubjectTimepointError) Unwrap() error { return ErrDuplicateSubjectTimepoint }

// SchemaMismatchError reports a record set that does not match the declared
// table kind or layout. Line is 1-based and counts the header; 0 means the
// problem is not tied to a line.
type SchemaMismatchError struct {
	Line   int
	Reason string
}

func (e *SchemaMismatchError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
	}
	return e.Reason
}

func (e *SchemaMismatchError) Unwrap() error { return ErrSchemaMismatch }

func mismatch(line int, format string, args ...any) error {
	return &SchemaMismatchError{Line: line, Reason: fmt.Sprintf(format, args...)}
}
