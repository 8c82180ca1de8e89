package tsv

import (
	"errors"
	"fmt"
)

var (
	ErrEmpty         = errors.New("empty input")
	ErrParse         = errors.New("malformed table")
	ErrIDHeader      = errors.New("unrecognized id column header")
	ErrTypeDirective = errors.New("invalid #q2:types directive")
)

// ParseError locates a malformed line. Line is 1-based.
type ParseError struct {
	Line   int
	Reason string
}

func (e *ParseError) Error() string { return fmt.Sprintf("line %d: %s", e.Line, e.Reason) }

func (e *ParseError) Unwrap() error { return ErrParse }

func parseErr(line int, format string, args ...any) error {
	return &ParseError{Line: line, Reason: fmt.Sprintf(format, args...)}
}
