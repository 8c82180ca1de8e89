// Package comparison defines how a treatment sample's alpha diversity is
// related to its reference sample's alpha diversity.
package comparison

import (
	"errors"
	"fmt"
	"strings"
)

// Policy names a comparison between alpha(sample) and alpha(reference).
type Policy string

const (
	// Raw reports alpha(sample) unchanged and never consults the reference.
	Raw Policy = "raw"
	// Difference reports alpha(sample) - alpha(reference).
	Difference Policy = "difference"
	// Ratio reports alpha(sample) / alpha(reference).
	Ratio Policy = "ratio"

	// DefaultPolicy is used when no policy is configured.
	DefaultPolicy = Raw
)

var (
	ErrUnknownPolicy  = errors.New("unknown alpha comparison policy")
	ErrUndefinedRatio = errors.New("ratio undefined for zero reference alpha")
)

// ParsePolicy maps a config or flag value onto a Policy. Empty selects the default.
func ParsePolicy(s string) (Policy, error) {
	p := Policy(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case "":
		return DefaultPolicy, nil
	case Raw, Difference, Ratio:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
	}
}

// Policies lists every supported policy in help-text order.
func Policies() []Policy { return []Policy{Raw, Difference, Ratio} }

// Comparer computes the reported value of one treatment sample.
type Comparer interface {
	// Compare relates sample to reference. reference is ignored when
	// NeedsReference is false.
	Compare(sample, reference float64) (float64, error)
	// NeedsReference reports whether a reference value must exist.
	NeedsReference() bool
	// Policy returns the policy implemented.
	Policy() Policy
}

// New returns the Comparer for p.
func New(p Policy) (Comparer, error) {
	switch p {
	case Raw:
		return raw{}, nil
	case Difference:
		return difference{}, nil
	case Ratio:
		return ratio{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, p)
	}
}

type raw struct{}

func (raw) Compare(sample, _ float64) (float64, error) { return sample, nil }
func (raw) NeedsReference() bool                       { return false }
func (raw) Policy() Policy                             { return Raw }

type difference struct{}

func (difference) Compare(sample, reference float64) (float64, error) {
	return sample - reference, nil
}
func (difference) NeedsReference() bool { return true }
func (difference) Policy() Policy       { return Difference }

type ratio struct{}

func (ratio) Compare(sample, reference float64) (float64, error) {
	if reference == 0 {
		return 0, ErrUndefinedRatio
	}
	return sample / reference, nil
}
func (ratio) NeedsReference() bool { return true }
func (ratio) Policy() Policy       { return Ratio }
