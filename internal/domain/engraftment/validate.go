package engraftment

import (
	"math"
	"strconv"
	"strings"

	"github.com/lizgehret/q2-fmt/internal/domain/comparison"
	"github.com/lizgehret/q2-fmt/internal/domain/model"
)

// Treatment is a sample that contributes one row to the timepoint table.
type Treatment struct {
	Sample    string
	Time      int64
	Reference string // empty when the comparison does not need one
	Subject   string // empty when no subject is known
}

// Control is a sample that belongs to the control cohort.
type Control struct {
	Sample string
	Group  string
}

// Plan is the normalized result of validation: every column resolved and
// every metadata row classified.
type Plan struct {
	Mode       model.Mode
	Columns    model.Columns
	Comparer   comparison.Comparer
	Treatments []Treatment
	Controls   []Control
}

// Validate checks measure, metadata and column roles and classifies rows.
// It has no side effects.
func Validate(measure model.Measure, md *model.Table, cols model.Columns, opts ...Option) (*Plan, error) {
	mode := measure.Mode()
	switch mode {
	case model.ModeBoth:
		return nil, ErrAmbiguousMeasure
	case model.ModeNone:
		return nil, ErrMissingMeasure
	}
	if md == nil {
		return nil, model.ErrInvalidTable
	}
	cfg, err := newSettings(opts)
	if err != nil {
		return nil, err
	}

	resolved, err := resolveColumns(md, cols)
	if err != nil {
		return nil, err
	}

	needsRef := mode == model.ModeDistance || cfg.comparer.NeedsReference()
	plan := &Plan{Mode: mode, Columns: cols, Comparer: cfg.comparer}
	var covered []coverage
	for i := 0; i < md.Len(); i++ {
		id := md.ID(i)
		timeCell := resolved.time.Cells[i]
		var control model.Cell
		if resolved.control != nil {
			control = resolved.control.Cells[i]
		}

		var t int64
		if timeCell.Present {
			if t, err = parseTime(timeCell.Value); err != nil {
				return nil, &InvalidTimeValueError{Sample: id, Value: timeCell.Value}
			}
		}

		switch {
		case control.Present && timeCell.Present:
			return nil, &ControlReferenceOverlapError{Sample: id}
		case control.Present:
			plan.Controls = append(plan.Controls, Control{Sample: id, Group: control.Value})
			covered = append(covered, coverage{sample: id})
		case timeCell.Present:
			ref := resolved.reference.Cells[i]
			if needsRef && !ref.Present {
				continue
			}
			tr := Treatment{Sample: id, Time: t}
			if ref.Present {
				tr.Reference = ref.Value
			}
			if resolved.subject != nil && resolved.subject.Cells[i].Present {
				tr.Subject = resolved.subject.Cells[i].Value
			}
			plan.Treatments = append(plan.Treatments, tr)
			covered = append(covered, coverage{sample: id, reference: tr.Reference})
		}
	}

	if err := checkCoverage(measure, cols, covered); err != nil {
		return nil, err
	}
	if err := checkDisjoint(plan); err != nil {
		return nil, err
	}
	return plan, nil
}

type resolvedColumns struct {
	time, reference  model.Column
	subject, control *model.Column
}

func resolveColumns(md *model.Table, cols model.Columns) (resolvedColumns, error) {
	var r resolvedColumns
	var err error
	if r.time, err = md.Column(cols.Time); err != nil {
		return r, err
	}
	if r.reference, err = md.Column(cols.Reference); err != nil {
		return r, err
	}
	if cols.Subject != "" {
		c, err := md.Column(cols.Subject)
		if err != nil {
			return r, err
		}
		r.subject = &c
	}
	if cols.Control != "" {
		c, err := md.Column(cols.Control)
		if err != nil {
			return r, err
		}
		r.control = &c
	}
	return r, nil
}

// parseTime accepts integer text and integral floats such as "3.0".
func parseTime(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if t, err := strconv.ParseInt(s, 10, 64); err == nil {
		return t, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return 0, strconv.ErrSyntax
	}
	return int64(f), nil
}

// coverage is one classified row, kept in metadata order.
type coverage struct {
	sample, reference string
}

// checkCoverage reports the first id missing from the measure, walking
// rows in metadata order and checking a row's sample before its reference.
func checkCoverage(measure model.Measure, cols model.Columns, rows []coverage) error {
	for _, r := range rows {
		if !measure.Has(r.sample) {
			return &MissingSampleError{SampleID: r.sample, Column: IndexColumn}
		}
		if r.reference != "" && !measure.Has(r.reference) {
			return &MissingSampleError{SampleID: r.reference, Column: cols.Reference}
		}
	}
	return nil
}

func checkDisjoint(plan *Plan) error {
	if len(plan.Controls) == 0 {
		return nil
	}
	refs := make(map[string]string, len(plan.Treatments))
	for _, tr := range plan.Treatments {
		if tr.Reference == "" {
			continue
		}
		if _, ok := refs[tr.Reference]; !ok {
			refs[tr.Reference] = tr.Sample
		}
	}
	for _, c := range plan.Controls {
		if s, ok := refs[c.Sample]; ok {
			return &ControlReferenceOverlapError{Sample: s, Reference: c.Sample}
		}
		if s, ok := refs[c.Group]; ok {
			return &ControlReferenceOverlapError{Sample: s, Reference: c.Group}
		}
	}
	return nil
}
