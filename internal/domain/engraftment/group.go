// Package engraftment groups diversity measurements of a longitudinal
// microbiome study into per-timepoint and control distributions.
package engraftment

import (
	"fmt"

	"github.com/lizgehret/q2-fmt/internal/domain/dedupe"
	"github.com/lizgehret/q2-fmt/internal/domain/groupdist"
	"github.com/lizgehret/q2-fmt/internal/domain/model"
)

// ControlGroup is the label of every row in the references table.
const ControlGroup = "control"

// GroupTimepoints builds two tables from a diversity measure and sample
// metadata: an Ordinal table of treatment samples grouped by timepoint and
// a Nominal table of control distributions. On error neither is returned.
func GroupTimepoints(measure model.Measure, md *model.Table, cols model.Columns, opts ...Option) (timepoints, references *groupdist.Table, err error) {
	plan, err := Validate(measure, md, cols, opts...)
	if err != nil {
		return nil, nil, err
	}

	tpRows, err := treatmentRows(measure, plan)
	if err != nil {
		return nil, nil, err
	}
	refRows := controlRows(measure, plan)

	timepoints, err = groupdist.New(groupdist.Ordinal, tpRows)
	if err != nil {
		return nil, nil, err
	}
	references, err = groupdist.New(groupdist.Nominal, refRows)
	if err != nil {
		return nil, nil, err
	}
	return timepoints, references, nil
}

func treatmentRows(measure model.Measure, plan *Plan) ([]groupdist.Row, error) {
	seen := dedupe.New[dedupe.Key](dedupe.WithCapacity(len(plan.Treatments)))
	rows := make([]groupdist.Row, 0, len(plan.Treatments))
	for _, tr := range plan.Treatments {
		if tr.Subject != "" {
			if prior, taken := seen.Claim(dedupe.Key{Subject: tr.Subject, Time: tr.Time}, tr.Sample); taken {
				return nil, &groupdist.DuplicateSubjectTimepointError{
					Subject: tr.Subject,
					Time:    tr.Time,
					First:   prior,
					Second:  tr.Sample,
				}
			}
		}

		var v float64
		switch plan.Mode {
		case model.ModeDistance:
			v, _ = measure.Distances.Distance(tr.Sample, tr.Reference)
		case model.ModeAlpha:
			sample, _ := measure.Alpha.Value(tr.Sample)
			var ref float64
			if plan.Comparer.NeedsReference() {
				ref, _ = measure.Alpha.Value(tr.Reference)
			}
			var err error
			if v, err = plan.Comparer.Compare(sample, ref); err != nil {
				return nil, fmt.Errorf("sample %q against reference %q: %w", tr.Sample, tr.Reference, err)
			}
		}
		rows = append(rows, groupdist.Row{
			Group:   groupdist.OrdinalGroup(tr.Time),
			Value:   v,
			Subject: tr.Subject,
		})
	}
	return rows, nil
}

// controlRows emits all unordered control pairs for distances and one row
// per control for alpha.
func controlRows(measure model.Measure, plan *Plan) []groupdist.Row {
	label := groupdist.NominalGroup(ControlGroup)
	var rows []groupdist.Row
	switch plan.Mode {
	case model.ModeDistance:
		n := len(plan.Controls)
		rows = make([]groupdist.Row, 0, n*(n-1)/2)
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				d, _ := measure.Distances.Distance(plan.Controls[i].Sample, plan.Controls[j].Sample)
				rows = append(rows, groupdist.Row{Group: label, Value: d})
			}
		}
	case model.ModeAlpha:
		rows = make([]groupdist.Row, 0, len(plan.Controls))
		for _, c := range plan.Controls {
			v, _ := measure.Alpha.Value(c.Sample)
			rows = append(rows, groupdist.Row{Group: label, Value: v})
		}
	}
	return rows
}
