package studygen

import (
	"context"
	"fmt"
	"strconv"

	"github.com/lizgehret/q2-fmt/internal/domain/comparison"
	"github.com/lizgehret/q2-fmt/internal/domain/engraftment"
	"github.com/lizgehret/q2-fmt/internal/domain/groupdist"
	"github.com/lizgehret/q2-fmt/internal/domain/model"
	"github.com/lizgehret/q2-fmt/pkg/logger"
)

type verifyRun struct {
	name    string
	measure model.Measure
	policy  comparison.Policy
	refRows int
}

// Verify groups the study with every measure and policy and checks the
// row counts the generator implies. With more than one timepoint it also
// checks that the mean donor distance falls from the first to the last week.
func Verify(ctx context.Context, cfg *Config, study *Study, stats *Stats) error {
	tpRows := cfg.Donors * cfg.Recipients * cfg.Timepoints
	runs := []verifyRun{
		{"distance", model.Measure{Distances: study.Distances}, comparison.Raw, cfg.Controls * (cfg.Controls - 1) / 2},
		{"alpha raw", model.Measure{Alpha: study.Alpha}, comparison.Raw, cfg.Controls},
		{"alpha difference", model.Measure{Alpha: study.Alpha}, comparison.Difference, cfg.Controls},
		{"alpha ratio", model.Measure{Alpha: study.Alpha}, comparison.Ratio, cfg.Controls},
	}

	for _, r := range runs {
		tp, refs, err := engraftment.GroupTimepoints(r.measure, study.Metadata, study.Columns, engraftment.WithPolicy(r.policy))
		if err != nil {
			return fmt.Errorf("%s: %w", r.name, err)
		}
		if tp.Len() != tpRows {
			return fmt.Errorf("%s: got %d timepoint rows, want %d", r.name, tp.Len(), tpRows)
		}
		if refs.Len() != r.refRows {
			return fmt.Errorf("%s: got %d reference rows, want %d", r.name, refs.Len(), r.refRows)
		}
		stats.VerifiedRuns++
		cfg.log().Info(ctx, "verified grouping",
			logger.String("run", r.name),
			logger.Int("timepoint_rows", tp.Len()),
			logger.Int("reference_rows", refs.Len()))

		if r.measure.Distances != nil && cfg.Timepoints > 1 {
			if err := verifyTrend(tp, cfg.Timepoints-1); err != nil {
				return err
			}
			stats.TrendConfirmed = true
		}
	}
	return nil
}

// verifyTrend checks that recipients end closer to their donors than they
// started.
func verifyTrend(tp *groupdist.Table, last int) error {
	sums, err := tp.Summarize()
	if err != nil {
		return err
	}
	means := make(map[string]float64, len(sums))
	for _, s := range sums {
		means[s.Group] = s.Mean
	}
	first, ok1 := means["0"]
	final, ok2 := means[strconv.Itoa(last)]
	if !ok1 || !ok2 {
		return fmt.Errorf("missing week 0 or week %d in timepoint distances", last)
	}
	if final >= first {
		return fmt.Errorf("mean donor distance did not fall: week 0 %.3f, week %d %.3f", first, last, final)
	}
	return nil
}
