package groupdist

import (
	"fmt"

	"github.com/lizgehret/q2-fmt/internal/domain/types"
	"github.com/montanaflynn/stats"
)

// Summarize returns descriptive statistics per group in label order.
func (t *Table) Summarize() ([]types.GroupSummary, error) {
	values := make(map[Label]stats.Float64Data)
	for _, r := range t.rows {
		values[r.Group] = append(values[r.Group], r.Value)
	}

	groups := t.Groups()
	out := make([]types.GroupSummary, 0, len(groups))
	for _, g := range groups {
		data := values[g]
		s := types.GroupSummary{Group: g.String(), Count: len(data)}
		var err error
		if s.Mean, err = stats.Mean(data); err != nil {
			return nil, fmt.Errorf("mean of group %s: %w", g, err)
		}
		if s.Median, err = stats.Median(data); err != nil {
			return nil, fmt.Errorf("median of group %s: %w", g, err)
		}
		if s.Min, err = stats.Min(data); err != nil {
			return nil, fmt.Errorf("min of group %s: %w", g, err)
		}
		if s.Max, err = stats.Max(data); err != nil {
			return nil, fmt.Errorf("max of group %s: %w", g, err)
		}
		if s.StdDev, err = stats.StandardDeviationPopulation(data); err != nil {
			return nil, fmt.Errorf("stddev of group %s: %w", g, err)
		}
		out = append(out, s)
	}
	return out, nil
}
