package studygen

import (
	"context"
	"fmt"
	"time"

	"github.com/lizgehret/q2-fmt/pkg/logger"
)

// Run generates a study, writes it when cfg.OutputDir is set and verifies
// it when cfg.Verify is set.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}

	// Step 1: generate
	study, err := Generate(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("study generation failed: %w", err)
	}
	stats.StudyID = study.ID
	stats.Samples = study.Metadata.Len()
	stats.TimepointRows = cfg.Donors * cfg.Recipients * cfg.Timepoints
	stats.ControlPairs = cfg.Controls * (cfg.Controls - 1) / 2

	// Step 2: write
	if cfg.OutputDir != "" {
		if stats.Files, err = Write(ctx, cfg, study); err != nil {
			return stats, fmt.Errorf("writing study failed: %w", err)
		}
	}

	// Step 3: verify
	if cfg.Verify {
		if err := Verify(ctx, cfg, study, stats); err != nil {
			return stats, fmt.Errorf("study verification failed: %w", err)
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	cfg.log().Info(ctx, "study ready",
		logger.String("study", stats.StudyID),
		logger.Int("samples", stats.Samples),
		logger.Int("timepoint_rows", stats.TimepointRows),
		logger.Int("control_pairs", stats.ControlPairs),
		logger.Int("verified_runs", stats.VerifiedRuns),
		logger.Bool("trend_confirmed", stats.TrendConfirmed),
		logger.String("duration", stats.Duration.String()))
	return stats, nil
}
