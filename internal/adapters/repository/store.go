// Package repository records the outcome of grouping runs.
package repository

import (
	"context"

	"github.com/lizgehret/q2-fmt/internal/domain/types"
)

// Store is the run registry. Records are write-once per job id.
type Store interface {
	// Put records a run. It returns ErrDuplicate when the job id is taken.
	Put(ctx context.Context, r types.RunReport) error

	// Get returns the run for a job id, or ErrNotFound.
	Get(ctx context.Context, jobID string) (types.RunReport, error)

	// List returns every run ordered by job id.
	List(ctx context.Context) []types.RunReport

	// Count returns the number of recorded runs.
	Count(ctx context.Context) int

	// Outcomes counts runs per outcome.
	Outcomes(ctx context.Context) map[string]int
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*SQLiteStore)(nil)
)
