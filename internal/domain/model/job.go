package model

// Job is one independent grouping request submitted to the batch queue.
type Job struct {
	ID       string  // unique per batch, used for idempotent registry writes
	Name     string  // human label from the manifest
	Measure  Measure // exactly one of distances or alpha
	Metadata *Table  // sample metadata
	Columns  Columns // column roles
	Policy   string  // alpha comparison policy; empty means the configured default
	Output   string  // blob key prefix for packaged results; empty skips packaging
}

// Outcome is the terminal state of a Job.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	OutcomeCancelled Outcome = "cancelled"
)
