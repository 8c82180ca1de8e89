// Package types contains DTOs shared by the app and CLI layers.
package types

// GroupSummary describes the distribution of one group.
type GroupSummary struct {
	Group  string  `json:"group"`
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	StdDev float64 `json:"stddev"`
}

// RunReport is the outcome of one grouping run, as printed by the CLI.
type RunReport struct {
	JobID          string         `json:"job_id"`
	Name           string         `json:"name,omitempty"`
	Mode           string         `json:"mode"`
	Outcome        string         `json:"outcome"`
	Error          string         `json:"error,omitempty"`
	TimepointRows  int            `json:"timepoint_rows"`
	ReferenceRows  int            `json:"reference_rows"`
	TimepointsUUID string         `json:"timepoints_uuid,omitempty"`
	ReferencesUUID string         `json:"references_uuid,omitempty"`
	Timepoints     []GroupSummary `json:"timepoints,omitempty"`
	References     []GroupSummary `json:"references,omitempty"`
}
