package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNoMeasure    = errors.New("job names no distance matrix or alpha series")
	ErrNoMetadata   = errors.New("job names no metadata file")
	ErrDuplicateJob = errors.New("job id already claimed")
)
