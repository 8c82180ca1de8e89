package repository

import "errors"

// Sentinel kinds for run registry errors.
var (
	ErrNotFound  = errors.New("run not found")
	ErrDuplicate = errors.New("run already recorded")
	ErrInvalidID = errors.New("run id is empty")
	ErrNoPath    = errors.New("registry path is empty")
)
