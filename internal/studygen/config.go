// Package studygen generates synthetic fecal microbiota transplant studies
// and checks them against the grouping engine.
package studygen

import (
	"errors"
	"fmt"
	"time"

	"github.com/lizgehret/q2-fmt/pkg/logger"
)

// Metadata column names of generated studies.
const (
	TimeColumn      = "week"
	ReferenceColumn = "donor"
	SubjectColumn   = "subject"
	ControlColumn   = "control_group"
	StudyColumn     = "study"

	// ControlLabel is the control_group value of every control sample.
	ControlLabel = "healthy"
	// AlphaName is the header of the generated alpha diversity series.
	AlphaName = "observed_features"
)

// Output file names.
const (
	MetadataFile  = "metadata.tsv"
	DistancesFile = "distance-matrix.tsv"
	AlphaFile     = "alpha-diversity.tsv"
)

// Config describes the study to generate.
type Config struct {
	OutputDir  string // where the TSV files go; empty skips writing
	Donors     int    // donor samples
	Recipients int    // recipients per donor
	Timepoints int    // samples per recipient, weeks 0..Timepoints-1
	Controls   int    // healthy control samples
	Seed       uint64 // same seed, same study
	Workers    int    // goroutines filling the distance matrix
	Verify     bool   // run the engine over the generated study

	// Logger receives progress messages. Nil discards them.
	Logger logger.Logger
}

func (c *Config) log() logger.Logger {
	if c.Logger == nil {
		return logger.Nop()
	}
	return c.Logger
}

// Stats holds run statistics.
type Stats struct {
	StudyID        string
	Samples        int
	TimepointRows  int
	ControlPairs   int
	Files          []string
	VerifiedRuns   int
	TrendConfirmed bool
	StartTime      time.Time
	EndTime        time.Time
	Duration       time.Duration
}

// ErrInvalidConfig is returned for unusable study sizes.
var ErrInvalidConfig = errors.New("invalid study config")

// Validate checks the study sizes.
func (c *Config) Validate() error {
	switch {
	case c.Donors < 1:
		return fmt.Errorf("%w: donors must be at least 1", ErrInvalidConfig)
	case c.Recipients < 1:
		return fmt.Errorf("%w: recipients must be at least 1", ErrInvalidConfig)
	case c.Timepoints < 1:
		return fmt.Errorf("%w: timepoints must be at least 1", ErrInvalidConfig)
	case c.Controls < 0:
		return fmt.Errorf("%w: controls must not be negative", ErrInvalidConfig)
	}
	if c.Workers < 1 {
		c.Workers = 1
	}
	return nil
}
