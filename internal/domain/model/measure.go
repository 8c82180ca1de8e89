package model

// Measure carries exactly one diversity measure. Setting both or neither is
// rejected by the grouping validator.
type Measure struct {
	Distances *DistanceMatrix
	Alpha     *AlphaSeries
}

// Mode names which measure a Measure carries.
type Mode string

const (
	ModeNone     Mode = "none"
	ModeDistance Mode = "distance"
	ModeAlpha    Mode = "alpha"
	ModeBoth     Mode = "ambiguous"
)

// Mode reports which member is set.
func (m Measure) Mode() Mode {
	switch {
	case m.Distances != nil && m.Alpha != nil:
		return ModeBoth
	case m.Distances != nil:
		return ModeDistance
	case m.Alpha != nil:
		return ModeAlpha
	default:
		return ModeNone
	}
}

// Has reports whether id is indexed by the set measure.
func (m Measure) Has(id string) bool {
	switch m.Mode() {
	case ModeDistance:
		return m.Distances.Has(id)
	case ModeAlpha:
		return m.Alpha.Has(id)
	default:
		return false
	}
}

// Columns names the metadata columns consulted by timepoint grouping.
// Subject and Control are optional; empty means not configured.
type Columns struct {
	Time      string `koanf:"time_column"`
	Reference string `koanf:"reference_column"`
	Subject   string `koanf:"subject_column"`
	Control   string `koanf:"control_column"`
}
