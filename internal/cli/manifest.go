package cli

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	service "github.com/lizgehret/q2-fmt/internal/app"
	"github.com/lizgehret/q2-fmt/internal/domain/model"
)

// ErrManifest wraps every manifest problem.
var ErrManifest = errors.New("invalid batch manifest")

// LoadManifest reads a batch manifest:
//
//	columns:          # defaults for every job
//	  time_column: week
//	  reference_column: donor
//	alpha_policy: raw
//	jobs:
//	  - name: shannon
//	    metadata: metadata.tsv
//	    alpha_diversity: shannon.tsv
//	    output: runs/shannon
func LoadManifest(path string) ([]service.JobSpec, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrManifest, err)
	}

	var defaults model.Columns
	if err := k.UnmarshalWithConf("columns", &defaults, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: columns: %w", ErrManifest, err)
	}
	policy := k.String("alpha_policy")

	var specs []service.JobSpec
	if err := k.UnmarshalWithConf("jobs", &specs, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: jobs: %w", ErrManifest, err)
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("%w: no jobs", ErrManifest)
	}

	base := filepath.Dir(path)
	for i := range specs {
		s := &specs[i]
		if s.Name == "" {
			s.Name = fmt.Sprintf("job-%d", i+1)
		}
		if s.Policy == "" {
			s.Policy = policy
		}
		fillColumns(&s.Columns, defaults)
		s.Metadata = resolve(base, s.Metadata)
		s.Distances = resolve(base, s.Distances)
		s.Alpha = resolve(base, s.Alpha)
	}
	return specs, nil
}

func fillColumns(c *model.Columns, d model.Columns) {
	if c.Time == "" {
		c.Time = d.Time
	}
	if c.Reference == "" {
		c.Reference = d.Reference
	}
	if c.Subject == "" {
		c.Subject = d.Subject
	}
	if c.Control == "" {
		c.Control = d.Control
	}
}

func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}
