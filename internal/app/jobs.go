package service

import (
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/lizgehret/q2-fmt/internal/adapters/tsv"
	"github.com/lizgehret/q2-fmt/internal/domain/model"
)

// JobSpec names the files and column roles of one grouping job. It is the
// unit of a batch manifest.
type JobSpec struct {
	ID        string        `koanf:"id"`
	Name      string        `koanf:"name"`
	Metadata  string        `koanf:"metadata"`
	Distances string        `koanf:"distance_matrix"`
	Alpha     string        `koanf:"alpha_diversity"`
	Columns   model.Columns `koanf:"columns"`
	Policy    string        `koanf:"alpha_policy"`
	Output    string        `koanf:"output"`
}

// LoadJob reads the files named by spec. Both measures may be named; the
// engine rejects that combination with its own error. A missing id gets a
// random one.
func (s *Service) LoadJob(spec JobSpec) (model.Job, error) { //nolint:gocritic // hugeParam
	if spec.Metadata == "" {
		return model.Job{}, ErrNoMetadata
	}
	if spec.Distances == "" && spec.Alpha == "" {
		return model.Job{}, ErrNoMeasure
	}

	job := model.Job{
		ID:      spec.ID,
		Name:    spec.Name,
		Columns: spec.Columns,
		Policy:  spec.Policy,
		Output:  spec.Output,
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}

	opts := s.readOptions()
	var err error
	if job.Metadata, err = readFile(spec.Metadata, func(r io.Reader) (*model.Table, error) {
		return tsv.ReadMetadata(r, opts...)
	}); err != nil {
		return model.Job{}, err
	}
	if spec.Distances != "" {
		if job.Measure.Distances, err = readFile(spec.Distances, func(r io.Reader) (*model.DistanceMatrix, error) {
			return tsv.ReadDistanceMatrix(r, opts...)
		}); err != nil {
			return model.Job{}, err
		}
	}
	if spec.Alpha != "" {
		if job.Measure.Alpha, err = readFile(spec.Alpha, func(r io.Reader) (*model.AlphaSeries, error) {
			return tsv.ReadAlphaSeries(r, opts...)
		}); err != nil {
			return model.Job{}, err
		}
	}
	return job, nil
}

// ReadMetadata reads a metadata table from a possibly compressed file.
func (s *Service) ReadMetadata(path string) (*model.Table, error) {
	opts := s.readOptions()
	return readFile(path, func(r io.Reader) (*model.Table, error) {
		return tsv.ReadMetadata(r, opts...)
	})
}

func (s *Service) readOptions() []tsv.Option {
	if s.delimiter == 0 {
		return nil
	}
	return []tsv.Option{tsv.WithDelimiter(s.delimiter)}
}

func readFile[T any](path string, read func(io.Reader) (T, error)) (T, error) {
	var zero T
	rc, err := tsv.Open(path)
	if err != nil {
		return zero, fmt.Errorf("open %s: %w", path, err)
	}
	defer rc.Close()
	v, err := read(rc)
	if err != nil {
		return zero, fmt.Errorf("read %s: %w", path, err)
	}
	return v, nil
}
