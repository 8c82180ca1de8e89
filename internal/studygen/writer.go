package studygen

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/lizgehret/q2-fmt/internal/adapters/tsv"
	"github.com/lizgehret/q2-fmt/pkg/logger"
)

const (
	directoryPermission = 0o750
	filePermission      = 0o600
)

// Write saves the study as three tab-separated files under cfg.OutputDir
// and returns their paths.
func Write(ctx context.Context, cfg *Config, study *Study) ([]string, error) {
	dir := cfg.OutputDir
	if err := os.MkdirAll(dir, directoryPermission); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	files := []struct {
		name  string
		write func(io.Writer) error
	}{
		{MetadataFile, func(w io.Writer) error { return tsv.WriteMetadata(w, study.Metadata) }},
		{DistancesFile, func(w io.Writer) error { return tsv.WriteDistanceMatrix(w, study.Distances) }},
		{AlphaFile, func(w io.Writer) error { return tsv.WriteAlphaSeries(w, study.Alpha) }},
	}
	paths := make([]string, 0, len(files))
	for _, f := range files {
		p := filepath.Join(dir, f.name)
		if err := writeFile(p, f.write); err != nil {
			return paths, err
		}
		cfg.log().Debug(ctx, "wrote study file", logger.String("path", p))
		paths = append(paths, p)
	}
	return paths, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePermission)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
