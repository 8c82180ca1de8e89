// Package blob selects a blob store driver from configuration.
package blob

import (
	"context"
	"fmt"

	"github.com/lizgehret/q2-fmt/internal/adapters/blob/core"
	"github.com/lizgehret/q2-fmt/internal/adapters/blob/fs"
	"github.com/lizgehret/q2-fmt/internal/adapters/blob/memory"
	"github.com/lizgehret/q2-fmt/internal/adapters/blob/s3"
)

// Config names a driver and its parameters.
type Config struct {
	Driver core.Driver
	Root   string // fs driver
	S3     s3.Config
}

// Open returns the store for cfg.Driver. An empty driver selects fs.
func Open(ctx context.Context, cfg Config) (core.Store, error) {
	switch cfg.Driver {
	case core.DriverFilesystem, "":
		return fs.New(cfg.Root)
	case core.DriverS3:
		return s3.New(ctx, cfg.S3)
	case core.DriverMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %q", cfg.Driver)
	}
}
