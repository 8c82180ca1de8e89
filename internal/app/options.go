package service

import (
	"github.com/lizgehret/q2-fmt/internal/adapters/blob/core"
	"github.com/lizgehret/q2-fmt/internal/adapters/repository"
	"github.com/lizgehret/q2-fmt/internal/domain/comparison"
	"github.com/lizgehret/q2-fmt/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of batch workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the batch queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithPolicy sets the alpha comparison used when a job names none.
func WithPolicy(p comparison.Policy) Option {
	return func(s *Service) {
		if p != "" {
			s.policy = p
		}
	}
}

// WithDelimiter fixes the input delimiter. Zero means detect.
func WithDelimiter(r rune) Option {
	return func(s *Service) {
		s.delimiter = r
	}
}

// WithStore sets where artifacts are saved.
func WithStore(store core.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithRegistry sets the run registry.
func WithRegistry(registry repository.Store) Option {
	return func(s *Service) {
		if registry != nil {
			s.registry = registry
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}
