package engraftment

import "github.com/lizgehret/q2-fmt/internal/domain/comparison"

type settings struct {
	policy   comparison.Policy
	comparer comparison.Comparer
}

// Option configures a grouping call.
type Option func(*settings)

// WithPolicy selects the alpha comparison policy. Ignored for distance
// matrices.
func WithPolicy(p comparison.Policy) Option {
	return func(s *settings) {
		if p != "" {
			s.policy = p
		}
	}
}

// WithComparer installs a custom alpha comparison, overriding WithPolicy.
func WithComparer(c comparison.Comparer) Option {
	return func(s *settings) {
		s.comparer = c
	}
}

func newSettings(opts []Option) (settings, error) {
	s := settings{policy: comparison.DefaultPolicy}
	for _, opt := range opts {
		opt(&s)
	}
	if s.comparer == nil {
		c, err := comparison.New(s.policy)
		if err != nil {
			return s, err
		}
		s.comparer = c
	}
	return s, nil
}
