package dedupe

type config struct {
	capacity int
}

// Option applies a configuration option to a Tracker.
type Option func(*config)

// WithCapacity pre-sizes the tracker for n keys. It is a hint, not a bound.
func WithCapacity(n int) Option {
	return func(c *config) {
		c.capacity = n
	}
}
