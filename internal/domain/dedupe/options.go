package dedupe

// Option applies a configuration option to the InMemoryDeduper.
type Option func(*inMemoryDeduper)

// WithCapacity pre-sizes the seen set for the expected number of IDs.
func WithCapacity(capacity int) Option {
	return func(d *inMemoryDeduper) {
		if capacity > 0 {
			d.capacity = capacity
		}
	}
}

// WithNormalizer sets the function applied to IDs before comparison.
// The default trims surrounding whitespace; nil compares IDs verbatim.
func WithNormalizer(fn func(string) string) Option {
	return func(d *inMemoryDeduper) {
		d.normalize = fn
	}
}
