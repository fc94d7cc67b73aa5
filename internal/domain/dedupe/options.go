package dedupe

// Option applies a configuration option to the in-memory deduper.
type Option func(*inMemoryDeduper)

// WithMaxSize bounds the number of remembered ids; the oldest is evicted
// first. maxSize <= 0 means unbounded, which is what replay protection over a
// full season needs.
func WithMaxSize(maxSize int) Option {
	return func(d *inMemoryDeduper) {
		d.maxSize = maxSize
	}
}

// WithSeed pre-records ids, typically the contest ids of a stored ledger.
func WithSeed(ids ...string) Option {
	return func(d *inMemoryDeduper) {
		d.seed = append(d.seed, ids...)
	}
}
