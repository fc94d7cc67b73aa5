package repository

import "time"

// Option configures the in-memory store.
type Option func(*MemoryStore)

// WithClock sets the time source for commit timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}
