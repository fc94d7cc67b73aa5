package service

import (
	"time"

	"github.com/okian/territory/internal/adapters/repository"
	"github.com/okian/territory/internal/domain/centroid"
	"github.com/okian/territory/pkg/logger"
)

// Missing-week policies for AdvanceSeason.
const (
	OnMissingSkip  = "skip"
	OnMissingAbort = "abort"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the snapshot store. Defaults to an in-memory store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithSource sets where regions, teams and contest feeds are read from.
func WithSource(src Source) Option {
	return func(s *Service) {
		s.source = src
	}
}

// WithClock sets the time source stamped on ledger entries and boards.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithTopEntries truncates stored boards to n entries; 0 keeps all.
func WithTopEntries(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.topN = n
		}
	}
}

// WithPartitioner sets how a team's regions are split into marker clusters.
func WithPartitioner(p centroid.Partitioner) Option {
	return func(s *Service) {
		s.partitioner = p
	}
}

// WithOnMissingWeek sets the AdvanceSeason policy for weeks without a feed.
func WithOnMissingWeek(policy string) Option {
	return func(s *Service) {
		switch policy {
		case OnMissingSkip, OnMissingAbort:
			s.onMissing = policy
		}
	}
}

// WithDryRun makes every command compute in full but commit to a throwaway
// layer over the store.
func WithDryRun(dry bool) Option {
	return func(s *Service) {
		s.dryRun = dry
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
