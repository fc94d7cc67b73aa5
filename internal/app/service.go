// Package service orchestrates the batch commands: building the baseline,
// advancing weeks, and recomputing derived views. It also serves the read
// side used by the HTTP API.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/okian/territory/internal/adapters/repository"
	"github.com/okian/territory/internal/domain/centroid"
	"github.com/okian/territory/internal/domain/leaderboard"
	"github.com/okian/territory/internal/domain/model"
	"github.com/okian/territory/pkg/logger"
	"github.com/okian/territory/pkg/metrics"
)

// Source provides reference data and contest feeds.
type Source interface {
	Regions(ctx context.Context) ([]model.Region, error)
	Teams(ctx context.Context) ([]model.Team, error)
	Timeline(ctx context.Context, season int) ([]model.WeekRef, error)
	Contests(ctx context.Context, week model.WeekRef) ([]model.ContestResult, error)
}

// reference is the region and team data loaded once per process.
type reference struct {
	regions   []model.Region
	regionIDs []string
	teams     []model.Team
	stats     map[string]model.RegionStats
}

// Service runs batch commands against a store. Commands are not meant to run
// concurrently with each other; reads are safe at any time.
type Service struct {
	mu sync.Mutex

	store       repository.Store
	source      Source
	now         func() time.Time
	topN        int
	partitioner centroid.Partitioner
	onMissing   string
	dryRun      bool
	logger      logger.Logger

	ref *reference
}

// New constructs a Service.
func New(opts ...Option) *Service {
	s := &Service{
		now:         time.Now,
		partitioner: centroid.DefaultPartitioner(),
		onMissing:   OnMissingSkip,
		logger:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}
	if s.dryRun {
		s.store = repository.NewOverlay(s.store)
	}
	return s
}

// DryRun reports whether commits are discarded.
func (s *Service) DryRun() bool { return s.dryRun }

// Close releases the store.
func (s *Service) Close() error {
	return s.store.Close()
}

// loadReference reads regions and teams on first use and validates ids.
func (s *Service) loadReference(ctx context.Context) (*reference, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ref != nil {
		return s.ref, nil
	}
	if s.source == nil {
		return nil, ErrNoSource
	}
	regions, err := s.source.Regions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load regions: %w", err)
	}
	if _, err := model.IndexRegions(regions); err != nil {
		return nil, err
	}
	teams, err := s.source.Teams(ctx)
	if err != nil {
		return nil, fmt.Errorf("load teams: %w", err)
	}
	if _, err := model.IndexTeams(teams); err != nil {
		return nil, err
	}
	s.ref = &reference{
		regions:   regions,
		regionIDs: model.RegionIDs(regions),
		teams:     teams,
		stats:     model.StatsFromRegions(regions),
	}
	return s.ref, nil
}

// runLogger tags a command's log lines with a fresh run id.
func (s *Service) runLogger(command string) logger.Logger {
	return s.logger.With(
		logger.String("command", command),
		logger.String("run_id", uuid.NewString()),
		logger.Bool("dry_run", s.dryRun),
	)
}

func (s *Service) computeLeaderboard(ref *reference, snap model.Snapshot, ledger []model.TransferRecord) leaderboard.Payload {
	return leaderboard.Compute(leaderboard.Input{
		Week:     snap.Week,
		Snapshot: snap,
		Teams:    ref.teams,
		Stats:    ref.stats,
		Ledger:   ledger,
		TopN:     s.topN,
		Now:      s.now().UTC(),
	})
}

func (s *Service) updateGauges(snap model.Snapshot) {
	metrics.UpdateSnapshotGauges(snap.Week.WeekIndex, len(snap.Owners), len(snap.Counts()))
}

func elapsedMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}
