package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/territory/internal/adapters/repository"
	"github.com/okian/territory/internal/domain/centroid"
	"github.com/okian/territory/internal/domain/leaderboard"
	"github.com/okian/territory/internal/domain/model"
	"github.com/okian/territory/pkg/logger"
)

// Ownership is the ownership state of one week.
type Ownership struct {
	Week   model.WeekRef     `json:"week"`
	Owners map[string]string `json:"owners"`
	Counts map[string]int    `json:"counts"`
}

// ComputeLeaderboards rebuilds the boards of a stored week from its snapshot
// and ledger and replaces the stored copy.
func (s *Service) ComputeLeaderboards(ctx context.Context, season, weekIndex int) (leaderboard.Payload, error) {
	log := s.runLogger("leaderboard")
	ref, err := s.loadReference(ctx)
	if err != nil {
		return leaderboard.Payload{}, err
	}
	snap, err := s.store.Snapshot(ctx, season, weekIndex)
	if err != nil {
		return leaderboard.Payload{}, err
	}
	ledger, err := s.store.Transfers(ctx, season, weekIndex)
	if err != nil {
		return leaderboard.Payload{}, err
	}
	markers, err := s.store.Markers(ctx, season, weekIndex)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return leaderboard.Payload{}, err
	}

	lb := s.computeLeaderboard(ref, snap, ledger)
	if err := s.store.ReplaceDerived(ctx, snap.Week, lb, markers); err != nil {
		return leaderboard.Payload{}, fmt.Errorf("store leaderboard: %w", err)
	}
	gained, lost := leaderboard.Closure(lb)
	log.Info(ctx, "leaderboards recomputed",
		logger.String("week", snap.Week.String()),
		logger.Int("teams", lb.Totals.TrackedTeams),
		logger.Int("gained", gained),
		logger.Int("lost", lost),
	)
	return lb, nil
}

// ComputeMarkers resolves the controlling team of every stored cluster for a
// stored week and replaces the stored markers.
func (s *Service) ComputeMarkers(ctx context.Context, season, weekIndex int) ([]centroid.Marker, error) {
	log := s.runLogger("markers")
	ref, err := s.loadReference(ctx)
	if err != nil {
		return nil, err
	}
	snap, err := s.store.Snapshot(ctx, season, weekIndex)
	if err != nil {
		return nil, err
	}
	clusters, err := s.store.Clusters(ctx, season)
	if err != nil {
		return nil, err
	}
	lb, err := s.store.Leaderboard(ctx, season, weekIndex)
	if errors.Is(err, repository.ErrNotFound) {
		ledger, lerr := s.store.Transfers(ctx, season, weekIndex)
		if lerr != nil {
			return nil, lerr
		}
		lb, err = s.computeLeaderboard(ref, snap, ledger), nil
	}
	if err != nil {
		return nil, err
	}

	markers := centroid.Resolve(clusters, snap, ref.teams)
	if err := s.store.ReplaceDerived(ctx, snap.Week, lb, markers); err != nil {
		return nil, fmt.Errorf("store markers: %w", err)
	}
	log.Info(ctx, "markers recomputed",
		logger.String("week", snap.Week.String()),
		logger.Int("markers", len(markers)),
	)
	return markers, nil
}

// LatestLeaderboard returns the boards of the highest stored week.
func (s *Service) LatestLeaderboard(ctx context.Context, limit int) (leaderboard.Payload, error) {
	p, err := s.store.LatestLeaderboard(ctx)
	if err != nil {
		return leaderboard.Payload{}, err
	}
	return p.Limit(limit), nil
}

// Leaderboard returns the stored boards of one week, each cut to limit
// entries when limit is positive.
func (s *Service) Leaderboard(ctx context.Context, season, weekIndex, limit int) (leaderboard.Payload, error) {
	p, err := s.store.Leaderboard(ctx, season, weekIndex)
	if err != nil {
		return leaderboard.Payload{}, err
	}
	return p.Limit(limit), nil
}

// Markers returns the stored markers of one week.
func (s *Service) Markers(ctx context.Context, season, weekIndex int) ([]centroid.Marker, error) {
	return s.store.Markers(ctx, season, weekIndex)
}

// Ownership returns the snapshot of one week with per-team counts.
func (s *Service) Ownership(ctx context.Context, season, weekIndex int) (Ownership, error) {
	snap, err := s.store.Snapshot(ctx, season, weekIndex)
	if err != nil {
		return Ownership{}, err
	}
	return Ownership{Week: snap.Week, Owners: snap.Owners, Counts: snap.Counts()}, nil
}

// Transfers returns the ledger entries of one week.
func (s *Service) Transfers(ctx context.Context, season, weekIndex int) ([]model.TransferRecord, error) {
	if _, err := s.store.Snapshot(ctx, season, weekIndex); err != nil {
		return nil, err
	}
	return s.store.Transfers(ctx, season, weekIndex)
}

// Weeks lists the stored weeks of a season.
func (s *Service) Weeks(ctx context.Context, season int) ([]repository.WeekRecord, error) {
	return s.store.Weeks(ctx, season)
}

// GetStats returns store statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) (repository.Stats, error) {
	return s.store.Stats(ctx)
}
