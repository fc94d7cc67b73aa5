package service

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/territory/internal/adapters/repository"
	"github.com/okian/territory/internal/domain/assignment"
	"github.com/okian/territory/internal/domain/centroid"
	"github.com/okian/territory/internal/domain/leaderboard"
	"github.com/okian/territory/internal/domain/model"
	"github.com/okian/territory/pkg/logger"
	"github.com/okian/territory/pkg/metrics"
)

// BaselineReport describes a built baseline.
type BaselineReport struct {
	Week        model.WeekRef       `json:"week"`
	Regions     int                 `json:"regions"`
	Teams       int                 `json:"teams"`
	Landless    []string            `json:"landless_teams"`
	Clusters    int                 `json:"clusters"`
	Markers     []centroid.Marker   `json:"markers"`
	Leaderboard leaderboard.Payload `json:"leaderboard"`
	DryRun      bool                `json:"dry_run"`
}

// BuildBaseline assigns every region to its nearest team, fixes the marker
// clusters and commits week 0 of season with its leaderboard and markers.
func (s *Service) BuildBaseline(ctx context.Context, season int) (BaselineReport, error) {
	log := s.runLogger("baseline")
	start := time.Now()

	ref, err := s.loadReference(ctx)
	if err != nil {
		metrics.RecordErrorByComponent("baseline", "reference")
		return BaselineReport{}, err
	}

	asg, err := assignment.AssignBaseline(ctx, ref.regions, ref.teams,
		assignment.WithSeason(season),
		assignment.WithLogger(log),
	)
	if err != nil {
		metrics.RecordErrorByComponent("baseline", "assignment")
		return BaselineReport{}, fmt.Errorf("assign baseline: %w", err)
	}

	clusters, err := centroid.BuildBaseline(asg.Snapshot, ref.regions, ref.teams, asg.Centroids, s.partitioner)
	if err != nil {
		metrics.RecordErrorByComponent("baseline", "clusters")
		return BaselineReport{}, fmt.Errorf("build clusters: %w", err)
	}

	lb := s.computeLeaderboard(ref, asg.Snapshot, nil)
	markers := centroid.Resolve(clusters, asg.Snapshot, ref.teams)

	if err := s.store.CommitBaseline(ctx, repository.Baseline{
		Snapshot:    asg.Snapshot,
		Clusters:    clusters,
		Leaderboard: lb,
		Markers:     markers,
	}); err != nil {
		metrics.RecordErrorByComponent("baseline", "commit")
		return BaselineReport{}, fmt.Errorf("commit baseline: %w", err)
	}
	metrics.RecordCommit("baseline")
	metrics.RecordBaselineBuilt(elapsedMs(start))
	s.updateGauges(asg.Snapshot)

	landless := assignment.Unassigned(asg.Snapshot, ref.teams)
	log.Info(ctx, "baseline committed",
		logger.Int("season", season),
		logger.Int("regions", len(ref.regions)),
		logger.Int("teams", len(ref.teams)),
		logger.Int("landless_teams", len(landless)),
		logger.Int("clusters", len(clusters)),
		logger.Duration("took", time.Since(start)),
	)

	return BaselineReport{
		Week:        asg.Snapshot.Week,
		Regions:     len(ref.regions),
		Teams:       len(ref.teams),
		Landless:    landless,
		Clusters:    len(clusters),
		Markers:     markers,
		Leaderboard: lb,
		DryRun:      s.dryRun,
	}, nil
}
