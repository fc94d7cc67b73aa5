package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/territory/internal/adapters/repository"
	"github.com/okian/territory/internal/domain/centroid"
	"github.com/okian/territory/internal/domain/leaderboard"
	"github.com/okian/territory/internal/domain/model"
	"github.com/okian/territory/internal/domain/transfer"
	"github.com/okian/territory/pkg/logger"
	"github.com/okian/territory/pkg/metrics"
)

// WeekReport describes one advanced week.
type WeekReport struct {
	Week        model.WeekRef          `json:"week"`
	Summary     transfer.Summary       `json:"summary"`
	Transfers   []model.TransferRecord `json:"transfers"`
	Leaderboard leaderboard.Payload    `json:"leaderboard"`
	Markers     []centroid.Marker      `json:"markers"`
	DryRun      bool                   `json:"dry_run"`
}

// SeasonReport describes a season walk.
type SeasonReport struct {
	Season  int             `json:"season"`
	Weeks   []WeekReport    `json:"weeks"`
	Skipped []model.WeekRef `json:"skipped_weeks"`
	DryRun  bool            `json:"dry_run"`
}

// AdvanceWeek applies the contest feed of week to the latest stored snapshot
// before it and commits the new snapshot, its ledger entries, leaderboard and
// markers in one transaction. A missing feed returns an error wrapping both
// ErrMissingFeed and model.ErrMissingData and commits nothing.
func (s *Service) AdvanceWeek(ctx context.Context, week model.WeekRef) (WeekReport, error) {
	log := s.runLogger("advance").With(logger.String("week", week.String()))
	start := time.Now()

	if week.WeekIndex <= 0 {
		return WeekReport{}, fmt.Errorf("%w: week index must be positive, got %d", ErrInvalidWeek, week.WeekIndex)
	}
	ref, err := s.loadReference(ctx)
	if err != nil {
		return WeekReport{}, err
	}

	latest, err := s.store.LatestWeek(ctx, week.Season)
	if errors.Is(err, repository.ErrNotFound) {
		return WeekReport{}, fmt.Errorf("%w: %d", ErrNoBaseline, week.Season)
	}
	if err != nil {
		return WeekReport{}, err
	}
	if latest.WeekIndex >= week.WeekIndex {
		return WeekReport{}, fmt.Errorf("%w: %s is not after stored %s", repository.ErrAlreadyExists, week, latest)
	}
	prior, err := s.store.SnapshotBefore(ctx, week.Season, week.WeekIndex)
	if err != nil {
		return WeekReport{}, fmt.Errorf("load prior snapshot: %w", err)
	}

	feed, err := s.source.Contests(ctx, week)
	if errors.Is(err, model.ErrMissingData) {
		return WeekReport{}, fmt.Errorf("%w: %w", ErrMissingFeed, err)
	}
	if err != nil {
		return WeekReport{}, fmt.Errorf("load contests: %w", err)
	}
	processed, err := s.store.ProcessedContests(ctx, week.Season)
	if err != nil {
		return WeekReport{}, fmt.Errorf("load processed contests: %w", err)
	}

	engine := transfer.NewEngine(
		transfer.WithClock(s.now),
		transfer.WithTeams(ref.teams),
		transfer.WithBaselineRegions(ref.regionIDs),
		transfer.WithProcessed(processed...),
		transfer.WithLogger(log),
	)
	res, err := engine.AdvanceWeek(ctx, prior, feed, week)
	if err != nil {
		metrics.RecordErrorByComponent("advance", "transfer")
		return WeekReport{}, fmt.Errorf("advance %s: %w", week, err)
	}

	clusters, err := s.store.Clusters(ctx, week.Season)
	if err != nil {
		return WeekReport{}, fmt.Errorf("load clusters: %w", err)
	}
	lb := s.computeLeaderboard(ref, res.Snapshot, res.Transfers)
	markers := centroid.Resolve(clusters, res.Snapshot, ref.teams)

	if err := s.store.CommitWeek(ctx, repository.WeekCommit{
		Snapshot:    res.Snapshot,
		Transfers:   res.Transfers,
		Processed:   res.Processed,
		Summary:     res.Summary,
		Leaderboard: lb,
		Markers:     markers,
	}); err != nil {
		metrics.RecordErrorByComponent("advance", "commit")
		return WeekReport{}, fmt.Errorf("commit %s: %w", week, err)
	}

	metrics.RecordCommit("week")
	metrics.RecordContestApplied(res.Summary.Applied)
	for reason, n := range res.Summary.Skipped {
		metrics.RecordContestSkipped(string(reason), n)
	}
	metrics.RecordTransfers(res.Summary.Transfers, res.Summary.RegionsTransferred)
	metrics.RecordWeekAdvanced(elapsedMs(start))
	s.updateGauges(res.Snapshot)

	log.Info(ctx, "week committed",
		logger.Int("contests", res.Summary.Contests),
		logger.Int("applied", res.Summary.Applied),
		logger.Int("skipped", res.Summary.SkippedTotal()),
		logger.Int("transfers", res.Summary.Transfers),
		logger.Int("regions_transferred", res.Summary.RegionsTransferred),
		logger.Duration("took", time.Since(start)),
	)

	return WeekReport{
		Week:        week,
		Summary:     res.Summary,
		Transfers:   res.Transfers,
		Leaderboard: lb,
		Markers:     markers,
		DryRun:      s.dryRun,
	}, nil
}

// AdvanceSeason walks the season timeline from the week after the latest
// stored one up to maxWeek (every week when maxWeek <= 0). Weeks without a
// feed are skipped or abort the walk according to the missing-week policy.
// Weeks committed before an error stay committed.
func (s *Service) AdvanceSeason(ctx context.Context, season, maxWeek int) (SeasonReport, error) {
	log := s.runLogger("advance_season").With(logger.Int("season", season))
	report := SeasonReport{Season: season, DryRun: s.dryRun}

	if s.source == nil {
		return report, ErrNoSource
	}
	latest, err := s.store.LatestWeek(ctx, season)
	if errors.Is(err, repository.ErrNotFound) {
		return report, fmt.Errorf("%w: %d", ErrNoBaseline, season)
	}
	if err != nil {
		return report, err
	}
	timeline, err := s.source.Timeline(ctx, season)
	if err != nil {
		return report, fmt.Errorf("load timeline: %w", err)
	}

	for _, week := range timeline {
		if week.WeekIndex <= latest.WeekIndex {
			continue
		}
		if maxWeek > 0 && week.WeekIndex > maxWeek {
			break
		}
		if err := ctx.Err(); err != nil {
			return report, err
		}

		wr, err := s.AdvanceWeek(ctx, week)
		if errors.Is(err, ErrMissingFeed) {
			metrics.RecordWeekMissing(s.onMissing)
			if s.onMissing == OnMissingAbort {
				log.Error(ctx, "week has no contest feed, aborting", logger.String("week", week.String()))
				return report, err
			}
			log.Warn(ctx, "week has no contest feed, skipping", logger.String("week", week.String()))
			report.Skipped = append(report.Skipped, week)
			continue
		}
		if err != nil {
			return report, err
		}
		report.Weeks = append(report.Weeks, wr)
	}

	log.Info(ctx, "season advanced",
		logger.Int("weeks", len(report.Weeks)),
		logger.Int("skipped", len(report.Skipped)),
	)
	return report, nil
}
