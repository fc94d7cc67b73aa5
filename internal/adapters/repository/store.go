// Package repository defines the versioned snapshot store: weekly snapshots,
// the append-only transfer ledger, leaderboards and map markers.
package repository

import (
	"context"
	"time"

	"github.com/okian/territory/internal/domain/centroid"
	"github.com/okian/territory/internal/domain/leaderboard"
	"github.com/okian/territory/internal/domain/model"
	"github.com/okian/territory/internal/domain/transfer"
)

// Baseline is everything produced by the week-0 build. It is committed in
// one transaction.
type Baseline struct {
	Snapshot    model.Snapshot
	Clusters    []centroid.Cluster
	Leaderboard leaderboard.Payload
	Markers     []centroid.Marker
}

// WeekCommit is everything produced by one weekly advance. It is committed in
// one transaction or not at all.
type WeekCommit struct {
	Snapshot    model.Snapshot
	Transfers   []model.TransferRecord
	Processed   []string
	Summary     transfer.Summary
	Leaderboard leaderboard.Payload
	Markers     []centroid.Marker
}

// WeekRecord is the stored metadata of a committed week.
type WeekRecord struct {
	Week        model.WeekRef    `json:"week"`
	Summary     transfer.Summary `json:"summary"`
	CommittedAt time.Time        `json:"committed_at"`
}

// Stats summarise the store contents.
type Stats struct {
	Seasons   int            `json:"seasons"`
	Weeks     int            `json:"weeks"`
	Transfers int            `json:"transfers"`
	Latest    *model.WeekRef `json:"latest,omitempty"`
}

// Store persists the snapshot chain. Reads are safe for concurrent use;
// commits are issued by a single batch run.
type Store interface {
	// CommitBaseline stores week 0 of a season. Returns ErrAlreadyExists if the
	// season already has a baseline.
	CommitBaseline(ctx context.Context, b Baseline) error
	// CommitWeek stores one advanced week atomically. Returns ErrAlreadyExists
	// if the week or any of its contests is already stored.
	CommitWeek(ctx context.Context, w WeekCommit) error
	// ReplaceDerived overwrites the leaderboard and markers of a stored week.
	ReplaceDerived(ctx context.Context, week model.WeekRef, lb leaderboard.Payload, markers []centroid.Marker) error

	// Weeks lists the committed weeks of a season in index order.
	Weeks(ctx context.Context, season int) ([]WeekRecord, error)
	// LatestWeek returns the highest committed week of a season.
	LatestWeek(ctx context.Context, season int) (model.WeekRef, error)
	// Snapshot returns the snapshot of one week.
	Snapshot(ctx context.Context, season, weekIndex int) (model.Snapshot, error)
	// SnapshotBefore returns the latest snapshot strictly before weekIndex.
	SnapshotBefore(ctx context.Context, season, weekIndex int) (model.Snapshot, error)
	// Transfers returns the ledger of one week, or of the whole season when
	// weekIndex is negative, in commit order.
	Transfers(ctx context.Context, season, weekIndex int) ([]model.TransferRecord, error)
	// ProcessedContests lists every contest id applied in a season, including
	// contests that moved nothing.
	ProcessedContests(ctx context.Context, season int) ([]string, error)
	// Clusters returns the permanent marker clusters of a season.
	Clusters(ctx context.Context, season int) ([]centroid.Cluster, error)
	// Leaderboard returns the boards of one week.
	Leaderboard(ctx context.Context, season, weekIndex int) (leaderboard.Payload, error)
	// LatestLeaderboard returns the boards of the highest (season, week).
	LatestLeaderboard(ctx context.Context) (leaderboard.Payload, error)
	// Markers returns the markers of one week.
	Markers(ctx context.Context, season, weekIndex int) ([]centroid.Marker, error)
	// Stats summarises the store.
	Stats(ctx context.Context) (Stats, error)

	Close() error
}
