// Package storetest holds the behaviour every repository.Store must share.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/territory/internal/adapters/repository"
	"github.com/okian/territory/internal/domain/centroid"
	"github.com/okian/territory/internal/domain/leaderboard"
	"github.com/okian/territory/internal/domain/model"
	"github.com/okian/territory/internal/domain/transfer"
	. "github.com/smartystreets/goconvey/convey"
)

// Factory opens a fresh, empty store.
type Factory func(t *testing.T) repository.Store

var committed = time.Date(2024, 9, 1, 18, 0, 0, 0, time.UTC)

func week(season, idx int) model.WeekRef {
	if idx == 0 {
		return model.BaselineWeek(season)
	}
	return model.WeekRef{Season: season, WeekIndex: idx, Week: idx, SeasonType: model.SeasonTypeRegular}
}

func baseline(season int) repository.Baseline {
	w := week(season, 0)
	return repository.Baseline{
		Snapshot: model.Snapshot{Week: w, Owners: map[string]string{"r1": "a", "r2": "a", "r3": "b"}},
		Clusters: []centroid.Cluster{{TeamID: "a", TeamName: "A", Key: centroid.DefaultPrimary, Members: []string{"r1", "r2"}}},
		Leaderboard: leaderboard.Payload{
			Season:      season,
			Week:        w,
			GeneratedAt: committed,
			Boards: map[leaderboard.Board][]leaderboard.Entry{
				leaderboard.RegionsOwned: {{Rank: 1, TeamID: "a", Value: 2}, {Rank: 2, TeamID: "b", Value: 1}},
			},
		},
		Markers: []centroid.Marker{{TerritoryID: "a-mainland", OwnerID: "a", RegionsOwned: 2, TotalRegions: 2}},
	}
}

func weekOne(season int) repository.WeekCommit {
	w := week(season, 1)
	rec := model.TransferRecord{
		ID: "t1", Season: season, WeekIndex: 1, Week: 1, SeasonType: model.SeasonTypeRegular,
		ContestID: "g1", WinnerID: "b", LoserID: "a", TransferCount: 2,
		Regions: []string{"r1", "r2"}, CompletedAt: committed,
	}
	return repository.WeekCommit{
		Snapshot:  model.Snapshot{Week: w, Owners: map[string]string{"r1": "b", "r2": "b", "r3": "b"}},
		Transfers: []model.TransferRecord{rec},
		Processed: []string{"g1", "g0"},
		Summary: transfer.Summary{
			Week: w, Contests: 2, Applied: 2, Transfers: 1, RegionsTransferred: 2,
			Skipped: map[transfer.Rejection]int{},
		},
		Leaderboard: leaderboard.Payload{Season: season, Week: w, GeneratedAt: committed},
		Markers:     []centroid.Marker{{TerritoryID: "a-mainland", OwnerID: "b"}},
	}
}

// Run exercises open against the shared store contract.
func Run(t *testing.T, open Factory) {
	ctx := context.Background()

	Convey("Given an empty store", t, func() {
		store := open(t)
		Reset(func() { _ = store.Close() })

		Convey("When reading anything", func() {
			_, snapErr := store.Snapshot(ctx, 2024, 0)
			_, lbErr := store.LatestLeaderboard(ctx)
			_, weekErr := store.LatestWeek(ctx, 2024)
			st, statsErr := store.Stats(ctx)

			Convey("Then lookups should report not found as missing data", func() {
				So(errors.Is(snapErr, repository.ErrNotFound), ShouldBeTrue)
				So(errors.Is(snapErr, model.ErrMissingData), ShouldBeTrue)
				So(errors.Is(lbErr, repository.ErrNotFound), ShouldBeTrue)
				So(errors.Is(weekErr, repository.ErrNotFound), ShouldBeTrue)
				So(statsErr, ShouldBeNil)
				So(st.Weeks, ShouldEqual, 0)
				So(st.Latest, ShouldBeNil)
			})
		})

		Convey("When a baseline is committed", func() {
			So(store.CommitBaseline(ctx, baseline(2024)), ShouldBeNil)

			Convey("Then its snapshot, clusters and views should read back", func() {
				snap, err := store.Snapshot(ctx, 2024, 0)
				So(err, ShouldBeNil)
				So(snap.Owners, ShouldResemble, map[string]string{"r1": "a", "r2": "a", "r3": "b"})
				So(snap.Week.Label, ShouldEqual, "2024 Baseline (Preseason)")

				clusters, err := store.Clusters(ctx, 2024)
				So(err, ShouldBeNil)
				So(clusters, ShouldHaveLength, 1)
				So(clusters[0].Members, ShouldResemble, []string{"r1", "r2"})

				lb, err := store.Leaderboard(ctx, 2024, 0)
				So(err, ShouldBeNil)
				So(lb.Boards[leaderboard.RegionsOwned], ShouldHaveLength, 2)
				So(lb.GeneratedAt.Equal(committed), ShouldBeTrue)

				markers, err := store.Markers(ctx, 2024, 0)
				So(err, ShouldBeNil)
				So(markers[0].OwnerID, ShouldEqual, "a")
			})

			Convey("Then a second baseline for the season should be rejected", func() {
				err := store.CommitBaseline(ctx, baseline(2024))
				So(errors.Is(err, repository.ErrAlreadyExists), ShouldBeTrue)
			})

			Convey("Then mutating a returned snapshot should not change the store", func() {
				snap, err := store.Snapshot(ctx, 2024, 0)
				So(err, ShouldBeNil)
				snap.Owners["r1"] = "z"
				again, err := store.Snapshot(ctx, 2024, 0)
				So(err, ShouldBeNil)
				So(again.Owners["r1"], ShouldEqual, "a")
			})

			Convey("And week one is committed", func() {
				So(store.CommitWeek(ctx, weekOne(2024)), ShouldBeNil)

				Convey("Then the ledger and processed contests should be stored", func() {
					ledger, err := store.Transfers(ctx, 2024, -1)
					So(err, ShouldBeNil)
					So(ledger, ShouldHaveLength, 1)
					So(ledger[0].Regions, ShouldResemble, []string{"r1", "r2"})
					So(ledger[0].CompletedAt.Equal(committed), ShouldBeTrue)

					weekLedger, err := store.Transfers(ctx, 2024, 0)
					So(err, ShouldBeNil)
					So(weekLedger, ShouldBeEmpty)

					ids, err := store.ProcessedContests(ctx, 2024)
					So(err, ShouldBeNil)
					So(ids, ShouldResemble, []string{"g0", "g1"})
				})

				Convey("Then latest pointers should follow the highest week", func() {
					latest, err := store.LatestWeek(ctx, 2024)
					So(err, ShouldBeNil)
					So(latest.WeekIndex, ShouldEqual, 1)

					lb, err := store.LatestLeaderboard(ctx)
					So(err, ShouldBeNil)
					So(lb.Week.WeekIndex, ShouldEqual, 1)

					prior, err := store.SnapshotBefore(ctx, 2024, 2)
					So(err, ShouldBeNil)
					So(prior.Week.WeekIndex, ShouldEqual, 1)

					base, err := store.SnapshotBefore(ctx, 2024, 1)
					So(err, ShouldBeNil)
					So(base.Week.WeekIndex, ShouldEqual, 0)

					weeks, err := store.Weeks(ctx, 2024)
					So(err, ShouldBeNil)
					So(weeks, ShouldHaveLength, 2)
					So(weeks[1].Summary.Applied, ShouldEqual, 2)

					st, err := store.Stats(ctx)
					So(err, ShouldBeNil)
					So(st.Weeks, ShouldEqual, 2)
					So(st.Seasons, ShouldEqual, 1)
					So(st.Transfers, ShouldEqual, 1)
					So(st.Latest.WeekIndex, ShouldEqual, 1)
				})

				Convey("Then committing the same week again should be rejected", func() {
					err := store.CommitWeek(ctx, weekOne(2024))
					So(errors.Is(err, repository.ErrAlreadyExists), ShouldBeTrue)
				})

				Convey("Then a later week replaying a contest should leave nothing behind", func() {
					next := weekOne(2024)
					next.Snapshot.Week = week(2024, 2)
					next.Transfers = nil
					next.Processed = []string{"g9", "g1"}

					err := store.CommitWeek(ctx, next)
					So(errors.Is(err, repository.ErrAlreadyExists), ShouldBeTrue)

					_, snapErr := store.Snapshot(ctx, 2024, 2)
					So(errors.Is(snapErr, repository.ErrNotFound), ShouldBeTrue)
					ids, err := store.ProcessedContests(ctx, 2024)
					So(err, ShouldBeNil)
					So(ids, ShouldNotContain, "g9")
				})

				Convey("Then derived views should be replaceable", func() {
					lb := leaderboard.Payload{Season: 2024, Week: week(2024, 1), GeneratedAt: committed.Add(time.Hour)}
					err := store.ReplaceDerived(ctx, week(2024, 1), lb, []centroid.Marker{{TerritoryID: "x"}})
					So(err, ShouldBeNil)

					markers, err := store.Markers(ctx, 2024, 1)
					So(err, ShouldBeNil)
					So(markers, ShouldHaveLength, 1)
					So(markers[0].TerritoryID, ShouldEqual, "x")

					err = store.ReplaceDerived(ctx, week(2024, 7), lb, nil)
					So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
				})
			})
		})

		Convey("When a week is committed with an invalid index", func() {
			bad := weekOne(2024)
			bad.Snapshot.Week = week(2024, 0)
			err := store.CommitWeek(ctx, bad)

			Convey("Then it should be rejected", func() {
				So(errors.Is(err, repository.ErrInvalidWeek), ShouldBeTrue)
			})
		})
	})
}
