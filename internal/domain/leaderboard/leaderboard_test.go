package leaderboard_test

import (
	"math"
	"testing"
	"time"

	"github.com/okian/territory/internal/domain/leaderboard"
	"github.com/okian/territory/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

var week1 = model.WeekRef{Season: 2025, WeekIndex: 1, Week: 1, SeasonType: model.SeasonTypeRegular, Label: "Week 1"}

func teamIDs(entries []leaderboard.Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.TeamID)
	}
	return out
}

func TestCompute(t *testing.T) {
	now := time.Date(2025, 9, 8, 0, 0, 0, 0, time.UTC)

	Convey("Given Scenario A after week 1", t, func() {
		in := leaderboard.Input{
			Week: week1,
			Snapshot: model.Snapshot{Week: week1, Owners: map[string]string{
				"c1": "A", "c2": "A", "c3": "A",
			}},
			Teams: []model.Team{{ID: "A", ShortName: "Alpha"}, {ID: "B", Name: "Bravo"}},
			Stats: map[string]model.RegionStats{
				"c1": {Population: 1000, AreaSqMi: 10.123},
				"c2": {Population: 2000, AreaSqMi: 20.456},
				"c3": {Population: 500, AreaSqMi: 5},
			},
			Ledger: []model.TransferRecord{{ContestID: "g1", WinnerID: "A", LoserID: "B", Regions: []string{"c3"}, TransferCount: 1}},
			Now:    now,
		}

		Convey("When computing boards", func() {
			p := leaderboard.Compute(in)

			Convey("Then gained and lost should come from the ledger", func() {
				So(p.Boards[leaderboard.TerritoryGained], ShouldHaveLength, 1)
				So(p.Boards[leaderboard.TerritoryGained][0].TeamID, ShouldEqual, "A")
				So(p.Boards[leaderboard.TerritoryGained][0].Metrics.Regions, ShouldEqual, 1)
				So(p.Boards[leaderboard.TerritoryLost], ShouldHaveLength, 1)
				So(p.Boards[leaderboard.TerritoryLost][0].TeamID, ShouldEqual, "B")
				So(p.Boards[leaderboard.TerritoryLost][0].TeamName, ShouldEqual, "Bravo")
				gained, lost := leaderboard.Closure(p)
				So(gained, ShouldEqual, lost)
			})

			Convey("Then teams with nothing should be left off owned boards", func() {
				So(teamIDs(p.Boards[leaderboard.RegionsOwned]), ShouldResemble, []string{"A"})
				So(teamIDs(p.Boards[leaderboard.TerritoryOwned]), ShouldResemble, []string{"A"})
			})

			Convey("Then metrics should be rounded on output", func() {
				e := p.Boards[leaderboard.TerritoryOwned][0]
				So(e.Metrics.AreaSqMi, ShouldEqual, 35.58)
				So(e.Metrics.Population, ShouldEqual, 3500)
				So(e.Metrics.Regions, ShouldEqual, 3)
				So(e.Rank, ShouldEqual, 1)
				So(e.TeamName, ShouldEqual, "Alpha")
			})

			Convey("Then the payload should carry week and totals", func() {
				So(p.Season, ShouldEqual, 2025)
				So(p.Week, ShouldResemble, week1)
				So(p.GeneratedAt, ShouldEqual, now)
				So(p.Totals, ShouldResemble, leaderboard.Totals{TrackedTeams: 1, RegionCount: 3, Transfers: 1, RegionsTransferred: 1})
			})
		})
	})

	Convey("Given teams tied on the primary metric", t, func() {
		in := leaderboard.Input{
			Snapshot: model.Snapshot{Week: week1, Owners: map[string]string{
				"r1": "x", "r2": "y", "r3": "z", "r4": "z", "r5": "w",
			}},
			Stats: map[string]model.RegionStats{
				"r1": {Population: 100, AreaSqMi: 50},
				"r2": {Population: 300, AreaSqMi: 50},
				"r3": {Population: 100, AreaSqMi: 25},
				"r4": {Population: 100, AreaSqMi: 25},
				"r5": {Population: 10, AreaSqMi: 1},
			},
		}

		Convey("When ranking by area", func() {
			board := leaderboard.Compute(in).Boards[leaderboard.TerritoryOwned]

			Convey("Then population and region count should break ties and ranks be shared", func() {
				So(teamIDs(board), ShouldResemble, []string{"y", "z", "x", "w"})
				So(board[0].Rank, ShouldEqual, 1)
				So(board[1].Rank, ShouldEqual, 1)
				So(board[2].Rank, ShouldEqual, 1)
				So(board[3].Rank, ShouldEqual, 2)
			})
		})

		Convey("When ranking by region count", func() {
			board := leaderboard.Compute(in).Boards[leaderboard.RegionsOwned]

			Convey("Then the largest owner should lead", func() {
				So(teamIDs(board), ShouldResemble, []string{"z", "y", "x", "w"})
				So(board[1].Rank, ShouldEqual, 2)
				So(board[2].Rank, ShouldEqual, 2)
			})
		})

		Convey("When limiting to the top two", func() {
			in.TopN = 2
			board := leaderboard.Compute(in).Boards[leaderboard.PopulationControlled]

			Convey("Then only two entries should remain", func() {
				So(teamIDs(board), ShouldResemble, []string{"y", "z"})
			})
		})

		Convey("When limiting a computed payload for display", func() {
			full := leaderboard.Compute(in)
			limited := full.Limit(1)

			Convey("Then every board should be cut without touching the original", func() {
				So(limited.Boards[leaderboard.RegionsOwned], ShouldHaveLength, 1)
				So(limited.Boards[leaderboard.RegionsOwned][0].TeamID, ShouldEqual, "z")
				So(full.Boards[leaderboard.RegionsOwned], ShouldHaveLength, 4)
				So(full.Limit(0).Boards[leaderboard.RegionsOwned], ShouldHaveLength, 4)
			})
		})
	})

	Convey("Given missing or bad stats", t, func() {
		in := leaderboard.Input{
			Snapshot: model.Snapshot{Week: week1, Owners: map[string]string{"r1": "x", "r2": "x", "r3": "y"}},
			Stats: map[string]model.RegionStats{
				"r1": {Population: -50, AreaSqMi: math.NaN()},
				"r2": {Population: 20},
			},
		}

		Convey("When computing boards", func() {
			p := leaderboard.Compute(in)

			Convey("Then missing values should contribute zero without dropping regions", func() {
				So(teamIDs(p.Boards[leaderboard.RegionsOwned]), ShouldResemble, []string{"x", "y"})
				So(p.Boards[leaderboard.RegionsOwned][0].Metrics.Population, ShouldEqual, 20)
				So(p.Boards[leaderboard.TerritoryOwned], ShouldBeEmpty)
				So(teamIDs(p.Boards[leaderboard.PopulationControlled]), ShouldResemble, []string{"x"})
				So(p.Week, ShouldResemble, week1)
			})

			Convey("Then unknown teams should get a readable name", func() {
				So(p.Boards[leaderboard.RegionsOwned][1].TeamName, ShouldEqual, "Y")
			})
		})
	})

	Convey("Given a week where a region changed hands twice", t, func() {
		in := leaderboard.Input{
			Snapshot: model.Snapshot{Week: week1, Owners: map[string]string{"c1": "C", "c2": "C", "c3": "C"}},
			Ledger: []model.TransferRecord{
				{ContestID: "g1", WinnerID: "B", LoserID: "A", Regions: []string{"c1", "c2"}},
				{ContestID: "g2", WinnerID: "C", LoserID: "B", Regions: []string{"c1", "c2", "c3"}},
			},
		}

		Convey("When computing gained and lost", func() {
			p := leaderboard.Compute(in)
			gained, lost := leaderboard.Closure(p)

			Convey("Then every ledger move should count and the sums match", func() {
				So(teamIDs(p.Boards[leaderboard.TerritoryGained]), ShouldResemble, []string{"C", "B"})
				So(teamIDs(p.Boards[leaderboard.TerritoryLost]), ShouldResemble, []string{"B", "A"})
				So(gained, ShouldEqual, 5)
				So(lost, ShouldEqual, 5)
			})
		})
	})
}
