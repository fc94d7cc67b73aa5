package model_test

import (
	"errors"
	"testing"

	"github.com/okian/territory/internal/domain/geo"
	"github.com/okian/territory/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func score(v int) *int { return &v }

func TestContestOutcome(t *testing.T) {
	Convey("Given normalised contest results", t, func() {
		Convey("When winner and loser ids are present", func() {
			o, err := model.ContestResult{ContestID: "g1", Completed: true, WinnerID: "a", LoserID: "b"}.Outcome()

			Convey("Then they should be used as given", func() {
				So(err, ShouldBeNil)
				So(o, ShouldResemble, model.Outcome{Winner: "a", Loser: "b"})
			})
		})

		Convey("When only scores are present", func() {
			home, err := model.ContestResult{
				Status: "Final", HomeID: "h", AwayID: "v", HomeScore: score(31), AwayScore: score(10),
			}.Outcome()
			away, awayErr := model.ContestResult{
				Completed: true, HomeID: "h", AwayID: "v", HomeScore: score(3), AwayScore: score(7),
			}.Outcome()

			Convey("Then the higher score should win", func() {
				So(err, ShouldBeNil)
				So(home, ShouldResemble, model.Outcome{Winner: "h", Loser: "v"})
				So(awayErr, ShouldBeNil)
				So(away, ShouldResemble, model.Outcome{Winner: "v", Loser: "h"})
			})
		})

		Convey("When the contest cannot be resolved", func() {
			_, incomplete := model.ContestResult{Status: "scheduled", WinnerID: "a", LoserID: "b"}.Outcome()
			_, unmarked := model.ContestResult{WinnerID: "a", LoserID: "b"}.Outcome()
			_, missing := model.ContestResult{Completed: true, WinnerID: "a"}.Outcome()
			_, tie := model.ContestResult{
				Completed: true, HomeID: "h", AwayID: "v", HomeScore: score(14), AwayScore: score(14),
			}.Outcome()
			_, self := model.ContestResult{Completed: true, WinnerID: "a", LoserID: "a"}.Outcome()

			Convey("Then each should report its own reason", func() {
				So(incomplete, ShouldEqual, model.ErrIncomplete)
				So(unmarked, ShouldEqual, model.ErrIncomplete)
				So(missing, ShouldEqual, model.ErrUndetermined)
				So(tie, ShouldEqual, model.ErrTie)
				So(self, ShouldEqual, model.ErrSelfContest)
			})
		})
	})
}

func TestSnapshot(t *testing.T) {
	Convey("Given a snapshot", t, func() {
		s := model.Snapshot{
			Week:   model.BaselineWeek(2025),
			Owners: map[string]string{"c1": "a", "c2": "a", "c3": "b"},
		}

		Convey("When deriving the reverse index", func() {
			idx := s.Reverse()

			Convey("Then it should agree with the owners map", func() {
				So(idx.Regions("a"), ShouldResemble, []string{"c1", "c2"})
				So(idx.Count("b"), ShouldEqual, 1)
				So(idx.Owns("b", "c3"), ShouldBeTrue)
				So(idx.Owns("a", "c3"), ShouldBeFalse)
				So(idx.Regions("nobody"), ShouldBeEmpty)
			})
		})

		Convey("When cloning", func() {
			next := model.WeekRef{Season: 2025, WeekIndex: 1, Week: 1, SeasonType: model.SeasonTypeRegular}
			c := s.Clone(next)
			c.Owners["c3"] = "a"

			Convey("Then the original should be unchanged", func() {
				So(s.Owners["c3"], ShouldEqual, "b")
				So(c.Week, ShouldResemble, next)
			})
		})

		Convey("When checking coverage", func() {
			ok := model.CheckCoverage(s, []string{"c1", "c2", "c3"})
			missing := model.CheckCoverage(s, []string{"c1", "c2", "c3", "c4"})
			extra := model.CheckCoverage(s, []string{"c1", "c2"})
			s.Owners["c2"] = ""
			unowned := model.CheckCoverage(s, []string{"c1", "c2", "c3"})

			Convey("Then only a complete assignment should pass", func() {
				So(ok, ShouldBeNil)
				So(errors.Is(missing, model.ErrCoverage), ShouldBeTrue)
				So(errors.Is(extra, model.ErrCoverage), ShouldBeTrue)
				So(errors.Is(unowned, model.ErrCoverage), ShouldBeTrue)
			})
		})
	})
}

func TestTeam(t *testing.T) {
	Convey("Given teams", t, func() {
		Convey("When choosing a display name", func() {
			Convey("Then the first non-empty name should win", func() {
				So(model.Team{ID: "x", ShortName: "Bama", Name: "Alabama"}.DisplayName(), ShouldEqual, "Bama")
				So(model.Team{ID: "x", Name: "Alabama", FullName: "Alabama Crimson Tide"}.DisplayName(), ShouldEqual, "Alabama")
				So(model.Team{ID: "x", FullName: "Alabama Crimson Tide"}.DisplayName(), ShouldEqual, "Alabama Crimson Tide")
				So(model.Team{ID: "ohio-state"}.DisplayName(), ShouldEqual, "Ohio State")
			})
		})

		Convey("When validating home locations", func() {
			good := model.Team{ID: "a", Home: &geo.Point{Lat: 33.2, Lon: -87.5}}
			none := model.Team{ID: "b"}
			bad := model.Team{ID: "c", Home: &geo.Point{Lat: 123, Lon: 0}}

			Convey("Then missing or invalid homes should fail with ErrMissingHome", func() {
				So(good.Validate(), ShouldBeNil)
				So(errors.Is(none.Validate(), model.ErrMissingHome), ShouldBeTrue)
				So(errors.Is(bad.Validate(), model.ErrMissingHome), ShouldBeTrue)
			})
		})

		Convey("When indexing duplicate ids", func() {
			_, teamErr := model.IndexTeams([]model.Team{{ID: "a"}, {ID: "a"}})
			_, regionErr := model.IndexRegions([]model.Region{{ID: "r"}, {ID: "r"}})

			Convey("Then indexing should fail", func() {
				So(errors.Is(teamErr, model.ErrDuplicateTeam), ShouldBeTrue)
				So(errors.Is(regionErr, model.ErrDuplicateRegion), ShouldBeTrue)
			})
		})
	})
}

func TestWeekRef(t *testing.T) {
	Convey("Given week references", t, func() {
		base := model.BaselineWeek(2025)
		w3 := model.WeekRef{Season: 2025, WeekIndex: 3}

		Convey("Then ordering and labels should follow the season timeline", func() {
			So(base.IsBaseline(), ShouldBeTrue)
			So(base.Label, ShouldEqual, "2025 Baseline (Preseason)")
			So(base.Before(w3), ShouldBeTrue)
			So(w3.Before(model.WeekRef{Season: 2026}), ShouldBeTrue)
			So(w3.String(), ShouldEqual, "2025 week-03")
		})
	})
}
