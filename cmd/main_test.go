package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/okian/territory/internal/adapters/repository"
	"github.com/okian/territory/internal/domain/leaderboard"
	"github.com/okian/territory/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func square(id string, lat, lon float64) string {
	return fmt.Sprintf(`{"type": "Feature", "properties": {"GEOID": %q, "STATE": "01", "CENSUSAREA": 100, "POPULATION": 1000},
	  "geometry": {"type": "Polygon", "coordinates": [[[%g, %g], [%g, %g], [%g, %g], [%g, %g]]]}}`,
		id, lon, lat, lon+1, lat, lon+1, lat+1, lon, lat+1)
}

// writeFixtures lays out reference data for three teams and one week of
// contests and points the configuration at it.
func writeFixtures(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		return path
	}

	regions := write("regions.geojson", `{"type": "FeatureCollection", "features": [`+
		strings.Join([]string{square("r1", 0, 0), square("r2", 0, 10), square("r3", 0, 9), square("r4", 10, 0)}, ",")+`]}`)
	teams := write("teams.yaml", `
- id: a
  name: Alpha
  home: {lat: 0.5, lon: 0.5}
- id: b
  name: Bravo
  home: {lat: 0.5, lon: 10}
- id: c
  name: Charlie
  home: {lat: 10.5, lon: 0.5}
`)
	write("contests/2024/week-01.json", `[
	  {"contest_id": "g1", "completed": true, "winner_id": "a", "loser_id": "b", "played_at": "2024-09-07T12:00:00Z"}
	]`)

	t.Setenv("TERRITORY_REGIONS_PATH", regions)
	t.Setenv("TERRITORY_TEAMS_PATH", teams)
	t.Setenv("TERRITORY_CONTESTS_DIR", filepath.Join(dir, "contests"))
	t.Setenv("TERRITORY_DB_PATH", filepath.Join(dir, "territory.db"))
	t.Setenv("TERRITORY_LOG_LEVEL", "error")
}

func runCmd(args ...string) (string, string, error) {
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func TestRunUsage(t *testing.T) {
	convey.Convey("Given the territory command", t, func() {
		convey.Convey("When it is run without a command", func() {
			_, stderr, err := runCmd()

			convey.Convey("Then it should print usage and fail", func() {
				convey.So(errors.Is(err, ErrUsage), convey.ShouldBeTrue)
				convey.So(stderr, convey.ShouldContainSubstring, "usage: territory")
			})
		})

		convey.Convey("When help is asked for", func() {
			stdout, _, err := runCmd("help")

			convey.Convey("Then usage should go to stdout", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(stdout, convey.ShouldContainSubstring, "leaderboard")
			})
		})

		convey.Convey("When the command is unknown", func() {
			_, _, err := runCmd("rebuild")

			convey.Convey("Then it should fail with a usage error", func() {
				convey.So(errors.Is(err, ErrUsage), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When no season is given", func() {
			writeFixtures(t)
			_, _, err := runCmd("baseline")

			convey.Convey("Then it should ask for one", func() {
				convey.So(errors.Is(err, ErrUsage), convey.ShouldBeTrue)
			})
		})
	})
}

func TestRunSeason(t *testing.T) {
	convey.Convey("Given reference data and one week of contests", t, func() {
		writeFixtures(t)

		convey.Convey("When a season is run end to end", func() {
			baseline, _, err := runCmd("baseline", "-season", "2024")
			convey.So(err, convey.ShouldBeNil)
			advance, _, err := runCmd("advance", "-season", "2024", "-verbose")
			convey.So(err, convey.ShouldBeNil)
			boards, _, err := runCmd("leaderboard", "-season", "2024", "-json")
			convey.So(err, convey.ShouldBeNil)
			markers, _, err := runCmd("markers", "-season", "2024")
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then each step should report its result", func() {
				convey.So(baseline, convey.ShouldContainSubstring, "4 regions assigned to 3 teams")
				convey.So(advance, convey.ShouldContainSubstring, "g1: a took 2 regions from b")
				convey.So(advance, convey.ShouldContainSubstring, "Season 2024: 1 weeks applied, 0 skipped")
				convey.So(markers, convey.ShouldContainSubstring, "3 markers")

				var lb leaderboard.Payload
				convey.So(json.Unmarshal([]byte(boards), &lb), convey.ShouldBeNil)
				convey.So(lb.Week.WeekIndex, convey.ShouldEqual, 1)
				convey.So(lb.Boards[leaderboard.RegionsOwned][0].TeamID, convey.ShouldEqual, "a")
				convey.So(lb.Boards[leaderboard.RegionsOwned][0].Metrics.Regions, convey.ShouldEqual, 3)
			})

			convey.Convey("Then advancing the stored week again should be rejected", func() {
				_, _, err := runCmd("advance", "-season", "2024", "-week-index", "1")
				convey.So(errors.Is(err, repository.ErrAlreadyExists), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the baseline is a dry run", func() {
			stdout, _, err := runCmd("baseline", "-season", "2024", "-dry-run")
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then nothing should be stored", func() {
				convey.So(stdout, convey.ShouldContainSubstring, "Dry run enabled")
				_, _, err := runCmd("leaderboard", "-season", "2024")
				convey.So(errors.Is(err, model.ErrMissingData), convey.ShouldBeTrue)
			})
		})
	})
}
