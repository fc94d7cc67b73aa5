package centroid_test

import (
	"errors"
	"math"
	"testing"

	"github.com/okian/territory/internal/domain/centroid"
	"github.com/okian/territory/internal/domain/geo"
	"github.com/okian/territory/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func region(id, cluster string, lat, lon, area float64) model.Region {
	return model.Region{
		ID:       id,
		Cluster:  cluster,
		AreaSqMi: area,
		Geometry: geo.Geometry{Polygons: []geo.Polygon{{geo.Ring{
			{Lat: lat - 0.5, Lon: lon - 0.5},
			{Lat: lat - 0.5, Lon: lon + 0.5},
			{Lat: lat + 0.5, Lon: lon + 0.5},
			{Lat: lat + 0.5, Lon: lon - 0.5},
		}}}},
	}
}

func fixture() ([]model.Region, []model.Team, model.Snapshot) {
	regions := []model.Region{
		region("01001", "01", 32, -86, 600),
		region("01003", "01", 31, -87, 1600),
		region("02013", "02", 55, -162, 7000),
		region("13001", "13", 31.7, -82.3, 500),
		region("72001", "72", 18.2, -66.7, 100),
	}
	teams := []model.Team{
		{ID: "alabama", Name: "Alabama", Home: &geo.Point{Lat: 33.2, Lon: -87.5}, LogoURL: "bama.png"},
		{ID: "georgia", Name: "Georgia", Home: &geo.Point{Lat: 33.9, Lon: -83.4}},
		{ID: "hawaii", Name: "Hawaii", Home: &geo.Point{Lat: 21.3, Lon: -157.8}},
	}
	baseline := model.Snapshot{Week: model.BaselineWeek(2025), Owners: map[string]string{
		"01001": "alabama", "01003": "alabama", "02013": "alabama", "13001": "georgia", "72001": "georgia",
	}}
	return regions, teams, baseline
}

func TestPartitioner(t *testing.T) {
	Convey("Given the default partitioner", t, func() {
		p := centroid.DefaultPartitioner()

		Convey("Then discriminators should map to clusters", func() {
			k, ok := p.Key("01")
			So(ok, ShouldBeTrue)
			So(k, ShouldEqual, "mainland")
			k, ok = p.Key("02")
			So(ok, ShouldBeTrue)
			So(k, ShouldEqual, "alaska")
			_, ok = p.Key("72")
			So(ok, ShouldBeFalse)
			k, _ = p.Key("")
			So(k, ShouldEqual, p.Primary())
			So(p.Excluded(), ShouldResemble, []string{"72"})
		})
	})
}

func TestBuildBaseline(t *testing.T) {
	Convey("Given a baseline snapshot", t, func() {
		regions, teams, baseline := fixture()

		Convey("When building clusters", func() {
			clusters, err := centroid.BuildBaseline(baseline, regions, teams, nil, centroid.DefaultPartitioner())
			So(err, ShouldBeNil)

			ids := make([]string, 0, len(clusters))
			for _, c := range clusters {
				ids = append(ids, c.TerritoryID())
			}

			Convey("Then disjoint groups should be separate clusters sorted by team name", func() {
				So(ids, ShouldResemble, []string{"alabama-alaska", "alabama-mainland", "georgia-mainland", "hawaii-home"})
			})

			Convey("Then the mainland cluster should lean toward the larger region", func() {
				main := clusters[1]
				So(main.Members, ShouldResemble, []string{"01001", "01003"})
				So(main.Centroid.Lat, ShouldBeLessThan, 31.5)
				So(main.Centroid.Lat, ShouldBeGreaterThan, 31)
				So(main.AnchorRegion, ShouldEqual, "01003")
				So(main.Anchor, ShouldResemble, geo.Point{Lat: 31, Lon: -87})
				So(main.AreaSqMi, ShouldEqual, 2200)
			})

			Convey("Then excluded regions should not join any cluster", func() {
				So(clusters[2].Members, ShouldResemble, []string{"13001"})
			})

			Convey("Then a team without regions should sit at home", func() {
				home := clusters[3]
				So(home.Members, ShouldBeEmpty)
				So(home.Anchor, ShouldResemble, *teams[2].Home)
				So(home.Key, ShouldEqual, centroid.HomeCluster)
			})
		})

		Convey("When precomputed centroids are supplied", func() {
			cents := map[string]geo.Point{"13001": {Lat: 40, Lon: -80}}
			clusters, err := centroid.BuildBaseline(baseline, regions, teams, cents, centroid.DefaultPartitioner())

			Convey("Then they should be used instead of recomputing", func() {
				So(err, ShouldBeNil)
				So(clusters[2].Anchor, ShouldResemble, geo.Point{Lat: 40, Lon: -80})
			})
		})

		Convey("When the baseline names an unknown region", func() {
			baseline.Owners["99999"] = "georgia"
			_, err := centroid.BuildBaseline(baseline, regions, teams, nil, centroid.DefaultPartitioner())

			Convey("Then it should fail", func() {
				So(errors.Is(err, centroid.ErrUnknownRegion), ShouldBeTrue)
			})
		})
	})

	Convey("Given a cluster straddling the antimeridian", t, func() {
		regions := []model.Region{
			region("w", "02", 52, 179, 0),
			region("e", "02", 52, -179, 0),
		}
		teams := []model.Team{{ID: "t", Home: &geo.Point{Lat: 61, Lon: -150}}}
		baseline := model.Snapshot{Owners: map[string]string{"w": "t", "e": "t"}}

		Convey("When building clusters", func() {
			clusters, err := centroid.BuildBaseline(baseline, regions, teams, nil, centroid.DefaultPartitioner())

			Convey("Then the centroid should stay on the short arc", func() {
				So(err, ShouldBeNil)
				So(clusters, ShouldHaveLength, 1)
				So(math.Abs(clusters[0].Centroid.Lon), ShouldBeGreaterThan, 179)
			})
		})
	})
}

func TestResolve(t *testing.T) {
	Convey("Given baseline clusters", t, func() {
		regions, teams, baseline := fixture()
		clusters, err := centroid.BuildBaseline(baseline, regions, teams, nil, centroid.DefaultPartitioner())
		So(err, ShouldBeNil)

		Convey("When ownership is unchanged", func() {
			markers := centroid.Resolve(clusters, baseline, teams)

			Convey("Then every populated cluster should show its baseline team", func() {
				So(markers, ShouldHaveLength, 3)
				for _, m := range markers {
					So(m.OwnerID, ShouldEqual, m.BaselineTeamID)
					So(m.OwnershipPct, ShouldEqual, 100)
				}
			})
		})

		Convey("When georgia takes all of alabama", func() {
			current := baseline.Clone(model.WeekRef{Season: 2025, WeekIndex: 1})
			for r, owner := range current.Owners {
				if owner == "alabama" {
					current.Owners[r] = "georgia"
				}
			}
			markers := centroid.Resolve(clusters, current, teams)

			Convey("Then alabama's markers should stay put but show georgia", func() {
				So(markers[1].TerritoryID, ShouldEqual, "alabama-mainland")
				So(markers[1].OwnerID, ShouldEqual, "georgia")
				So(markers[1].OwnerName, ShouldEqual, "Georgia")
				So(markers[1].Anchor, ShouldResemble, clusters[1].Anchor)
				So(markers[1].RegionsOwned, ShouldEqual, 2)
				So(markers[1].TotalRegions, ShouldEqual, 2)
			})
		})

		Convey("When a cluster is split evenly", func() {
			current := baseline.Clone(model.WeekRef{Season: 2025, WeekIndex: 1})
			current.Owners["01001"] = "georgia"
			markers := centroid.Resolve(clusters, current, teams)

			Convey("Then the baseline team should keep the marker", func() {
				So(markers[1].OwnerID, ShouldEqual, "alabama")
				So(markers[1].OwnershipPct, ShouldEqual, 50)
				So(markers[1].OwnerLogoURL, ShouldEqual, "bama.png")
			})
		})

		Convey("When the baseline team is not among the tied owners", func() {
			current := baseline.Clone(model.WeekRef{Season: 2025, WeekIndex: 1})
			current.Owners["01001"] = "zeta"
			current.Owners["01003"] = "beta"
			markers := centroid.Resolve(clusters, current, teams)

			Convey("Then the smallest team id should win", func() {
				So(markers[1].OwnerID, ShouldEqual, "beta")
				So(markers[1].OwnerName, ShouldEqual, "Beta")
			})
		})
	})

	Convey("Given a three-region cluster owned two to one", t, func() {
		clusters := []centroid.Cluster{{TeamID: "a", Key: "mainland", Members: []string{"r1", "r2", "r3"}}}
		current := model.Snapshot{Owners: map[string]string{"r1": "b", "r2": "b", "r3": "a"}}

		Convey("Then the percentage should be rounded to one decimal", func() {
			markers := centroid.Resolve(clusters, current, nil)
			So(markers[0].OwnerID, ShouldEqual, "b")
			So(markers[0].OwnershipPct, ShouldEqual, 66.7)
		})
	})
}
