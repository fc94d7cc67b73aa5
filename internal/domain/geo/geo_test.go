package geo_test

import (
	"math"
	"testing"

	"github.com/okian/territory/internal/domain/geo"
	. "github.com/smartystreets/goconvey/convey"
)

func square(lat, lon, size float64) geo.Polygon {
	return geo.Polygon{geo.Ring{
		{Lat: lat, Lon: lon},
		{Lat: lat, Lon: lon + size},
		{Lat: lat + size, Lon: lon + size},
		{Lat: lat + size, Lon: lon},
		{Lat: lat, Lon: lon},
	}}
}

func TestDistance(t *testing.T) {
	Convey("Given two points on the sphere", t, func() {
		Convey("When they are the same point", func() {
			p := geo.Point{Lat: 33.2, Lon: -87.55}

			Convey("Then the distance should be zero", func() {
				So(geo.Distance(p, p), ShouldEqual, 0)
			})
		})

		Convey("When they are one degree apart on the equator", func() {
			d := geo.Distance(geo.Point{Lat: 0, Lon: 0}, geo.Point{Lat: 0, Lon: 1})

			Convey("Then the distance should be about 111.19 km", func() {
				So(d, ShouldAlmostEqual, 111.19, 0.01)
			})
		})

		Convey("When they are antipodal", func() {
			d := geo.Distance(geo.Point{Lat: 0, Lon: 0}, geo.Point{Lat: 0, Lon: 180})
			polar := geo.Distance(geo.Point{Lat: 90, Lon: 0}, geo.Point{Lat: -90, Lon: 0})

			Convey("Then the distance should be half the circumference and never NaN", func() {
				So(math.IsNaN(d), ShouldBeFalse)
				So(d, ShouldAlmostEqual, math.Pi*geo.EarthRadiusKm, 1e-6)
				So(math.IsNaN(polar), ShouldBeFalse)
				So(polar, ShouldAlmostEqual, math.Pi*geo.EarthRadiusKm, 1e-6)
			})
		})

		Convey("When the order of the points is swapped", func() {
			a := geo.Point{Lat: 40.0017, Lon: -83.0197}
			b := geo.Point{Lat: 42.2661, Lon: -83.7487}

			Convey("Then the distance should be symmetric", func() {
				So(geo.Distance(a, b), ShouldAlmostEqual, geo.Distance(b, a), 1e-9)
			})
		})
	})
}

func TestVertexCentroid(t *testing.T) {
	Convey("Given polygon geometries", t, func() {
		Convey("When the geometry is a single square", func() {
			g := geo.Geometry{Polygons: []geo.Polygon{square(0, 0, 2)}}
			c, err := geo.VertexCentroid(g)

			Convey("Then it should equal the arithmetic mean of the listed vertices", func() {
				So(err, ShouldBeNil)
				// Five vertices including the closing one: (0+0+2+2+0)/5.
				So(c.Lat, ShouldAlmostEqual, 0.8, 1e-12)
				So(c.Lon, ShouldAlmostEqual, 0.8, 1e-12)
			})
		})

		Convey("When the geometry is a multipolygon", func() {
			g := geo.Geometry{Polygons: []geo.Polygon{square(0, 0, 1), square(10, 10, 1)}}
			c, err := geo.VertexCentroid(g)

			Convey("Then every vertex of every polygon should count equally", func() {
				So(err, ShouldBeNil)
				So(g.VertexCount(), ShouldEqual, 10)
				So(c.Lat, ShouldAlmostEqual, (0.4+10.4)/2, 1e-12)
				So(c.Lon, ShouldAlmostEqual, (0.4+10.4)/2, 1e-12)
			})
		})

		Convey("When a polygon has a hole", func() {
			poly := square(0, 0, 4)
			poly = append(poly, geo.Ring{{Lat: 1, Lon: 1}, {Lat: 1, Lon: 2}, {Lat: 2, Lon: 2}})
			c, err := geo.VertexCentroid(geo.Geometry{Polygons: []geo.Polygon{poly}})

			Convey("Then the hole vertices should be averaged in as well", func() {
				So(err, ShouldBeNil)
				So(c.Lat, ShouldAlmostEqual, (0+0+4+4+0+1+1+2)/8.0, 1e-12)
				So(c.Lon, ShouldAlmostEqual, (0+4+4+0+0+1+2+2)/8.0, 1e-12)
			})
		})

		Convey("When the geometry is empty", func() {
			_, err := geo.VertexCentroid(geo.Geometry{})
			_, ringErr := geo.VertexCentroid(geo.Geometry{Polygons: []geo.Polygon{{geo.Ring{}}}})

			Convey("Then it should fail with ErrEmptyGeometry", func() {
				So(err, ShouldEqual, geo.ErrEmptyGeometry)
				So(ringErr, ShouldEqual, geo.ErrEmptyGeometry)
			})
		})
	})
}

func TestWeightedSphericalCentroid(t *testing.T) {
	Convey("Given weighted points", t, func() {
		Convey("When two regions straddle the antimeridian", func() {
			c, err := geo.WeightedSphericalCentroid([]geo.WeightedPoint{
				{Point: geo.Point{Lat: 10, Lon: 179}, Weight: 1},
				{Point: geo.Point{Lat: 10, Lon: -179}, Weight: 1},
			})

			Convey("Then the centroid should fall on the short arc near 180 degrees", func() {
				So(err, ShouldBeNil)
				So(math.Abs(c.Lon), ShouldAlmostEqual, 180, 1e-6)
				So(c.Lat, ShouldAlmostEqual, 10, 0.01)
				So(c.Valid(), ShouldBeTrue)
			})
		})

		Convey("When weights differ", func() {
			c, err := geo.WeightedSphericalCentroid([]geo.WeightedPoint{
				{Point: geo.Point{Lat: 0, Lon: 0}, Weight: 3},
				{Point: geo.Point{Lat: 0, Lon: 10}, Weight: 1},
			})

			Convey("Then the centroid should lean toward the heavier point", func() {
				So(err, ShouldBeNil)
				So(c.Lon, ShouldBeGreaterThan, 0)
				So(c.Lon, ShouldBeLessThan, 5)
			})
		})

		Convey("When a weight is zero or negative", func() {
			zero, err := geo.WeightedSphericalCentroid([]geo.WeightedPoint{
				{Point: geo.Point{Lat: 0, Lon: 0}, Weight: 0},
				{Point: geo.Point{Lat: 0, Lon: 10}, Weight: -4},
			})
			So(err, ShouldBeNil)

			Convey("Then it should be treated as a weight of one", func() {
				So(zero.Lon, ShouldAlmostEqual, 5, 1e-9)
				So(zero.Lat, ShouldAlmostEqual, 0, 1e-9)
			})
		})

		Convey("When the points cancel out", func() {
			_, err := geo.WeightedSphericalCentroid([]geo.WeightedPoint{
				{Point: geo.Point{Lat: 0, Lon: 0}, Weight: 1},
				{Point: geo.Point{Lat: 0, Lon: 180}, Weight: 1},
			})

			Convey("Then it should report a degenerate centroid", func() {
				So(err, ShouldEqual, geo.ErrDegenerateCentroid)
			})
		})

		Convey("When there are no points", func() {
			_, err := geo.WeightedSphericalCentroid(nil)

			Convey("Then it should fail with ErrEmptyGeometry", func() {
				So(err, ShouldEqual, geo.ErrEmptyGeometry)
			})
		})
	})
}

func TestNearestAnchor(t *testing.T) {
	Convey("Given anchor candidates", t, func() {
		candidates := []geo.Anchor{
			{ID: "far", Point: geo.Point{Lat: 45, Lon: -100}},
			{ID: "near", Point: geo.Point{Lat: 35, Lon: -90}},
		}

		Convey("When choosing the anchor for a centroid", func() {
			a, d, err := geo.NearestAnchor(geo.Point{Lat: 34, Lon: -89}, candidates)

			Convey("Then the geodesically closest candidate should win", func() {
				So(err, ShouldBeNil)
				So(a.ID, ShouldEqual, "near")
				So(d, ShouldBeGreaterThan, 0)
			})
		})

		Convey("When two candidates are equidistant", func() {
			p := geo.Point{Lat: 1, Lon: 1}
			a, _, err := geo.NearestAnchor(p, []geo.Anchor{{ID: "b", Point: p}, {ID: "a", Point: p}})

			Convey("Then the smallest id should win", func() {
				So(err, ShouldBeNil)
				So(a.ID, ShouldEqual, "a")
			})
		})

		Convey("When there are no candidates", func() {
			_, _, err := geo.NearestAnchor(geo.Point{}, nil)

			Convey("Then it should fail with ErrNoCandidates", func() {
				So(err, ShouldEqual, geo.ErrNoCandidates)
			})
		})
	})
}

func TestNormalizeLon(t *testing.T) {
	Convey("Given longitudes outside the canonical range", t, func() {
		Convey("Then they should wrap into [-180, 180]", func() {
			So(geo.NormalizeLon(190), ShouldAlmostEqual, -170, 1e-9)
			So(geo.NormalizeLon(-190), ShouldAlmostEqual, 170, 1e-9)
			So(geo.NormalizeLon(45), ShouldEqual, 45)
			So(geo.NormalizeLon(180), ShouldEqual, 180)
		})
	})
}
