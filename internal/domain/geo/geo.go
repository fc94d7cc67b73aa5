// Package geo implements the spherical geometry used for baseline assignment
// and map marker placement: great-circle distance, vertex centroids and
// weighted spherical centroids.
package geo

import (
	"math"
	"sort"
)

// EarthRadiusKm is the mean Earth radius used by Distance.
const EarthRadiusKm = 6371.0

// degenerateNorm is the resultant length below which summed unit vectors are
// considered to cancel out.
const degenerateNorm = 1e-12

// Point is a WGS84 coordinate in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the point is finite and within coordinate bounds.
func (p Point) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lon, 0) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// Ring is a closed sequence of vertices.
type Ring []Point

// Polygon is an outer ring followed by optional holes.
type Polygon []Ring

// Geometry holds one polygon (Polygon geometries) or several (MultiPolygon).
type Geometry struct {
	Polygons []Polygon `json:"polygons"`
}

// VertexCount returns the number of vertices across all rings.
func (g Geometry) VertexCount() int {
	n := 0
	for _, poly := range g.Polygons {
		for _, ring := range poly {
			n += len(ring)
		}
	}
	return n
}

// WeightedPoint is a point with an averaging weight.
type WeightedPoint struct {
	Point
	Weight float64
}

// Anchor is a real, renderable point identified by the region it belongs to.
type Anchor struct {
	ID string
	Point
}

// Distance returns the great-circle distance between p1 and p2 in kilometers.
func Distance(p1, p2 Point) float64 {
	lat1 := radians(p1.Lat)
	lat2 := radians(p2.Lat)
	dLat := lat2 - lat1
	dLon := radians(p2.Lon - p1.Lon)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	// Rounding can push a marginally outside [0, 1] for antipodal points.
	a = math.Max(0, math.Min(1, a))

	return EarthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// VertexCentroid returns the unweighted mean of every vertex of every ring.
//
// This is deliberately not an area centroid. Anchor selection and cluster
// splitting are tuned against the vertex average, so densely digitized edges
// pull the result toward them.
func VertexCentroid(g Geometry) (Point, error) {
	var sumLat, sumLon float64
	n := 0
	for _, poly := range g.Polygons {
		for _, ring := range poly {
			for _, p := range ring {
				sumLat += p.Lat
				sumLon += p.Lon
				n++
			}
		}
	}
	if n == 0 {
		return Point{}, ErrEmptyGeometry
	}
	c := Point{Lat: sumLat / float64(n), Lon: sumLon / float64(n)}
	if !c.Valid() {
		return Point{}, ErrInvalidCoordinate
	}
	return c, nil
}

// WeightedSphericalCentroid averages points as 3D unit vectors scaled by
// weight and projects the sum back to latitude/longitude. Non-positive or
// non-finite weights count as 1.
//
// Points must belong to one geographically contiguous cluster; averaging
// disjoint clusters yields a meaningless midpoint.
func WeightedSphericalCentroid(points []WeightedPoint) (Point, error) {
	if len(points) == 0 {
		return Point{}, ErrEmptyGeometry
	}

	var x, y, z, total float64
	for _, p := range points {
		w := p.Weight
		if w <= 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			w = 1
		}
		lat := radians(p.Lat)
		lon := radians(p.Lon)
		x += w * math.Cos(lat) * math.Cos(lon)
		y += w * math.Cos(lat) * math.Sin(lon)
		z += w * math.Sin(lat)
		total += w
	}

	x /= total
	y /= total
	z /= total
	if math.Sqrt(x*x+y*y+z*z) < degenerateNorm {
		return Point{}, ErrDegenerateCentroid
	}

	hyp := math.Sqrt(x*x + y*y)
	return Point{
		Lat: degrees(math.Atan2(z, hyp)),
		Lon: NormalizeLon(degrees(math.Atan2(y, x))),
	}, nil
}

// NearestAnchor returns the candidate closest to c and its distance in km.
// Equidistant candidates resolve to the smallest ID.
func NearestAnchor(c Point, candidates []Anchor) (Anchor, float64, error) {
	if len(candidates) == 0 {
		return Anchor{}, 0, ErrNoCandidates
	}

	best := -1
	bestDist := math.Inf(1)
	for i, cand := range candidates {
		d := Distance(c, cand.Point)
		if best == -1 || d < bestDist || (d == bestDist && cand.ID < candidates[best].ID) {
			best = i
			bestDist = d
		}
	}
	return candidates[best], bestDist, nil
}

// NormalizeLon maps a longitude onto [-180, 180].
func NormalizeLon(lon float64) float64 {
	if lon >= -180 && lon <= 180 {
		return lon
	}
	lon = math.Mod(lon+180, 360)
	if lon < 0 {
		lon += 360
	}
	return lon - 180
}

// SortAnchors orders anchors by ID so nearest-anchor scans are reproducible.
func SortAnchors(anchors []Anchor) {
	sort.Slice(anchors, func(i, j int) bool { return anchors[i].ID < anchors[j].ID })
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
func degrees(rad float64) float64 { return rad * 180 / math.Pi }
