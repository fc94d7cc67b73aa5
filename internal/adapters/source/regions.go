package source

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/okian/territory/internal/domain/geo"
	"github.com/okian/territory/internal/domain/model"
)

type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

type feature struct {
	ID         json.RawMessage            `json:"id"`
	Properties map[string]json.RawMessage `json:"properties"`
	Geometry   *geometry                  `json:"geometry"`
}

type geometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// ParseRegions decodes a GeoJSON FeatureCollection of Polygon and
// MultiPolygon features. Positions are [lon, lat]; a third ordinate is
// ignored.
func ParseRegions(raw []byte, props Properties) ([]model.Region, error) {
	var fc featureCollection
	if err := json.Unmarshal(raw, &fc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if fc.Type != "" && fc.Type != "FeatureCollection" {
		return nil, fmt.Errorf("%w: expected FeatureCollection, got %s", ErrMalformed, fc.Type)
	}

	out := make([]model.Region, 0, len(fc.Features))
	for i, feat := range fc.Features {
		id := scalarString(feat.ID)
		if id == "" {
			id = propString(feat.Properties, props.ID)
		}
		if id == "" {
			return nil, fmt.Errorf("%w: feature %d has no id", ErrMalformed, i)
		}
		g, err := decodeGeometry(feat.Geometry)
		if err != nil {
			return nil, fmt.Errorf("region %s: %w", id, err)
		}
		cluster := propString(feat.Properties, props.Cluster)
		if cluster == "" {
			cluster = fipsState(id)
		}
		out = append(out, model.Region{
			ID:         id,
			Name:       propString(feat.Properties, props.Name),
			Geometry:   g,
			AreaSqMi:   propFloat(feat.Properties, props.Area),
			Population: propFloat(feat.Properties, props.Population),
			Cluster:    cluster,
		})
	}
	return out, nil
}

func decodeGeometry(g *geometry) (geo.Geometry, error) {
	if g == nil {
		return geo.Geometry{}, nil
	}
	switch g.Type {
	case "Polygon":
		var coords [][][]float64
		if err := json.Unmarshal(g.Coordinates, &coords); err != nil {
			return geo.Geometry{}, fmt.Errorf("%w: polygon: %v", ErrMalformed, err)
		}
		poly, err := toPolygon(coords)
		if err != nil {
			return geo.Geometry{}, err
		}
		return geo.Geometry{Polygons: []geo.Polygon{poly}}, nil
	case "MultiPolygon":
		var coords [][][][]float64
		if err := json.Unmarshal(g.Coordinates, &coords); err != nil {
			return geo.Geometry{}, fmt.Errorf("%w: multipolygon: %v", ErrMalformed, err)
		}
		out := geo.Geometry{Polygons: make([]geo.Polygon, 0, len(coords))}
		for _, c := range coords {
			poly, err := toPolygon(c)
			if err != nil {
				return geo.Geometry{}, err
			}
			out.Polygons = append(out.Polygons, poly)
		}
		return out, nil
	default:
		return geo.Geometry{}, fmt.Errorf("%w: geometry type %q", ErrMalformed, g.Type)
	}
}

func toPolygon(rings [][][]float64) (geo.Polygon, error) {
	poly := make(geo.Polygon, 0, len(rings))
	for _, ring := range rings {
		r := make(geo.Ring, 0, len(ring))
		for _, pos := range ring {
			if len(pos) < 2 {
				return nil, fmt.Errorf("%w: position needs lon and lat", ErrMalformed)
			}
			p := geo.Point{Lat: pos[1], Lon: pos[0]}
			if !p.Valid() {
				return nil, fmt.Errorf("%w: [%g, %g]", geo.ErrInvalidCoordinate, pos[0], pos[1])
			}
			r = append(r, p)
		}
		poly = append(poly, r)
	}
	return poly, nil
}

// fipsState returns the state part of a five digit county FIPS code.
func fipsState(id string) string {
	if len(id) != 5 {
		return ""
	}
	if _, err := strconv.Atoi(id); err != nil {
		return ""
	}
	return id[:2]
}

// scalarString renders a JSON string or number as text.
func scalarString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func propString(props map[string]json.RawMessage, key string) string {
	if key == "" {
		return ""
	}
	return scalarString(props[key])
}

// propFloat reads a numeric property. Missing or unparsable values are 0.
func propFloat(props map[string]json.RawMessage, key string) float64 {
	s := propString(props, key)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return 0
	}
	return v
}

type statsRow struct {
	Population *float64 `json:"population"`
	AreaSqMi   *float64 `json:"area_sq_mi"`
	AreaCamel  *float64 `json:"areaSqMi"`
}

// ParseStats decodes a {region id: {population, area_sq_mi}} overlay.
func ParseStats(raw []byte) (map[string]model.RegionStats, error) {
	var rows map[string]statsRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	out := make(map[string]model.RegionStats, len(rows))
	for id, row := range rows {
		var st model.RegionStats
		if row.Population != nil {
			st.Population = *row.Population
		}
		switch {
		case row.AreaSqMi != nil:
			st.AreaSqMi = *row.AreaSqMi
		case row.AreaCamel != nil:
			st.AreaSqMi = *row.AreaCamel
		}
		out[id] = st
	}
	return out, nil
}

// ApplyStats overwrites region figures with the overlay and returns how many
// regions it did not cover. Uncovered regions keep their own figures.
func ApplyStats(regions []model.Region, stats map[string]model.RegionStats) int {
	missing := 0
	for i := range regions {
		st, ok := stats[regions[i].ID]
		if !ok {
			missing++
			continue
		}
		regions[i].Population = st.Population
		regions[i].AreaSqMi = st.AreaSqMi
	}
	return missing
}
