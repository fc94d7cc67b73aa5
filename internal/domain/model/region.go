// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"sort"

	"github.com/okian/territory/internal/domain/geo"
)

// Region is an atomic unit of ownership, loaded once per run.
type Region struct {
	ID         string       `json:"id"`
	Name       string       `json:"name,omitempty"`
	Geometry   geo.Geometry `json:"-"`
	AreaSqMi   float64      `json:"area_sq_mi,omitempty"`
	Population float64      `json:"population,omitempty"`
	// Cluster is the discriminator used to split a team's regions into
	// geographically disjoint marker clusters (a state code, for counties).
	Cluster string `json:"cluster,omitempty"`
}

// RegionStats are the per-region figures aggregated by leaderboards.
type RegionStats struct {
	Population float64 `json:"population"`
	AreaSqMi   float64 `json:"area_sq_mi"`
}

// IndexRegions maps regions by id, rejecting duplicates.
func IndexRegions(regions []Region) (map[string]Region, error) {
	out := make(map[string]Region, len(regions))
	for _, r := range regions {
		if _, ok := out[r.ID]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateRegion, r.ID)
		}
		out[r.ID] = r
	}
	return out, nil
}

// RegionIDs returns the sorted ids of regions.
func RegionIDs(regions []Region) []string {
	ids := make([]string, 0, len(regions))
	for _, r := range regions {
		ids = append(ids, r.ID)
	}
	sort.Strings(ids)
	return ids
}

// StatsFromRegions builds the stats table from the region dataset itself.
func StatsFromRegions(regions []Region) map[string]RegionStats {
	out := make(map[string]RegionStats, len(regions))
	for _, r := range regions {
		out[r.ID] = RegionStats{Population: r.Population, AreaSqMi: r.AreaSqMi}
	}
	return out
}
