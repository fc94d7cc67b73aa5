// Package centroid places team map markers. Clusters are fixed once from the
// baseline; each week only the team controlling a cluster is resolved again.
package centroid

import (
	"fmt"
	"math"
	"sort"

	"github.com/okian/territory/internal/domain/geo"
	"github.com/okian/territory/internal/domain/model"
)

// Cluster is a permanent marker feature: one team's baseline regions within
// one geographically contiguous group.
type Cluster struct {
	TeamID       string    `json:"team_id"`
	TeamName     string    `json:"team_name"`
	Key          string    `json:"cluster"`
	Members      []string  `json:"members"`
	Centroid     geo.Point `json:"centroid"`
	Anchor       geo.Point `json:"anchor"`
	AnchorRegion string    `json:"anchor_region,omitempty"`
	AreaSqMi     float64   `json:"area_sq_mi"`
}

// TerritoryID identifies the cluster on the map.
func (c Cluster) TerritoryID() string { return c.TeamID + "-" + c.Key }

// Marker is the render state of one cluster for one week.
type Marker struct {
	TerritoryID      string    `json:"territory_id"`
	Cluster          string    `json:"cluster"`
	BaselineTeamID   string    `json:"baseline_team_id"`
	BaselineTeamName string    `json:"baseline_team_name"`
	Anchor           geo.Point `json:"anchor"`
	AnchorRegion     string    `json:"anchor_region,omitempty"`
	Centroid         geo.Point `json:"centroid"`
	OwnerID          string    `json:"owner_id"`
	OwnerName        string    `json:"owner_name"`
	OwnerLogoURL     string    `json:"owner_logo_url,omitempty"`
	OwnerColors      []string  `json:"owner_colors,omitempty"`
	RegionsOwned     int       `json:"regions_owned"`
	TotalRegions     int       `json:"total_regions"`
	OwnershipPct     float64   `json:"ownership_pct"`
	AreaSqMi         float64   `json:"area_sq_mi"`
}

// BuildBaseline computes the permanent clusters from the week-0 snapshot.
// centroids holds per-region vertex centroids; missing ones are computed from
// the region geometry. Teams owning no baseline region get a member-less
// cluster at their home location.
func BuildBaseline(baseline model.Snapshot, regions []model.Region, teams []model.Team, centroids map[string]geo.Point, p Partitioner) ([]Cluster, error) {
	byID, err := model.IndexRegions(regions)
	if err != nil {
		return nil, err
	}

	// team -> cluster key -> member regions
	groups := make(map[string]map[string][]model.Region)
	for _, regionID := range baseline.RegionIDs() {
		r, ok := byID[regionID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownRegion, regionID)
		}
		key, ok := p.Key(r.Cluster)
		if !ok {
			continue
		}
		team := baseline.Owners[regionID]
		if groups[team] == nil {
			groups[team] = make(map[string][]model.Region)
		}
		groups[team][key] = append(groups[team][key], r)
	}

	var out []Cluster
	for _, t := range teams {
		byKey := groups[t.ID]
		if len(byKey) == 0 {
			if t.Home == nil {
				continue
			}
			out = append(out, Cluster{
				TeamID:   t.ID,
				TeamName: t.DisplayName(),
				Key:      HomeCluster,
				Centroid: *t.Home,
				Anchor:   *t.Home,
			})
			continue
		}
		for key, members := range byKey {
			c, err := summarize(members, centroids)
			if err != nil {
				return nil, fmt.Errorf("team %s cluster %s: %w", t.ID, key, err)
			}
			c.TeamID = t.ID
			c.TeamName = t.DisplayName()
			c.Key = key
			out = append(out, c)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].TeamName != out[j].TeamName {
			return out[i].TeamName < out[j].TeamName
		}
		return out[i].TerritoryID() < out[j].TerritoryID()
	})
	return out, nil
}

// summarize computes the weighted centroid of members and the member closest
// to it. Weights are region areas, or 1 where area is unknown.
func summarize(members []model.Region, centroids map[string]geo.Point) (Cluster, error) {
	points := make([]geo.WeightedPoint, 0, len(members))
	anchors := make([]geo.Anchor, 0, len(members))
	ids := make([]string, 0, len(members))
	var area float64
	for _, r := range members {
		c, ok := centroids[r.ID]
		if !ok {
			var err error
			if c, err = geo.VertexCentroid(r.Geometry); err != nil {
				return Cluster{}, fmt.Errorf("region %s: %w", r.ID, err)
			}
		}
		points = append(points, geo.WeightedPoint{Point: c, Weight: r.AreaSqMi})
		anchors = append(anchors, geo.Anchor{ID: r.ID, Point: c})
		ids = append(ids, r.ID)
		if r.AreaSqMi > 0 {
			area += r.AreaSqMi
		}
	}
	sort.Strings(ids)

	center, err := geo.WeightedSphericalCentroid(points)
	if err != nil {
		return Cluster{}, err
	}
	anchor, _, err := geo.NearestAnchor(center, anchors)
	if err != nil {
		return Cluster{}, err
	}
	return Cluster{
		Members:      ids,
		Centroid:     center,
		Anchor:       anchor.Point,
		AnchorRegion: anchor.ID,
		AreaSqMi:     math.Round(area*100) / 100,
	}, nil
}

// Resolve finds the plurality owner of every cluster's original members under
// current. Equal counts go to the cluster's baseline team when it is among
// them, otherwise to the smallest team id. Member-less clusters yield no
// marker.
func Resolve(clusters []Cluster, current model.Snapshot, teams []model.Team) []Marker {
	byID := make(map[string]model.Team, len(teams))
	for _, t := range teams {
		byID[t.ID] = t
	}

	out := make([]Marker, 0, len(clusters))
	for _, c := range clusters {
		if len(c.Members) == 0 {
			continue
		}
		counts := make(map[string]int)
		for _, r := range c.Members {
			if owner, ok := current.Owners[r]; ok && owner != "" {
				counts[owner]++
			}
		}
		owner, n := plurality(counts, c.TeamID)
		if owner == "" {
			continue
		}
		t, ok := byID[owner]
		if !ok {
			t = model.Team{ID: owner}
		}
		out = append(out, Marker{
			TerritoryID:      c.TerritoryID(),
			Cluster:          c.Key,
			BaselineTeamID:   c.TeamID,
			BaselineTeamName: c.TeamName,
			Anchor:           c.Anchor,
			AnchorRegion:     c.AnchorRegion,
			Centroid:         c.Centroid,
			OwnerID:          owner,
			OwnerName:        t.DisplayName(),
			OwnerLogoURL:     t.LogoURL,
			OwnerColors:      t.Colors,
			RegionsOwned:     n,
			TotalRegions:     len(c.Members),
			OwnershipPct:     math.Round(float64(n)/float64(len(c.Members))*1000) / 10,
			AreaSqMi:         c.AreaSqMi,
		})
	}
	return out
}

func plurality(counts map[string]int, baselineTeam string) (string, int) {
	best, bestN := "", 0
	for team, n := range counts {
		switch {
		case n > bestN:
			best, bestN = team, n
		case n == bestN && better(team, best, baselineTeam):
			best = team
		}
	}
	return best, bestN
}

func better(candidate, current, baselineTeam string) bool {
	if current == baselineTeam {
		return false
	}
	if candidate == baselineTeam {
		return true
	}
	return candidate < current
}
