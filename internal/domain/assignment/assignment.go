// Package assignment builds the week-0 ownership snapshot by assigning every
// region to the team whose home is geodesically nearest to the region's
// vertex centroid.
package assignment

import (
	"context"
	"fmt"
	"sort"

	"github.com/okian/territory/internal/domain/geo"
	"github.com/okian/territory/internal/domain/model"
	"github.com/okian/territory/pkg/logger"
)

// ctxCheckEvery is how many regions are assigned between cancellation checks.
const ctxCheckEvery = 256

// Assignment is the baseline snapshot plus the per-region vertex centroids
// computed on the way, reused for marker clusters.
type Assignment struct {
	Snapshot  model.Snapshot
	Centroids map[string]geo.Point
	// Distances holds each region's distance to its assigned home in km.
	Distances map[string]float64
}

type assigner struct {
	season int
	label  string
	log    logger.Logger
}

// AssignBaseline assigns every region to its nearest team home. The scan is
// O(regions x teams). Equidistant homes resolve to the smallest team id so the
// result never depends on input order.
func AssignBaseline(ctx context.Context, regions []model.Region, teams []model.Team, opts ...Option) (Assignment, error) {
	a := &assigner{log: logger.Nop()}
	for _, opt := range opts {
		opt(a)
	}

	if len(teams) == 0 {
		return Assignment{}, ErrNoTeams
	}
	if _, err := model.IndexTeams(teams); err != nil {
		return Assignment{}, err
	}
	if _, err := model.IndexRegions(regions); err != nil {
		return Assignment{}, err
	}

	homes := make([]geo.Anchor, 0, len(teams))
	for _, t := range teams {
		if err := t.Validate(); err != nil {
			return Assignment{}, err
		}
		homes = append(homes, geo.Anchor{ID: t.ID, Point: *t.Home})
	}
	geo.SortAnchors(homes)

	week := model.BaselineWeek(a.season)
	if a.label != "" {
		week.Label = a.label
	}

	out := Assignment{
		Snapshot:  model.Snapshot{Week: week, Owners: make(map[string]string, len(regions))},
		Centroids: make(map[string]geo.Point, len(regions)),
		Distances: make(map[string]float64, len(regions)),
	}
	for i, r := range regions {
		if i%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return Assignment{}, fmt.Errorf("assign baseline: %w", err)
			}
		}
		c, err := geo.VertexCentroid(r.Geometry)
		if err != nil {
			return Assignment{}, fmt.Errorf("region %s: %w", r.ID, err)
		}
		home, d, err := geo.NearestAnchor(c, homes)
		if err != nil {
			return Assignment{}, fmt.Errorf("region %s: %w", r.ID, err)
		}
		out.Snapshot.Owners[r.ID] = home.ID
		out.Centroids[r.ID] = c
		out.Distances[r.ID] = d
	}

	if err := model.CheckCoverage(out.Snapshot, model.RegionIDs(regions)); err != nil {
		return Assignment{}, err
	}

	a.log.Info(ctx, "baseline assigned",
		logger.Int("season", a.season),
		logger.Int("regions", len(regions)),
		logger.Int("teams", len(teams)),
		logger.Int("teams_with_regions", len(out.Snapshot.Reverse())))
	return out, nil
}

// Unassigned returns the sorted ids of teams that received no region.
func Unassigned(s model.Snapshot, teams []model.Team) []string {
	counts := s.Counts()
	var out []string
	for _, t := range teams {
		if counts[t.ID] == 0 {
			out = append(out, t.ID)
		}
	}
	sort.Strings(out)
	return out
}
