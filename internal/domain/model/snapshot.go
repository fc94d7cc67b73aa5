package model

import (
	"fmt"
	"sort"
)

// Snapshot is the complete region to team assignment at one week. A snapshot
// is never mutated once produced; the transfer engine works on a copy.
type Snapshot struct {
	Week   WeekRef           `json:"week"`
	Owners map[string]string `json:"owners"`
}

// Owner returns the team owning regionID.
func (s Snapshot) Owner(regionID string) (string, bool) {
	t, ok := s.Owners[regionID]
	return t, ok
}

// RegionIDs returns the sorted region ids present in the snapshot.
func (s Snapshot) RegionIDs() []string {
	ids := make([]string, 0, len(s.Owners))
	for id := range s.Owners {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Clone returns a deep copy of s tagged with week.
func (s Snapshot) Clone(week WeekRef) Snapshot {
	owners := make(map[string]string, len(s.Owners))
	for r, t := range s.Owners {
		owners[r] = t
	}
	return Snapshot{Week: week, Owners: owners}
}

// Reverse derives the team to regions index of s.
func (s Snapshot) Reverse() ReverseIndex {
	idx := make(ReverseIndex)
	for r, t := range s.Owners {
		idx.Add(t, r)
	}
	return idx
}

// Counts returns the number of regions owned per team.
func (s Snapshot) Counts() map[string]int {
	out := make(map[string]int)
	for _, t := range s.Owners {
		out[t]++
	}
	return out
}

// ReverseIndex maps a team id to the set of region ids it owns.
type ReverseIndex map[string]map[string]struct{}

// Add records that team owns region.
func (ri ReverseIndex) Add(team, region string) {
	set, ok := ri[team]
	if !ok {
		set = make(map[string]struct{})
		ri[team] = set
	}
	set[region] = struct{}{}
}

// Remove drops region from team's set.
func (ri ReverseIndex) Remove(team, region string) {
	set, ok := ri[team]
	if !ok {
		return
	}
	delete(set, region)
	if len(set) == 0 {
		delete(ri, team)
	}
}

// Clone returns a deep copy of the index.
func (ri ReverseIndex) Clone() ReverseIndex {
	out := make(ReverseIndex, len(ri))
	for team, set := range ri {
		cp := make(map[string]struct{}, len(set))
		for r := range set {
			cp[r] = struct{}{}
		}
		out[team] = cp
	}
	return out
}

// Regions returns the sorted regions owned by team.
func (ri ReverseIndex) Regions(team string) []string {
	set := ri[team]
	out := make([]string, 0, len(set))
	for r := range set {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

// Count returns how many regions team owns.
func (ri ReverseIndex) Count(team string) int { return len(ri[team]) }

// Owns reports whether team currently owns region.
func (ri ReverseIndex) Owns(team, region string) bool {
	_, ok := ri[team][region]
	return ok
}

// CheckCoverage verifies that every id in regionIDs has exactly one non-empty
// owner in s and that s holds no region outside regionIDs.
func CheckCoverage(s Snapshot, regionIDs []string) error {
	if len(s.Owners) != len(regionIDs) {
		return fmt.Errorf("%w: %s has %d regions, want %d", ErrCoverage, s.Week, len(s.Owners), len(regionIDs))
	}
	for _, id := range regionIDs {
		owner, ok := s.Owners[id]
		if !ok {
			return fmt.Errorf("%w: %s is missing region %s", ErrCoverage, s.Week, id)
		}
		if owner == "" {
			return fmt.Errorf("%w: %s region %s has no owner", ErrCoverage, s.Week, id)
		}
	}
	return nil
}
