package transfer

import "github.com/okian/territory/internal/domain/model"

// Ownership is the mutable working state of one weekly advance: the owners
// map and its reverse index, always updated together by Move. It is owned by
// a single advance and is not safe for concurrent use.
type Ownership struct {
	owners map[string]string
	index  model.ReverseIndex
}

// NewOwnership copies s into a fresh working state. s is never modified.
func NewOwnership(s model.Snapshot) *Ownership {
	o := &Ownership{
		owners: make(map[string]string, len(s.Owners)),
		index:  make(model.ReverseIndex),
	}
	for r, t := range s.Owners {
		o.owners[r] = t
		o.index.Add(t, r)
	}
	return o
}

// Owner returns the current owner of region, or "" if unknown.
func (o *Ownership) Owner(region string) string { return o.owners[region] }

// Regions returns the sorted regions team owns right now.
func (o *Ownership) Regions(team string) []string { return o.index.Regions(team) }

// Count returns how many regions team owns right now.
func (o *Ownership) Count(team string) int { return o.index.Count(team) }

// Len returns the number of regions tracked.
func (o *Ownership) Len() int { return len(o.owners) }

// Move hands region to team and returns the previous owner. It is a no-op
// returning false when region is unknown or already owned by team.
func (o *Ownership) Move(region, to string) (string, bool) {
	from, ok := o.owners[region]
	if !ok || from == to {
		return from, false
	}
	o.index.Remove(from, region)
	o.owners[region] = to
	o.index.Add(to, region)
	return from, true
}

// Snapshot returns an independent copy of the current state tagged with week.
func (o *Ownership) Snapshot(week model.WeekRef) model.Snapshot {
	return model.Snapshot{Week: week, Owners: o.owners}.Clone(week)
}

// Index returns an independent copy of the reverse index.
func (o *Ownership) Index() model.ReverseIndex { return o.index.Clone() }
