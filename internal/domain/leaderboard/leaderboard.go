// Package leaderboard derives ranked weekly boards from an ownership snapshot,
// per-region stats and the week's transfer ledger.
package leaderboard

import (
	"math"
	"time"

	"github.com/okian/territory/internal/domain/model"
)

// Board names a leaderboard.
type Board string

// Boards.
const (
	TerritoryOwned       Board = "territory_owned"
	PopulationControlled Board = "population_controlled"
	RegionsOwned         Board = "regions_owned"
	TerritoryGained      Board = "territory_gained"
	TerritoryLost        Board = "territory_lost"
)

// AllBoards lists boards in display order.
var AllBoards = []Board{TerritoryOwned, PopulationControlled, RegionsOwned, TerritoryGained, TerritoryLost}

// Metrics are the aggregated figures carried by every entry so ties on the
// primary metric can be broken.
type Metrics struct {
	Regions    int     `json:"regions"`
	Population int64   `json:"population"`
	AreaSqMi   float64 `json:"area_sq_mi"`
}

// Entry is one ranked row.
type Entry struct {
	Rank       int     `json:"rank"`
	TeamID     string  `json:"team_id"`
	TeamName   string  `json:"team_name"`
	ShortName  string  `json:"short_name,omitempty"`
	FullName   string  `json:"full_name,omitempty"`
	Conference string  `json:"conference,omitempty"`
	LogoURL    string  `json:"logo_url,omitempty"`
	Value      float64 `json:"value"`
	Metrics    Metrics `json:"metrics"`
}

// Totals summarise the week.
type Totals struct {
	TrackedTeams       int `json:"tracked_teams"`
	RegionCount        int `json:"region_count"`
	Transfers          int `json:"transfers"`
	RegionsTransferred int `json:"regions_transferred"`
}

// Payload is the full set of boards for one week.
type Payload struct {
	Season      int               `json:"season"`
	Week        model.WeekRef     `json:"week"`
	GeneratedAt time.Time         `json:"generated_at"`
	Boards      map[Board][]Entry `json:"boards"`
	Totals      Totals            `json:"totals"`
}

// Input is everything Compute needs. Ledger must hold only the entries of
// Week; gained and lost boards are built from it rather than by diffing
// snapshots.
type Input struct {
	Week     model.WeekRef
	Snapshot model.Snapshot
	Teams    []model.Team
	Stats    map[string]model.RegionStats
	Ledger   []model.TransferRecord
	// TopN limits each board; 0 keeps every entry.
	TopN int
	Now  time.Time
}

type raw struct {
	regions    int
	population float64
	area       float64
}

func (r *raw) add(s model.RegionStats) {
	r.regions++
	r.population += nonNegative(s.Population)
	r.area += nonNegative(s.AreaSqMi)
}

func (r raw) metrics() Metrics {
	return Metrics{
		Regions:    r.regions,
		Population: int64(math.Round(r.population)),
		AreaSqMi:   round2(r.area),
	}
}

// Compute builds every board. A team whose primary metric is zero is left off
// that board only. Missing stats count as zero.
func Compute(in Input) Payload {
	owned := make(map[string]*raw)
	for region, team := range in.Snapshot.Owners {
		r, ok := owned[team]
		if !ok {
			r = &raw{}
			owned[team] = r
		}
		r.add(in.Stats[region])
	}

	gained := make(map[string]*raw)
	lost := make(map[string]*raw)
	totals := Totals{RegionCount: len(in.Snapshot.Owners)}
	for _, rec := range in.Ledger {
		if rec.WinnerID == "" || rec.LoserID == "" {
			continue
		}
		totals.Transfers++
		for _, region := range rec.Regions {
			s := in.Stats[region]
			bucket(gained, rec.WinnerID).add(s)
			bucket(lost, rec.LoserID).add(s)
			totals.RegionsTransferred++
		}
	}

	teams := make(map[string]model.Team, len(in.Teams))
	for _, t := range in.Teams {
		teams[t.ID] = t
	}
	totals.TrackedTeams = len(owned)

	week := in.Week
	if week == (model.WeekRef{}) {
		week = in.Snapshot.Week
	}
	boards := map[Board][]Entry{
		TerritoryOwned:       rank(entries(owned, teams, areaOf), in.TopN),
		PopulationControlled: rank(entries(owned, teams, populationOf), in.TopN),
		RegionsOwned:         rank(entries(owned, teams, regionsOf), in.TopN),
		TerritoryGained:      rank(entries(gained, teams, regionsOf), in.TopN),
		TerritoryLost:        rank(entries(lost, teams, regionsOf), in.TopN),
	}
	return Payload{
		Season:      week.Season,
		Week:        week,
		GeneratedAt: in.Now,
		Boards:      boards,
		Totals:      totals,
	}
}

func bucket(m map[string]*raw, team string) *raw {
	r, ok := m[team]
	if !ok {
		r = &raw{}
		m[team] = r
	}
	return r
}

func areaOf(m Metrics) float64       { return m.AreaSqMi }
func populationOf(m Metrics) float64 { return float64(m.Population) }
func regionsOf(m Metrics) float64    { return float64(m.Regions) }

func entries(agg map[string]*raw, teams map[string]model.Team, primary func(Metrics) float64) []Entry {
	out := make([]Entry, 0, len(agg))
	for id, r := range agg {
		m := r.metrics()
		v := primary(m)
		if v <= 0 {
			continue
		}
		t, ok := teams[id]
		if !ok {
			t = model.Team{ID: id}
		}
		out = append(out, Entry{
			TeamID:     id,
			TeamName:   t.DisplayName(),
			ShortName:  t.ShortName,
			FullName:   t.FullName,
			Conference: t.Conference,
			LogoURL:    t.LogoURL,
			Value:      v,
			Metrics:    m,
		})
	}
	return out
}

// Closure sums regions over the gained and lost boards. The sums are equal for
// any untruncated payload.
func Closure(p Payload) (gained, lost int) {
	for _, e := range p.Boards[TerritoryGained] {
		gained += e.Metrics.Regions
	}
	for _, e := range p.Boards[TerritoryLost] {
		lost += e.Metrics.Regions
	}
	return gained, lost
}

func nonNegative(v float64) float64 {
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

// Limit returns a copy of p with every board cut to its first n entries.
// n <= 0 returns p unchanged.
func (p Payload) Limit(n int) Payload {
	if n <= 0 {
		return p
	}
	boards := make(map[Board][]Entry, len(p.Boards))
	for b, entries := range p.Boards {
		if len(entries) > n {
			entries = entries[:n]
		}
		boards[b] = append([]Entry(nil), entries...)
	}
	p.Boards = boards
	return p
}
