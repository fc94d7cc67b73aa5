package leaderboard

import "sort"

// rank orders entries by value, population, regions (all descending) and
// then team id, assigns ranks and truncates to topN when positive.
func rank(entries []Entry, topN int) []Entry {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Value != b.Value {
			return a.Value > b.Value
		}
		if a.Metrics.Population != b.Metrics.Population {
			return a.Metrics.Population > b.Metrics.Population
		}
		if a.Metrics.Regions != b.Metrics.Regions {
			return a.Metrics.Regions > b.Metrics.Regions
		}
		return a.TeamID < b.TeamID
	})
	assignRanksWithTies(entries)
	if topN > 0 && len(entries) > topN {
		entries = entries[:topN]
	}
	return entries
}

// assignRanksWithTies gives entries with an equal primary value the same rank
// and the next distinct value the following rank (dense ranking). entries must
// already be sorted.
func assignRanksWithTies(entries []Entry) {
	current := 0
	for i := range entries {
		if i == 0 || entries[i].Value != entries[i-1].Value {
			current++
		}
		entries[i].Rank = current
	}
}
