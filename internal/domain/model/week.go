package model

import "fmt"

// Season types.
const (
	SeasonTypeBaseline   = "baseline"
	SeasonTypeRegular    = "regular"
	SeasonTypePostseason = "postseason"
)

// WeekRef identifies one step of the snapshot chain. WeekIndex is the
// chronological position within the season; week 0 is the baseline.
type WeekRef struct {
	Season     int    `json:"season"`
	WeekIndex  int    `json:"week_index"`
	Week       int    `json:"week"`
	SeasonType string `json:"season_type"`
	Label      string `json:"label,omitempty"`
}

// BaselineWeek returns the week-0 reference for a season.
func BaselineWeek(season int) WeekRef {
	return WeekRef{
		Season:     season,
		SeasonType: SeasonTypeBaseline,
		Label:      fmt.Sprintf("%d Baseline (Preseason)", season),
	}
}

// IsBaseline reports whether w is the week-0 reference.
func (w WeekRef) IsBaseline() bool { return w.WeekIndex == 0 }

// Before orders week references chronologically.
func (w WeekRef) Before(o WeekRef) bool {
	if w.Season != o.Season {
		return w.Season < o.Season
	}
	return w.WeekIndex < o.WeekIndex
}

func (w WeekRef) String() string {
	if w.Label != "" {
		return w.Label
	}
	return fmt.Sprintf("%d week-%02d", w.Season, w.WeekIndex)
}
