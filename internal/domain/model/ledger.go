package model

import "time"

// TransferRecord is one immutable ledger entry: the exact set of regions a
// single contest moved from loser to winner.
type TransferRecord struct {
	ID            string    `json:"id"`
	Season        int       `json:"season"`
	WeekIndex     int       `json:"week_index"`
	Week          int       `json:"week"`
	SeasonType    string    `json:"season_type"`
	ContestID     string    `json:"contest_id"`
	WinnerID      string    `json:"winner_id"`
	LoserID       string    `json:"loser_id"`
	TransferCount int       `json:"transfer_count"`
	Regions       []string  `json:"regions"`
	CompletedAt   time.Time `json:"completed_at"`
}

// ContestIDs lists the contest ids recorded in a ledger.
func ContestIDs(ledger []TransferRecord) []string {
	out := make([]string, 0, len(ledger))
	for _, rec := range ledger {
		out = append(out, rec.ContestID)
	}
	return out
}
