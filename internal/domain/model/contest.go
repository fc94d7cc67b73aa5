package model

import (
	"strings"
	"time"
)

// ContestResult is the single normalised shape of one contest outcome.
// Winner and loser ids take precedence; when either is absent the outcome is
// derived from home and away scores.
type ContestResult struct {
	ContestID string    `json:"contest_id"`
	Season    int       `json:"season,omitempty"`
	WeekIndex int       `json:"week_index,omitempty"`
	PlayedAt  time.Time `json:"played_at"`
	Status    string    `json:"status,omitempty"`
	Completed bool      `json:"completed"`

	WinnerID string `json:"winner_id,omitempty"`
	LoserID  string `json:"loser_id,omitempty"`

	HomeID    string `json:"home_id,omitempty"`
	AwayID    string `json:"away_id,omitempty"`
	HomeScore *int   `json:"home_score,omitempty"`
	AwayScore *int   `json:"away_score,omitempty"`
}

// Outcome is a decided contest.
type Outcome struct {
	Winner string
	Loser  string
}

// IsComplete reports whether the contest is marked finished.
func (c ContestResult) IsComplete() bool {
	if c.Completed {
		return true
	}
	switch strings.ToLower(strings.TrimSpace(c.Status)) {
	case "final", "completed":
		return true
	}
	return false
}

// Outcome resolves winner and loser. The returned error is one of
// ErrIncomplete, ErrUndetermined, ErrTie or ErrSelfContest.
func (c ContestResult) Outcome() (Outcome, error) {
	if !c.IsComplete() {
		return Outcome{}, ErrIncomplete
	}

	o := Outcome{Winner: c.WinnerID, Loser: c.LoserID}
	if o.Winner == "" || o.Loser == "" {
		if c.HomeID == "" || c.AwayID == "" || c.HomeScore == nil || c.AwayScore == nil {
			return Outcome{}, ErrUndetermined
		}
		switch {
		case *c.HomeScore == *c.AwayScore:
			return Outcome{}, ErrTie
		case *c.HomeScore > *c.AwayScore:
			o = Outcome{Winner: c.HomeID, Loser: c.AwayID}
		default:
			o = Outcome{Winner: c.AwayID, Loser: c.HomeID}
		}
	}

	if o.Winner == o.Loser {
		return Outcome{}, ErrSelfContest
	}
	return o, nil
}
