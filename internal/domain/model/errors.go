package model

import "errors"

// Fatal data errors. Any of these aborts a run.
var (
	ErrCoverage        = errors.New("snapshot coverage violated")
	ErrMissingHome     = errors.New("team has no home location")
	ErrDuplicateRegion = errors.New("duplicate region id")
	ErrDuplicateTeam   = errors.New("duplicate team id")
)

// ErrMissingData marks absent collaborator data (a week's feed, a stored
// snapshot). Callers decide whether to skip or abort.
var ErrMissingData = errors.New("missing data")

// Contest normalisation errors. A contest failing with one of these is
// skipped and counted, never fatal.
var (
	ErrIncomplete   = errors.New("contest not completed")
	ErrUndetermined = errors.New("winner or loser cannot be determined")
	ErrTie          = errors.New("contest ended in a tie")
	ErrSelfContest  = errors.New("winner equals loser")
)
