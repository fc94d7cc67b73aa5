package service

import "errors"

// Sentinel error kinds for orchestration.
var (
	ErrNoSource    = errors.New("no reference data source configured")
	ErrNoBaseline  = errors.New("season has no baseline")
	ErrInvalidWeek = errors.New("invalid week")
	ErrMissingFeed = errors.New("week has no contest feed")
)
