package assignment

import "github.com/okian/territory/pkg/logger"

// Option configures AssignBaseline.
type Option func(*assigner)

// WithSeason tags the produced snapshot with season.
func WithSeason(season int) Option {
	return func(a *assigner) {
		a.season = season
	}
}

// WithLabel overrides the baseline week label.
func WithLabel(label string) Option {
	return func(a *assigner) {
		if label != "" {
			a.label = label
		}
	}
}

// WithLogger sets the logger used to report assignment progress.
func WithLogger(l logger.Logger) Option {
	return func(a *assigner) {
		if l != nil {
			a.log = l
		}
	}
}
