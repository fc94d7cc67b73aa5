package source

import "github.com/okian/territory/pkg/logger"

// Option configures a Files source.
type Option func(*Files)

// WithRegionsPath sets the GeoJSON region dataset.
func WithRegionsPath(path string) Option {
	return func(f *Files) { f.regionsPath = path }
}

// WithStatsPath sets an optional per-region stats overlay.
func WithStatsPath(path string) Option {
	return func(f *Files) { f.statsPath = path }
}

// WithTeamsPath sets the team table (.yaml, .yml, .json or .csv).
func WithTeamsPath(path string) Option {
	return func(f *Files) { f.teamsPath = path }
}

// WithContestsDir sets the root of the per-season contest feeds.
func WithContestsDir(dir string) Option {
	return func(f *Files) { f.contestsDir = dir }
}

// WithProperties names the GeoJSON feature properties read for each region.
// Empty names keep the defaults.
func WithProperties(p Properties) Option {
	return func(f *Files) {
		if p.ID != "" {
			f.props.ID = p.ID
		}
		if p.Name != "" {
			f.props.Name = p.Name
		}
		if p.Area != "" {
			f.props.Area = p.Area
		}
		if p.Population != "" {
			f.props.Population = p.Population
		}
		if p.Cluster != "" {
			f.props.Cluster = p.Cluster
		}
	}
}

// WithLogger sets the source logger.
func WithLogger(l logger.Logger) Option {
	return func(f *Files) {
		if l != nil {
			f.log = l
		}
	}
}
