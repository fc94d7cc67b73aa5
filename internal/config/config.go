// Package config defines process configuration and its loading hooks.
//
// Conventions:
// - Provide New(...) to build a Config with defaults.
// - Validation failures wrap ErrInvalidConfig; source failures wrap ErrLoadConfig.
package config

import (
	"fmt"
	"strings"
)

// Missing-week policies for season advances.
const (
	OnMissingSkip  = "skip"
	OnMissingAbort = "abort"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects text or json log output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// DBPath is the SQLite database file.
	DBPath string `koanf:"db_path"`

	// Reference data.
	RegionsPath     string `koanf:"regions_path"`
	RegionStatsPath string `koanf:"region_stats_path"`
	TeamsPath       string `koanf:"teams_path"`
	ContestsDir     string `koanf:"contests_dir"`

	// Season is the default season for batch commands.
	Season int `koanf:"season"`

	// GeoJSON feature properties read for each region.
	RegionIDProperty   string `koanf:"region_id_property"`
	NameProperty       string `koanf:"name_property"`
	AreaProperty       string `koanf:"area_property"`
	PopulationProperty string `koanf:"population_property"`
	ClusterProperty    string `koanf:"cluster_property"`

	// Marker cluster partitioning. OutlyingClusters holds code=key pairs.
	PrimaryCluster   string   `koanf:"primary_cluster"`
	OutlyingClusters []string `koanf:"outlying_clusters"`
	ExcludedClusters []string `koanf:"excluded_clusters"`

	// TopEntries truncates stored boards; 0 keeps every team.
	TopEntries int `koanf:"top_entries"`

	// MaxLeaderboardLimit caps GET /leaderboards/{season}/{week}?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// OnMissingWeek is the season advance policy for a week without a feed.
	OnMissingWeek string `koanf:"on_missing_week"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		DBPath:              "territory.db",
		RegionsPath:         "data/regions.geojson",
		TeamsPath:           "data/teams.yaml",
		ContestsDir:         "data/contests",
		RegionIDProperty:    "GEOID",
		NameProperty:        "NAME",
		AreaProperty:        "CENSUSAREA",
		PopulationProperty:  "POPULATION",
		ClusterProperty:     "STATE",
		PrimaryCluster:      "mainland",
		OutlyingClusters:    []string{"02=alaska", "15=hawaii"},
		ExcludedClusters:    []string{"72"},
		MaxLeaderboardLimit: 100,
		OnMissingWeek:       OnMissingSkip,
	}
}

// Outlying parses OutlyingClusters into a code to cluster key map. A bare
// code uses itself as the key.
func (c *Config) Outlying() (map[string]string, error) {
	out := make(map[string]string, len(c.OutlyingClusters))
	for _, pair := range c.OutlyingClusters {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		code, key, found := strings.Cut(pair, "=")
		code = strings.TrimSpace(code)
		key = strings.TrimSpace(key)
		if code == "" || (found && key == "") {
			return nil, fmt.Errorf("%w: outlying cluster %q", ErrInvalidConfig, pair)
		}
		if !found {
			key = code
		}
		out[code] = key
	}
	return out, nil
}

// Validate checks the configuration for values no command can run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log_format must be text or json, got %q", ErrInvalidConfig, c.LogFormat)
	}
	switch c.OnMissingWeek {
	case OnMissingSkip, OnMissingAbort:
	default:
		return fmt.Errorf("%w: on_missing_week must be skip or abort, got %q", ErrInvalidConfig, c.OnMissingWeek)
	}
	if c.TopEntries < 0 {
		return fmt.Errorf("%w: top_entries must not be negative", ErrInvalidConfig)
	}
	if c.MaxLeaderboardLimit <= 0 {
		return fmt.Errorf("%w: max_leaderboard_limit must be positive", ErrInvalidConfig)
	}
	if _, err := c.Outlying(); err != nil {
		return err
	}
	return nil
}
