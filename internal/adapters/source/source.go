// Package source loads reference data from files: the region dataset, the
// team table and the weekly contest feeds.
package source

import (
	"context"
	"fmt"
	"os"

	"github.com/okian/territory/internal/domain/model"
	"github.com/okian/territory/pkg/logger"
)

// Properties names the GeoJSON feature properties a region is read from.
type Properties struct {
	ID         string
	Name       string
	Area       string
	Population string
	Cluster    string
}

// DefaultProperties match the US Census county boundary files.
func DefaultProperties() Properties {
	return Properties{
		ID:         "GEOID",
		Name:       "NAME",
		Area:       "CENSUSAREA",
		Population: "POPULATION",
		Cluster:    "STATE",
	}
}

// Files reads reference data from the local filesystem.
type Files struct {
	regionsPath string
	statsPath   string
	teamsPath   string
	contestsDir string
	props       Properties
	log         logger.Logger
}

// New returns a file-backed source.
func New(opts ...Option) *Files {
	f := &Files{props: DefaultProperties(), log: logger.Nop()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Regions loads the region dataset and applies the stats overlay when one is
// configured.
func (f *Files) Regions(ctx context.Context) ([]model.Region, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := readFile(f.regionsPath, "regions")
	if err != nil {
		return nil, err
	}
	regions, err := ParseRegions(raw, f.props)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.regionsPath, err)
	}
	if f.statsPath != "" {
		rawStats, err := readFile(f.statsPath, "region stats")
		if err != nil {
			return nil, err
		}
		stats, err := ParseStats(rawStats)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.statsPath, err)
		}
		missing := ApplyStats(regions, stats)
		if missing > 0 {
			f.log.Warn(ctx, "regions without stats default to zero",
				logger.Int("missing", missing), logger.String("path", f.statsPath))
		}
	}
	f.log.Info(ctx, "regions loaded", logger.Int("count", len(regions)), logger.String("path", f.regionsPath))
	return regions, nil
}

// Teams loads the team table; the format follows the file extension.
func (f *Files) Teams(ctx context.Context) ([]model.Team, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := readFile(f.teamsPath, "teams")
	if err != nil {
		return nil, err
	}
	teams, err := ParseTeams(f.teamsPath, raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.teamsPath, err)
	}
	f.log.Info(ctx, "teams loaded", logger.Int("count", len(teams)), logger.String("path", f.teamsPath))
	return teams, nil
}

func readFile(path, what string) ([]byte, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: no %s path configured", model.ErrMissingData, what)
	}
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s file %s", model.ErrMissingData, what, path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", what, err)
	}
	return raw, nil
}
