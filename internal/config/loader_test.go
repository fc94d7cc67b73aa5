package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/territory/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		convey.Reset(clearConfigEnvVars)

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.DBPath, convey.ShouldEqual, "territory.db")
				convey.So(cfg.OnMissingWeek, convey.ShouldEqual, config.OnMissingSkip)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("TERRITORY_ADDR", ":8080")
			_ = os.Setenv("TERRITORY_DB_PATH", "/tmp/t.db")
			_ = os.Setenv("TERRITORY_SEASON", "2024")
			_ = os.Setenv("TERRITORY_TOP_ENTRIES", "25")
			_ = os.Setenv("TERRITORY_ON_MISSING_WEEK", "abort")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.DBPath, convey.ShouldEqual, "/tmp/t.db")
				convey.So(cfg.Season, convey.ShouldEqual, 2024)
				convey.So(cfg.TopEntries, convey.ShouldEqual, 25)
				convey.So(cfg.OnMissingWeek, convey.ShouldEqual, config.OnMissingAbort)
			})
		})

		convey.Convey("When loading config with a YAML file", func() {
			path := createTempConfigFile(t, `
# reference data
regions_path: counties.geojson
teams_path: team_locs.csv
season: 2023
outlying_clusters: ["02=alaska"]
excluded_clusters: ["72", "78"]
max_leaderboard_limit: 50
`)
			_ = os.Setenv("TERRITORY_CONFIG", path)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from the file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.RegionsPath, convey.ShouldEqual, "counties.geojson")
				convey.So(cfg.TeamsPath, convey.ShouldEqual, "team_locs.csv")
				convey.So(cfg.Season, convey.ShouldEqual, 2023)
				convey.So(cfg.OutlyingClusters, convey.ShouldResemble, []string{"02=alaska"})
				convey.So(cfg.ExcludedClusters, convey.ShouldResemble, []string{"72", "78"})
				convey.So(cfg.MaxLeaderboardLimit, convey.ShouldEqual, 50)
			})

			convey.Convey("And env vars are also set", func() {
				_ = os.Setenv("TERRITORY_SEASON", "2025")
				cfg, err := config.Load(ctx)

				convey.Convey("Then env should take precedence over the file", func() {
					convey.So(err, convey.ShouldBeNil)
					convey.So(cfg.Season, convey.ShouldEqual, 2025)
					convey.So(cfg.RegionsPath, convey.ShouldEqual, "counties.geojson")
				})
			})
		})

		convey.Convey("When the config file does not exist", func() {
			_ = os.Setenv("TERRITORY_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should fail to load", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldStartWith, "load territory config: TERRITORY_CONFIG=")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the file leaves addr empty", func() {
			path := createTempConfigFile(t, "addr: \"\"\n")
			_ = os.Setenv("TERRITORY_CONFIG", path)
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the missing-week policy is unknown", func() {
			_ = os.Setenv("TERRITORY_ON_MISSING_WEEK", "later")
			_, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"TERRITORY_CONFIG",
		"TERRITORY_ADDR",
		"TERRITORY_DB_PATH",
		"TERRITORY_SEASON",
		"TERRITORY_TOP_ENTRIES",
		"TERRITORY_ON_MISSING_WEEK",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "territory.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
