package config_test

import (
	"errors"
	"testing"

	"github.com/okian/territory/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.OnMissingWeek, convey.ShouldEqual, config.OnMissingSkip)
			convey.So(cfg.MaxLeaderboardLimit, convey.ShouldEqual, 100)
			convey.So(cfg.PrimaryCluster, convey.ShouldEqual, "mainland")
			convey.So(cfg.ExcludedClusters, convey.ShouldResemble, []string{"72"})
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("Then the outlying clusters should parse", func() {
			outlying, err := cfg.Outlying()
			convey.So(err, convey.ShouldBeNil)
			convey.So(outlying, convey.ShouldResemble, map[string]string{"02": "alaska", "15": "hawaii"})
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given configs with invalid values", t, func() {
		cases := map[string]func(*config.Config){
			"empty addr":     func(c *config.Config) { c.Addr = " " },
			"log format":     func(c *config.Config) { c.LogFormat = "xml" },
			"missing policy": func(c *config.Config) { c.OnMissingWeek = "retry" },
			"negative top":   func(c *config.Config) { c.TopEntries = -1 },
			"zero limit":     func(c *config.Config) { c.MaxLeaderboardLimit = 0 },
			"outlying pair":  func(c *config.Config) { c.OutlyingClusters = []string{"02="} },
		}

		for name, mutate := range cases {
			cfg := config.New()
			mutate(cfg)

			convey.Convey("Then "+name+" should be rejected as invalid config", func() {
				err := cfg.Validate()
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		}

		convey.Convey("Then a bare outlying code should key itself", func() {
			cfg := config.New()
			cfg.OutlyingClusters = []string{"60", " 66 = guam "}
			outlying, err := cfg.Outlying()
			convey.So(err, convey.ShouldBeNil)
			convey.So(outlying, convey.ShouldResemble, map[string]string{"60": "60", "66": "guam"})
		})
	})
}
