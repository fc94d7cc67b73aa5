package repository_test

import (
	"context"
	"errors"
	"testing"

	"github.com/okian/territory/internal/adapters/repository"
	"github.com/okian/territory/internal/adapters/repository/storetest"
	"github.com/okian/territory/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestOverlayOverEmptyBase(t *testing.T) {
	storetest.Run(t, func(*testing.T) repository.Store {
		return repository.NewOverlay(repository.NewMemoryStore())
	})
}

func TestOverlay(t *testing.T) {
	ctx := context.Background()

	Convey("Given a base store holding a baseline", t, func() {
		base := repository.NewMemoryStore()
		baseline := repository.Baseline{Snapshot: model.Snapshot{
			Week:   model.BaselineWeek(2024),
			Owners: map[string]string{"r1": "a", "r2": "b"},
		}}
		So(base.CommitBaseline(ctx, baseline), ShouldBeNil)
		overlay := repository.NewOverlay(base)

		Convey("When a week is committed through the overlay", func() {
			w := model.WeekRef{Season: 2024, WeekIndex: 1, Week: 1, SeasonType: model.SeasonTypeRegular}
			err := overlay.CommitWeek(ctx, repository.WeekCommit{
				Snapshot:  model.Snapshot{Week: w, Owners: map[string]string{"r1": "a", "r2": "a"}},
				Processed: []string{"g1"},
			})
			So(err, ShouldBeNil)

			Convey("Then the overlay should see it and the base should not", func() {
				latest, err := overlay.LatestWeek(ctx, 2024)
				So(err, ShouldBeNil)
				So(latest.WeekIndex, ShouldEqual, 1)

				_, err = base.Snapshot(ctx, 2024, 1)
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)

				prior, err := overlay.SnapshotBefore(ctx, 2024, 2)
				So(err, ShouldBeNil)
				So(prior.Owners["r2"], ShouldEqual, "a")

				weeks, err := overlay.Weeks(ctx, 2024)
				So(err, ShouldBeNil)
				So(weeks, ShouldHaveLength, 2)

				st, err := overlay.Stats(ctx)
				So(err, ShouldBeNil)
				So(st.Seasons, ShouldEqual, 1)
				So(st.Weeks, ShouldEqual, 2)
			})
		})

		Convey("When the baseline is committed again through the overlay", func() {
			err := overlay.CommitBaseline(ctx, baseline)

			Convey("Then the base copy should make it a duplicate", func() {
				So(errors.Is(err, repository.ErrAlreadyExists), ShouldBeTrue)
			})
		})
	})
}
