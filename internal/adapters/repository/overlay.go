package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/okian/territory/internal/domain/centroid"
	"github.com/okian/territory/internal/domain/leaderboard"
	"github.com/okian/territory/internal/domain/model"
)

// Overlay layers an in-memory store over a base store. Commits land in memory
// only; reads see the union with overlay rows taking precedence. Dry runs use
// it to chain several weeks without touching the base.
type Overlay struct {
	base    Store
	top     *MemoryStore
	seasons map[int]struct{}
}

var _ Store = (*Overlay)(nil)

// NewOverlay wraps base.
func NewOverlay(base Store, opts ...Option) *Overlay {
	return &Overlay{base: base, top: NewMemoryStore(opts...), seasons: make(map[int]struct{})}
}

// CommitBaseline implements Store.
func (o *Overlay) CommitBaseline(ctx context.Context, b Baseline) error {
	season := b.Snapshot.Week.Season
	if _, err := o.base.Snapshot(ctx, season, 0); err == nil {
		return fmt.Errorf("%w: baseline for season %d", ErrAlreadyExists, season)
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	if err := o.top.CommitBaseline(ctx, b); err != nil {
		return err
	}
	o.seasons[season] = struct{}{}
	return nil
}

// CommitWeek implements Store.
func (o *Overlay) CommitWeek(ctx context.Context, c WeekCommit) error {
	w := c.Snapshot.Week
	if _, err := o.base.Snapshot(ctx, w.Season, w.WeekIndex); err == nil {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, w)
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	if err := o.top.CommitWeek(ctx, c); err != nil {
		return err
	}
	o.seasons[w.Season] = struct{}{}
	return nil
}

// ReplaceDerived implements Store. Weeks that exist only in the base are
// left untouched.
func (o *Overlay) ReplaceDerived(ctx context.Context, week model.WeekRef, lb leaderboard.Payload, markers []centroid.Marker) error {
	err := o.top.ReplaceDerived(ctx, week, lb, markers)
	if !errors.Is(err, ErrNotFound) {
		return err
	}
	_, err = o.base.Snapshot(ctx, week.Season, week.WeekIndex)
	return err
}

// Weeks implements Store.
func (o *Overlay) Weeks(ctx context.Context, season int) ([]WeekRecord, error) {
	base, err := o.base.Weeks(ctx, season)
	if err != nil {
		return nil, err
	}
	top, err := o.top.Weeks(ctx, season)
	if err != nil {
		return nil, err
	}
	out := append(base, top...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Week.WeekIndex < out[j].Week.WeekIndex })
	return out, nil
}

// LatestWeek implements Store.
func (o *Overlay) LatestWeek(ctx context.Context, season int) (model.WeekRef, error) {
	top, topErr := o.top.LatestWeek(ctx, season)
	base, baseErr := o.base.LatestWeek(ctx, season)
	return later(top, topErr, base, baseErr, func(w model.WeekRef) model.WeekRef { return w })
}

// Snapshot implements Store.
func (o *Overlay) Snapshot(ctx context.Context, season, weekIndex int) (model.Snapshot, error) {
	snap, err := o.top.Snapshot(ctx, season, weekIndex)
	if errors.Is(err, ErrNotFound) {
		return o.base.Snapshot(ctx, season, weekIndex)
	}
	return snap, err
}

// SnapshotBefore implements Store.
func (o *Overlay) SnapshotBefore(ctx context.Context, season, weekIndex int) (model.Snapshot, error) {
	top, topErr := o.top.SnapshotBefore(ctx, season, weekIndex)
	base, baseErr := o.base.SnapshotBefore(ctx, season, weekIndex)
	return later(top, topErr, base, baseErr, func(s model.Snapshot) model.WeekRef { return s.Week })
}

// Transfers implements Store.
func (o *Overlay) Transfers(ctx context.Context, season, weekIndex int) ([]model.TransferRecord, error) {
	base, err := o.base.Transfers(ctx, season, weekIndex)
	if err != nil {
		return nil, err
	}
	top, err := o.top.Transfers(ctx, season, weekIndex)
	if err != nil {
		return nil, err
	}
	return append(base, top...), nil
}

// ProcessedContests implements Store.
func (o *Overlay) ProcessedContests(ctx context.Context, season int) ([]string, error) {
	base, err := o.base.ProcessedContests(ctx, season)
	if err != nil {
		return nil, err
	}
	top, err := o.top.ProcessedContests(ctx, season)
	if err != nil {
		return nil, err
	}
	out := append(base, top...)
	sort.Strings(out)
	return out, nil
}

// Clusters implements Store.
func (o *Overlay) Clusters(ctx context.Context, season int) ([]centroid.Cluster, error) {
	c, err := o.top.Clusters(ctx, season)
	if errors.Is(err, ErrNotFound) {
		return o.base.Clusters(ctx, season)
	}
	return c, err
}

// Leaderboard implements Store.
func (o *Overlay) Leaderboard(ctx context.Context, season, weekIndex int) (leaderboard.Payload, error) {
	p, err := o.top.Leaderboard(ctx, season, weekIndex)
	if errors.Is(err, ErrNotFound) {
		return o.base.Leaderboard(ctx, season, weekIndex)
	}
	return p, err
}

// LatestLeaderboard implements Store.
func (o *Overlay) LatestLeaderboard(ctx context.Context) (leaderboard.Payload, error) {
	top, topErr := o.top.LatestLeaderboard(ctx)
	base, baseErr := o.base.LatestLeaderboard(ctx)
	return later(top, topErr, base, baseErr, func(p leaderboard.Payload) model.WeekRef { return p.Week })
}

// Markers implements Store.
func (o *Overlay) Markers(ctx context.Context, season, weekIndex int) ([]centroid.Marker, error) {
	m, err := o.top.Markers(ctx, season, weekIndex)
	if errors.Is(err, ErrNotFound) {
		return o.base.Markers(ctx, season, weekIndex)
	}
	return m, err
}

// Stats implements Store.
func (o *Overlay) Stats(ctx context.Context) (Stats, error) {
	base, err := o.base.Stats(ctx)
	if err != nil {
		return Stats{}, err
	}
	top, err := o.top.Stats(ctx)
	if err != nil {
		return Stats{}, err
	}
	st := Stats{
		Seasons:   base.Seasons,
		Weeks:     base.Weeks + top.Weeks,
		Transfers: base.Transfers + top.Transfers,
		Latest:    base.Latest,
	}
	for season := range o.seasons {
		if _, err := o.base.LatestWeek(ctx, season); errors.Is(err, ErrNotFound) {
			st.Seasons++
		}
	}
	if top.Latest != nil && (st.Latest == nil || st.Latest.Before(*top.Latest)) {
		st.Latest = top.Latest
	}
	return st, nil
}

// Close closes the base store.
func (o *Overlay) Close() error {
	_ = o.top.Close()
	return o.base.Close()
}

// later picks whichever of two lookups refers to the later week. Not-found on
// one side defers to the other.
func later[T any](top T, topErr error, base T, baseErr error, week func(T) model.WeekRef) (T, error) {
	switch {
	case topErr != nil && !errors.Is(topErr, ErrNotFound):
		return top, topErr
	case baseErr != nil && !errors.Is(baseErr, ErrNotFound):
		return base, baseErr
	case topErr != nil:
		return base, baseErr
	case baseErr != nil:
		return top, nil
	case week(base).Before(week(top)):
		return top, nil
	default:
		return base, nil
	}
}
