package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/okian/territory/internal/domain/centroid"
	"github.com/okian/territory/internal/domain/leaderboard"
	"github.com/okian/territory/internal/domain/model"
)

type weekKey struct {
	season    int
	weekIndex int
}

type memoryWeek struct {
	record      WeekRecord
	snapshot    model.Snapshot
	transfers   []model.TransferRecord
	processed   []string
	leaderboard leaderboard.Payload
	markers     []centroid.Marker
}

// MemoryStore keeps the snapshot chain in process memory. It backs tests and
// dry runs; everything it hands out is a deep copy.
type MemoryStore struct {
	mu       sync.RWMutex
	weeks    map[weekKey]*memoryWeek
	clusters map[int][]centroid.Cluster
	contests map[int]map[string]struct{}
	closed   bool
	now      func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		weeks:    make(map[weekKey]*memoryWeek),
		clusters: make(map[int][]centroid.Cluster),
		contests: make(map[int]map[string]struct{}),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CommitBaseline implements Store.
func (s *MemoryStore) CommitBaseline(ctx context.Context, b Baseline) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	week := b.Snapshot.Week
	if !week.IsBaseline() {
		return fmt.Errorf("%w: baseline must be week 0, got %d", ErrInvalidWeek, week.WeekIndex)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	key := weekKey{week.Season, 0}
	if _, ok := s.weeks[key]; ok {
		return fmt.Errorf("%w: baseline for season %d", ErrAlreadyExists, week.Season)
	}

	var clusters []centroid.Cluster
	if err := deepCopy(b.Clusters, &clusters); err != nil {
		return err
	}
	w := &memoryWeek{
		record:   WeekRecord{Week: week, CommittedAt: s.now().UTC()},
		snapshot: b.Snapshot.Clone(week),
	}
	if err := deepCopy(b.Leaderboard, &w.leaderboard); err != nil {
		return err
	}
	if err := deepCopy(b.Markers, &w.markers); err != nil {
		return err
	}
	s.weeks[key] = w
	s.clusters[week.Season] = clusters
	return nil
}

// CommitWeek implements Store.
func (s *MemoryStore) CommitWeek(ctx context.Context, c WeekCommit) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	week := c.Snapshot.Week
	if week.WeekIndex <= 0 {
		return fmt.Errorf("%w: weekly commit needs a positive index, got %d", ErrInvalidWeek, week.WeekIndex)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	key := weekKey{week.Season, week.WeekIndex}
	if _, ok := s.weeks[key]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, week)
	}
	seen := s.contests[week.Season]
	batch := make(map[string]struct{}, len(c.Processed))
	for _, id := range c.Processed {
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: contest %s in season %d", ErrAlreadyExists, id, week.Season)
		}
		batch[id] = struct{}{}
	}
	for _, rec := range c.Transfers {
		if _, dup := seen[rec.ContestID]; dup {
			return fmt.Errorf("%w: contest %s in season %d", ErrAlreadyExists, rec.ContestID, week.Season)
		}
		batch[rec.ContestID] = struct{}{}
	}

	w := &memoryWeek{
		record:   WeekRecord{Week: week, Summary: c.Summary, CommittedAt: s.now().UTC()},
		snapshot: c.Snapshot.Clone(week),
	}
	if err := deepCopy(c.Transfers, &w.transfers); err != nil {
		return err
	}
	w.processed = append([]string(nil), c.Processed...)
	if err := deepCopy(c.Leaderboard, &w.leaderboard); err != nil {
		return err
	}
	if err := deepCopy(c.Markers, &w.markers); err != nil {
		return err
	}

	if seen == nil {
		seen = make(map[string]struct{}, len(batch))
		s.contests[week.Season] = seen
	}
	for id := range batch {
		seen[id] = struct{}{}
	}
	s.weeks[key] = w
	return nil
}

// ReplaceDerived implements Store.
func (s *MemoryStore) ReplaceDerived(ctx context.Context, week model.WeekRef, lb leaderboard.Payload, markers []centroid.Marker) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.weeks[weekKey{week.Season, week.WeekIndex}]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, week)
	}
	var (
		nextLB      leaderboard.Payload
		nextMarkers []centroid.Marker
	)
	if err := deepCopy(lb, &nextLB); err != nil {
		return err
	}
	if err := deepCopy(markers, &nextMarkers); err != nil {
		return err
	}
	w.leaderboard = nextLB
	w.markers = nextMarkers
	return nil
}

// Weeks implements Store.
func (s *MemoryStore) Weeks(ctx context.Context, season int) ([]WeekRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]WeekRecord, 0)
	for _, k := range s.seasonKeys(season) {
		var rec WeekRecord
		if err := deepCopy(s.weeks[k].record, &rec); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// LatestWeek implements Store.
func (s *MemoryStore) LatestWeek(ctx context.Context, season int) (model.WeekRef, error) {
	if err := ctx.Err(); err != nil {
		return model.WeekRef{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := s.seasonKeys(season)
	if len(keys) == 0 {
		return model.WeekRef{}, fmt.Errorf("%w: no weeks for season %d", ErrNotFound, season)
	}
	return s.weeks[keys[len(keys)-1]].record.Week, nil
}

// Snapshot implements Store.
func (s *MemoryStore) Snapshot(ctx context.Context, season, weekIndex int) (model.Snapshot, error) {
	var out model.Snapshot
	err := s.withWeek(ctx, season, weekIndex, func(w *memoryWeek) error {
		out = w.snapshot.Clone(w.snapshot.Week)
		return nil
	})
	return out, err
}

// SnapshotBefore implements Store.
func (s *MemoryStore) SnapshotBefore(ctx context.Context, season, weekIndex int) (model.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return model.Snapshot{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := s.seasonKeys(season)
	for i := len(keys) - 1; i >= 0; i-- {
		if keys[i].weekIndex < weekIndex {
			snap := s.weeks[keys[i]].snapshot
			return snap.Clone(snap.Week), nil
		}
	}
	return model.Snapshot{}, fmt.Errorf("%w: no snapshot before season %d week %d", ErrNotFound, season, weekIndex)
}

// Transfers implements Store.
func (s *MemoryStore) Transfers(ctx context.Context, season, weekIndex int) ([]model.TransferRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var all []model.TransferRecord
	for _, k := range s.seasonKeys(season) {
		if weekIndex >= 0 && k.weekIndex != weekIndex {
			continue
		}
		all = append(all, s.weeks[k].transfers...)
	}
	out := make([]model.TransferRecord, 0, len(all))
	if len(all) == 0 {
		return out, nil
	}
	if err := deepCopy(all, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ProcessedContests implements Store.
func (s *MemoryStore) ProcessedContests(ctx context.Context, season int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.contests[season]))
	for id := range s.contests[season] {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

// Clusters implements Store.
func (s *MemoryStore) Clusters(ctx context.Context, season int) ([]centroid.Cluster, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	clusters, ok := s.clusters[season]
	if !ok {
		return nil, fmt.Errorf("%w: clusters for season %d", ErrNotFound, season)
	}
	var out []centroid.Cluster
	if err := deepCopy(clusters, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Leaderboard implements Store.
func (s *MemoryStore) Leaderboard(ctx context.Context, season, weekIndex int) (leaderboard.Payload, error) {
	var out leaderboard.Payload
	err := s.withWeek(ctx, season, weekIndex, func(w *memoryWeek) error {
		return deepCopy(w.leaderboard, &out)
	})
	if err != nil {
		return leaderboard.Payload{}, err
	}
	return out, nil
}

// LatestLeaderboard implements Store.
func (s *MemoryStore) LatestLeaderboard(ctx context.Context) (leaderboard.Payload, error) {
	if err := ctx.Err(); err != nil {
		return leaderboard.Payload{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	latest, ok := s.latestKey()
	if !ok {
		return leaderboard.Payload{}, fmt.Errorf("%w: no leaderboards", ErrNotFound)
	}
	var out leaderboard.Payload
	err := deepCopy(s.weeks[latest].leaderboard, &out)
	return out, err
}

// Markers implements Store.
func (s *MemoryStore) Markers(ctx context.Context, season, weekIndex int) ([]centroid.Marker, error) {
	out := make([]centroid.Marker, 0)
	err := s.withWeek(ctx, season, weekIndex, func(w *memoryWeek) error {
		if len(w.markers) == 0 {
			return nil
		}
		return deepCopy(w.markers, &out)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Stats implements Store.
func (s *MemoryStore) Stats(ctx context.Context) (Stats, error) {
	if err := ctx.Err(); err != nil {
		return Stats{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	seasons := make(map[int]struct{})
	st := Stats{Weeks: len(s.weeks)}
	for k, w := range s.weeks {
		seasons[k.season] = struct{}{}
		st.Transfers += len(w.transfers)
	}
	st.Seasons = len(seasons)
	if latest, ok := s.latestKey(); ok {
		ref := s.weeks[latest].record.Week
		st.Latest = &ref
	}
	return st, nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// withWeek runs fn on one stored week under the read lock.
func (s *MemoryStore) withWeek(ctx context.Context, season, weekIndex int, fn func(*memoryWeek) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.weeks[weekKey{season, weekIndex}]
	if !ok {
		return fmt.Errorf("%w: season %d week %d", ErrNotFound, season, weekIndex)
	}
	return fn(w)
}

// seasonKeys returns the stored keys of a season in index order. Callers hold
// the lock.
func (s *MemoryStore) seasonKeys(season int) []weekKey {
	var keys []weekKey
	for k := range s.weeks {
		if k.season == season {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].weekIndex < keys[j].weekIndex })
	return keys
}

func (s *MemoryStore) latestKey() (weekKey, bool) {
	var (
		best  weekKey
		found bool
	)
	for k := range s.weeks {
		if !found || k.season > best.season || (k.season == best.season && k.weekIndex > best.weekIndex) {
			best = k
			found = true
		}
	}
	return best, found
}

// deepCopy round-trips through JSON so nested maps and slices are never
// shared with callers.
func deepCopy(src, dst any) error {
	raw, err := json.Marshal(src)
	if err != nil {
		return fmt.Errorf("copy: %w", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("copy: %w", err)
	}
	return nil
}
