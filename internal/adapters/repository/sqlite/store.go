// Package sqlite provides the SQLite-backed snapshot store.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/okian/territory/internal/adapters/repository"
	"github.com/okian/territory/internal/adapters/repository/sqlite/migrations"
	"github.com/okian/territory/internal/domain/centroid"
	"github.com/okian/territory/internal/domain/leaderboard"
	"github.com/okian/territory/internal/domain/model"
	"github.com/okian/territory/pkg/metrics"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// Store persists the snapshot chain in SQLite. Each commit is a single
// transaction, so a failed week leaves no partial rows behind.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

var _ repository.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithClock sets the time source for commit timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens the store at path and applies embedded migrations.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	s := &Store{sqlDB: sqlDB, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// CommitBaseline implements repository.Store.
func (s *Store) CommitBaseline(ctx context.Context, b repository.Baseline) (err error) {
	defer s.observe("commit_baseline", time.Now(), &err)
	week := b.Snapshot.Week
	if !week.IsBaseline() {
		return fmt.Errorf("%w: baseline must be week 0, got %d", repository.ErrInvalidWeek, week.WeekIndex)
	}
	clustersJSON, err := marshal(b.Clusters)
	if err != nil {
		return err
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		committed := toMillis(s.now())
		if err := insertWeek(ctx, tx, week, "{}", committed); err != nil {
			return err
		}
		if err := insertSnapshot(ctx, tx, b.Snapshot); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO clusters (season, clusters_json, created_at) VALUES (?, ?, ?)`,
			week.Season, clustersJSON, committed,
		); err != nil {
			return classify(err, fmt.Sprintf("clusters for season %d", week.Season))
		}
		return upsertDerived(ctx, tx, week, b.Leaderboard, b.Markers)
	})
}

// CommitWeek implements repository.Store.
func (s *Store) CommitWeek(ctx context.Context, c repository.WeekCommit) (err error) {
	defer s.observe("commit_week", time.Now(), &err)
	week := c.Snapshot.Week
	if week.WeekIndex <= 0 {
		return fmt.Errorf("%w: weekly commit needs a positive index, got %d", repository.ErrInvalidWeek, week.WeekIndex)
	}
	summaryJSON, err := marshal(c.Summary)
	if err != nil {
		return err
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := insertWeek(ctx, tx, week, summaryJSON, toMillis(s.now())); err != nil {
			return err
		}
		if err := insertSnapshot(ctx, tx, c.Snapshot); err != nil {
			return err
		}
		for i, rec := range c.Transfers {
			if err := insertTransfer(ctx, tx, i, rec); err != nil {
				return err
			}
		}
		seen := make(map[string]struct{}, len(c.Processed)+len(c.Transfers))
		ids := append(append([]string(nil), c.Processed...), model.ContestIDs(c.Transfers)...)
		for _, id := range ids {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO processed_contests (season, contest_id, week_index) VALUES (?, ?, ?)`,
				week.Season, id, week.WeekIndex,
			); err != nil {
				return classify(err, fmt.Sprintf("contest %s in season %d", id, week.Season))
			}
		}
		return upsertDerived(ctx, tx, week, c.Leaderboard, c.Markers)
	})
}

// ReplaceDerived implements repository.Store.
func (s *Store) ReplaceDerived(ctx context.Context, week model.WeekRef, lb leaderboard.Payload, markers []centroid.Marker) (err error) {
	defer s.observe("replace_derived", time.Now(), &err)
	return s.inTx(ctx, func(tx *sql.Tx) error {
		var found int
		err := tx.QueryRowContext(ctx,
			`SELECT 1 FROM weeks WHERE season = ? AND week_index = ?`,
			week.Season, week.WeekIndex,
		).Scan(&found)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", repository.ErrNotFound, week)
		}
		if err != nil {
			return fmt.Errorf("lookup week: %w", err)
		}
		return upsertDerived(ctx, tx, week, lb, markers)
	})
}

// Weeks implements repository.Store.
func (s *Store) Weeks(ctx context.Context, season int) (_ []repository.WeekRecord, err error) {
	defer s.observe("weeks", time.Now(), &err)
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT season, week_index, week, season_type, label, summary_json, committed_at
		   FROM weeks WHERE season = ? ORDER BY week_index`,
		season,
	)
	if err != nil {
		return nil, fmt.Errorf("query weeks: %w", err)
	}
	defer rows.Close()

	out := make([]repository.WeekRecord, 0)
	for rows.Next() {
		var (
			rec         repository.WeekRecord
			summaryJSON string
			committed   int64
		)
		if err := rows.Scan(
			&rec.Week.Season, &rec.Week.WeekIndex, &rec.Week.Week,
			&rec.Week.SeasonType, &rec.Week.Label, &summaryJSON, &committed,
		); err != nil {
			return nil, fmt.Errorf("scan week: %w", err)
		}
		if err := json.Unmarshal([]byte(summaryJSON), &rec.Summary); err != nil {
			return nil, fmt.Errorf("decode summary: %w", err)
		}
		rec.CommittedAt = fromMillis(committed)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// LatestWeek implements repository.Store.
func (s *Store) LatestWeek(ctx context.Context, season int) (_ model.WeekRef, err error) {
	defer s.observe("latest_week", time.Now(), &err)
	var w model.WeekRef
	err = s.sqlDB.QueryRowContext(ctx,
		`SELECT season, week_index, week, season_type, label
		   FROM weeks WHERE season = ? ORDER BY week_index DESC LIMIT 1`,
		season,
	).Scan(&w.Season, &w.WeekIndex, &w.Week, &w.SeasonType, &w.Label)
	if errors.Is(err, sql.ErrNoRows) {
		return model.WeekRef{}, fmt.Errorf("%w: no weeks for season %d", repository.ErrNotFound, season)
	}
	if err != nil {
		return model.WeekRef{}, fmt.Errorf("query latest week: %w", err)
	}
	return w, nil
}

// Snapshot implements repository.Store.
func (s *Store) Snapshot(ctx context.Context, season, weekIndex int) (_ model.Snapshot, err error) {
	defer s.observe("snapshot", time.Now(), &err)
	return s.snapshotWhere(ctx, "w.season = ? AND w.week_index = ?", season, weekIndex)
}

// SnapshotBefore implements repository.Store.
func (s *Store) SnapshotBefore(ctx context.Context, season, weekIndex int) (_ model.Snapshot, err error) {
	defer s.observe("snapshot_before", time.Now(), &err)
	return s.snapshotWhere(ctx, "w.season = ? AND w.week_index < ?", season, weekIndex)
}

func (s *Store) snapshotWhere(ctx context.Context, where string, season, weekIndex int) (model.Snapshot, error) {
	var (
		snap       model.Snapshot
		ownersJSON string
	)
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT w.season, w.week_index, w.week, w.season_type, w.label, s.owners_json
		   FROM weeks w JOIN snapshots s ON s.season = w.season AND s.week_index = w.week_index
		  WHERE `+where+` ORDER BY w.week_index DESC LIMIT 1`,
		season, weekIndex,
	).Scan(&snap.Week.Season, &snap.Week.WeekIndex, &snap.Week.Week, &snap.Week.SeasonType, &snap.Week.Label, &ownersJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Snapshot{}, fmt.Errorf("%w: snapshot for season %d week %d", repository.ErrNotFound, season, weekIndex)
	}
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("query snapshot: %w", err)
	}
	if err := json.Unmarshal([]byte(ownersJSON), &snap.Owners); err != nil {
		return model.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}

// Transfers implements repository.Store.
func (s *Store) Transfers(ctx context.Context, season, weekIndex int) (_ []model.TransferRecord, err error) {
	defer s.observe("transfers", time.Now(), &err)
	query := `SELECT id, season, week_index, week, season_type, contest_id, winner_id, loser_id,
	                 transfer_count, regions_json, completed_at
	            FROM transfers WHERE season = ?`
	args := []any{season}
	if weekIndex >= 0 {
		query += ` AND week_index = ?`
		args = append(args, weekIndex)
	}
	query += ` ORDER BY week_index, seq`

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transfers: %w", err)
	}
	defer rows.Close()

	out := make([]model.TransferRecord, 0)
	for rows.Next() {
		var (
			rec         model.TransferRecord
			regionsJSON string
			completed   int64
		)
		if err := rows.Scan(
			&rec.ID, &rec.Season, &rec.WeekIndex, &rec.Week, &rec.SeasonType, &rec.ContestID,
			&rec.WinnerID, &rec.LoserID, &rec.TransferCount, &regionsJSON, &completed,
		); err != nil {
			return nil, fmt.Errorf("scan transfer: %w", err)
		}
		if err := json.Unmarshal([]byte(regionsJSON), &rec.Regions); err != nil {
			return nil, fmt.Errorf("decode transfer regions: %w", err)
		}
		rec.CompletedAt = fromMillis(completed)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ProcessedContests implements repository.Store.
func (s *Store) ProcessedContests(ctx context.Context, season int) (_ []string, err error) {
	defer s.observe("processed_contests", time.Now(), &err)
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT contest_id FROM processed_contests WHERE season = ? ORDER BY contest_id`,
		season,
	)
	if err != nil {
		return nil, fmt.Errorf("query processed contests: %w", err)
	}
	defer rows.Close()
	out := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan contest id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// Clusters implements repository.Store.
func (s *Store) Clusters(ctx context.Context, season int) (_ []centroid.Cluster, err error) {
	defer s.observe("clusters", time.Now(), &err)
	var raw string
	err = s.sqlDB.QueryRowContext(ctx, `SELECT clusters_json FROM clusters WHERE season = ?`, season).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: clusters for season %d", repository.ErrNotFound, season)
	}
	if err != nil {
		return nil, fmt.Errorf("query clusters: %w", err)
	}
	var out []centroid.Cluster
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("decode clusters: %w", err)
	}
	return out, nil
}

// Leaderboard implements repository.Store.
func (s *Store) Leaderboard(ctx context.Context, season, weekIndex int) (_ leaderboard.Payload, err error) {
	defer s.observe("leaderboard", time.Now(), &err)
	return s.leaderboardRow(ctx,
		`SELECT payload_json FROM leaderboards WHERE season = ? AND week_index = ?`,
		fmt.Sprintf("leaderboard for season %d week %d", season, weekIndex),
		season, weekIndex,
	)
}

// LatestLeaderboard implements repository.Store.
func (s *Store) LatestLeaderboard(ctx context.Context) (_ leaderboard.Payload, err error) {
	defer s.observe("latest_leaderboard", time.Now(), &err)
	return s.leaderboardRow(ctx,
		`SELECT payload_json FROM leaderboards ORDER BY season DESC, week_index DESC LIMIT 1`,
		"leaderboards",
	)
}

func (s *Store) leaderboardRow(ctx context.Context, query, what string, args ...any) (leaderboard.Payload, error) {
	var raw string
	err := s.sqlDB.QueryRowContext(ctx, query, args...).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return leaderboard.Payload{}, fmt.Errorf("%w: %s", repository.ErrNotFound, what)
	}
	if err != nil {
		return leaderboard.Payload{}, fmt.Errorf("query leaderboard: %w", err)
	}
	var p leaderboard.Payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return leaderboard.Payload{}, fmt.Errorf("decode leaderboard: %w", err)
	}
	return p, nil
}

// Markers implements repository.Store.
func (s *Store) Markers(ctx context.Context, season, weekIndex int) (_ []centroid.Marker, err error) {
	defer s.observe("markers", time.Now(), &err)
	var raw string
	err = s.sqlDB.QueryRowContext(ctx,
		`SELECT markers_json FROM markers WHERE season = ? AND week_index = ?`,
		season, weekIndex,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: markers for season %d week %d", repository.ErrNotFound, season, weekIndex)
	}
	if err != nil {
		return nil, fmt.Errorf("query markers: %w", err)
	}
	out := make([]centroid.Marker, 0)
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("decode markers: %w", err)
	}
	if out == nil {
		out = make([]centroid.Marker, 0)
	}
	return out, nil
}

// Stats implements repository.Store.
func (s *Store) Stats(ctx context.Context) (_ repository.Stats, err error) {
	defer s.observe("stats", time.Now(), &err)
	var st repository.Stats
	if err := s.sqlDB.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT season), COUNT(*) FROM weeks`,
	).Scan(&st.Seasons, &st.Weeks); err != nil {
		return repository.Stats{}, fmt.Errorf("count weeks: %w", err)
	}
	if err := s.sqlDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM transfers`).Scan(&st.Transfers); err != nil {
		return repository.Stats{}, fmt.Errorf("count transfers: %w", err)
	}
	var w model.WeekRef
	err = s.sqlDB.QueryRowContext(ctx,
		`SELECT season, week_index, week, season_type, label
		   FROM weeks ORDER BY season DESC, week_index DESC LIMIT 1`,
	).Scan(&w.Season, &w.WeekIndex, &w.Week, &w.SeasonType, &w.Label)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		err = nil
	case err != nil:
		return repository.Stats{}, fmt.Errorf("query latest week: %w", err)
	default:
		st.Latest = &w
	}
	return st, nil
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return repository.ErrClosed
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *Store) observe(op string, start time.Time, err *error) {
	metrics.RecordStoreLatency(op, float64(time.Since(start).Nanoseconds())/1e6)
	if err != nil && *err != nil && !errors.Is(*err, repository.ErrNotFound) {
		metrics.RecordStoreError(op)
	}
}

func insertWeek(ctx context.Context, tx *sql.Tx, w model.WeekRef, summaryJSON string, committed int64) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO weeks (season, week_index, week, season_type, label, summary_json, committed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		w.Season, w.WeekIndex, w.Week, w.SeasonType, w.Label, summaryJSON, committed,
	)
	return classify(err, w.String())
}

func insertSnapshot(ctx context.Context, tx *sql.Tx, snap model.Snapshot) error {
	ownersJSON, err := marshal(snap.Owners)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO snapshots (season, week_index, owners_json) VALUES (?, ?, ?)`,
		snap.Week.Season, snap.Week.WeekIndex, ownersJSON,
	)
	return classify(err, "snapshot "+snap.Week.String())
}

func insertTransfer(ctx context.Context, tx *sql.Tx, seq int, rec model.TransferRecord) error {
	regionsJSON, err := marshal(rec.Regions)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO transfers (
		   id, seq, season, week_index, week, season_type, contest_id,
		   winner_id, loser_id, transfer_count, regions_json, completed_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, seq, rec.Season, rec.WeekIndex, rec.Week, rec.SeasonType, rec.ContestID,
		rec.WinnerID, rec.LoserID, rec.TransferCount, regionsJSON, toMillis(rec.CompletedAt),
	)
	return classify(err, fmt.Sprintf("transfer for contest %s", rec.ContestID))
}

func upsertDerived(ctx context.Context, tx *sql.Tx, week model.WeekRef, lb leaderboard.Payload, markers []centroid.Marker) error {
	lbJSON, err := marshal(lb)
	if err != nil {
		return err
	}
	if markers == nil {
		markers = []centroid.Marker{}
	}
	markersJSON, err := marshal(markers)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO leaderboards (season, week_index, payload_json, generated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (season, week_index) DO UPDATE SET
		   payload_json = excluded.payload_json,
		   generated_at = excluded.generated_at`,
		week.Season, week.WeekIndex, lbJSON, toMillis(lb.GeneratedAt),
	); err != nil {
		return fmt.Errorf("write leaderboard: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO markers (season, week_index, markers_json) VALUES (?, ?, ?)
		 ON CONFLICT (season, week_index) DO UPDATE SET markers_json = excluded.markers_json`,
		week.Season, week.WeekIndex, markersJSON,
	); err != nil {
		return fmt.Errorf("write markers: %w", err)
	}
	return nil
}

func marshal(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode: %w", err)
	}
	return string(raw), nil
}

// classify maps constraint violations to repository.ErrAlreadyExists.
func classify(err error, what string) error {
	if err == nil {
		return nil
	}
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", repository.ErrAlreadyExists, what)
	}
	return fmt.Errorf("insert %s: %w", what, err)
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY || code == sqlite3lib.SQLITE_CONSTRAINT_UNIQUE
}
