package source

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/okian/territory/internal/domain/model"
	"github.com/okian/territory/pkg/logger"
)

var weekFile = regexp.MustCompile(`^week-(\d+)\.json$`)

// contestRow accepts the camelCase feed written by the ingest job as well as
// snake_case keys.
type contestRow struct {
	ID         json.RawMessage `json:"id"`
	ContestID  string          `json:"contest_id"`
	Season     int             `json:"season"`
	Completed  bool            `json:"completed"`
	Status     string          `json:"status"`
	StartDate  string          `json:"startDate"`
	StartSnake string          `json:"start_date"`
	PlayedAt   string          `json:"played_at"`
	HomeID     string          `json:"homeTeamId"`
	HomeSnake  string          `json:"home_id"`
	AwayID     string          `json:"awayTeamId"`
	AwaySnake  string          `json:"away_id"`
	HomeScore  *int            `json:"homeScore"`
	HomeSnakeS *int            `json:"home_score"`
	AwayScore  *int            `json:"awayScore"`
	AwaySnakeS *int            `json:"away_score"`
	WinnerID   string          `json:"winnerId"`
	WinnerSn   string          `json:"winner_id"`
	LoserID    string          `json:"loserId"`
	LoserSn    string          `json:"loser_id"`
}

func firstString(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func firstInt(values ...*int) *int {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

func (r contestRow) result(week model.WeekRef) model.ContestResult {
	c := model.ContestResult{
		ContestID: firstString(r.ContestID, scalarString(r.ID)),
		Season:    r.Season,
		WeekIndex: week.WeekIndex,
		Status:    r.Status,
		Completed: r.Completed,
		WinnerID:  firstString(r.WinnerID, r.WinnerSn),
		LoserID:   firstString(r.LoserID, r.LoserSn),
		HomeID:    firstString(r.HomeID, r.HomeSnake),
		AwayID:    firstString(r.AwayID, r.AwaySnake),
		HomeScore: firstInt(r.HomeScore, r.HomeSnakeS),
		AwayScore: firstInt(r.AwayScore, r.AwaySnakeS),
		PlayedAt:  parseTime(firstString(r.PlayedAt, r.StartDate, r.StartSnake)),
	}
	if c.Season == 0 {
		c.Season = week.Season
	}
	return c
}

// parseTime reads an RFC 3339 timestamp. Unparsable values give the zero
// time, so the contest is applied at its feed position.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// ParseContests decodes one week of the contest feed.
func ParseContests(raw []byte, week model.WeekRef) ([]model.ContestResult, error) {
	var rows []contestRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	out := make([]model.ContestResult, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.result(week))
	}
	return out, nil
}

type timelineIndex struct {
	Season int `json:"season"`
	Weeks  []struct {
		WeekIndex  int    `json:"weekIndex"`
		Week       int    `json:"week"`
		SeasonType string `json:"seasonType"`
		Label      string `json:"label"`
	} `json:"weeks"`
}

// Timeline lists the weeks of a season in index order. It reads
// <season>/index.json when present and otherwise discovers week-NN.json files.
func (f *Files) Timeline(ctx context.Context, season int) ([]model.WeekRef, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir := f.seasonDir(season)
	raw, err := os.ReadFile(filepath.Join(dir, "index.json"))
	switch {
	case err == nil:
		return parseTimeline(raw, season)
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("read timeline: %w", err)
	}

	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: no contest feed for season %d", model.ErrMissingData, season)
	}
	if err != nil {
		return nil, fmt.Errorf("list contest feed: %w", err)
	}
	var weeks []model.WeekRef
	for _, e := range entries {
		m := weekFile.FindStringSubmatch(e.Name())
		if e.IsDir() || m == nil {
			continue
		}
		idx, err := strconv.Atoi(m[1])
		if err != nil || idx <= 0 {
			continue
		}
		weeks = append(weeks, model.WeekRef{
			Season:     season,
			WeekIndex:  idx,
			Week:       idx,
			SeasonType: model.SeasonTypeRegular,
			Label:      fmt.Sprintf("Week %d", idx),
		})
	}
	sort.Slice(weeks, func(i, j int) bool { return weeks[i].WeekIndex < weeks[j].WeekIndex })
	f.log.Debug(ctx, "timeline discovered from files", logger.Int("season", season), logger.Int("weeks", len(weeks)))
	return weeks, nil
}

func parseTimeline(raw []byte, season int) ([]model.WeekRef, error) {
	var idx timelineIndex
	if err := json.Unmarshal(raw, &idx); err != nil {
		return nil, fmt.Errorf("%w: timeline: %v", ErrMalformed, err)
	}
	weeks := make([]model.WeekRef, 0, len(idx.Weeks))
	for _, w := range idx.Weeks {
		if w.WeekIndex <= 0 {
			return nil, fmt.Errorf("%w: timeline week index %d", ErrMalformed, w.WeekIndex)
		}
		st := w.SeasonType
		if st == "" {
			st = model.SeasonTypeRegular
		}
		weeks = append(weeks, model.WeekRef{
			Season:     season,
			WeekIndex:  w.WeekIndex,
			Week:       w.Week,
			SeasonType: st,
			Label:      w.Label,
		})
	}
	sort.SliceStable(weeks, func(i, j int) bool { return weeks[i].WeekIndex < weeks[j].WeekIndex })
	return weeks, nil
}

// Contests loads the feed of one week. An absent file wraps
// model.ErrMissingData.
func (f *Files) Contests(ctx context.Context, week model.WeekRef) ([]model.ContestResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := filepath.Join(f.seasonDir(week.Season), fmt.Sprintf("week-%02d.json", week.WeekIndex))
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: contest feed %s", model.ErrMissingData, path)
	}
	if err != nil {
		return nil, fmt.Errorf("read contest feed: %w", err)
	}
	results, err := ParseContests(raw, week)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return results, nil
}

func (f *Files) seasonDir(season int) string {
	return filepath.Join(f.contestsDir, strconv.Itoa(season))
}
