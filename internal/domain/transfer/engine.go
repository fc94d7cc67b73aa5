// Package transfer applies contest results to ownership under the
// all-of-loser rule and produces the immutable transfer ledger.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/okian/territory/internal/domain/dedupe"
	"github.com/okian/territory/internal/domain/model"
	"github.com/okian/territory/pkg/logger"
)

// recordNamespace scopes deterministic transfer record ids.
var recordNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("territory/transfer"))

// Rejection says why a contest result was skipped. The zero value means the
// result was accepted.
type Rejection string

// Rejection reasons.
const (
	Accepted           Rejection = ""
	RejectIncomplete   Rejection = "incomplete"
	RejectUndetermined Rejection = "undetermined"
	RejectTie          Rejection = "tie"
	RejectSelf         Rejection = "self"
	RejectUnknownTeam  Rejection = "unknown_team"
	RejectDuplicate    Rejection = "duplicate"
	RejectMissingID    Rejection = "missing_id"
)

// Rejections lists every reason in reporting order.
var Rejections = []Rejection{
	RejectIncomplete, RejectUndetermined, RejectTie, RejectSelf,
	RejectUnknownTeam, RejectDuplicate, RejectMissingID,
}

// Engine applies contest results. One Engine should serve one season so its
// replay guard sees every contest already applied.
type Engine struct {
	now       func() time.Time
	roster    map[string]struct{}
	regions   []string
	seen      dedupe.Deduper
	processed map[string]struct{}
	log       logger.Logger
}

// NewEngine creates an engine with an unbounded replay guard.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		now: func() time.Time { return time.Now().UTC() },
		log: logger.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.seen == nil {
		e.seen = dedupe.NewInMemoryDeduper()
	}
	return e
}

// ApplyResult applies one contest to own. A rejected result leaves own
// untouched and returns a nil record. An accepted result moves every region
// the loser owns at this instant to the winner; the record is nil when the
// loser owned nothing.
func (e *Engine) ApplyResult(ctx context.Context, week model.WeekRef, result model.ContestResult, own *Ownership) (*model.TransferRecord, Rejection) {
	if result.ContestID == "" {
		return nil, RejectMissingID
	}
	outcome, err := result.Outcome()
	if err != nil {
		return nil, rejectionFor(err)
	}
	if e.roster != nil {
		if _, ok := e.roster[outcome.Winner]; !ok {
			return nil, RejectUnknownTeam
		}
		if _, ok := e.roster[outcome.Loser]; !ok {
			return nil, RejectUnknownTeam
		}
	}
	// Contests of earlier weeks are checked apart from the guard, which may
	// be bounded and evict them.
	if _, ok := e.processed[result.ContestID]; ok {
		return nil, RejectDuplicate
	}
	if e.seen.SeenAndRecord(ctx, result.ContestID) {
		return nil, RejectDuplicate
	}

	var moved []string
	for _, region := range own.Regions(outcome.Loser) {
		// A region already taken by someone else is not the loser's to give.
		if own.Owner(region) != outcome.Loser {
			continue
		}
		if _, ok := own.Move(region, outcome.Winner); ok {
			moved = append(moved, region)
		}
	}
	if len(moved) == 0 {
		return nil, Accepted
	}
	sort.Strings(moved)

	rec := &model.TransferRecord{
		ID:            RecordID(week, result.ContestID),
		Season:        week.Season,
		WeekIndex:     week.WeekIndex,
		Week:          week.Week,
		SeasonType:    week.SeasonType,
		ContestID:     result.ContestID,
		WinnerID:      outcome.Winner,
		LoserID:       outcome.Loser,
		TransferCount: len(moved),
		Regions:       moved,
		CompletedAt:   e.now(),
	}
	e.log.Debug(ctx, "regions transferred",
		logger.String("contest_id", result.ContestID),
		logger.String("winner", outcome.Winner),
		logger.String("loser", outcome.Loser),
		logger.Int("regions", len(moved)))
	return rec, Accepted
}

// RecordID derives the ledger id for a contest applied in week.
func RecordID(week model.WeekRef, contestID string) string {
	return uuid.NewSHA1(recordNamespace, []byte(fmt.Sprintf("%d:%d:%s", week.Season, week.WeekIndex, contestID))).String()
}

func rejectionFor(err error) Rejection {
	switch {
	case errors.Is(err, model.ErrIncomplete):
		return RejectIncomplete
	case errors.Is(err, model.ErrTie):
		return RejectTie
	case errors.Is(err, model.ErrSelfContest):
		return RejectSelf
	default:
		return RejectUndetermined
	}
}

// Summary reports what one weekly advance did.
type Summary struct {
	Week               model.WeekRef     `json:"week"`
	Contests           int               `json:"contests"`
	Applied            int               `json:"applied"`
	Skipped            map[Rejection]int `json:"skipped"`
	Transfers          int               `json:"transfers"`
	RegionsTransferred int               `json:"regions_transferred"`
}

// SkippedTotal sums skips over every reason.
func (s Summary) SkippedTotal() int {
	n := 0
	for _, c := range s.Skipped {
		n += c
	}
	return n
}

// WeekResult is the outcome of AdvanceWeek. Prior state is never shared with
// it.
type WeekResult struct {
	Snapshot  model.Snapshot
	Index     model.ReverseIndex
	Transfers []model.TransferRecord
	// Processed lists every accepted contest id, including those that moved
	// nothing and so have no ledger entry.
	Processed []string
	Summary   Summary
}

// AdvanceWeek applies feed to a private copy of prior and returns the week's
// snapshot, reverse index and ledger entries. Results are applied in feed
// order, except that timed results are sorted by PlayedAt among the positions
// they hold; see applyOrder. On error or cancellation nothing is returned
// and contests recorded by this call are forgotten by the replay guard.
func (e *Engine) AdvanceWeek(ctx context.Context, prior model.Snapshot, feed []model.ContestResult, week model.WeekRef) (WeekResult, error) {
	if !prior.Week.Before(week) {
		return WeekResult{}, fmt.Errorf("%w: prior %s, advancing %s", ErrWeekOrder, prior.Week, week)
	}
	regions := e.regions
	if regions == nil {
		regions = prior.RegionIDs()
	}
	if err := model.CheckCoverage(prior, regions); err != nil {
		return WeekResult{}, fmt.Errorf("prior snapshot: %w", err)
	}

	ordered := applyOrder(feed)

	own := NewOwnership(prior)
	res := WeekResult{Summary: Summary{Week: week, Contests: len(ordered), Skipped: make(map[Rejection]int)}}
	rollback := func() {
		for _, id := range res.Processed {
			e.seen.Unrecord(ctx, id)
		}
	}

	for _, c := range ordered {
		if err := ctx.Err(); err != nil {
			rollback()
			return WeekResult{}, fmt.Errorf("advance %s: %w", week, err)
		}
		rec, rej := e.ApplyResult(ctx, week, c, own)
		if rej != Accepted {
			res.Summary.Skipped[rej]++
			e.log.Debug(ctx, "contest skipped",
				logger.String("contest_id", c.ContestID),
				logger.String("reason", string(rej)))
			continue
		}
		res.Processed = append(res.Processed, c.ContestID)
		res.Summary.Applied++
		if rec != nil {
			res.Transfers = append(res.Transfers, *rec)
			res.Summary.Transfers++
			res.Summary.RegionsTransferred += rec.TransferCount
		}
	}

	res.Snapshot = own.Snapshot(week)
	if err := model.CheckCoverage(res.Snapshot, regions); err != nil {
		rollback()
		return WeekResult{}, err
	}
	res.Index = own.Index()

	e.log.Info(ctx, "week advanced",
		logger.String("week", week.String()),
		logger.Int("contests", res.Summary.Contests),
		logger.Int("applied", res.Summary.Applied),
		logger.Int("skipped", res.Summary.SkippedTotal()),
		logger.Int("regions_transferred", res.Summary.RegionsTransferred))
	return res, nil
}

// applyOrder returns feed in the order it is applied. Results with a PlayedAt
// are sorted by it within the slots they occupy, equal times keeping feed
// order. Results without one stay at their feed position.
func applyOrder(feed []model.ContestResult) []model.ContestResult {
	ordered := make([]model.ContestResult, len(feed))
	copy(ordered, feed)

	var (
		slots []int
		timed []model.ContestResult
	)
	for i, c := range feed {
		if !c.PlayedAt.IsZero() {
			slots = append(slots, i)
			timed = append(timed, c)
		}
	}
	sort.SliceStable(timed, func(i, j int) bool { return timed[i].PlayedAt.Before(timed[j].PlayedAt) })
	for k, i := range slots {
		ordered[i] = timed[k]
	}
	return ordered
}
