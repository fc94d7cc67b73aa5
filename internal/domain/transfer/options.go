package transfer

import (
	"time"

	"github.com/okian/territory/internal/domain/dedupe"
	"github.com/okian/territory/internal/domain/model"
	"github.com/okian/territory/pkg/logger"
)

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the time source stamped on transfer records.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithTeams restricts accepted contests to known teams. Without it any team
// id is accepted.
func WithTeams(teams []model.Team) Option {
	return func(e *Engine) {
		e.roster = make(map[string]struct{}, len(teams))
		for _, t := range teams {
			e.roster[t.ID] = struct{}{}
		}
	}
}

// WithBaselineRegions sets the region set every snapshot must cover.
func WithBaselineRegions(ids []string) Option {
	return func(e *Engine) {
		e.regions = append([]string(nil), ids...)
	}
}

// WithDeduper replaces the contest replay guard.
func WithDeduper(d dedupe.Deduper) Option {
	return func(e *Engine) {
		if d != nil {
			e.seen = d
		}
	}
}

// WithProcessed marks contests as already applied, typically the ledger and
// processed-contest list of earlier weeks.
func WithProcessed(contestIDs ...string) Option {
	return func(e *Engine) {
		if e.processed == nil {
			e.processed = make(map[string]struct{}, len(contestIDs))
		}
		for _, id := range contestIDs {
			e.processed[id] = struct{}{}
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}
