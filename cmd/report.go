package main

import (
	"encoding/json"
	"io"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	service "github.com/okian/territory/internal/app"
	"github.com/okian/territory/internal/domain/centroid"
	"github.com/okian/territory/internal/domain/leaderboard"
	"github.com/okian/territory/internal/domain/transfer"
)

// boardOrder is the print order of leaderboard boards.
var boardOrder = []leaderboard.Board{
	leaderboard.TerritoryOwned,
	leaderboard.PopulationControlled,
	leaderboard.RegionsOwned,
	leaderboard.TerritoryGained,
	leaderboard.TerritoryLost,
}

// reporter prints command results as grouped-number text or JSON.
type reporter struct {
	w    io.Writer
	p    *message.Printer
	json bool
}

func newReporter(w io.Writer, asJSON bool) *reporter {
	return &reporter{w: w, p: message.NewPrinter(language.English), json: asJSON}
}

func (r *reporter) encode(v any) error {
	enc := json.NewEncoder(r.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (r *reporter) dryRunNote(dry bool) {
	if dry {
		r.p.Fprintln(r.w, "Dry run enabled; nothing was written.")
	}
}

func (r *reporter) baseline(rep service.BaselineReport) error {
	if r.json {
		return r.encode(rep)
	}
	r.p.Fprintf(r.w, "Baseline %s: %d regions assigned to %d teams\n", rep.Week, rep.Regions, rep.Teams)
	r.p.Fprintf(r.w, "  clusters: %d, markers: %d\n", rep.Clusters, len(rep.Markers))
	if len(rep.Landless) > 0 {
		r.p.Fprintf(r.w, "  teams without regions: %s\n", strings.Join(rep.Landless, ", "))
	}
	r.dryRunNote(rep.DryRun)
	return nil
}

func (r *reporter) week(rep service.WeekReport, verbose bool) error {
	if r.json {
		return r.encode(rep)
	}
	r.weekLines(rep, verbose)
	r.dryRunNote(rep.DryRun)
	return nil
}

func (r *reporter) weekLines(rep service.WeekReport, verbose bool) {
	s := rep.Summary
	r.p.Fprintf(r.w, "%s: %d contests, %d applied, %d skipped, %d regions transferred\n",
		rep.Week, s.Contests, s.Applied, s.SkippedTotal(), s.RegionsTransferred)
	if !verbose {
		return
	}
	reasons := make([]transfer.Rejection, 0, len(s.Skipped))
	for reason := range s.Skipped {
		reasons = append(reasons, reason)
	}
	sort.Slice(reasons, func(i, j int) bool { return reasons[i] < reasons[j] })
	for _, reason := range reasons {
		r.p.Fprintf(r.w, "  skipped %s: %d\n", reason, s.Skipped[reason])
	}
	for _, t := range rep.Transfers {
		r.p.Fprintf(r.w, "  %s: %s took %d regions from %s\n", t.ContestID, t.WinnerID, t.TransferCount, t.LoserID)
	}
}

func (r *reporter) season(rep service.SeasonReport, verbose bool) error {
	if r.json {
		return r.encode(rep)
	}
	for _, w := range rep.Weeks {
		r.weekLines(w, verbose)
	}
	for _, w := range rep.Skipped {
		r.p.Fprintf(r.w, "%s: no contest feed, skipped\n", w)
	}
	// years are not grouped
	r.p.Fprintf(r.w, "Season %s: %d weeks applied, %d skipped\n", strconv.Itoa(rep.Season), len(rep.Weeks), len(rep.Skipped))
	r.dryRunNote(rep.DryRun)
	return nil
}

func (r *reporter) leaderboard(lb leaderboard.Payload, dry bool) error {
	if r.json {
		return r.encode(lb)
	}
	r.p.Fprintf(r.w, "Leaderboards %s: %d teams, %d regions, %d transfers\n",
		lb.Week, lb.Totals.TrackedTeams, lb.Totals.RegionCount, lb.Totals.Transfers)
	for _, board := range boardOrder {
		entries := lb.Boards[board]
		r.p.Fprintf(r.w, "\n%s\n", board)
		if len(entries) == 0 {
			r.p.Fprintln(r.w, "  (none)")
			continue
		}
		for _, e := range entries {
			r.p.Fprintf(r.w, "  %3d. %-30s %v\n", e.Rank, e.TeamName, e.Value)
		}
	}
	r.dryRunNote(dry)
	return nil
}

func (r *reporter) markers(markers []centroid.Marker, dry bool) error {
	if r.json {
		return r.encode(markers)
	}
	for _, m := range markers {
		r.p.Fprintf(r.w, "%-24s %-20s %d/%d regions (%.1f%%)\n",
			m.TerritoryID, m.OwnerName, m.RegionsOwned, m.TotalRegions, m.OwnershipPct)
	}
	r.p.Fprintf(r.w, "%d markers\n", len(markers))
	r.dryRunNote(dry)
	return nil
}
