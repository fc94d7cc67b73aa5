package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/okian/territory/internal/domain/leaderboard"
)

// LeaderboardDependencies defines the interface for leaderboard reads.
type LeaderboardDependencies interface {
	LatestLeaderboard(ctx context.Context, limit int) (leaderboard.Payload, error)
	Leaderboard(ctx context.Context, season, weekIndex, limit int) (leaderboard.Payload, error)
}

// LeaderboardHandler handles leaderboard requests
type LeaderboardHandler struct {
	deps     LeaderboardDependencies
	maxLimit int
}

// NewLeaderboardHandler creates a new leaderboard handler. A non-positive
// maxLimit leaves requests uncapped.
func NewLeaderboardHandler(deps LeaderboardDependencies, maxLimit int) *LeaderboardHandler {
	return &LeaderboardHandler{
		deps:     deps,
		maxLimit: maxLimit,
	}
}

// HandleLatest handles GET /leaderboards/latest?limit=N requests
func (h *LeaderboardHandler) HandleLatest(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_latest_leaderboard"
	n, code, err := h.limit(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, code, err)
		return
	}
	p, err := h.deps.LatestLeaderboard(r.Context(), n)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleWeek handles GET /leaderboards/{season}/{week}?limit=N requests
func (h *LeaderboardHandler) HandleWeek(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_leaderboard"
	season, week, err := weekParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	n, code, err := h.limit(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, code, err)
		return
	}
	p, err := h.deps.Leaderboard(r.Context(), season, week, n)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// limit parses the optional limit query parameter. Absent means the
// configured maximum.
func (h *LeaderboardHandler) limit(r *http.Request) (int, string, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return h.maxLimit, "", nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, "bad_request", fmt.Errorf("%w: invalid limit %q", ErrBadRequest, raw)
	}
	if h.maxLimit > 0 && n > h.maxLimit {
		return 0, "limit_exceeded", fmt.Errorf("%w: %d > %d", ErrLimitExceeded, n, h.maxLimit)
	}
	return n, "", nil
}
