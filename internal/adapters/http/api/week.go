package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/okian/territory/internal/adapters/repository"
	service "github.com/okian/territory/internal/app"
	"github.com/okian/territory/internal/domain/centroid"
	"github.com/okian/territory/internal/domain/model"
)

// WeekDependencies defines the per-week reads.
type WeekDependencies interface {
	Markers(ctx context.Context, season, weekIndex int) ([]centroid.Marker, error)
	Ownership(ctx context.Context, season, weekIndex int) (service.Ownership, error)
	Transfers(ctx context.Context, season, weekIndex int) ([]model.TransferRecord, error)
	Weeks(ctx context.Context, season int) ([]repository.WeekRecord, error)
}

// WeekHandler serves markers, ownership and ledger entries of stored weeks.
type WeekHandler struct {
	deps WeekDependencies
}

// NewWeekHandler creates a new week handler.
func NewWeekHandler(deps WeekDependencies) *WeekHandler {
	return &WeekHandler{deps: deps}
}

type markersResponse struct {
	Season  int               `json:"season"`
	Week    int               `json:"week_index"`
	Markers []centroid.Marker `json:"markers"`
}

type transfersResponse struct {
	Season    int                    `json:"season"`
	Week      int                    `json:"week_index"`
	Transfers []model.TransferRecord `json:"transfers"`
}

// HandleMarkers handles GET /markers/{season}/{week}.
func (h *WeekHandler) HandleMarkers(w http.ResponseWriter, r *http.Request) {
	season, week, err := weekParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	markers, err := h.deps.Markers(r.Context(), season, week)
	if err != nil {
		writeServiceError(w, "api.get_markers", err)
		return
	}
	writeJSON(w, http.StatusOK, markersResponse{Season: season, Week: week, Markers: markers})
}

// HandleOwnership handles GET /ownership/{season}/{week}.
func (h *WeekHandler) HandleOwnership(w http.ResponseWriter, r *http.Request) {
	season, week, err := weekParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	own, err := h.deps.Ownership(r.Context(), season, week)
	if err != nil {
		writeServiceError(w, "api.get_ownership", err)
		return
	}
	writeJSON(w, http.StatusOK, own)
}

// HandleTransfers handles GET /transfers/{season}/{week}.
func (h *WeekHandler) HandleTransfers(w http.ResponseWriter, r *http.Request) {
	season, week, err := weekParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	ledger, err := h.deps.Transfers(r.Context(), season, week)
	if err != nil {
		writeServiceError(w, "api.get_transfers", err)
		return
	}
	writeJSON(w, http.StatusOK, transfersResponse{Season: season, Week: week, Transfers: ledger})
}

// HandleWeeks handles GET /weeks/{season}.
func (h *WeekHandler) HandleWeeks(w http.ResponseWriter, r *http.Request) {
	season, err := strconv.Atoi(chi.URLParam(r, "season"))
	if err != nil || season <= 0 {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: invalid season %q", ErrBadRequest, chi.URLParam(r, "season")))
		return
	}
	weeks, err := h.deps.Weeks(r.Context(), season)
	if err != nil {
		writeServiceError(w, "api.get_weeks", err)
		return
	}
	writeJSON(w, http.StatusOK, weeks)
}
