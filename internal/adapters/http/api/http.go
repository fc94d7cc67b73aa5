// Package api serves the read side of the territory store over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/okian/territory/internal/adapters/http/swagger"
	service "github.com/okian/territory/internal/app"
	"github.com/okian/territory/internal/domain/model"
)

// Dependencies required by HTTP handlers. *service.Service satisfies it.
type Dependencies interface {
	LeaderboardDependencies
	WeekDependencies
	StatsProvider
}

// Server wires HTTP routes for the read API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	leaderboardHandler *LeaderboardHandler
	weekHandler        *WeekHandler
}

// NewServer creates a new API server with all handlers. maxLimit caps the
// number of entries a leaderboard request may ask for.
func NewServer(deps Dependencies, maxLimit int) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps, maxLimit),
		weekHandler:        NewWeekHandler(deps),
	}
}

// Routes returns the router with every endpoint attached.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	swagger.Register(r)
	r.Get("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	r.Get("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	r.Get("/weeks/{season}", MetricsMiddleware(s.weekHandler.HandleWeeks, "weeks"))

	r.Route("/leaderboards", func(r chi.Router) {
		r.Get("/latest", MetricsMiddleware(s.leaderboardHandler.HandleLatest, "leaderboard_latest"))
		r.Get("/{season}/{week}", MetricsMiddleware(s.leaderboardHandler.HandleWeek, "leaderboard"))
	})
	r.Get("/markers/{season}/{week}", MetricsMiddleware(s.weekHandler.HandleMarkers, "markers"))
	r.Get("/ownership/{season}/{week}", MetricsMiddleware(s.weekHandler.HandleOwnership, "ownership"))
	r.Get("/transfers/{season}/{week}", MetricsMiddleware(s.weekHandler.HandleTransfers, "transfers"))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
	})
	return r
}

var _ Dependencies = (*service.Service)(nil)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError maps a read failure to a status: absent data is 404,
// anything else 500.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, model.ErrMissingData):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "unavailable", fmt.Errorf("%s: %w", op, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", fmt.Errorf("%s: %w", op, err))
	}
}

// weekParams reads the {season} and {week} path parameters.
func weekParams(r *http.Request) (season, week int, err error) {
	season, err = strconv.Atoi(chi.URLParam(r, "season"))
	if err != nil || season <= 0 {
		return 0, 0, fmt.Errorf("%w: invalid season %q", ErrBadRequest, chi.URLParam(r, "season"))
	}
	week, err = strconv.Atoi(chi.URLParam(r, "week"))
	if err != nil || week < 0 {
		return 0, 0, fmt.Errorf("%w: invalid week %q", ErrBadRequest, chi.URLParam(r, "week"))
	}
	return season, week, nil
}
