package api

import (
	"context"
	"net/http"

	"github.com/okian/territory/internal/adapters/repository"
)

// StatsProvider reports store statistics.
type StatsProvider interface {
	GetStats(ctx context.Context) (repository.Stats, error)
}

// StatsHandler handles stats requests.
type StatsHandler struct {
	statsProvider StatsProvider
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(statsProvider StatsProvider) *StatsHandler {
	return &StatsHandler{statsProvider: statsProvider}
}

// HandleStats handles GET /stats requests.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.statsProvider.GetStats(r.Context())
	if err != nil {
		writeServiceError(w, "api.get_stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
