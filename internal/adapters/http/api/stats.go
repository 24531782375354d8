package api

import (
	"net/http"
	"time"
)

// StatsProvider exposes a point-in-time snapshot of service counters:
// ingest and dedupe totals, queue depth, worker pool size, baseline and
// score cache occupancy.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// statsResponse wraps the snapshot with its capture time, so a poller
// can tell a stale scrape from a service that is merely quiet.
type statsResponse struct {
	GeneratedAt time.Time              `json:"generated_at"`
	Stats       map[string]interface{} `json:"stats"`
}

// StatsHandler serves the service statistics snapshot.
type StatsHandler struct {
	stats StatsProvider
}

// NewStatsHandler creates the handler over a stats source.
func NewStatsHandler(stats StatsProvider) *StatsHandler {
	return &StatsHandler{stats: stats}
}

// HandleGetStats serves GET /stats.
func (h *StatsHandler) HandleGetStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{
		GeneratedAt: time.Now().UTC(),
		Stats:       h.stats.GetStats(),
	})
}
