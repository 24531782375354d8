// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/somacore/soma/internal/domain/types"
)

// ScoresHandler handles score read requests.
type ScoresHandler struct {
	deps Dependencies
}

// NewScoresHandler creates a new scores handler.
func NewScoresHandler(deps Dependencies) *ScoresHandler {
	return &ScoresHandler{deps: deps}
}

// HandleScores routes GET /v1/scores/{kind} and its subresources:
//
//	GET /v1/scores/{kind}            -> current or ?day= score
//	GET /v1/scores/{kind}/history    -> recent scores, ?offset= ?limit=
//	GET /v1/scores/{kind}/freshness  -> freshness hint, ?day=
func (h *ScoresHandler) HandleScores(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/v1/scores/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	kind := parts[0]

	switch {
	case len(parts) == 1 && kind != "":
		h.handleScore(w, r, kind)
	case len(parts) == 2 && parts[1] == "history":
		h.handleHistory(w, r, kind)
	case len(parts) == 2 && parts[1] == "freshness":
		h.handleFreshness(w, r, kind)
	default:
		http.NotFound(w, r)
	}
}

func (h *ScoresHandler) handleScore(w http.ResponseWriter, r *http.Request, kind string) {
	const op = "api.get_score"
	day := r.URL.Query().Get("day")

	view, found, err := h.deps.Score(r.Context(), kind, day)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%s: %w: %w", op, ErrBadRequest, err))
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "not_found", fmt.Errorf("%s: %w: no score for %s", op, ErrNotFound, kind))
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *ScoresHandler) handleHistory(w http.ResponseWriter, r *http.Request, kind string) {
	const op = "api.get_history"
	offset := queryInt(r, "offset", 0)
	limit := queryInt(r, "limit", 0)

	views, err := h.deps.History(r.Context(), kind, offset, limit)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%s: %w: %w", op, ErrBadRequest, err))
		return
	}
	if views == nil {
		views = []types.ScoreView{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"kind":   kind,
		"scores": views,
	})
}

func (h *ScoresHandler) handleFreshness(w http.ResponseWriter, r *http.Request, kind string) {
	const op = "api.get_freshness"
	day := r.URL.Query().Get("day")

	view, err := h.deps.Freshness(r.Context(), kind, day)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%s: %w: %w", op, ErrBadRequest, err))
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// queryInt parses an integer query parameter, falling back on absence or
// garbage.
func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
