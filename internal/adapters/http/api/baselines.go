// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"fmt"
	"net/http"
	"strings"
)

// BaselinesHandler handles baseline diagnostics requests.
type BaselinesHandler struct {
	deps Dependencies
}

// NewBaselinesHandler creates a new baselines handler.
func NewBaselinesHandler(deps Dependencies) *BaselinesHandler {
	return &BaselinesHandler{deps: deps}
}

// HandleGetBaseline handles GET /v1/baselines/{metric}?day= requests.
func (h *BaselinesHandler) HandleGetBaseline(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_baseline"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	metric := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/baselines/"), "/")
	if metric == "" || strings.Contains(metric, "/") {
		http.NotFound(w, r)
		return
	}
	day := r.URL.Query().Get("day")

	view, err := h.deps.Baseline(r.Context(), metric, day)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%s: %w: %w", op, ErrBadRequest, err))
		return
	}
	writeJSON(w, http.StatusOK, view)
}
