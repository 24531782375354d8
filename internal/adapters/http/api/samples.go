// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/somacore/soma/internal/domain/model"
)

// SamplesHandler handles sample ingestion requests.
type SamplesHandler struct {
	deps Dependencies
}

// NewSamplesHandler creates a new samples handler.
func NewSamplesHandler(deps Dependencies) *SamplesHandler {
	return &SamplesHandler{deps: deps}
}

// HandlePostSamples handles POST /v1/samples requests.
func (h *SamplesHandler) HandlePostSamples(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_samples"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%s: %w: %w", op, ErrBadRequest, err))
		return
	}
	if len(req.Samples) == 0 {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%s: %w: empty batch", op, ErrBadRequest))
		return
	}

	batch := make([]model.Sample, 0, len(req.Samples))
	for i, in := range req.Samples {
		if err := in.validate(); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%s: sample %d: %w: %w", op, i, ErrBadRequest, err))
			return
		}
		batch = append(batch, in.toSample())
	}

	accepted, duplicates, err := h.deps.Ingest(r.Context(), batch)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", fmt.Errorf("%s: %w", op, err))
		return
	}

	status := "accepted"
	if accepted == 0 {
		status = "duplicate"
	}
	writeJSON(w, http.StatusAccepted, ingestResponse{
		Status:     status,
		Accepted:   accepted,
		Duplicates: duplicates,
	})
}
