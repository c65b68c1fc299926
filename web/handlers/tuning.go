package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/tabletoplab/gamescout/internal/services"
)

// TuningHandlers serves the scorer tuning endpoints.
type TuningHandlers struct {
	tuning   *services.TuningService
	defaults services.Tuning
}

// NewTuningHandlers creates the handler set. defaults are the config
// values reported when nothing has been persisted yet.
func NewTuningHandlers(tuning *services.TuningService, defaults services.Tuning) *TuningHandlers {
	return &TuningHandlers{tuning: tuning, defaults: defaults}
}

// GetTuning handles GET /api/tuning.
func (h *TuningHandlers) GetTuning(w http.ResponseWriter, r *http.Request) {
	current, err := h.tuning.Get(h.defaults)
	if err != nil {
		log.Printf("handlers: load tuning failed: %v", err)
		respondError(w, http.StatusInternalServerError, CodeInternal, "failed to load tuning")
		return
	}
	respondJSON(w, http.StatusOK, current)
}

// PutTuning handles PUT /api/tuning: validates the weights against the
// live recommender, persists them, and applies them immediately.
func (h *TuningHandlers) PutTuning(w http.ResponseWriter, r *http.Request) {
	var req services.Tuning
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, CodeInvalidRequest, "invalid JSON body")
		return
	}

	applied, err := h.tuning.Apply(req)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, CodeInvalidRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, applied)
}
