// Package handlers provides HTTP handlers and middleware for the
// GameScout web API.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/tabletoplab/gamescout/internal/engine"
	"github.com/tabletoplab/gamescout/internal/storage"
)

// maxRecommendBodyBytes bounds the request body for POST /api/recommend.
const maxRecommendBodyBytes = 16 * 1024

// RecommendHandlers serves the recommendation endpoints.
type RecommendHandlers struct {
	recommender *engine.Recommender
	catalog     storage.GameCatalog
	hub         *ActivityHub // optional; nil disables broadcasts
}

// NewRecommendHandlers creates the handler set. The hub may be nil when
// the activity feed is disabled.
func NewRecommendHandlers(recommender *engine.Recommender, catalog storage.GameCatalog, hub *ActivityHub) *RecommendHandlers {
	return &RecommendHandlers{recommender: recommender, catalog: catalog, hub: hub}
}

// Recommend handles POST /api/recommend: interpret the free-text message,
// resolve candidates, and return the ranked results with explanations.
func (h *RecommendHandlers) Recommend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, CodeInvalidRequest, "method not allowed")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRecommendBodyBytes)
	var req RecommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, CodeInvalidRequest, "invalid JSON body")
		return
	}
	if req.Message == "" {
		respondError(w, http.StatusBadRequest, CodeInvalidRequest, "message is required")
		return
	}

	requestID := uuid.New().String()
	ranked, err := h.recommender.ResolveAndRank(r.Context(), req.Message, req.Context, req.UserID, req.TopK)
	if err != nil {
		writeEngineError(w, r, requestID, err)
		return
	}

	if h.hub != nil {
		h.hub.Broadcast(ActivityEvent{
			ID:        requestID,
			Type:      "recommendation",
			Intent:    string(ranked.QuerySpec.Intent),
			Scope:     string(ranked.QuerySpec.Scope),
			Results:   len(ranked.Results),
			Timestamp: time.Now().UTC(),
		})
	}

	respondJSON(w, http.StatusOK, RecommendResponse{
		RequestID: requestID,
		Query:     ranked.QuerySpec,
		Results:   ranked.Results,
		ElapsedMS: ranked.Elapsed.Milliseconds(),
	})
}

// GetGame handles GET /api/games/{id}.
func (h *RecommendHandlers) GetGame(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, CodeInvalidRequest, "method not allowed")
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, CodeInvalidRequest, "invalid game id")
		return
	}

	game, err := h.catalog.Lookup(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		respondError(w, http.StatusNotFound, CodeNotFound, "game not found")
		return
	}
	if err != nil {
		log.Printf("handlers: game lookup %d failed: %v", id, err)
		respondError(w, http.StatusInternalServerError, CodeInternal, "lookup failed")
		return
	}

	respondJSON(w, http.StatusOK, GameResponse{Game: game})
}

// Health handles GET /api/health. No auth required.
func (h *RecommendHandlers) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, CodeInvalidRequest, "method not allowed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"status":   "healthy",
		"embedder": h.recommender.EmbedderState(),
	})
}

// writeEngineError maps engine error taxonomy onto HTTP status and API
// error codes.
func writeEngineError(w http.ResponseWriter, r *http.Request, requestID string, err error) {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// 499 is the de-facto client-closed-request status.
		respondError(w, 499, CodeCancelled, "request cancelled")
	case errors.Is(err, engine.ErrAmbiguousAnchor):
		respondError(w, http.StatusUnprocessableEntity, CodeAmbiguousAnchor,
			"could not determine which game to anchor on; name a game or select one first")
	case errors.Is(err, engine.ErrEmptyCollection):
		respondError(w, http.StatusUnprocessableEntity, CodeEmptyCollection,
			"your collection is empty; add games or search the full catalog")
	case errors.Is(err, engine.ErrNoCandidates):
		respondError(w, http.StatusNotFound, CodeNoCandidates,
			"no games match the requested filters")
	case errors.Is(err, engine.ErrProviderUnavailable):
		respondError(w, http.StatusServiceUnavailable, CodeProviderUnavailable,
			"recommendation backend is temporarily unavailable")
	default:
		log.Printf("handlers: recommend %s failed: %v", requestID, err)
		respondError(w, http.StatusInternalServerError, CodeInternal, "recommendation failed")
	}
}
