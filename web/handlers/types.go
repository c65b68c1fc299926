package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/tabletoplab/gamescout/pkg/types"
)

// ErrorResponse is the standard error response format for the API.
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Code    string                 `json:"code"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Error codes returned by the recommendation API. Clients branch on
// these rather than on HTTP status alone.
const (
	CodeInvalidRequest      = "invalid_request"
	CodeAmbiguousAnchor     = "ambiguous_anchor"
	CodeEmptyCollection     = "empty_collection"
	CodeNoCandidates        = "no_candidates"
	CodeProviderUnavailable = "provider_unavailable"
	CodeNotFound            = "not_found"
	CodeCancelled           = "cancelled"
	CodeUnauthorized        = "unauthorized"
	CodeRateLimited         = "rate_limited"
	CodeInternal            = "internal_error"
)

// RecommendRequest is the request format for POST /api/recommend.
type RecommendRequest struct {
	Message string        `json:"message"`
	UserID  string        `json:"user_id,omitempty"`
	TopK    int           `json:"top_k,omitempty"`
	Context types.Context `json:"context,omitempty"`
}

// RecommendResponse is the response format for POST /api/recommend.
type RecommendResponse struct {
	RequestID string               `json:"request_id"`
	Query     types.QuerySpec      `json:"query"`
	Results   []types.ScoredResult `json:"results"`
	ElapsedMS int64                `json:"elapsed_ms"`
}

// GameResponse is the response format for GET /api/games/{id}.
type GameResponse struct {
	Game *types.Game `json:"game"`
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// If encoding fails, log but don't try to write another response
		// (headers already sent)
		fmt.Printf("failed to encode JSON response: %v\n", err)
	}
}

// respondError writes an error response with the given status and code.
func respondError(w http.ResponseWriter, statusCode int, code, message string) {
	respondJSON(w, statusCode, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
