// Shelfwise - Library Catalog Intelligence
// Copyright 2026 Shelfwise Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfwise/shelfwise

// Package api provides the HTTP surface over the intelligence components.
//
// Cold models, unknown ids, and empty histories answer 200 with empty or
// fallback payloads; 4xx is reserved for malformed requests and 5xx for
// genuine failures. A deployment that has not trained yet must look
// degraded, not broken.
package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/shelfwise/shelfwise/internal/intelligence"
	"github.com/shelfwise/shelfwise/internal/metrics"
	"github.com/shelfwise/shelfwise/internal/models"
)

// ReasonPopular is attached to popularity-fallback recommendations.
const ReasonPopular = "popular with readers"

// RecommendService is the recommender surface the handlers need.
type RecommendService interface {
	SimilarTo(bookID uuid.UUID, n int) ([]intelligence.Recommendation, error)
	ForUser(ctx context.Context, userID uuid.UUID, n int) ([]intelligence.Recommendation, error)
}

// SearchService is the semantic search surface the handlers need.
type SearchService interface {
	Query(ctx context.Context, query string, limit int) ([]intelligence.SearchResult, error)
	SimilarToBook(ctx context.Context, bookID uuid.UUID, limit int) ([]intelligence.SearchResult, error)
}

// ForecastService is the demand predictor surface the handlers need.
type ForecastService interface {
	Predict(ctx context.Context, bookID uuid.UUID, daysAhead int) (*intelligence.Forecast, error)
	TopPredictions(ctx context.Context, limit int) ([]intelligence.Forecast, error)
}

// Lifecycle is the coordinator surface the handlers need.
type Lifecycle interface {
	RequestRebuild(name, reason string) error
	Ready() intelligence.Readiness
	Statuses() []intelligence.ComponentStatus
	Initialized() bool
}

// CatalogReader provides the catalog reads the handlers do directly.
type CatalogReader interface {
	TopBooksByViews(ctx context.Context, limit int) ([]models.Book, error)
	Ping(ctx context.Context) error
}

// Handlers holds the endpoint implementations.
type Handlers struct {
	recommender RecommendService
	search      SearchService
	predictor   ForecastService
	lifecycle   Lifecycle
	catalog     CatalogReader
	validate    *validator.Validate
	logger      zerolog.Logger
}

// NewHandlers wires the endpoint implementations.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewHandlers(rec RecommendService, search SearchService, pred ForecastService, lc Lifecycle, catalog CatalogReader, logger zerolog.Logger) *Handlers {
	return &Handlers{
		recommender: rec,
		search:      search,
		predictor:   pred,
		lifecycle:   lc,
		catalog:     catalog,
		validate:    validator.New(),
		logger:      logger.With().Str("component", "api").Logger(),
	}
}

// recommendationsPayload is the body of recommendation responses.
type recommendationsPayload struct {
	Recommendations []intelligence.Recommendation `json:"recommendations"`
	ModelReady      bool                          `json:"model_ready"`
	Fallback        string                        `json:"fallback,omitempty"`
}

// BookRecommendations handles GET /api/v1/recommendations/book/{bookID}.
func (h *Handlers) BookRecommendations(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	bookID, ok := pathUUID(w, r, start, "bookID")
	if !ok {
		return
	}
	limit := queryInt(r, "limit", 5, 50)

	recs, err := h.recommender.SimilarTo(bookID, limit)
	if errors.Is(err, intelligence.ErrNotReady) {
		h.observe("recommend_book", "not_ready")
		respondJSON(w, http.StatusOK, start, recommendationsPayload{Recommendations: []intelligence.Recommendation{}})
		return
	}
	if err != nil {
		h.observe("recommend_book", "error")
		respondError(w, http.StatusInternalServerError, start, codeInternal, "recommendation failed", err)
		return
	}

	h.observe("recommend_book", outcomeFor(len(recs)))
	respondJSON(w, http.StatusOK, start, recommendationsPayload{Recommendations: recs, ModelReady: true})
}

// UserRecommendations handles GET /api/v1/recommendations/user/{userID}.
// Users without history get the popularity fallback.
func (h *Handlers) UserRecommendations(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	userID, ok := pathUUID(w, r, start, "userID")
	if !ok {
		return
	}
	limit := queryInt(r, "limit", 5, 50)

	recs, err := h.recommender.ForUser(r.Context(), userID, limit)
	switch {
	case errors.Is(err, intelligence.ErrNotReady):
		recs = nil
	case err != nil:
		h.observe("recommend_user", "error")
		respondError(w, http.StatusInternalServerError, start, codeInternal, "recommendation failed", err)
		return
	}

	payload := recommendationsPayload{
		Recommendations: recs,
		ModelReady:      h.lifecycle.Ready()[intelligence.ComponentRecommender],
	}
	if len(recs) == 0 {
		popular, err := h.popularFallback(r.Context(), limit)
		if err != nil {
			h.observe("recommend_user", "error")
			respondError(w, http.StatusInternalServerError, start, codeInternal, "recommendation failed", err)
			return
		}
		payload.Recommendations = popular
		payload.Fallback = "popularity"
	}

	h.observe("recommend_user", outcomeFor(len(payload.Recommendations)))
	respondJSON(w, http.StatusOK, start, payload)
}

// popularFallback ranks the most viewed books, scores scaled against the
// top one.
func (h *Handlers) popularFallback(ctx context.Context, limit int) ([]intelligence.Recommendation, error) {
	books, err := h.catalog.TopBooksByViews(ctx, limit)
	if err != nil {
		return nil, err
	}

	recs := make([]intelligence.Recommendation, 0, len(books))
	maxViews := 1
	if len(books) > 0 && books[0].Views > 0 {
		maxViews = books[0].Views
	}
	for i := range books {
		recs = append(recs, intelligence.Recommendation{
			Book:   books[i].Ref(),
			Score:  float64(books[i].Views) / float64(maxViews),
			Reason: ReasonPopular,
		})
	}
	return recs, nil
}

// searchPayload is the body of search responses.
type searchPayload struct {
	Query   string                      `json:"query,omitempty"`
	Results []intelligence.SearchResult `json:"results"`
}

// SemanticSearch handles GET /api/v1/search/semantic?q=&limit=.
func (h *Handlers) SemanticSearch(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	query := r.URL.Query().Get("q")
	limit := queryInt(r, "limit", 10, 50)

	results, err := h.search.Query(r.Context(), query, limit)
	if errors.Is(err, intelligence.ErrQueryTooShort) {
		h.observe("search", "error")
		respondError(w, http.StatusBadRequest, start, codeValidation, "query too short", nil)
		return
	}
	if err != nil {
		h.observe("search", "error")
		respondError(w, http.StatusInternalServerError, start, codeInternal, "search failed", err)
		return
	}

	h.observe("search", outcomeFor(len(results)))
	respondJSON(w, http.StatusOK, start, searchPayload{Query: query, Results: results})
}

// SimilarBooks handles GET /api/v1/search/similar/{bookID}.
func (h *Handlers) SimilarBooks(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	bookID, ok := pathUUID(w, r, start, "bookID")
	if !ok {
		return
	}
	limit := queryInt(r, "limit", 5, 50)

	results, err := h.search.SimilarToBook(r.Context(), bookID, limit)
	if err != nil {
		h.observe("search_similar", "error")
		respondError(w, http.StatusInternalServerError, start, codeInternal, "similar search failed", err)
		return
	}

	h.observe("search_similar", outcomeFor(len(results)))
	respondJSON(w, http.StatusOK, start, searchPayload{Results: results})
}

// BookForecast handles GET /api/v1/forecasts/book/{bookID}?days=.
func (h *Handlers) BookForecast(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	bookID, ok := pathUUID(w, r, start, "bookID")
	if !ok {
		return
	}
	days := queryInt(r, "days", 7, 30)

	forecast, err := h.predictor.Predict(r.Context(), bookID, days)
	if err != nil {
		h.observe("forecast", "error")
		respondError(w, http.StatusInternalServerError, start, codeInternal, "forecast failed", err)
		return
	}

	outcome := "ok"
	if forecast.Status != intelligence.ForecastOK {
		outcome = "not_ready"
	}
	h.observe("forecast", outcome)
	respondJSON(w, http.StatusOK, start, forecast)
}

// TopForecasts handles GET /api/v1/forecasts/top?limit=.
func (h *Handlers) TopForecasts(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	limit := queryInt(r, "limit", 5, 20)

	forecasts, err := h.predictor.TopPredictions(r.Context(), limit)
	if err != nil {
		h.observe("forecast_top", "error")
		respondError(w, http.StatusInternalServerError, start, codeInternal, "forecast failed", err)
		return
	}

	h.observe("forecast_top", outcomeFor(len(forecasts)))
	respondJSON(w, http.StatusOK, start, map[string]interface{}{"forecasts": forecasts})
}

// rebuildRequest is the POST /api/v1/admin/rebuild body.
type rebuildRequest struct {
	Component string `json:"component" validate:"omitempty,oneof=all recommender search predictor"`
	Reason    string `json:"reason" validate:"omitempty,max=200"`
}

// Rebuild handles POST /api/v1/admin/rebuild.
func (h *Handlers) Rebuild(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	// An empty body means "rebuild everything".
	var req rebuildRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, start, codeValidation, "malformed request body", nil)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		respondError(w, http.StatusBadRequest, start, codeValidation, "invalid rebuild request", nil)
		return
	}
	if req.Reason == "" {
		req.Reason = "admin"
	}

	if err := h.lifecycle.RequestRebuild(req.Component, req.Reason); err != nil {
		if errors.Is(err, intelligence.ErrUnknownEntity) {
			respondError(w, http.StatusBadRequest, start, codeValidation, "unknown component", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, start, codeInternal, "rebuild trigger failed", err)
		return
	}

	h.logger.Info().Str("target", req.Component).Str("reason", req.Reason).Msg("rebuild requested")
	respondJSON(w, http.StatusAccepted, start, map[string]string{"state": "queued"})
}

// statusPayload is the body of the status endpoint.
type statusPayload struct {
	Initialized bool                           `json:"initialized"`
	Ready       intelligence.Readiness         `json:"ready"`
	Components  []intelligence.ComponentStatus `json:"components"`
}

// IntelligenceStatus handles GET /api/v1/intelligence/status.
func (h *Handlers) IntelligenceStatus(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	respondJSON(w, http.StatusOK, start, statusPayload{
		Initialized: h.lifecycle.Initialized(),
		Ready:       h.lifecycle.Ready(),
		Components:  h.lifecycle.Statuses(),
	})
}

// Health handles GET /healthz.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if err := h.catalog.Ping(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, start, codeInternal, "database unreachable", err)
		return
	}
	respondJSON(w, http.StatusOK, start, map[string]string{"state": "healthy"})
}

// pathUUID parses a UUID path parameter, answering 400 on failure.
func pathUUID(w http.ResponseWriter, r *http.Request, start time.Time, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		respondError(w, http.StatusBadRequest, start, codeValidation, "invalid "+name, nil)
		return uuid.Nil, false
	}
	return id, true
}

// queryInt parses a positive int query parameter with default and ceiling.
func queryInt(r *http.Request, name string, def, ceiling int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	if n > ceiling {
		return ceiling
	}
	return n
}

// observe records a completed intelligence query.
func (h *Handlers) observe(operation, outcome string) {
	metrics.IntelligenceQueries.WithLabelValues(operation, outcome).Inc()
}

// outcomeFor maps a result count to a query outcome label.
func outcomeFor(n int) string {
	if n == 0 {
		return "empty"
	}
	return "ok"
}
