// Rentrank - Rental Marketplace Recommendation Service
// Copyright 2026 Rentrank Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rentrank/rentrank

package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/rentrank/rentrank/internal/logging"
	"github.com/rentrank/rentrank/internal/metrics"
	"github.com/rentrank/rentrank/internal/recommend"
	"github.com/rentrank/rentrank/internal/store"
)

// Handler serves the recommendation API.
type Handler struct {
	engine   *recommend.Engine
	store    *store.Store
	validate *validator.Validate
}

// NewHandler creates the API handler.
func NewHandler(engine *recommend.Engine, st *store.Store) *Handler {
	return &Handler{
		engine:   engine,
		store:    st,
		validate: validator.New(),
	}
}

// recommendationsResponse wraps the ranked result list.
type recommendationsResponse struct {
	Recommendations []recommend.Recommendation `json:"recommendations"`
	Count           int                        `json:"count"`
}

// Recommendations handles GET /api/v1/recommendations.
func (h *Handler) Recommendations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := recommend.Request{
		UserID:   q.Get("user_id"),
		Occasion: q.Get("occasion"),
		Category: q.Get("category"),
		TopN:     h.engine.DefaultTopN(),
	}

	// An absent top_n means the configured default; an explicit
	// non-positive value is rejected by the engine.
	if raw := q.Get("top_n"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "top_n must be an integer")
			return
		}
		req.TopN = n
	}

	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "user_id, occasion, and category are required")
		return
	}

	start := time.Now()
	recs, err := h.engine.Recommend(req.UserID, req.Occasion, req.Category, req.TopN)
	if err != nil {
		switch {
		case errors.Is(err, recommend.ErrInvalidTopN):
			metrics.RecordRecommendQuery("error", time.Since(start))
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, recommend.ErrNotLoaded):
			metrics.RecordRecommendQuery("error", time.Since(start))
			writeError(w, http.StatusServiceUnavailable, "no interaction table loaded")
		default:
			metrics.RecordRecommendQuery("error", time.Since(start))
			logging.Error().Err(err).Msg("Recommendation query failed")
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	outcome := "hit"
	if len(recs) == 0 {
		outcome = "empty"
	}
	metrics.RecordRecommendQuery(outcome, time.Since(start))

	writeJSON(w, http.StatusOK, recommendationsResponse{
		Recommendations: recs,
		Count:           len(recs),
	})
}

// Options handles GET /api/v1/catalog/options.
func (h *Handler) Options(w http.ResponseWriter, r *http.Request) {
	opts, err := h.engine.Options()
	if err != nil {
		if errors.Is(err, recommend.ErrNotLoaded) {
			writeError(w, http.StatusServiceUnavailable, "no interaction table loaded")
			return
		}
		logging.Error().Err(err).Msg("Catalog options query failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, opts)
}

// reloadResponse reports the shape of the freshly loaded table.
type reloadResponse struct {
	Rows    int `json:"rows"`
	Columns int `json:"columns"`
}

// Reload handles POST /api/v1/reload. It re-reads the persisted interaction
// table and swaps it into the engine.
func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	tbl, err := h.store.LoadInteractions(r.Context())
	if err != nil {
		if errors.Is(err, store.ErrNoInteractions) {
			writeError(w, http.StatusConflict, "no interaction table has been persisted")
			return
		}
		logging.Error().Err(err).Msg("Reload failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.engine.Load(tbl)
	writeJSON(w, http.StatusOK, reloadResponse{Rows: tbl.NumRows(), Columns: tbl.NumCols()})
}

// healthResponse reports service liveness and data readiness.
type healthResponse struct {
	Status string `json:"status"`
	Loaded bool   `json:"loaded"`
}

// Health handles GET /api/v1/health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status: "ok",
		Loaded: h.engine.Loaded(),
	})
}

// HealthLive handles GET /api/v1/health/live. Always healthy while the
// process runs.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

// HealthReady handles GET /api/v1/health/ready. Ready means the engine can
// serve queries.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if !h.engine.Loaded() {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "not ready"})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Loaded: true})
}
