// Package api implements the hosted Townscope REST API.
// It serves scoring, ranking, and catalog endpoints backed by a catalog
// store and blob storage.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/sync/singleflight"

	"github.com/townscope/townscope/internal/catalog"
	"github.com/townscope/townscope/internal/ingestion"
	"github.com/townscope/townscope/internal/logging"
	"github.com/townscope/townscope/pkg/scoring"
)

// Options tunes a Handler.
type Options struct {
	// Cache defaults to a 128-entry LRU.
	Cache ResultCache
	// RankWorkers bounds scoring parallelism per ranking; 0 uses GOMAXPROCS.
	RankWorkers int
}

// Handler is the top-level API handler for the hosted Townscope service.
type Handler struct {
	store     catalog.Store
	ingestSvc *ingestion.Service
	engine    *scoring.Engine
	cache     ResultCache
	flight    singleflight.Group
	workers   int
}

// NewHandler creates a new API handler. A nil engine uses scoring defaults.
// ingestSvc may be nil, which disables runs, reports, and imports.
func NewHandler(store catalog.Store, ingestSvc *ingestion.Service, engine *scoring.Engine, opts Options) *Handler {
	if engine == nil {
		engine = scoring.NewEngine(nil)
	}
	cache := opts.Cache
	if cache == nil {
		cache = NewLRUResultCache(128)
	}
	return &Handler{
		store:     store,
		ingestSvc: ingestSvc,
		engine:    engine,
		cache:     cache,
		workers:   opts.RankWorkers,
	}
}

// RegisterRoutes registers all API routes on the given ServeMux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Scoring
	mux.HandleFunc("POST /api/v1/score", h.handleScore)
	mux.HandleFunc("POST /api/v1/rank", h.handleRank)
	mux.HandleFunc("GET /api/v1/weights", h.handleWeights)

	// Town catalog
	mux.HandleFunc("GET /api/v1/towns", h.handleListTowns)
	mux.HandleFunc("GET /api/v1/towns/{townID}", h.handleGetTown)
	mux.HandleFunc("PUT /api/v1/towns/{townID}", h.handlePutTown)
	mux.HandleFunc("DELETE /api/v1/towns/{townID}", h.handleDeleteTown)

	// Profiles and persisted runs
	mux.HandleFunc("PUT /api/v1/profiles/{profileID}", h.handlePutProfile)
	mux.HandleFunc("GET /api/v1/profiles/{profileID}", h.handleGetProfile)
	mux.HandleFunc("POST /api/v1/profiles/{profileID}/runs", h.handleCreateRun)
	mux.HandleFunc("GET /api/v1/profiles/{profileID}/matches", h.handleListMatches)
	mux.HandleFunc("GET /api/v1/profiles/{profileID}/reports/{reportID}", h.handleGetReport)

	// Datasets
	mux.HandleFunc("POST /api/v1/datasets/import", h.handleImportDataset)
}

// InvalidateResults drops cached rankings. Call after the catalog changes.
func (h *Handler) InvalidateResults() {
	h.cache.Purge()
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps store, storage, and validation errors to responses.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "invalid request",
			"fields": verr.Fields,
		})
	case errors.Is(err, ingestion.ErrInvalidKey):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, catalog.ErrTownNotFound):
		writeError(w, http.StatusNotFound, "town not found")
	case errors.Is(err, catalog.ErrProfileNotFound):
		writeError(w, http.StatusNotFound, "profile not found")
	case errors.Is(err, catalog.ErrRunNotFound):
		writeError(w, http.StatusNotFound, "no completed run")
	case errors.Is(err, ingestion.ErrBlobNotFound):
		writeError(w, http.StatusNotFound, "blob not found")
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		writeError(w, http.StatusServiceUnavailable, "storage unavailable")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "request cancelled")
	default:
		logging.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
