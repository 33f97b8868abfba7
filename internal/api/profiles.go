package api

import (
	"io"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/townscope/townscope/internal/catalog"
	"github.com/townscope/townscope/internal/ingestion"
	"github.com/townscope/townscope/pkg/profile"
	"github.com/townscope/townscope/pkg/scoring"
)

type profileResponse struct {
	*catalog.StoredProfile
	Normalized profile.Profile `json:"normalized"`
	Coverage   float64         `json:"coverage"`
}

type createRunRequest struct {
	Country string `json:"country" validate:"max=64"`
	Limit   int    `json:"limit" validate:"gte=0,lte=1000"`
}

type matchesResponse struct {
	Run     *catalog.MatchRun     `json:"run,omitempty"`
	Results []scoring.MatchResult `json:"results"`
}

type importRequest struct {
	Key string `json:"key" validate:"required,max=256"`
}

func (h *Handler) handlePutProfile(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body: "+err.Error())
		return
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		writeServiceError(w, r, &ValidationError{Fields: map[string]string{"body": "must be a JSON object"}})
		return
	}

	stored, err := h.store.UpsertProfile(r.Context(), r.PathValue("profileID"), raw)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeProfile(w, r, stored)
}

func (h *Handler) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	stored, err := h.store.GetProfile(r.Context(), r.PathValue("profileID"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeProfile(w, r, stored)
}

func writeProfile(w http.ResponseWriter, r *http.Request, stored *catalog.StoredProfile) {
	p, err := stored.Profile()
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profileResponse{
		StoredProfile: stored,
		Normalized:    p,
		Coverage:      p.Coverage(),
	})
}

func (h *Handler) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	if h.ingestSvc == nil {
		writeError(w, http.StatusNotImplemented, "runs are not enabled")
		return
	}
	var req createRunRequest
	if err := decodeRequest(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	out, err := h.ingestSvc.RankProfile(r.Context(), r.PathValue("profileID"), ingestion.RankRequest{
		Country: req.Country,
		Limit:   req.Limit,
		Workers: h.workers,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (h *Handler) handleListMatches(w http.ResponseWriter, r *http.Request) {
	profileID := r.PathValue("profileID")
	runID := r.URL.Query().Get("run_id")

	var run *catalog.MatchRun
	if runID == "" {
		latest, err := h.store.LatestRun(r.Context(), profileID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		run, runID = latest, latest.ID
	}

	results, err := h.store.ListMatchResults(r.Context(), profileID, runID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, matchesResponse{Run: run, Results: results})
}

func (h *Handler) handleGetReport(w http.ResponseWriter, r *http.Request) {
	if h.ingestSvc == nil {
		writeError(w, http.StatusNotImplemented, "reports are not enabled")
		return
	}
	data, err := h.ingestSvc.Report(r.Context(), r.PathValue("profileID"), r.PathValue("reportID"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

func (h *Handler) handleImportDataset(w http.ResponseWriter, r *http.Request) {
	if h.ingestSvc == nil {
		writeError(w, http.StatusNotImplemented, "imports are not enabled")
		return
	}
	var req importRequest
	if err := decodeRequest(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	res, err := h.ingestSvc.ImportDataset(r.Context(), req.Key)
	if res != nil && res.Upserted > 0 {
		h.InvalidateResults()
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
