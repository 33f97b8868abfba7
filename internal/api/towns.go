package api

import (
	"net/http"
	"strconv"

	"github.com/townscope/townscope/internal/catalog"
	"github.com/townscope/townscope/pkg/town"
)

type listTownsResponse struct {
	Towns []town.Town `json:"towns"`
	Total int         `json:"total"`
}

func (h *Handler) handleListTowns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := catalog.TownFilter{Country: q.Get("country")}

	for name, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeServiceError(w, r, &ValidationError{Fields: map[string]string{name: "must be a non-negative integer"}})
			return
		}
		*dst = n
	}

	towns, total, err := h.store.ListTowns(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listTownsResponse{Towns: towns, Total: total})
}

func (h *Handler) handleGetTown(w http.ResponseWriter, r *http.Request) {
	t, err := h.store.GetTown(r.Context(), r.PathValue("townID"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handler) handlePutTown(w http.ResponseWriter, r *http.Request) {
	var t town.Town
	if err := decodeRequest(r, &t); err != nil {
		writeServiceError(w, r, err)
		return
	}
	// The path is authoritative for the ID.
	t.ID = r.PathValue("townID")

	if err := h.store.UpsertTown(r.Context(), &t); err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.InvalidateResults()
	writeJSON(w, http.StatusOK, t)
}

func (h *Handler) handleDeleteTown(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteTown(r.Context(), r.PathValue("townID")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.InvalidateResults()
	w.WriteHeader(http.StatusNoContent)
}
