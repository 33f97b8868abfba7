package api

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/townscope/townscope/internal/catalog"
	"github.com/townscope/townscope/internal/metrics"
	"github.com/townscope/townscope/pkg/profile"
	"github.com/townscope/townscope/pkg/scoring"
	"github.com/townscope/townscope/pkg/town"
)

type scoreRequest struct {
	Profile   json.RawMessage `json:"profile" validate:"required_without=ProfileID"`
	ProfileID string          `json:"profile_id" validate:"max=128"`
	Town      *town.Town      `json:"town" validate:"required_without=TownID"`
	TownID    string          `json:"town_id" validate:"max=128"`
}

type rankRequest struct {
	Profile   json.RawMessage `json:"profile" validate:"required_without=ProfileID"`
	ProfileID string          `json:"profile_id" validate:"max=128"`
	Country   string          `json:"country" validate:"max=64"`
	Limit     int             `json:"limit" validate:"gte=0,lte=500"`
	Offset    int             `json:"offset" validate:"gte=0"`
}

type rankResponse struct {
	ConfigVersion string                `json:"config_version"`
	Total         int                   `json:"total"`
	Offset        int                   `json:"offset"`
	Cached        bool                  `json:"cached"`
	Results       []scoring.MatchResult `json:"results"`
}

type weightsResponse struct {
	ConfigVersion string          `json:"config_version"`
	Weights       scoring.Weights `json:"weights"`
	AppliedRules  []string        `json:"applied_rules"`
}

// resolveProfile returns the inline profile if present, else the stored one.
func (h *Handler) resolveProfile(ctx context.Context, raw json.RawMessage, id string) (profile.Profile, error) {
	if len(raw) > 0 {
		p, err := profile.Parse(raw)
		if err != nil {
			return profile.Profile{}, &ValidationError{Fields: map[string]string{"profile": "must be a JSON object"}}
		}
		return p, nil
	}
	stored, err := h.store.GetProfile(ctx, id)
	if err != nil {
		return profile.Profile{}, err
	}
	return stored.Profile()
}

func (h *Handler) handleScore(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if err := decodeRequest(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	p, err := h.resolveProfile(r.Context(), req.Profile, req.ProfileID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	t := req.Town
	if t == nil {
		t, err = h.store.GetTown(r.Context(), req.TownID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
	}

	result := h.engine.Score(&p, t)
	metrics.RecordScored("api", 1)
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleRank(w http.ResponseWriter, r *http.Request) {
	var req rankRequest
	if err := decodeRequest(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	p, err := h.resolveProfile(r.Context(), req.Profile, req.ProfileID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	all, cached, err := h.rankAll(r.Context(), &p, req.Country)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	cfg := h.engine.Config()
	writeJSON(w, http.StatusOK, rankResponse{
		ConfigVersion: cfg.Version(),
		Total:         len(all),
		Offset:        req.Offset,
		Cached:        cached,
		Results:       page(all, req.Offset, req.Limit),
	})
}

// rankAll returns the full ranking of the catalog for p, from the cache when
// possible. The key carries the catalog version, so a ranking filled from an
// older catalog is never served after the catalog changes. Concurrent misses
// for the same key share one ranking pass.
func (h *Handler) rankAll(ctx context.Context, p *profile.Profile, country string) ([]scoring.MatchResult, bool, error) {
	towns, _, err := h.store.ListTowns(ctx, catalog.TownFilter{Country: country})
	if err != nil {
		return nil, false, err
	}

	cfg := h.engine.Config()
	key := strings.Join([]string{
		p.Hash(),
		cfg.Version(),
		strings.ToLower(strings.TrimSpace(country)),
		catalogVersion(towns),
	}, "|")

	if results, ok := h.cache.Get(key); ok {
		metrics.RecordCacheLookup(h.cache.Name(), true)
		return results, true, nil
	}
	metrics.RecordCacheLookup(h.cache.Name(), false)

	v, err, _ := h.flight.Do(key, func() (any, error) {
		// Shared by every waiter, so one caller's cancellation must not end it.
		fillCtx := context.WithoutCancel(ctx)
		start := time.Now()
		results, err := h.engine.Rank(fillCtx, p, towns, scoring.RankOptions{Workers: h.workers})
		if err != nil {
			return nil, err
		}
		metrics.RecordRank(len(towns), time.Since(start))
		h.cache.Put(key, results)
		return results, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.([]scoring.MatchResult), false, nil
}

// catalogVersion hashes the IDs and content fingerprints of towns.
func catalogVersion(towns []town.Town) string {
	hash := sha256.New()
	for i := range towns {
		hash.Write([]byte(towns[i].ID))
		hash.Write([]byte{0})
		hash.Write([]byte(towns[i].Fingerprint()))
		hash.Write([]byte{0})
	}
	return hex.EncodeToString(hash.Sum(nil)[:8])
}

func page(results []scoring.MatchResult, offset, limit int) []scoring.MatchResult {
	if offset >= len(results) {
		return []scoring.MatchResult{}
	}
	results = results[offset:]
	if limit > 0 && limit < len(results) {
		results = results[:limit]
	}
	return results
}

func (h *Handler) handleWeights(w http.ResponseWriter, r *http.Request) {
	p := profile.Profile{}
	if id := r.URL.Query().Get("profile_id"); id != "" {
		var err error
		p, err = h.resolveProfile(r.Context(), nil, id)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
	}

	cfg := h.engine.Config()
	weights, rules := scoring.ComputeWeights(&p, &cfg)
	if rules == nil {
		rules = []string{}
	}
	writeJSON(w, http.StatusOK, weightsResponse{
		ConfigVersion: cfg.Version(),
		Weights:       weights,
		AppliedRules:  rules,
	})
}
