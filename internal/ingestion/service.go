package ingestion

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/townscope/townscope/internal/catalog"
	"github.com/townscope/townscope/internal/logging"
	"github.com/townscope/townscope/internal/metrics"
	"github.com/townscope/townscope/pkg/scoring"
	"github.com/townscope/townscope/pkg/surface"
	"github.com/townscope/townscope/pkg/town"
)

// ImportResult summarizes one dataset import.
type ImportResult struct {
	Key      string `json:"key"`
	Towns    int    `json:"towns"`
	Upserted int    `json:"upserted"`
	// Skipped counts records without an ID.
	Skipped int `json:"skipped"`
	// Duplicates counts repeated IDs; the last record wins.
	Duplicates int `json:"duplicates"`
}

// RankRequest describes a persisted ranking run.
type RankRequest struct {
	Country string
	Limit   int
	Workers int
}

// RunResult is a completed ranking run.
type RunResult struct {
	Run     *catalog.MatchRun     `json:"run"`
	Total   int                   `json:"total"`
	Results []scoring.MatchResult `json:"results"`
}

// Service connects blob storage, the catalog, and the scoring engine.
type Service struct {
	store   catalog.Store
	storage StorageClient
	engine  *scoring.Engine
}

// NewService creates a new ingestion Service. A nil engine uses scoring defaults.
func NewService(store catalog.Store, storage StorageClient, engine *scoring.Engine) *Service {
	if engine == nil {
		engine = scoring.NewEngine(nil)
	}
	return &Service{store: store, storage: storage, engine: engine}
}

// ImportDataset fetches a dataset blob, decodes its towns, and upserts them
// into the catalog.
func (s *Service) ImportDataset(ctx context.Context, key string) (*ImportResult, error) {
	data, err := s.storage.GetDataset(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("fetch dataset %s: %w", key, err)
	}
	towns, err := town.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode dataset %s: %w", key, err)
	}

	res := &ImportResult{Key: key, Towns: len(towns)}

	// Keep the last record per ID, in first-seen order.
	index := make(map[string]int, len(towns))
	unique := make([]town.Town, 0, len(towns))
	for _, t := range towns {
		if t.ID == "" {
			res.Skipped++
			continue
		}
		if i, ok := index[t.ID]; ok {
			unique[i] = t
			res.Duplicates++
			continue
		}
		index[t.ID] = len(unique)
		unique = append(unique, t)
	}

	for i := range unique {
		if err := s.store.UpsertTown(ctx, &unique[i]); err != nil {
			metrics.RecordImport(res.Upserted)
			return res, fmt.Errorf("import dataset %s: %w", key, err)
		}
		res.Upserted++
	}
	metrics.RecordImport(res.Upserted)

	logging.Info().
		Str("key", key).
		Int("towns", res.Towns).
		Int("upserted", res.Upserted).
		Int("skipped", res.Skipped).
		Int("duplicates", res.Duplicates).
		Msg("dataset imported")
	return res, nil
}

// RankProfile ranks the catalog for a stored profile, writes a JSON report
// to storage, and persists the results. A run that fails after creation is
// left FAILED with the error message.
func (s *Service) RankProfile(ctx context.Context, profileID string, req RankRequest) (*RunResult, error) {
	stored, err := s.store.GetProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}
	p, err := stored.Profile()
	if err != nil {
		return nil, fmt.Errorf("parse profile %s: %w", profileID, err)
	}

	cfg := s.engine.Config()
	run, err := s.store.CreateMatchRun(ctx, &catalog.MatchRun{
		ProfileID:     profileID,
		ConfigVersion: cfg.Version(),
		ProfileHash:   p.Hash(),
	})
	if err != nil {
		return nil, err
	}
	log := logging.With().Str("run_id", run.ID).Str("profile_id", profileID).Logger()

	fail := func(err error) (*RunResult, error) {
		msg := err.Error()
		// The caller's context may be what failed; record the outcome regardless.
		if uerr := s.store.UpdateRunStatus(context.WithoutCancel(ctx), run.ID, catalog.StatusFailed, &msg); uerr != nil {
			log.Error().Err(uerr).Msg("mark run failed")
		}
		metrics.RecordRun("failed")
		log.Warn().Err(err).Msg("ranking run failed")
		return nil, err
	}

	if err := s.store.UpdateRunStatus(ctx, run.ID, catalog.StatusRunning, nil); err != nil {
		return fail(err)
	}

	towns, total, err := s.store.ListTowns(ctx, catalog.TownFilter{Country: req.Country})
	if err != nil {
		return fail(err)
	}

	start := time.Now()
	results, err := s.engine.Rank(ctx, &p, towns, scoring.RankOptions{Limit: req.Limit, Workers: req.Workers})
	if err != nil {
		return fail(fmt.Errorf("rank: %w", err))
	}
	metrics.RecordRank(len(towns), time.Since(start))

	report := surface.NewReport(&p, &cfg, results, total, 0)
	report.ID = uuid.NewString()
	var buf bytes.Buffer
	if err := (&surface.JSONRenderer{}).Render(&buf, report); err != nil {
		return fail(fmt.Errorf("render report: %w", err))
	}
	if err := s.storage.PutReport(ctx, profileID, report.ID, buf.Bytes()); err != nil {
		return fail(fmt.Errorf("store report: %w", err))
	}

	if err := s.store.SaveMatchResults(ctx, run.ID, results, report.ID); err != nil {
		return fail(fmt.Errorf("save results: %w", err))
	}
	metrics.RecordRun("completed")

	run.Status = catalog.StatusCompleted
	run.TownCount = len(results)
	run.ReportRef = &report.ID
	log.Info().Int("towns", total).Int("results", len(results)).Dur("elapsed", time.Since(start)).Msg("ranking run completed")

	return &RunResult{Run: run, Total: total, Results: results}, nil
}

// Report returns a stored ranking report.
func (s *Service) Report(ctx context.Context, profileID, reportID string) ([]byte, error) {
	return s.storage.GetReport(ctx, profileID, reportID)
}
