package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/townscope/townscope/pkg/scoring"
	"github.com/townscope/townscope/pkg/town"
)

// Service provides the catalog backed by Postgres.
type Service struct {
	db *sql.DB
}

// NewService creates a new catalog Service.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

var _ Store = (*Service)(nil)

// UpsertTown inserts or replaces a town record.
func (s *Service) UpsertTown(ctx context.Context, t *town.Town) error {
	if t.ID == "" {
		return fmt.Errorf("upsert town: missing id")
	}
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal town %s: %w", t.ID, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO towns (id, name, country, data, content_hash)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE
		   SET name = EXCLUDED.name,
		       country = EXCLUDED.country,
		       data = EXCLUDED.data,
		       content_hash = EXCLUDED.content_hash,
		       updated_at = now()
		 WHERE towns.content_hash <> EXCLUDED.content_hash`,
		t.ID, t.Name, t.Country, string(data), t.Fingerprint(),
	)
	if err != nil {
		return fmt.Errorf("upsert town %s: %w", t.ID, err)
	}
	return nil
}

// GetTown retrieves a town by ID.
func (s *Service) GetTown(ctx context.Context, id string) (*town.Town, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM towns WHERE id = $1`, id,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get town %s: %w", id, ErrTownNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get town %s: %w", id, err)
	}
	return decodeTown(data)
}

// ListTowns returns towns ordered by ID along with the total matching count.
func (s *Service) ListTowns(ctx context.Context, f TownFilter) ([]town.Town, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM towns WHERE ($1 = '' OR lower(country) = lower($1))`,
		f.Country,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count towns: %w", err)
	}

	// LIMIT NULL means no limit.
	var limit *int
	if f.Limit > 0 {
		limit = &f.Limit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT data FROM towns
		 WHERE ($1 = '' OR lower(country) = lower($1))
		 ORDER BY id
		 LIMIT $2 OFFSET $3`,
		f.Country, limit, max(f.Offset, 0),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list towns: %w", err)
	}
	defer rows.Close()

	towns := []town.Town{}
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, 0, fmt.Errorf("scan town: %w", err)
		}
		t, err := decodeTown(data)
		if err != nil {
			return nil, 0, err
		}
		towns = append(towns, *t)
	}
	return towns, total, rows.Err()
}

// DeleteTown removes a town.
func (s *Service) DeleteTown(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM towns WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete town %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("delete town %s: %w", id, ErrTownNotFound)
	}
	return nil
}

// UpsertProfile stores the raw preference record for a profile ID.
func (s *Service) UpsertProfile(ctx context.Context, id string, raw json.RawMessage) (*StoredProfile, error) {
	hash, err := profileHash(raw)
	if err != nil {
		return nil, fmt.Errorf("upsert profile %s: %w", id, err)
	}

	p := &StoredProfile{ID: id, Hash: hash}
	var data []byte
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO profiles (id, raw, profile_hash)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE
		   SET raw = EXCLUDED.raw, profile_hash = EXCLUDED.profile_hash, updated_at = now()
		 RETURNING raw, created_at, updated_at`,
		id, string(raw), hash,
	).Scan(&data, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("upsert profile %s: %w", id, err)
	}
	p.Raw = data
	return p, nil
}

// GetProfile retrieves a stored profile.
func (s *Service) GetProfile(ctx context.Context, id string) (*StoredProfile, error) {
	p := &StoredProfile{}
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT id, raw, profile_hash, created_at, updated_at FROM profiles WHERE id = $1`,
		id,
	).Scan(&p.ID, &data, &p.Hash, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get profile %s: %w", id, ErrProfileNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get profile %s: %w", id, err)
	}
	p.Raw = data
	return p, nil
}

// CreateMatchRun records a new QUEUED run. An empty run.ID is assigned.
func (s *Service) CreateMatchRun(ctx context.Context, run *MatchRun) (*MatchRun, error) {
	r := *run
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Status == "" {
		r.Status = StatusQueued
	}
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO match_runs (id, profile_id, status, config_version, profile_hash)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at, updated_at`,
		r.ID, r.ProfileID, r.Status, r.ConfigVersion, r.ProfileHash,
	).Scan(&r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create match run: %w", err)
	}
	return &r, nil
}

// UpdateRunStatus updates the status and optional error message.
func (s *Service) UpdateRunStatus(ctx context.Context, runID, status string, errMsg *string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE match_runs SET status = $1, error_message = $2, updated_at = now() WHERE id = $3`,
		status, errMsg, runID,
	)
	if err != nil {
		return fmt.Errorf("update run status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update run %s: %w", runID, ErrRunNotFound)
	}
	return nil
}

// SaveMatchResults stores the ranked results of a run in one transaction and
// marks the run COMPLETED.
func (s *Service) SaveMatchResults(ctx context.Context, runID string, results []scoring.MatchResult, reportRef string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO match_results (run_id, town_id, rank, overall_score, quality_tier, result)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (run_id, town_id) DO UPDATE
		   SET rank = EXCLUDED.rank, overall_score = EXCLUDED.overall_score,
		       quality_tier = EXCLUDED.quality_tier, result = EXCLUDED.result`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i := range results {
		data, err := json.Marshal(&results[i])
		if err != nil {
			return fmt.Errorf("marshal result %s: %w", results[i].TownID, err)
		}
		if _, err := stmt.ExecContext(ctx,
			runID, results[i].TownID, i+1, results[i].OverallScore, string(results[i].QualityTier), string(data),
		); err != nil {
			return fmt.Errorf("insert result %s: %w", results[i].TownID, err)
		}
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE match_runs
		 SET status = $1, town_count = $2, report_ref = $3, error_message = NULL, updated_at = now()
		 WHERE id = $4`,
		StatusCompleted, len(results), nilIfEmpty(reportRef), runID,
	)
	if err != nil {
		return fmt.Errorf("finalize run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finalize run %s: %w", runID, ErrRunNotFound)
	}

	return tx.Commit()
}

// ListMatchResults returns a run's results in rank order. An empty runID
// selects the profile's latest completed run.
func (s *Service) ListMatchResults(ctx context.Context, profileID, runID string) ([]scoring.MatchResult, error) {
	if runID == "" {
		run, err := s.LatestRun(ctx, profileID)
		if err != nil {
			return nil, err
		}
		runID = run.ID
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT r.result FROM match_results r
		 JOIN match_runs m ON m.id = r.run_id
		 WHERE r.run_id = $1 AND m.profile_id = $2
		 ORDER BY r.rank`,
		runID, profileID,
	)
	if err != nil {
		return nil, fmt.Errorf("list match results: %w", err)
	}
	defer rows.Close()

	results := []scoring.MatchResult{}
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan match result: %w", err)
		}
		var m scoring.MatchResult
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("decode match result: %w", err)
		}
		results = append(results, m)
	}
	return results, rows.Err()
}

// LatestRun returns the most recent completed run for a profile.
func (s *Service) LatestRun(ctx context.Context, profileID string) (*MatchRun, error) {
	r := &MatchRun{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, profile_id, status, config_version, profile_hash, town_count,
		        report_ref, error_message, created_at, updated_at
		 FROM match_runs WHERE profile_id = $1 AND status = $2
		 ORDER BY created_at DESC LIMIT 1`,
		profileID, StatusCompleted,
	).Scan(&r.ID, &r.ProfileID, &r.Status, &r.ConfigVersion, &r.ProfileHash, &r.TownCount,
		&r.ReportRef, &r.Error, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("latest run for %s: %w", profileID, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("latest run for %s: %w", profileID, err)
	}
	return r, nil
}

func decodeTown(data []byte) (*town.Town, error) {
	var t town.Town
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decode town: %w", err)
	}
	return &t, nil
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
