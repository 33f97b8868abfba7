// Package catalog stores towns, preference profiles, and persisted ranking
// runs. Service is the Postgres implementation; Memory backs the local CLI
// server and tests.
package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/goccy/go-json"

	"github.com/townscope/townscope/pkg/profile"
	"github.com/townscope/townscope/pkg/scoring"
	"github.com/townscope/townscope/pkg/town"
)

var (
	ErrTownNotFound    = errors.New("town not found")
	ErrProfileNotFound = errors.New("profile not found")
	ErrRunNotFound     = errors.New("match run not found")
)

// Run statuses.
const (
	StatusQueued    = "QUEUED"
	StatusRunning   = "RUNNING"
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
)

// TownFilter narrows ListTowns. A zero Limit returns every match.
type TownFilter struct {
	Country string
	Limit   int
	Offset  int
}

// StoredProfile is a raw preference record as submitted by a client.
// It is normalized on read so normalizer changes apply retroactively.
type StoredProfile struct {
	ID        string          `json:"id"`
	Raw       json.RawMessage `json:"raw"`
	Hash      string          `json:"profile_hash"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Profile normalizes the stored record.
func (p *StoredProfile) Profile() (profile.Profile, error) {
	return profile.Parse(p.Raw)
}

// MatchRun is one persisted ranking of the catalog for a profile.
type MatchRun struct {
	ID            string    `json:"id"`
	ProfileID     string    `json:"profile_id"`
	Status        string    `json:"status"`
	ConfigVersion string    `json:"config_version"`
	ProfileHash   string    `json:"profile_hash"`
	TownCount     int       `json:"town_count"`
	ReportRef     *string   `json:"report_ref,omitempty"`
	Error         *string   `json:"error,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Store is the catalog surface used by the API and ingestion layers.
type Store interface {
	UpsertTown(ctx context.Context, t *town.Town) error
	GetTown(ctx context.Context, id string) (*town.Town, error)
	ListTowns(ctx context.Context, f TownFilter) ([]town.Town, int, error)
	DeleteTown(ctx context.Context, id string) error

	UpsertProfile(ctx context.Context, id string, raw json.RawMessage) (*StoredProfile, error)
	GetProfile(ctx context.Context, id string) (*StoredProfile, error)

	CreateMatchRun(ctx context.Context, run *MatchRun) (*MatchRun, error)
	UpdateRunStatus(ctx context.Context, runID, status string, errMsg *string) error
	SaveMatchResults(ctx context.Context, runID string, results []scoring.MatchResult, reportRef string) error
	ListMatchResults(ctx context.Context, profileID, runID string) ([]scoring.MatchResult, error)
	LatestRun(ctx context.Context, profileID string) (*MatchRun, error)
}

// profileHash parses raw and hashes the normalized profile, so two records
// that differ only in layout or case share a hash.
func profileHash(raw json.RawMessage) (string, error) {
	p, err := profile.Parse(raw)
	if err != nil {
		return "", err
	}
	return p.Hash(), nil
}
