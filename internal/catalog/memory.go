package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/townscope/townscope/pkg/scoring"
	"github.com/townscope/townscope/pkg/town"
)

// now is swapped in tests to order runs deterministically.
var now = func() time.Time { return time.Now().UTC() }

// Memory is an in-process Store. It is safe for concurrent use.
type Memory struct {
	mu       sync.RWMutex
	towns    map[string]town.Town
	profiles map[string]StoredProfile
	runs     map[string]MatchRun
	results  map[string][]scoring.MatchResult
}

// NewMemory creates an empty in-memory catalog, optionally seeded with towns.
func NewMemory(towns ...town.Town) *Memory {
	m := &Memory{
		towns:    make(map[string]town.Town),
		profiles: make(map[string]StoredProfile),
		runs:     make(map[string]MatchRun),
		results:  make(map[string][]scoring.MatchResult),
	}
	for _, t := range towns {
		m.towns[t.ID] = t
	}
	return m
}

var _ Store = (*Memory)(nil)

func (m *Memory) UpsertTown(_ context.Context, t *town.Town) error {
	if t.ID == "" {
		return fmt.Errorf("upsert town: missing id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.towns[t.ID] = *t
	return nil
}

func (m *Memory) GetTown(_ context.Context, id string) (*town.Town, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.towns[id]
	if !ok {
		return nil, fmt.Errorf("get town %s: %w", id, ErrTownNotFound)
	}
	return &t, nil
}

func (m *Memory) ListTowns(_ context.Context, f TownFilter) ([]town.Town, int, error) {
	m.mu.RLock()
	matched := make([]town.Town, 0, len(m.towns))
	for _, t := range m.towns {
		if f.Country != "" && !strings.EqualFold(t.Country, f.Country) {
			continue
		}
		matched = append(matched, t)
	}
	m.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	total := len(matched)

	offset := max(f.Offset, 0)
	if offset >= total {
		return []town.Town{}, total, nil
	}
	matched = matched[offset:]
	if f.Limit > 0 && f.Limit < len(matched) {
		matched = matched[:f.Limit]
	}
	return matched, total, nil
}

func (m *Memory) DeleteTown(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.towns[id]; !ok {
		return fmt.Errorf("delete town %s: %w", id, ErrTownNotFound)
	}
	delete(m.towns, id)
	return nil
}

func (m *Memory) UpsertProfile(_ context.Context, id string, raw json.RawMessage) (*StoredProfile, error) {
	hash, err := profileHash(raw)
	if err != nil {
		return nil, fmt.Errorf("upsert profile %s: %w", id, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	ts := now()
	p, ok := m.profiles[id]
	if !ok {
		p = StoredProfile{ID: id, CreatedAt: ts}
	}
	p.Raw = append(json.RawMessage(nil), raw...)
	p.Hash = hash
	p.UpdatedAt = ts
	m.profiles[id] = p
	return &p, nil
}

func (m *Memory) GetProfile(_ context.Context, id string) (*StoredProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[id]
	if !ok {
		return nil, fmt.Errorf("get profile %s: %w", id, ErrProfileNotFound)
	}
	return &p, nil
}

func (m *Memory) CreateMatchRun(_ context.Context, run *MatchRun) (*MatchRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.profiles[run.ProfileID]; !ok {
		return nil, fmt.Errorf("create match run: %w", ErrProfileNotFound)
	}
	r := *run
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Status == "" {
		r.Status = StatusQueued
	}
	r.CreatedAt = now()
	r.UpdatedAt = r.CreatedAt
	m.runs[r.ID] = r
	return &r, nil
}

func (m *Memory) UpdateRunStatus(_ context.Context, runID, status string, errMsg *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[runID]
	if !ok {
		return fmt.Errorf("update run %s: %w", runID, ErrRunNotFound)
	}
	r.Status = status
	r.Error = errMsg
	r.UpdatedAt = now()
	m.runs[runID] = r
	return nil
}

func (m *Memory) SaveMatchResults(_ context.Context, runID string, results []scoring.MatchResult, reportRef string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[runID]
	if !ok {
		return fmt.Errorf("finalize run %s: %w", runID, ErrRunNotFound)
	}
	m.results[runID] = append([]scoring.MatchResult(nil), results...)
	r.Status = StatusCompleted
	r.TownCount = len(results)
	r.ReportRef = nilIfEmpty(reportRef)
	r.Error = nil
	r.UpdatedAt = now()
	m.runs[runID] = r
	return nil
}

func (m *Memory) ListMatchResults(ctx context.Context, profileID, runID string) ([]scoring.MatchResult, error) {
	if runID == "" {
		run, err := m.LatestRun(ctx, profileID)
		if err != nil {
			return nil, err
		}
		runID = run.ID
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.runs[runID]
	if !ok || r.ProfileID != profileID {
		return nil, fmt.Errorf("list match results %s: %w", runID, ErrRunNotFound)
	}
	return append([]scoring.MatchResult{}, m.results[runID]...), nil
}

func (m *Memory) LatestRun(_ context.Context, profileID string) (*MatchRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var latest *MatchRun
	for _, r := range m.runs {
		if r.ProfileID != profileID || r.Status != StatusCompleted {
			continue
		}
		if latest == nil || r.CreatedAt.After(latest.CreatedAt) {
			r := r
			latest = &r
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("latest run for %s: %w", profileID, ErrRunNotFound)
	}
	return latest, nil
}
