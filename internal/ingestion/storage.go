// Package ingestion moves town datasets from blob storage into the catalog
// and runs persisted rankings whose reports are written back to storage.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

var (
	// ErrBlobNotFound is returned by every backend for a missing object.
	ErrBlobNotFound = errors.New("blob not found")
	ErrInvalidKey   = errors.New("invalid storage key")
)

// StorageClient abstracts blob storage for town datasets and ranking reports.
type StorageClient interface {
	PutDataset(ctx context.Context, key string, data []byte) error
	GetDataset(ctx context.Context, key string) ([]byte, error)
	PutReport(ctx context.Context, profileID, reportID string, data []byte) error
	GetReport(ctx context.Context, profileID, reportID string) ([]byte, error)
}

// datasetKey maps a dataset key such as "2026/eu" to "datasets/2026/eu.json".
func datasetKey(key string) (string, error) {
	k, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	return "datasets/" + strings.TrimSuffix(k, ".json") + ".json", nil
}

func reportKey(profileID, reportID string) (string, error) {
	p, err := cleanKey(profileID)
	if err != nil {
		return "", err
	}
	r, err := cleanKey(reportID)
	if err != nil {
		return "", err
	}
	return "reports/" + p + "/" + r + ".json", nil
}

// cleanKey rejects keys that would escape the storage root.
func cleanKey(key string) (string, error) {
	k := strings.Trim(strings.TrimSpace(key), "/")
	if k == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidKey)
	}
	if path.Clean(k) != k || strings.HasPrefix(k, "..") || strings.Contains(k, "/../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return k, nil
}

// LocalStorage implements StorageClient using the local filesystem.
// Useful for development and testing.
type LocalStorage struct {
	BaseDir string
}

// NewLocalStorage creates a LocalStorage rooted at the given directory.
func NewLocalStorage(baseDir string) *LocalStorage {
	return &LocalStorage{BaseDir: baseDir}
}

func (s *LocalStorage) put(key string, data []byte) error {
	p := filepath.Join(s.BaseDir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	return os.WriteFile(p, data, 0o644)
}

func (s *LocalStorage) get(key string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.BaseDir, filepath.FromSlash(key)))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", key, ErrBlobNotFound)
	}
	return data, err
}

// PutDataset stores a town dataset blob.
func (s *LocalStorage) PutDataset(_ context.Context, key string, data []byte) error {
	k, err := datasetKey(key)
	if err != nil {
		return err
	}
	return s.put(k, data)
}

// GetDataset retrieves a town dataset blob.
func (s *LocalStorage) GetDataset(_ context.Context, key string) ([]byte, error) {
	k, err := datasetKey(key)
	if err != nil {
		return nil, err
	}
	return s.get(k)
}

// PutReport stores a ranking report.
func (s *LocalStorage) PutReport(_ context.Context, profileID, reportID string, data []byte) error {
	k, err := reportKey(profileID, reportID)
	if err != nil {
		return err
	}
	return s.put(k, data)
}

// GetReport retrieves a ranking report.
func (s *LocalStorage) GetReport(_ context.Context, profileID, reportID string) ([]byte, error) {
	k, err := reportKey(profileID, reportID)
	if err != nil {
		return nil, err
	}
	return s.get(k)
}
