package ingestion

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLocalStoragePutGetDataset(t *testing.T) {
	dir := t.TempDir()
	s := NewLocalStorage(dir)
	ctx := context.Background()

	data := []byte(`{"towns":[]}`)
	if err := s.PutDataset(ctx, "2026/europe", data); err != nil {
		t.Fatalf("PutDataset: %v", err)
	}

	got, err := s.GetDataset(ctx, "2026/europe.json")
	if err != nil {
		t.Fatalf("GetDataset: %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("GetDataset = %q, want %q", got, data)
	}

	// Verify file path layout
	expectedPath := filepath.Join(dir, "datasets", "2026", "europe.json")
	if _, err := os.Stat(expectedPath); err != nil {
		t.Errorf("expected file at %s: %v", expectedPath, err)
	}
}

func TestLocalStoragePutGetReport(t *testing.T) {
	dir := t.TempDir()
	s := NewLocalStorage(dir)
	ctx := context.Background()

	data := []byte(`{"results":[]}`)
	if err := s.PutReport(ctx, "alice", "report1", data); err != nil {
		t.Fatalf("PutReport: %v", err)
	}

	got, err := s.GetReport(ctx, "alice", "report1")
	if err != nil {
		t.Fatalf("GetReport: %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("GetReport = %q, want %q", got, data)
	}

	expectedPath := filepath.Join(dir, "reports", "alice", "report1.json")
	if _, err := os.Stat(expectedPath); err != nil {
		t.Errorf("expected file at %s: %v", expectedPath, err)
	}
}

func TestLocalStorageGetNotFound(t *testing.T) {
	s := NewLocalStorage(t.TempDir())

	_, err := s.GetDataset(context.Background(), "nonexistent")
	if !errors.Is(err, ErrBlobNotFound) {
		t.Errorf("expected ErrBlobNotFound, got %v", err)
	}
}

func TestStorageKeysRejectTraversal(t *testing.T) {
	s := NewLocalStorage(t.TempDir())
	ctx := context.Background()

	for _, key := range []string{"", "../etc/passwd", "a/../../b", "a//b"} {
		if err := s.PutDataset(ctx, key, []byte("{}")); err == nil {
			t.Errorf("PutDataset(%q): expected error", key)
		}
	}
	if err := s.PutReport(ctx, "..", "r", []byte("{}")); err == nil {
		t.Error("PutReport: expected error for parent profile id")
	}
}
