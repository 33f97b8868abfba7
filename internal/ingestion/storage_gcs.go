package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"

	gcs "cloud.google.com/go/storage"
)

// GCSStorage implements StorageClient using Google Cloud Storage.
type GCSStorage struct {
	client *gcs.Client
	bucket string
}

// NewGCSStorage creates a GCS-backed StorageClient.
// It uses Application Default Credentials (works with Workload Identity, SA keys, gcloud auth).
func NewGCSStorage(ctx context.Context, bucket string) (*GCSStorage, error) {
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	return &GCSStorage{client: client, bucket: bucket}, nil
}

// Close releases the underlying client.
func (s *GCSStorage) Close() error {
	return s.client.Close()
}

func (s *GCSStorage) put(ctx context.Context, key string, data []byte) error {
	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("gcs write %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("gcs close %s: %w", key, err)
	}
	return nil
}

func (s *GCSStorage) get(ctx context.Context, key string) ([]byte, error) {
	r, err := s.client.Bucket(s.bucket).Object(key).NewReader(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil, fmt.Errorf("gcs read %s: %w", key, ErrBlobNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("gcs read %s: %w", key, err)
	}
	defer r.Close()
	return io.ReadAll(r)
}

func (s *GCSStorage) PutDataset(ctx context.Context, key string, data []byte) error {
	k, err := datasetKey(key)
	if err != nil {
		return err
	}
	return s.put(ctx, k, data)
}

func (s *GCSStorage) GetDataset(ctx context.Context, key string) ([]byte, error) {
	k, err := datasetKey(key)
	if err != nil {
		return nil, err
	}
	return s.get(ctx, k)
}

func (s *GCSStorage) PutReport(ctx context.Context, profileID, reportID string, data []byte) error {
	k, err := reportKey(profileID, reportID)
	if err != nil {
		return err
	}
	return s.put(ctx, k, data)
}

func (s *GCSStorage) GetReport(ctx context.Context, profileID, reportID string) ([]byte, error) {
	k, err := reportKey(profileID, reportID)
	if err != nil {
		return nil, err
	}
	return s.get(ctx, k)
}
