package ingestion

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/townscope/townscope/internal/logging"
	"github.com/townscope/townscope/internal/metrics"
)

// BreakerConfig tunes the circuit breaker around a remote StorageClient.
type BreakerConfig struct {
	Name string
	// MinRequests is how many requests a window needs before it can trip.
	MinRequests  uint32
	FailureRatio float64
	Interval     time.Duration
	Timeout      time.Duration
}

// DefaultBreakerConfig opens after 60% failures over at least 10 requests
// and lets a trial request through after a minute.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:         name,
		MinRequests:  10,
		FailureRatio: 0.6,
		Interval:     time.Minute,
		Timeout:      time.Minute,
	}
}

// BreakerStorage wraps a StorageClient with a circuit breaker. Missing blobs
// count as successes; only backend failures move the breaker.
type BreakerStorage struct {
	next StorageClient
	cb   *gobreaker.CircuitBreaker[[]byte]
}

var _ StorageClient = (*BreakerStorage)(nil)

// NewBreakerStorage decorates next.
func NewBreakerStorage(next StorageClient, cfg BreakerConfig) *BreakerStorage {
	if cfg.Name == "" {
		cfg.Name = "storage"
	}
	metrics.SetBreakerState(cfg.Name, stateValue(gobreaker.StateClosed))

	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= cfg.FailureRatio
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrBlobNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("storage circuit breaker state change")
			metrics.SetBreakerState(name, stateValue(to))
		},
	})
	return &BreakerStorage{next: next, cb: cb}
}

// State reports the breaker state.
func (b *BreakerStorage) State() gobreaker.State {
	return b.cb.State()
}

func (b *BreakerStorage) PutDataset(ctx context.Context, key string, data []byte) error {
	_, err := b.cb.Execute(func() ([]byte, error) {
		return nil, b.next.PutDataset(ctx, key, data)
	})
	return err
}

func (b *BreakerStorage) GetDataset(ctx context.Context, key string) ([]byte, error) {
	return b.cb.Execute(func() ([]byte, error) {
		return b.next.GetDataset(ctx, key)
	})
}

func (b *BreakerStorage) PutReport(ctx context.Context, profileID, reportID string, data []byte) error {
	_, err := b.cb.Execute(func() ([]byte, error) {
		return nil, b.next.PutReport(ctx, profileID, reportID, data)
	})
	return err
}

func (b *BreakerStorage) GetReport(ctx context.Context, profileID, reportID string) ([]byte, error) {
	return b.cb.Execute(func() ([]byte, error) {
		return b.next.GetReport(ctx, profileID, reportID)
	})
}

func stateValue(s gobreaker.State) int {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
