package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/townscope/townscope/internal/ingestion"
)

func computeHMAC(payload, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	secret := []byte("webhook-secret-123")
	payload := []byte(`{"key":"2026-10/europe"}`)

	tests := []struct {
		name      string
		payload   []byte
		signature string
		secret    []byte
		wantErr   bool
	}{
		{
			name:      "valid signature",
			payload:   payload,
			signature: computeHMAC(payload, secret),
			secret:    secret,
			wantErr:   false,
		},
		{
			name:      "wrong secret",
			payload:   payload,
			signature: computeHMAC(payload, []byte("wrong-secret")),
			secret:    secret,
			wantErr:   true,
		},
		{
			name:      "tampered payload",
			payload:   []byte(`{"key":"2026-10/asia"}`),
			signature: computeHMAC(payload, secret),
			secret:    secret,
			wantErr:   true,
		},
		{
			name:      "missing sha256= prefix",
			payload:   payload,
			signature: "not-a-valid-sig",
			secret:    secret,
			wantErr:   true,
		},
		{
			name:      "invalid hex after prefix",
			payload:   payload,
			signature: "sha256=zzzz",
			secret:    secret,
			wantErr:   true,
		},
		{
			name:      "empty signature",
			payload:   payload,
			signature: "",
			secret:    secret,
			wantErr:   true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := VerifySignature(tc.payload, tc.signature, tc.secret)
			if tc.wantErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestSignMatchesVerify(t *testing.T) {
	secret := []byte("s3cret")
	payload := []byte(`{"zen":"keep it simple"}`)
	if got, want := Sign(payload, secret), computeHMAC(payload, secret); got != want {
		t.Errorf("Sign = %q, want %q", got, want)
	}
}

func TestParseEvent(t *testing.T) {
	tests := []struct {
		name      string
		eventType string
		payload   string
		wantErr   bool
		check     func(t *testing.T, event interface{})
	}{
		{
			name:      "dataset published",
			eventType: EventDatasetPublished,
			payload:   `{"key":"2026-10/europe","version":"v7","town_count":312,"published_at":"2026-10-01T08:00:00Z"}`,
			check: func(t *testing.T, event interface{}) {
				e, ok := event.(*DatasetPublishedEvent)
				if !ok {
					t.Fatalf("expected *DatasetPublishedEvent, got %T", event)
				}
				if e.Key != "2026-10/europe" || e.Version != "v7" || e.TownCount != 312 {
					t.Errorf("unexpected event %+v", e)
				}
				if e.PublishedAt.Year() != 2026 {
					t.Errorf("published_at = %v", e.PublishedAt)
				}
			},
		},
		{
			name:      "ping",
			eventType: EventPing,
			payload:   `{"zen":"hello"}`,
			check: func(t *testing.T, event interface{}) {
				if _, ok := event.(*PingEvent); !ok {
					t.Fatalf("expected *PingEvent, got %T", event)
				}
			},
		},
		{name: "dataset without key", eventType: EventDatasetPublished, payload: `{"version":"v7"}`, wantErr: true},
		{name: "malformed payload", eventType: EventDatasetPublished, payload: `{`, wantErr: true},
		{name: "unknown event", eventType: "town.deleted", payload: `{}`, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			event, err := ParseEvent(tc.eventType, []byte(tc.payload))
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseEvent: %v", err)
			}
			tc.check(t, event)
		})
	}
}

type fakeImporter struct {
	keys []string
	res  *ingestion.ImportResult
	err  error
}

func (f *fakeImporter) ImportDataset(_ context.Context, key string) (*ingestion.ImportResult, error) {
	f.keys = append(f.keys, key)
	return f.res, f.err
}

func deliver(t *testing.T, h http.Handler, secret []byte, eventType, payload string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/datasets", strings.NewReader(payload))
	req.Header.Set(EventHeader, eventType)
	req.Header.Set(DeliveryHeader, "d-1")
	if secret != nil {
		req.Header.Set(SignatureHeader, computeHMAC([]byte(payload), secret))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandler(t *testing.T) {
	secret := []byte("topsecret")
	payload := `{"key":"2026-10/europe"}`

	t.Run("dataset published triggers import", func(t *testing.T) {
		imp := &fakeImporter{res: &ingestion.ImportResult{Key: "2026-10/europe", Towns: 3, Upserted: 3}}
		invalidated := 0
		h := NewHandler(secret, imp, func() { invalidated++ })

		rec := deliver(t, h, secret, EventDatasetPublished, payload)
		if rec.Code != http.StatusAccepted {
			t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
		}
		if len(imp.keys) != 1 || imp.keys[0] != "2026-10/europe" {
			t.Errorf("imported keys = %v", imp.keys)
		}
		if invalidated != 1 {
			t.Errorf("expected one invalidation, got %d", invalidated)
		}
		if !strings.Contains(rec.Body.String(), `"upserted": 3`) && !strings.Contains(rec.Body.String(), `"upserted":3`) {
			t.Errorf("expected import summary in body: %s", rec.Body.String())
		}
	})

	t.Run("ping", func(t *testing.T) {
		imp := &fakeImporter{}
		rec := deliver(t, NewHandler(secret, imp, nil), secret, EventPing, `{"zen":"hi"}`)
		if rec.Code != http.StatusAccepted || !strings.Contains(rec.Body.String(), "pong") {
			t.Errorf("status = %d, body %s", rec.Code, rec.Body.String())
		}
		if len(imp.keys) != 0 {
			t.Error("ping must not import")
		}
	})

	t.Run("bad signature", func(t *testing.T) {
		imp := &fakeImporter{}
		rec := deliver(t, NewHandler(secret, imp, nil), []byte("other"), EventDatasetPublished, payload)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
		if len(imp.keys) != 0 {
			t.Error("unsigned delivery must not import")
		}
	})

	t.Run("missing event header", func(t *testing.T) {
		rec := deliver(t, NewHandler(secret, &fakeImporter{}, nil), secret, "", payload)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("missing dataset", func(t *testing.T) {
		imp := &fakeImporter{err: fmt.Errorf("fetch: %w", ingestion.ErrBlobNotFound)}
		rec := deliver(t, NewHandler(secret, imp, nil), secret, EventDatasetPublished, payload)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("status = %d, want 422", rec.Code)
		}
	})

	t.Run("import failure", func(t *testing.T) {
		imp := &fakeImporter{err: errors.New("db down")}
		rec := deliver(t, NewHandler(secret, imp, nil), secret, EventDatasetPublished, payload)
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("status = %d, want 500", rec.Code)
		}
	})

	t.Run("not configured", func(t *testing.T) {
		rec := deliver(t, NewHandler(nil, &fakeImporter{}, nil), secret, EventPing, `{}`)
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("status = %d, want 503", rec.Code)
		}
	})

	t.Run("wrong method", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/webhooks/datasets", nil)
		rec := httptest.NewRecorder()
		NewHandler(secret, &fakeImporter{}, nil).ServeHTTP(rec, req)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("status = %d, want 405", rec.Code)
		}
	})
}
