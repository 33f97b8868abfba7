package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Header names carried by dataset publisher deliveries.
const (
	SignatureHeader = "X-Townscope-Signature-256"
	EventHeader     = "X-Townscope-Event"
	DeliveryHeader  = "X-Townscope-Delivery"
)

// Event types.
const (
	EventPing             = "ping"
	EventDatasetPublished = "dataset.published"
)

// VerifySignature validates the HMAC-SHA256 signature of a delivery.
func VerifySignature(payload []byte, signature string, secret []byte) error {
	if !strings.HasPrefix(signature, "sha256=") {
		return fmt.Errorf("invalid signature format")
	}
	sig, err := hex.DecodeString(signature[7:])
	if err != nil {
		return fmt.Errorf("decode signature: %w", err)
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	expected := mac.Sum(nil)

	if !hmac.Equal(sig, expected) {
		return fmt.Errorf("signature mismatch")
	}
	return nil
}

// Sign returns the signature header value for payload.
func Sign(payload, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// PingEvent is sent when a publisher registers the hook.
type PingEvent struct {
	Zen string `json:"zen,omitempty"`
}

// DatasetPublishedEvent announces a new town dataset in blob storage.
type DatasetPublishedEvent struct {
	// Key is the dataset's storage key, e.g. "2026-10/europe".
	Key         string    `json:"key"`
	Version     string    `json:"version,omitempty"`
	TownCount   int       `json:"town_count,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

// ParseEvent decodes a delivery by event type.
func ParseEvent(eventType string, payload []byte) (interface{}, error) {
	switch eventType {
	case EventPing:
		var e PingEvent
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, fmt.Errorf("parse ping event: %w", err)
		}
		return &e, nil
	case EventDatasetPublished:
		var e DatasetPublishedEvent
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, fmt.Errorf("parse dataset.published event: %w", err)
		}
		if e.Key == "" {
			return nil, fmt.Errorf("parse dataset.published event: missing key")
		}
		return &e, nil
	default:
		return nil, fmt.Errorf("unsupported event type: %s", eventType)
	}
}
