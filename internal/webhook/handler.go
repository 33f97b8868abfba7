package webhook

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/townscope/townscope/internal/ingestion"
	"github.com/townscope/townscope/internal/logging"
)

// Importer loads a published dataset into the catalog.
type Importer interface {
	ImportDataset(ctx context.Context, key string) (*ingestion.ImportResult, error)
}

// Handler processes dataset publisher webhook deliveries.
type Handler struct {
	webhookSecret []byte
	importer      Importer
	onImport      func()
}

// NewHandler creates a new webhook Handler. onImport, if set, runs after
// every import that changed the catalog.
func NewHandler(webhookSecret []byte, importer Importer, onImport func()) *Handler {
	return &Handler{
		webhookSecret: webhookSecret,
		importer:      importer,
		onImport:      onImport,
	}
}

// ServeHTTP handles incoming webhook requests.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if len(h.webhookSecret) == 0 {
		http.Error(w, "webhook not configured", http.StatusServiceUnavailable)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20)) // 1 MB limit
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	delivery := r.Header.Get(DeliveryHeader)
	if err := VerifySignature(body, r.Header.Get(SignatureHeader), h.webhookSecret); err != nil {
		logging.Warn().Err(err).Str("delivery", delivery).Msg("webhook signature verification failed")
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	eventType := r.Header.Get(EventHeader)
	if eventType == "" {
		http.Error(w, "missing "+EventHeader+" header", http.StatusBadRequest)
		return
	}

	event, err := ParseEvent(eventType, body)
	if err != nil {
		logging.Warn().Err(err).Str("event", eventType).Str("delivery", delivery).Msg("webhook parse error")
		http.Error(w, "unsupported event", http.StatusBadRequest)
		return
	}

	resp := map[string]any{"status": "accepted"}

	switch e := event.(type) {
	case *PingEvent:
		resp["status"] = "pong"

	case *DatasetPublishedEvent:
		res, err := h.handleDatasetPublished(r.Context(), e)
		if err != nil {
			logging.Error().Err(err).Str("key", e.Key).Str("delivery", delivery).Msg("handle dataset.published event")
			status := http.StatusInternalServerError
			if errors.Is(err, ingestion.ErrBlobNotFound) || errors.Is(err, ingestion.ErrInvalidKey) {
				status = http.StatusUnprocessableEntity
			}
			http.Error(w, "import failed", status)
			return
		}
		resp["import"] = res
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(resp)
}

func (h *Handler) handleDatasetPublished(ctx context.Context, e *DatasetPublishedEvent) (*ingestion.ImportResult, error) {
	res, err := h.importer.ImportDataset(ctx, e.Key)
	if res != nil && res.Upserted > 0 && h.onImport != nil {
		h.onImport()
	}
	if err != nil {
		return nil, err
	}
	logging.Info().
		Str("key", e.Key).
		Str("version", e.Version).
		Int("upserted", res.Upserted).
		Msg("imported published dataset")
	return res, nil
}
