package eventcore

import (
	"errors"
	"log/slog"
	"time"
)

// WebhookEvent is one logical sub-event inside a provider delivery.
type WebhookEvent struct {
	EventType  string         `json:"event_type"`
	EntityID   string         `json:"entity_id"`
	OccurredAt time.Time      `json:"occurred_at"`
	Data       map[string]any `json:"data"`
}

// WebhookDelivery is a provider webhook payload. A single delivery may
// carry a batch of logical sub-events.
type WebhookDelivery struct {
	Events []WebhookEvent `json:"events"`
}

// WebhookAdapter maps a provider-specific event-type vocabulary into the
// core's canonical types and ingests one event per logical sub-event.
type WebhookAdapter struct {
	ing     *Ingestor
	source  string
	typeMap map[string]string
	logger  *slog.Logger
}

// NewWebhookAdapter creates an adapter for one provider. typeMap
// translates the provider's event-type vocabulary to canonical types;
// sub-events with no mapping are skipped with a warning.
func NewWebhookAdapter(ing *Ingestor, source string, typeMap map[string]string, logger *slog.Logger) *WebhookAdapter {
	return &WebhookAdapter{
		ing:     ing,
		source:  source,
		typeMap: typeMap,
		logger:  logger,
	}
}

// HandleWebhook ingests every mapped sub-event in a delivery. All
// sub-events are attempted; the returned error joins any validation
// failures while results cover the events that were queued.
func (a *WebhookAdapter) HandleWebhook(delivery WebhookDelivery) ([]IngestResult, error) {
	var results []IngestResult
	var errs []error

	for _, sub := range delivery.Events {
		canonical, ok := a.typeMap[sub.EventType]
		if !ok {
			if a.logger != nil {
				a.logger.Warn("unmapped webhook event type, skipping",
					slog.String("provider_type", sub.EventType),
					slog.String("source", a.source),
				)
			}
			continue
		}

		res, err := a.ing.Ingest(RawEvent{
			Type:      canonical,
			Source:    a.source,
			Entity:    sub.EntityID,
			Timestamp: sub.OccurredAt,
			Data:      sub.Data,
		})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		results = append(results, res)
	}

	return results, errors.Join(errs...)
}

// HandleScheduledTrigger ingests a scheduler-sourced event for a job type.
func HandleScheduledTrigger(ing *Ingestor, jobType string) (IngestResult, error) {
	return ing.Ingest(RawEvent{
		Type:   jobType,
		Source: "scheduler",
		Entity: "system",
		Data: map[string]any{
			"jobType":     jobType,
			"triggeredAt": time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// Document describes an uploaded document.
type Document struct {
	ID          string `json:"id"`
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
	UploadedBy  string `json:"uploaded_by"`
}

// HandleDocumentUpload ingests a document-upload event.
func HandleDocumentUpload(ing *Ingestor, doc Document) (IngestResult, error) {
	return ing.Ingest(RawEvent{
		Type:   "document_uploaded",
		Source: "document-upload",
		Entity: doc.ID,
		Data: map[string]any{
			"documentId":  doc.ID,
			"fileName":    doc.FileName,
			"contentType": doc.ContentType,
			"sizeBytes":   doc.SizeBytes,
			"uploadedBy":  doc.UploadedBy,
		},
	})
}
