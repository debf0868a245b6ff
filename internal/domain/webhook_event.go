package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// WebhookEvent is an audit record of a gateway webhook delivery. Events are
// processed synchronously on receipt; the row exists so provider retries and
// unknown event kinds remain observable.
type WebhookEvent struct {
	ID              uuid.UUID
	ProviderEventID *string
	EventType       string
	Reference       *string
	Payload         json.RawMessage
	ReceivedAt      time.Time
}
