package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/saphire-ai/backend/internal/domain"
)

type WebhookEventRepository struct {
	db *sql.DB
}

func NewWebhookEventRepository(db *sql.DB) *WebhookEventRepository {
	return &WebhookEventRepository{db: db}
}

// Record stores a delivery for audit. Provider redeliveries carry the same
// provider event id and are dropped on conflict rather than erroring, since
// the processing path is idempotent anyway.
func (r *WebhookEventRepository) Record(ctx context.Context, event *domain.WebhookEvent) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO webhook_events (id, provider_event_id, event_type, reference, payload, received_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (provider_event_id) DO NOTHING`,
		event.ID, event.ProviderEventID, event.EventType, event.Reference,
		event.Payload, event.ReceivedAt,
	)
	if err != nil {
		return fmt.Errorf("Record: %w", err)
	}
	return nil
}

func (r *WebhookEventRepository) CountByType(ctx context.Context, eventType string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM webhook_events WHERE event_type = $1`, eventType,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("CountByType: %w", err)
	}
	return n, nil
}
