package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/saphire-ai/backend/internal/domain"
	"github.com/saphire-ai/backend/internal/logging"
)

type webhookEnvelope struct {
	Event string `json:"event"`
	Data  struct {
		ID        int64  `json:"id"`
		Reference string `json:"reference"`
	} `json:"data"`
}

// HandleWebhookEvent processes a gateway webhook delivery. The raw body has
// already passed signature verification. Every delivery is recorded for
// audit; only charge.success triggers reconciliation, and it does so through
// VerifyCharge rather than trusting the webhook payload, so a forged or
// stale body can never credit an account.
//
// Processing errors are logged and swallowed: the provider retries on
// non-2xx responses and reconciliation is idempotent, so surfacing an error
// buys nothing beyond duplicate deliveries.
func (s *Service) HandleWebhookEvent(ctx context.Context, rawBody []byte) {
	log := logging.FromContext(ctx)

	var envelope webhookEnvelope
	if err := json.Unmarshal(rawBody, &envelope); err != nil {
		log.Warn("webhook body is not valid JSON", "error", err)
		return
	}

	s.recordDelivery(ctx, &envelope, rawBody)

	if envelope.Event != "charge.success" {
		log.Info("ignoring webhook event", "event", envelope.Event)
		return
	}
	if envelope.Data.Reference == "" {
		log.Warn("charge.success webhook missing reference")
		return
	}

	credited, charge, err := s.VerifyCharge(ctx, envelope.Data.Reference)
	if err != nil {
		log.Error("webhook reconciliation failed",
			"reference", envelope.Data.Reference,
			"error", err,
		)
		return
	}

	log.Info("webhook reconciled",
		"reference", envelope.Data.Reference,
		"credited", credited,
		"status", charge.Status,
	)
}

func (s *Service) recordDelivery(ctx context.Context, envelope *webhookEnvelope, rawBody []byte) {
	var providerEventID *string
	if envelope.Data.ID != 0 {
		id := fmt.Sprintf("%d", envelope.Data.ID)
		providerEventID = &id
	}
	var reference *string
	if envelope.Data.Reference != "" {
		reference = &envelope.Data.Reference
	}

	event := &domain.WebhookEvent{
		ID:              uuid.New(),
		ProviderEventID: providerEventID,
		EventType:       envelope.Event,
		Reference:       reference,
		Payload:         json.RawMessage(rawBody),
		ReceivedAt:      time.Now().UTC(),
	}
	if err := s.webhooks.Record(ctx, event); err != nil {
		logging.FromContext(ctx).Error("failed to record webhook delivery",
			"event", envelope.Event,
			"error", err,
		)
	}
}
