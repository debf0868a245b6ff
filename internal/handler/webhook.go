package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/saphire-ai/backend/internal/logging"
	"github.com/saphire-ai/backend/internal/paystack"
)

type webhookProcessor interface {
	HandleWebhookEvent(ctx context.Context, rawBody []byte)
}

type WebhookHandler struct {
	billing webhookProcessor
	secret  string
}

func NewWebhookHandler(billingSvc webhookProcessor, secret string) *WebhookHandler {
	return &WebhookHandler{billing: billingSvc, secret: secret}
}

// ReceivePaystackWebhook authenticates the delivery by its HMAC-SHA512
// signature, processes it synchronously and acknowledges with 200. After a
// valid signature the response is always 200: processing is idempotent, so a
// provider retry triggered by a non-2xx would only repeat work.
func (h *WebhookHandler) ReceivePaystackWebhook(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		log.Error("failed to read webhook body", "error", err)
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	sig := r.Header.Get("x-paystack-signature")
	if !paystack.VerifySignature(body, sig, h.secret) {
		log.Warn("webhook signature verification failed")
		RespondAppError(w, ErrInvalidSignature, nil)
		return
	}

	h.billing.HandleWebhookEvent(r.Context(), body)

	RespondSuccess(w, http.StatusOK, map[string]string{"status": "received"})
}
