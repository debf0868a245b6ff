package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/saphire-ai/backend/internal/domain"
	"github.com/saphire-ai/backend/internal/logging"
	"github.com/saphire-ai/backend/internal/paystack"
)

type InitializeResult struct {
	AuthorizationURL string
	AccessCode       string
	Reference        string
}

// InitializePurchase resolves the package, persists a pending charge and
// creates the remote charge at the gateway. A gateway failure marks the
// charge failed with the reason before the error is surfaced, so no charge
// is left pending without an explanation.
func (s *Service) InitializePurchase(ctx context.Context, userID uuid.UUID, email, packageSlug, callbackURL string) (*InitializeResult, error) {
	log := logging.FromContext(ctx)

	pkg, err := s.packages.GetActiveBySlug(ctx, packageSlug)
	if err != nil {
		return nil, fmt.Errorf("InitializePurchase: %w", err)
	}

	reference := newReference()
	metadata, _ := json.Marshal(map[string]string{"package_slug": pkg.Slug})

	now := time.Now().UTC()
	charge := &domain.Charge{
		ID:               uuid.New(),
		UserID:           userID,
		Reference:        reference,
		AmountKobo:       pkg.PriceKobo,
		Currency:         pkg.Currency,
		PackageName:      pkg.Name,
		CreditsPurchased: pkg.TotalCredits(),
		Status:           domain.ChargeStatusPending,
		CustomerEmail:    email,
		Metadata:         metadata,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.charges.Create(ctx, charge); err != nil {
		return nil, fmt.Errorf("InitializePurchase: create charge: %w", err)
	}

	if callbackURL == "" {
		callbackURL = s.callbackURL
	}

	result, err := s.gateway.InitializeTransaction(ctx, paystack.InitializeRequest{
		Email:       email,
		AmountKobo:  pkg.PriceKobo,
		Reference:   reference,
		CallbackURL: callbackURL,
		Metadata: map[string]string{
			"charge_id": charge.ID.String(),
			"user_id":   userID.String(),
		},
	})
	if err != nil {
		if markErr := s.charges.MarkFailed(ctx, charge.ID, err.Error(), time.Now().UTC()); markErr != nil {
			log.Error("failed to mark charge failed after gateway error",
				"charge_id", charge.ID,
				"error", markErr,
			)
		}
		return nil, fmt.Errorf("InitializePurchase: %w", err)
	}

	if err := s.charges.MarkProcessing(ctx, charge.ID, result.AccessCode, result.AuthorizationURL); err != nil {
		return nil, fmt.Errorf("InitializePurchase: %w", err)
	}

	log.Info("charge initialized",
		"charge_id", charge.ID,
		"reference", reference,
		"package", pkg.Slug,
		"amount_kobo", pkg.PriceKobo,
	)

	return &InitializeResult{
		AuthorizationURL: result.AuthorizationURL,
		AccessCode:       result.AccessCode,
		Reference:        reference,
	}, nil
}

// newReference generates a globally unique client-side charge reference.
func newReference() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "saphire_" + hex[:20]
}
