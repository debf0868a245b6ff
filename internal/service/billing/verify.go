package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/saphire-ai/backend/internal/domain"
	"github.com/saphire-ai/backend/internal/logging"
	"github.com/saphire-ai/backend/internal/service/ledger"
)

// VerifyCharge reconciles a charge against the gateway's authoritative
// status. It is safe to call repeatedly and concurrently for the same
// reference: a charge that already reached success returns immediately, and
// the success transition itself is a conditional update that only one caller
// can win, so the ledger is credited at most once per charge.
//
// A transient gateway error leaves the charge untouched and is returned as
// domain.ErrGatewayTransient; callers may retry.
func (s *Service) VerifyCharge(ctx context.Context, reference string) (bool, *domain.Charge, error) {
	log := logging.FromContext(ctx)

	charge, err := s.charges.GetByReference(ctx, reference)
	if err != nil {
		return false, nil, fmt.Errorf("VerifyCharge: %w", err)
	}

	// Idempotent short-circuit: terminal charges are never reprocessed.
	if charge.Status == domain.ChargeStatusSuccess {
		return true, charge, nil
	}
	if charge.Status.IsTerminal() {
		return false, charge, nil
	}

	result, err := s.gateway.VerifyTransaction(ctx, reference)
	if err != nil {
		if errors.Is(err, domain.ErrGatewayRejected) {
			return false, s.failCharge(ctx, charge, err.Error()), nil
		}
		return false, nil, fmt.Errorf("VerifyCharge: %w", err)
	}

	switch result.Status {
	case "success":
		credited, err := s.settleSuccess(ctx, charge, result.TransactionID, result.Channel, result.GatewayResponse)
		if err != nil {
			return false, nil, fmt.Errorf("VerifyCharge: %w", err)
		}
		if !credited {
			// A concurrent verifier won the flip; report its outcome.
			fresh, err := s.charges.GetByReference(ctx, reference)
			if err != nil {
				return false, nil, fmt.Errorf("VerifyCharge: reload: %w", err)
			}
			return fresh.Status == domain.ChargeStatusSuccess, fresh, nil
		}

		fresh, err := s.charges.GetByReference(ctx, reference)
		if err != nil {
			return false, nil, fmt.Errorf("VerifyCharge: reload: %w", err)
		}

		log.Info("charge verified and credited",
			"charge_id", charge.ID,
			"reference", reference,
			"credits", charge.CreditsPurchased,
		)
		return true, fresh, nil

	case "failed":
		reason := result.GatewayResponse
		if reason == "" {
			reason = "Payment failed"
		}
		return false, s.failCharge(ctx, charge, reason), nil

	default:
		// Still pending at the gateway (or an unrecognized interim status):
		// no state change, the charge remains outstanding.
		log.Info("charge still outstanding",
			"charge_id", charge.ID,
			"reference", reference,
			"gateway_status", result.Status,
		)
		return false, charge, nil
	}
}

// settleSuccess flips the charge to success and credits the ledger as one
// transaction. If the conditional flip matches no row another caller already
// settled the charge and nothing is written; credited reports whether this
// call performed the credit.
func (s *Service) settleSuccess(ctx context.Context, charge *domain.Charge, gatewayTransactionID, channel, gatewayResponse string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("settleSuccess: begin tx: %w", err)
	}
	defer tx.Rollback()

	var channelPtr, responsePtr *string
	if channel != "" {
		channelPtr = &channel
	}
	if gatewayResponse != "" {
		responsePtr = &gatewayResponse
	}

	claimed, err := s.charges.ClaimSuccess(ctx, tx, charge.ID, gatewayTransactionID, channelPtr, responsePtr, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("settleSuccess: %w", err)
	}
	if !claimed {
		return false, nil
	}

	if _, err := s.ledger.CreditTx(ctx, tx, charge.UserID, charge.CreditsPurchased,
		domain.TransactionKindPurchase,
		ledger.CreditMetadata{
			Description: fmt.Sprintf("Purchased %s", charge.PackageName),
			ChargeID:    &charge.ID,
			PackageName: charge.PackageName,
		},
	); err != nil {
		// Rolling back undoes the status flip too, so the charge cannot end
		// up claiming success without its purchase transaction.
		return false, fmt.Errorf("settleSuccess: credit: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("settleSuccess: commit: %w", err)
	}

	return true, nil
}

func (s *Service) failCharge(ctx context.Context, charge *domain.Charge, reason string) *domain.Charge {
	log := logging.FromContext(ctx)

	if err := s.charges.MarkFailed(ctx, charge.ID, reason, time.Now().UTC()); err != nil {
		log.Error("failed to mark charge failed",
			"charge_id", charge.ID,
			"error", err,
		)
		return charge
	}

	fresh, err := s.charges.GetByReference(ctx, charge.Reference)
	if err != nil {
		log.Error("failed to reload charge", "charge_id", charge.ID, "error", err)
		return charge
	}

	log.Info("charge failed",
		"charge_id", charge.ID,
		"reference", charge.Reference,
		"reason", reason,
	)
	return fresh
}
