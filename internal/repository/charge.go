package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/saphire-ai/backend/internal/domain"
)

const chargeColumns = `id, user_id, reference, gateway_transaction_id, amount_kobo,
	currency, package_name, credits_purchased, status, channel, customer_email,
	access_code, authorization_url, gateway_response, failure_message, metadata,
	paid_at, failed_at, created_at, updated_at`

type ChargeRepository struct {
	db *sql.DB
}

func NewChargeRepository(db *sql.DB) *ChargeRepository {
	return &ChargeRepository{db: db}
}

func (r *ChargeRepository) Create(ctx context.Context, charge *domain.Charge) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO charges (
			id, user_id, reference, gateway_transaction_id, amount_kobo,
			currency, package_name, credits_purchased, status, channel, customer_email,
			access_code, authorization_url, gateway_response, failure_message, metadata,
			paid_at, failed_at, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19, $20
		)`,
		charge.ID, charge.UserID, charge.Reference, charge.GatewayTransactionID,
		charge.AmountKobo, charge.Currency, charge.PackageName, charge.CreditsPurchased,
		charge.Status, charge.Channel, charge.CustomerEmail,
		charge.AccessCode, charge.AuthorizationURL, charge.GatewayResponse,
		charge.FailureMessage, charge.Metadata,
		charge.PaidAt, charge.FailedAt, charge.CreatedAt, charge.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *ChargeRepository) GetByReference(ctx context.Context, reference string) (*domain.Charge, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+chargeColumns+` FROM charges WHERE reference = $1`, reference,
	)
	c, err := scanCharge(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByReference: %w", domain.ErrChargeNotFound)
		}
		return nil, fmt.Errorf("GetByReference: %w", err)
	}
	return c, nil
}

func (r *ChargeRepository) GetByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Charge, int, error) {
	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM charges WHERE user_id = $1`, userID,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("GetByUserID: count: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+chargeColumns+` FROM charges
		WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("GetByUserID: %w", err)
	}
	defer rows.Close()

	var charges []domain.Charge
	for rows.Next() {
		c, err := scanCharge(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("GetByUserID: scan: %w", err)
		}
		charges = append(charges, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("GetByUserID: rows: %w", err)
	}
	return charges, total, nil
}

// MarkProcessing records the authorization details handed back by the gateway
// after a successful initialize call.
func (r *ChargeRepository) MarkProcessing(ctx context.Context, id uuid.UUID, accessCode, authorizationURL string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE charges
		SET status = $1, access_code = $2, authorization_url = $3, updated_at = now()
		WHERE id = $4 AND status = $5`,
		domain.ChargeStatusProcessing, accessCode, authorizationURL,
		id, domain.ChargeStatusPending,
	)
	if err != nil {
		return fmt.Errorf("MarkProcessing: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("MarkProcessing: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("MarkProcessing: %w", domain.ErrChargeTerminal)
	}
	return nil
}

// ClaimSuccess flips the charge to success unless it is already terminal.
// It is the serialization point for at-most-once crediting: of two concurrent
// verifiers, exactly one observes claimed=true and performs the ledger credit
// inside the same transaction.
func (r *ChargeRepository) ClaimSuccess(ctx context.Context, tx *sql.Tx, id uuid.UUID, gatewayTransactionID string, channel, gatewayResponse *string, paidAt time.Time) (bool, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE charges
		SET status = $1, gateway_transaction_id = $2, channel = $3,
			gateway_response = $4, paid_at = $5, updated_at = now()
		WHERE id = $6 AND status NOT IN ($7, $8, $9, $10)`,
		domain.ChargeStatusSuccess, gatewayTransactionID, channel,
		gatewayResponse, paidAt, id,
		domain.ChargeStatusSuccess, domain.ChargeStatusFailed,
		domain.ChargeStatusRefunded, domain.ChargeStatusCancelled,
	)
	if err != nil {
		return false, fmt.Errorf("ClaimSuccess: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("ClaimSuccess: rows affected: %w", err)
	}
	return rows == 1, nil
}

// MarkFailed is a no-op when the charge already reached a terminal state, so
// a late failure report cannot clobber a recorded success.
func (r *ChargeRepository) MarkFailed(ctx context.Context, id uuid.UUID, failureMessage string, failedAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE charges
		SET status = $1, failure_message = $2, failed_at = $3, updated_at = now()
		WHERE id = $4 AND status NOT IN ($5, $6, $7, $8)`,
		domain.ChargeStatusFailed, failureMessage, failedAt, id,
		domain.ChargeStatusSuccess, domain.ChargeStatusFailed,
		domain.ChargeStatusRefunded, domain.ChargeStatusCancelled,
	)
	if err != nil {
		return fmt.Errorf("MarkFailed: %w", err)
	}
	return nil
}

// MarkRefunded covers the out-of-band success -> refunded transition. No HTTP
// surface drives it; it exists for operational tooling.
func (r *ChargeRepository) MarkRefunded(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE charges SET status = $1, updated_at = now()
		WHERE id = $2 AND status = $3`,
		domain.ChargeStatusRefunded, id, domain.ChargeStatusSuccess,
	)
	if err != nil {
		return fmt.Errorf("MarkRefunded: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("MarkRefunded: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("MarkRefunded: %w", domain.ErrChargeTerminal)
	}
	return nil
}

// PurchaseTotals sums kobo spent and credits purchased over a user's
// successful charges.
func (r *ChargeRepository) PurchaseTotals(ctx context.Context, userID uuid.UUID) (totalKobo, totalCredits int64, err error) {
	err = r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_kobo), 0), COALESCE(SUM(credits_purchased), 0)
		FROM charges WHERE user_id = $1 AND status = $2`,
		userID, domain.ChargeStatusSuccess,
	).Scan(&totalKobo, &totalCredits)
	if err != nil {
		return 0, 0, fmt.Errorf("PurchaseTotals: %w", err)
	}
	return totalKobo, totalCredits, nil
}

// CountSuccessWithoutCredit counts success charges with no linked purchase
// transaction. A non-zero count means a credit write was lost and must be
// reconciled by retrying the credit, never by re-flipping charge status.
func (r *ChargeRepository) CountSuccessWithoutCredit(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM charges c
		WHERE c.status = $1 AND NOT EXISTS (
			SELECT 1 FROM credit_transactions t
			WHERE t.charge_id = c.id AND t.kind = $2 AND t.status = $3
		)`,
		domain.ChargeStatusSuccess, domain.TransactionKindPurchase,
		domain.TransactionStatusCompleted,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("CountSuccessWithoutCredit: %w", err)
	}
	return n, nil
}

func scanCharge(s scanner) (*domain.Charge, error) {
	var c domain.Charge
	var metadata []byte

	err := s.Scan(
		&c.ID, &c.UserID, &c.Reference, &c.GatewayTransactionID, &c.AmountKobo,
		&c.Currency, &c.PackageName, &c.CreditsPurchased, &c.Status, &c.Channel,
		&c.CustomerEmail, &c.AccessCode, &c.AuthorizationURL, &c.GatewayResponse,
		&c.FailureMessage, &metadata,
		&c.PaidAt, &c.FailedAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.Metadata = metadata

	return &c, nil
}
