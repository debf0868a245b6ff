package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/saphire-ai/backend/internal/domain"
)

const transactionColumns = `id, account_id, user_id, amount, kind, status,
	simulation_type, simulation_id, charge_id, package_name, description, created_at`

type TransactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Create(ctx context.Context, tx *sql.Tx, t *domain.CreditTransaction) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO credit_transactions (
			id, account_id, user_id, amount, kind, status,
			simulation_type, simulation_id, charge_id, package_name, description, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		t.ID, t.AccountID, t.UserID, t.Amount, t.Kind, t.Status,
		t.SimulationType, t.SimulationID, t.ChargeID, t.PackageName,
		t.Description, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *TransactionRepository) GetByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.CreditTransaction, int, error) {
	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM credit_transactions WHERE user_id = $1`, userID,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("GetByUserID: count: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM credit_transactions
		WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("GetByUserID: %w", err)
	}
	defer rows.Close()

	var txs []domain.CreditTransaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("GetByUserID: scan: %w", err)
		}
		txs = append(txs, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("GetByUserID: rows: %w", err)
	}
	return txs, total, nil
}

func (r *TransactionRepository) GetByChargeID(ctx context.Context, chargeID uuid.UUID) ([]domain.CreditTransaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM credit_transactions
		WHERE charge_id = $1 ORDER BY created_at`, chargeID,
	)
	if err != nil {
		return nil, fmt.Errorf("GetByChargeID: %w", err)
	}
	defer rows.Close()

	var txs []domain.CreditTransaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("GetByChargeID: scan: %w", err)
		}
		txs = append(txs, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("GetByChargeID: rows: %w", err)
	}
	return txs, nil
}

// SumCompletedByAccount returns the sum of completed transaction amounts for
// one account. Used by invariant checks and the reconciliation audit.
func (r *TransactionRepository) SumCompletedByAccount(ctx context.Context, accountID uuid.UUID) (int64, error) {
	var sum int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM credit_transactions
		WHERE account_id = $1 AND status = $2`,
		accountID, domain.TransactionStatusCompleted,
	).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("SumCompletedByAccount: %w", err)
	}
	return sum, nil
}

func scanTransaction(s scanner) (*domain.CreditTransaction, error) {
	var t domain.CreditTransaction
	var simulationID uuid.NullUUID
	var chargeID uuid.NullUUID

	err := s.Scan(
		&t.ID, &t.AccountID, &t.UserID, &t.Amount, &t.Kind, &t.Status,
		&t.SimulationType, &simulationID, &chargeID, &t.PackageName,
		&t.Description, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if simulationID.Valid {
		t.SimulationID = &simulationID.UUID
	}
	if chargeID.Valid {
		t.ChargeID = &chargeID.UUID
	}

	return &t, nil
}
