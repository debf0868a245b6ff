package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/saphire-ai/backend/internal/domain"
)

const accountColumns = `id, user_id, balance, lifetime_earned, lifetime_used,
	version, created_at, updated_at`

type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.CreditAccount, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM credit_accounts WHERE user_id = $1`, userID,
	)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByUserID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByUserID: %w", err)
	}
	return a, nil
}

func (r *AccountRepository) Create(ctx context.Context, account *domain.CreditAccount) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO credit_accounts (
			id, user_id, balance, lifetime_earned, lifetime_used,
			version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		account.ID, account.UserID, account.Balance,
		account.LifetimeEarned, account.LifetimeUsed,
		account.Version, account.CreatedAt, account.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

// GetForUpdate locks the account row for the duration of tx. All balance
// mutations happen under this lock.
func (r *AccountRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, userID uuid.UUID) (*domain.CreditAccount, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM credit_accounts WHERE user_id = $1 FOR UPDATE`, userID,
	)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetForUpdate: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetForUpdate: %w", err)
	}
	return a, nil
}

func (r *AccountRepository) UpdateBalances(ctx context.Context, tx *sql.Tx, id uuid.UUID, balance, lifetimeEarned, lifetimeUsed, newVersion int64) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE credit_accounts
		SET balance = $1, lifetime_earned = $2, lifetime_used = $3, version = $4, updated_at = now()
		WHERE id = $5 AND version = $6`,
		balance, lifetimeEarned, lifetimeUsed, newVersion, id, newVersion-1,
	)
	if err != nil {
		return fmt.Errorf("UpdateBalances: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("UpdateBalances: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("UpdateBalances: %w", domain.ErrVersionConflict)
	}
	return nil
}

func scanAccount(s scanner) (*domain.CreditAccount, error) {
	var a domain.CreditAccount
	err := s.Scan(
		&a.ID, &a.UserID, &a.Balance, &a.LifetimeEarned, &a.LifetimeUsed,
		&a.Version, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
