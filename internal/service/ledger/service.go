package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/saphire-ai/backend/internal/domain"
	"github.com/saphire-ai/backend/internal/logging"
)

type accountRepo interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.CreditAccount, error)
	Create(ctx context.Context, account *domain.CreditAccount) error
	GetForUpdate(ctx context.Context, tx *sql.Tx, userID uuid.UUID) (*domain.CreditAccount, error)
	UpdateBalances(ctx context.Context, tx *sql.Tx, id uuid.UUID, balance, lifetimeEarned, lifetimeUsed, newVersion int64) error
}

type transactionRepo interface {
	Create(ctx context.Context, tx *sql.Tx, t *domain.CreditTransaction) error
	GetByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.CreditTransaction, int, error)
}

// Service owns all balance mutation rules. Every credit and debit locks the
// account row and writes the ledger entry in the same transaction, so the
// balance and the transaction log cannot diverge.
type Service struct {
	accounts accountRepo
	txs      transactionRepo
	db       *sql.DB
}

func NewService(accounts accountRepo, txs transactionRepo, db *sql.DB) *Service {
	return &Service{accounts: accounts, txs: txs, db: db}
}

// CreditMetadata carries the optional provenance of a credit.
type CreditMetadata struct {
	Description string
	ChargeID    *uuid.UUID
	PackageName string
}

// GetOrCreateAccount returns the user's credit account, creating a
// zero-balance one on first access. A concurrent create losing the unique
// race on user_id falls back to re-reading the winner's row.
func (s *Service) GetOrCreateAccount(ctx context.Context, userID uuid.UUID) (*domain.CreditAccount, error) {
	account, err := s.accounts.GetByUserID(ctx, userID)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("GetOrCreateAccount: %w", err)
	}

	now := time.Now().UTC()
	account = &domain.CreditAccount{
		ID:        uuid.New(),
		UserID:    userID,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		existing, getErr := s.accounts.GetByUserID(ctx, userID)
		if getErr == nil {
			return existing, nil
		}
		return nil, fmt.Errorf("GetOrCreateAccount: %w", err)
	}

	logging.FromContext(ctx).Info("credit account created",
		"account_id", account.ID,
		"user_id", userID,
	)

	return account, nil
}

// Credit increases balance and lifetime_earned by amount and appends a
// completed transaction, atomically.
func (s *Service) Credit(ctx context.Context, userID uuid.UUID, amount int64, kind domain.TransactionKind, meta CreditMetadata) (*domain.CreditTransaction, error) {
	t, err := s.CreditTx(ctx, nil, userID, amount, kind, meta)
	if err != nil {
		return nil, fmt.Errorf("Credit: %w", err)
	}
	return t, nil
}

// CreditTx is Credit running inside a caller-owned transaction when tx is
// non-nil. The billing service uses this to make the charge status flip and
// the ledger credit one atomic unit.
func (s *Service) CreditTx(ctx context.Context, tx *sql.Tx, userID uuid.UUID, amount int64, kind domain.TransactionKind, meta CreditMetadata) (*domain.CreditTransaction, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("CreditTx: %w", domain.ErrInvalidAmount)
	}

	if _, err := s.GetOrCreateAccount(ctx, userID); err != nil {
		return nil, fmt.Errorf("CreditTx: %w", err)
	}

	ownTx := tx == nil
	if ownTx {
		var err error
		tx, err = s.db.BeginTx(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("CreditTx: begin tx: %w", err)
		}
		defer tx.Rollback()
	}

	account, err := s.accounts.GetForUpdate(ctx, tx, userID)
	if err != nil {
		return nil, fmt.Errorf("CreditTx: %w", err)
	}

	now := time.Now().UTC()
	t := &domain.CreditTransaction{
		ID:        uuid.New(),
		AccountID: account.ID,
		UserID:    userID,
		Amount:    amount,
		Kind:      kind,
		Status:    domain.TransactionStatusCompleted,
		ChargeID:  meta.ChargeID,
		CreatedAt: now,
	}
	if meta.Description != "" {
		t.Description = &meta.Description
	}
	if meta.PackageName != "" {
		t.PackageName = &meta.PackageName
	}

	if err := s.txs.Create(ctx, tx, t); err != nil {
		return nil, fmt.Errorf("CreditTx: create transaction: %w", err)
	}

	if err := s.accounts.UpdateBalances(ctx, tx,
		account.ID,
		account.Balance+amount,
		account.LifetimeEarned+amount,
		account.LifetimeUsed,
		account.Version+1,
	); err != nil {
		return nil, fmt.Errorf("CreditTx: update balances: %w", err)
	}

	if ownTx {
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("CreditTx: commit: %w", err)
		}
	}

	logging.FromContext(ctx).Info("credits added",
		"user_id", userID,
		"amount", amount,
		"kind", kind,
	)

	return t, nil
}

// Debit is a checked subtraction: the balance check and the mutation happen
// under the account row lock, so concurrent debits against a low balance
// cannot both pass. On insufficient funds nothing is written.
func (s *Service) Debit(ctx context.Context, userID uuid.UUID, amount int64, simulationType string, simulationID uuid.UUID, description string) (*domain.CreditTransaction, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("Debit: %w", domain.ErrInvalidAmount)
	}

	if _, err := s.GetOrCreateAccount(ctx, userID); err != nil {
		return nil, fmt.Errorf("Debit: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("Debit: begin tx: %w", err)
	}
	defer tx.Rollback()

	account, err := s.accounts.GetForUpdate(ctx, tx, userID)
	if err != nil {
		return nil, fmt.Errorf("Debit: %w", err)
	}

	if account.Balance < amount {
		return nil, fmt.Errorf("Debit: %w", domain.ErrInsufficientCredits)
	}

	if description == "" {
		description = fmt.Sprintf("Used for %s", simulationType)
	}

	now := time.Now().UTC()
	t := &domain.CreditTransaction{
		ID:             uuid.New(),
		AccountID:      account.ID,
		UserID:         userID,
		Amount:         -amount,
		Kind:           domain.TransactionKindUsage,
		Status:         domain.TransactionStatusCompleted,
		SimulationType: &simulationType,
		SimulationID:   &simulationID,
		Description:    &description,
		CreatedAt:      now,
	}

	if err := s.txs.Create(ctx, tx, t); err != nil {
		return nil, fmt.Errorf("Debit: create transaction: %w", err)
	}

	if err := s.accounts.UpdateBalances(ctx, tx,
		account.ID,
		account.Balance-amount,
		account.LifetimeEarned,
		account.LifetimeUsed+amount,
		account.Version+1,
	); err != nil {
		return nil, fmt.Errorf("Debit: update balances: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("Debit: commit: %w", err)
	}

	logging.FromContext(ctx).Info("credits used",
		"user_id", userID,
		"amount", amount,
		"simulation_type", simulationType,
		"simulation_id", simulationID,
	)

	return t, nil
}

// ChargeSimulation prices the simulation and debits the user in one call,
// returning the remaining balance alongside the transaction.
func (s *Service) ChargeSimulation(ctx context.Context, userID uuid.UUID, simulationType string, simulationID uuid.UUID, durationMinutes int) (*domain.CreditTransaction, int64, error) {
	cost, err := SimulationCost(simulationType, durationMinutes)
	if err != nil {
		return nil, 0, fmt.Errorf("ChargeSimulation: %w", err)
	}

	t, err := s.Debit(ctx, userID, cost, simulationType, simulationID, "")
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientCredits) {
			account, accErr := s.GetOrCreateAccount(ctx, userID)
			if accErr != nil {
				return nil, 0, fmt.Errorf("ChargeSimulation: %w", accErr)
			}
			return nil, account.Balance, fmt.Errorf("ChargeSimulation: %w", err)
		}
		return nil, 0, fmt.Errorf("ChargeSimulation: %w", err)
	}

	account, err := s.GetOrCreateAccount(ctx, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("ChargeSimulation: %w", err)
	}

	return t, account.Balance, nil
}

// History returns the user's transactions newest-first plus the total count.
func (s *Service) History(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]domain.CreditTransaction, int, error) {
	offset := (page - 1) * pageSize
	txs, total, err := s.txs.GetByUserID(ctx, userID, pageSize, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("History: %w", err)
	}
	return txs, total, nil
}

// Summary is the account plus its five most recent transactions.
type Summary struct {
	Account *domain.CreditAccount
	Recent  []domain.CreditTransaction
}

func (s *Service) Summary(ctx context.Context, userID uuid.UUID) (*Summary, error) {
	account, err := s.GetOrCreateAccount(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("Summary: %w", err)
	}

	recent, _, err := s.txs.GetByUserID(ctx, userID, 5, 0)
	if err != nil {
		return nil, fmt.Errorf("Summary: %w", err)
	}

	return &Summary{Account: account, Recent: recent}, nil
}
