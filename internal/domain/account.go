package domain

import (
	"time"

	"github.com/google/uuid"
)

// CreditAccount tracks one user's simulation credit balance. Created lazily
// on first access and mutated only through the ledger service.
//
// Invariant: Balance == LifetimeEarned - LifetimeUsed, and Balance equals the
// sum of all completed transaction amounts for the account.
type CreditAccount struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	Balance        int64
	LifetimeEarned int64
	LifetimeUsed   int64
	Version        int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
