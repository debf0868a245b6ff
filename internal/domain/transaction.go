package domain

import (
	"time"

	"github.com/google/uuid"
)

type TransactionKind string

const (
	TransactionKindPurchase TransactionKind = "purchase"
	TransactionKindUsage    TransactionKind = "usage"
	TransactionKindBonus    TransactionKind = "bonus"
	TransactionKindRefund   TransactionKind = "refund"
)

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
	TransactionStatusCancelled TransactionStatus = "cancelled"
)

// CreditTransaction is an append-only ledger entry. Amount is positive for
// credits and negative for debits. Rows are never mutated after insert.
type CreditTransaction struct {
	ID        uuid.UUID
	AccountID uuid.UUID
	UserID    uuid.UUID
	Amount    int64
	Kind      TransactionKind
	Status    TransactionStatus

	// Usage tracking
	SimulationType *string
	SimulationID   *uuid.UUID

	// Purchase tracking
	ChargeID    *uuid.UUID
	PackageName *string

	Description *string
	CreatedAt   time.Time
}
