package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type ChargeStatus string

const (
	ChargeStatusPending    ChargeStatus = "pending"
	ChargeStatusProcessing ChargeStatus = "processing"
	ChargeStatusSuccess    ChargeStatus = "success"
	ChargeStatusFailed     ChargeStatus = "failed"
	ChargeStatusRefunded   ChargeStatus = "refunded"
	ChargeStatusCancelled  ChargeStatus = "cancelled"
)

// IsTerminal reports whether the status ends the reconciliation flow. A
// success charge is frozen for this flow; refunds happen out of band.
func (s ChargeStatus) IsTerminal() bool {
	switch s {
	case ChargeStatusSuccess, ChargeStatusFailed, ChargeStatusRefunded, ChargeStatusCancelled:
		return true
	}
	return false
}

// Charge is one attempt to collect payment through the gateway, identified by
// a client-generated globally unique reference. A charge transitions to
// success at most once, and that transition produces exactly one purchase
// transaction crediting the linked account.
type Charge struct {
	ID                   uuid.UUID
	UserID               uuid.UUID
	Reference            string
	GatewayTransactionID *string
	AmountKobo           int64
	Currency             string
	PackageName          string
	CreditsPurchased     int64
	Status               ChargeStatus
	Channel              *string
	CustomerEmail        string
	AccessCode           *string
	AuthorizationURL     *string
	GatewayResponse      *string
	FailureMessage       *string
	Metadata             json.RawMessage
	PaidAt               *time.Time
	FailedAt             *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}
