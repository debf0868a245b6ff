package domain

import "errors"

var (
	ErrNotFound              = errors.New("not found")
	ErrInsufficientCredits   = errors.New("insufficient credits")
	ErrInvalidAmount         = errors.New("amount must be greater than zero")
	ErrInvalidSimulationType = errors.New("unknown simulation type")
	ErrPackageNotFound       = errors.New("credit package not found")
	ErrChargeNotFound        = errors.New("charge not found")
	ErrChargeTerminal        = errors.New("charge already in terminal state")
	ErrEmailTaken            = errors.New("email already registered")
	ErrVersionConflict       = errors.New("optimistic lock conflict")
	ErrInvalidRequest        = errors.New("invalid request")

	// ErrGatewayTransient covers network failures and 5xx responses from the
	// payment gateway: the charge stays in its current state and the call may
	// be retried. ErrGatewayRejected is an explicit refusal and is terminal.
	ErrGatewayTransient = errors.New("payment gateway unavailable")
	ErrGatewayRejected  = errors.New("payment gateway rejected transaction")
)
