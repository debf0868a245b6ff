package domain

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreditPackage is a row in the fixed purchase catalog. Prices are stored in
// kobo (smallest NGN unit).
type CreditPackage struct {
	ID            uuid.UUID
	Name          string
	Slug          string
	Description   *string
	PriceKobo     int64
	Currency      string
	CreditsAmount int64
	BonusCredits  int64
	Features      json.RawMessage
	IsPopular     bool
	IsActive      bool
	DisplayOrder  int
}

// TotalCredits is the grant applied on a successful purchase.
func (p *CreditPackage) TotalCredits() int64 {
	return p.CreditsAmount + p.BonusCredits
}

// PriceNaira converts the stored kobo price for display.
func (p *CreditPackage) PriceNaira() decimal.Decimal {
	return decimal.NewFromInt(p.PriceKobo).Div(decimal.NewFromInt(100))
}
