// Package billing orchestrates the charge lifecycle against the payment
// gateway and reconciles gateway state with the credit ledger. At-most-once
// crediting is enforced by a conditional status flip on the charge row; see
// VerifyCharge.
package billing

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/saphire-ai/backend/internal/domain"
	"github.com/saphire-ai/backend/internal/paystack"
	"github.com/saphire-ai/backend/internal/service/ledger"
)

type chargeRepo interface {
	Create(ctx context.Context, charge *domain.Charge) error
	GetByReference(ctx context.Context, reference string) (*domain.Charge, error)
	GetByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Charge, int, error)
	MarkProcessing(ctx context.Context, id uuid.UUID, accessCode, authorizationURL string) error
	ClaimSuccess(ctx context.Context, tx *sql.Tx, id uuid.UUID, gatewayTransactionID string, channel, gatewayResponse *string, paidAt time.Time) (bool, error)
	MarkFailed(ctx context.Context, id uuid.UUID, failureMessage string, failedAt time.Time) error
	PurchaseTotals(ctx context.Context, userID uuid.UUID) (totalKobo, totalCredits int64, err error)
	CountSuccessWithoutCredit(ctx context.Context) (int, error)
}

type packageRepo interface {
	GetActiveBySlug(ctx context.Context, slug string) (*domain.CreditPackage, error)
	ListActive(ctx context.Context) ([]domain.CreditPackage, error)
}

type webhookEventRepo interface {
	Record(ctx context.Context, event *domain.WebhookEvent) error
}

type creditLedger interface {
	CreditTx(ctx context.Context, tx *sql.Tx, userID uuid.UUID, amount int64, kind domain.TransactionKind, meta ledger.CreditMetadata) (*domain.CreditTransaction, error)
	GetOrCreateAccount(ctx context.Context, userID uuid.UUID) (*domain.CreditAccount, error)
}

type gateway interface {
	InitializeTransaction(ctx context.Context, req paystack.InitializeRequest) (*paystack.InitializeResult, error)
	VerifyTransaction(ctx context.Context, reference string) (*paystack.VerifyResult, error)
}

type Service struct {
	charges  chargeRepo
	packages packageRepo
	webhooks webhookEventRepo
	ledger   creditLedger
	gateway  gateway
	db       *sql.DB

	callbackURL string
}

func NewService(
	charges chargeRepo,
	packages packageRepo,
	webhooks webhookEventRepo,
	creditSvc creditLedger,
	gw gateway,
	db *sql.DB,
	callbackURL string,
) *Service {
	return &Service{
		charges:     charges,
		packages:    packages,
		webhooks:    webhooks,
		ledger:      creditSvc,
		gateway:     gw,
		db:          db,
		callbackURL: callbackURL,
	}
}

func (s *Service) ListPackages(ctx context.Context) ([]domain.CreditPackage, error) {
	packages, err := s.packages.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListPackages: %w", err)
	}
	return packages, nil
}

func (s *Service) UserCharges(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]domain.Charge, int, error) {
	offset := (page - 1) * pageSize
	charges, total, err := s.charges.GetByUserID(ctx, userID, pageSize, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("UserCharges: %w", err)
	}
	return charges, total, nil
}

// PurchaseSummary aggregates a user's successful charges.
type PurchaseSummary struct {
	TotalSpentKobo        int64
	TotalCreditsPurchased int64
}

func (s *Service) GetPurchaseSummary(ctx context.Context, userID uuid.UUID) (*PurchaseSummary, error) {
	kobo, credits, err := s.charges.PurchaseTotals(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("GetPurchaseSummary: %w", err)
	}
	return &PurchaseSummary{TotalSpentKobo: kobo, TotalCreditsPurchased: credits}, nil
}

// CountSuccessWithoutCredit detects reconciliation drift: success charges
// with no linked purchase transaction. Recovery is re-running the credit for
// the affected charge, never re-flipping its status.
func (s *Service) CountSuccessWithoutCredit(ctx context.Context) (int, error) {
	n, err := s.charges.CountSuccessWithoutCredit(ctx)
	if err != nil {
		return 0, fmt.Errorf("CountSuccessWithoutCredit: %w", err)
	}
	return n, nil
}
