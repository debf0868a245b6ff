package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/saphire-ai/backend/internal/auth"
	"github.com/saphire-ai/backend/internal/domain"
	"github.com/saphire-ai/backend/internal/logging"
	"github.com/saphire-ai/backend/internal/service/billing"
)

type billingService interface {
	ListPackages(ctx context.Context) ([]domain.CreditPackage, error)
	InitializePurchase(ctx context.Context, userID uuid.UUID, email, packageSlug, callbackURL string) (*billing.InitializeResult, error)
	VerifyCharge(ctx context.Context, reference string) (bool, *domain.Charge, error)
	UserCharges(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]domain.Charge, int, error)
	GetPurchaseSummary(ctx context.Context, userID uuid.UUID) (*billing.PurchaseSummary, error)
}

type balanceReader interface {
	GetOrCreateAccount(ctx context.Context, userID uuid.UUID) (*domain.CreditAccount, error)
}

type PaymentHandler struct {
	billing billingService
	users   userGetter
	credits balanceReader
}

func NewPaymentHandler(billingSvc billingService, users userGetter, credits balanceReader) *PaymentHandler {
	return &PaymentHandler{billing: billingSvc, users: users, credits: credits}
}

type packageDTO struct {
	ID            uuid.UUID       `json:"id"`
	Name          string          `json:"name"`
	Slug          string          `json:"slug"`
	Description   *string         `json:"description,omitempty"`
	PriceKobo     int64           `json:"price_kobo"`
	PriceNaira    decimal.Decimal `json:"price_naira"`
	Currency      string          `json:"currency"`
	CreditsAmount int64           `json:"credits_amount"`
	BonusCredits  int64           `json:"bonus_credits"`
	TotalCredits  int64           `json:"total_credits"`
	Features      json.RawMessage `json:"features,omitempty"`
	IsPopular     bool            `json:"is_popular"`
}

func toPackageDTO(p *domain.CreditPackage) packageDTO {
	return packageDTO{
		ID:            p.ID,
		Name:          p.Name,
		Slug:          p.Slug,
		Description:   p.Description,
		PriceKobo:     p.PriceKobo,
		PriceNaira:    p.PriceNaira(),
		Currency:      p.Currency,
		CreditsAmount: p.CreditsAmount,
		BonusCredits:  p.BonusCredits,
		TotalCredits:  p.TotalCredits(),
		Features:      p.Features,
		IsPopular:     p.IsPopular,
	}
}

type chargeDTO struct {
	ID               uuid.UUID  `json:"id"`
	Reference        string     `json:"reference"`
	Status           string     `json:"status"`
	AmountKobo       int64      `json:"amount_kobo"`
	Currency         string     `json:"currency"`
	PackageName      string     `json:"package_name"`
	CreditsPurchased int64      `json:"credits_purchased"`
	Channel          *string    `json:"channel,omitempty"`
	FailureMessage   *string    `json:"failure_message,omitempty"`
	PaidAt           *time.Time `json:"paid_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

func toChargeDTO(c *domain.Charge) chargeDTO {
	return chargeDTO{
		ID:               c.ID,
		Reference:        c.Reference,
		Status:           string(c.Status),
		AmountKobo:       c.AmountKobo,
		Currency:         c.Currency,
		PackageName:      c.PackageName,
		CreditsPurchased: c.CreditsPurchased,
		Channel:          c.Channel,
		FailureMessage:   c.FailureMessage,
		PaidAt:           c.PaidAt,
		CreatedAt:        c.CreatedAt,
	}
}

func (h *PaymentHandler) ListPackages(w http.ResponseWriter, r *http.Request) {
	packages, err := h.billing.ListPackages(r.Context())
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to list packages", "error", err)
		RespondDomainError(w, err)
		return
	}

	dtos := make([]packageDTO, len(packages))
	for i := range packages {
		dtos[i] = toPackageDTO(&packages[i])
	}
	RespondSuccess(w, http.StatusOK, dtos)
}

type initializeRequest struct {
	PackageSlug string `json:"package_slug"`
	Email       string `json:"email"`
	CallbackURL string `json:"callback_url"`
}

func (r initializeRequest) Validate() []FieldError {
	var errs []FieldError
	if r.PackageSlug == "" {
		errs = append(errs, FieldError{Field: "package_slug", Message: "required"})
	}
	return errs
}

func (h *PaymentHandler) Initialize(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	var req initializeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	// The gateway needs a billing email; default to the account's own.
	email := req.Email
	if email == "" {
		user, err := h.users.GetByID(r.Context(), userID)
		if err != nil {
			log.Error("failed to load user for purchase", "error", err)
			RespondDomainError(w, err)
			return
		}
		email = user.Email
	}

	result, err := h.billing.InitializePurchase(r.Context(), userID, email, req.PackageSlug, req.CallbackURL)
	if err != nil {
		log.Warn("purchase initialization failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, map[string]string{
		"authorization_url": result.AuthorizationURL,
		"access_code":       result.AccessCode,
		"reference":         result.Reference,
	})
}

func (h *PaymentHandler) Verify(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	reference := r.PathValue("reference")
	if reference == "" {
		RespondAppError(w, ErrChargeNotFound, nil)
		return
	}

	credited, charge, err := h.billing.VerifyCharge(r.Context(), reference)
	if err != nil {
		log.Warn("charge verification failed", "reference", reference, "error", err)
		RespondDomainError(w, err)
		return
	}

	// References are unguessable but charges are still scoped to their owner.
	if charge.UserID != userID {
		RespondAppError(w, ErrChargeNotFound, nil)
		return
	}

	account, err := h.credits.GetOrCreateAccount(r.Context(), userID)
	if err != nil {
		log.Error("failed to load account after verification", "error", err)
		RespondDomainError(w, err)
		return
	}

	var creditsAdded int64
	if credited {
		creditsAdded = charge.CreditsPurchased
	}

	RespondSuccess(w, http.StatusOK, map[string]any{
		"success":       credited,
		"charge":        toChargeDTO(charge),
		"credits_added": creditsAdded,
		"new_balance":   account.Balance,
	})
}

func (h *PaymentHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	page, pageSize := pagination(r)
	charges, total, err := h.billing.UserCharges(r.Context(), userID, page, pageSize)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to get charge history", "error", err)
		RespondDomainError(w, err)
		return
	}

	dtos := make([]chargeDTO, len(charges))
	for i := range charges {
		dtos[i] = toChargeDTO(&charges[i])
	}

	RespondSuccess(w, http.StatusOK, map[string]any{
		"charges":   dtos,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

func (h *PaymentHandler) Summary(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	summary, err := h.billing.GetPurchaseSummary(r.Context(), userID)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to get purchase summary", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, map[string]int64{
		"total_spent_kobo":        summary.TotalSpentKobo,
		"total_credits_purchased": summary.TotalCreditsPurchased,
	})
}
