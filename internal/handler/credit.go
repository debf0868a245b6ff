package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/saphire-ai/backend/internal/auth"
	"github.com/saphire-ai/backend/internal/domain"
	"github.com/saphire-ai/backend/internal/logging"
	"github.com/saphire-ai/backend/internal/service/ledger"
)

type creditService interface {
	GetOrCreateAccount(ctx context.Context, userID uuid.UUID) (*domain.CreditAccount, error)
	ChargeSimulation(ctx context.Context, userID uuid.UUID, simulationType string, simulationID uuid.UUID, durationMinutes int) (*domain.CreditTransaction, int64, error)
	History(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]domain.CreditTransaction, int, error)
	Summary(ctx context.Context, userID uuid.UUID) (*ledger.Summary, error)
}

type CreditHandler struct {
	credits creditService
}

func NewCreditHandler(credits creditService) *CreditHandler {
	return &CreditHandler{credits: credits}
}

type accountDTO struct {
	Balance        int64     `json:"balance"`
	LifetimeEarned int64     `json:"lifetime_earned"`
	LifetimeUsed   int64     `json:"lifetime_used"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func toAccountDTO(a *domain.CreditAccount) accountDTO {
	return accountDTO{
		Balance:        a.Balance,
		LifetimeEarned: a.LifetimeEarned,
		LifetimeUsed:   a.LifetimeUsed,
		UpdatedAt:      a.UpdatedAt,
	}
}

type transactionDTO struct {
	ID             uuid.UUID  `json:"id"`
	Amount         int64      `json:"amount"`
	Kind           string     `json:"kind"`
	Status         string     `json:"status"`
	SimulationType *string    `json:"simulation_type,omitempty"`
	SimulationID   *uuid.UUID `json:"simulation_id,omitempty"`
	PackageName    *string    `json:"package_name,omitempty"`
	Description    *string    `json:"description,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

func toTransactionDTO(t *domain.CreditTransaction) transactionDTO {
	return transactionDTO{
		ID:             t.ID,
		Amount:         t.Amount,
		Kind:           string(t.Kind),
		Status:         string(t.Status),
		SimulationType: t.SimulationType,
		SimulationID:   t.SimulationID,
		PackageName:    t.PackageName,
		Description:    t.Description,
		CreatedAt:      t.CreatedAt,
	}
}

func toTransactionDTOs(txs []domain.CreditTransaction) []transactionDTO {
	dtos := make([]transactionDTO, len(txs))
	for i := range txs {
		dtos[i] = toTransactionDTO(&txs[i])
	}
	return dtos
}

// pagination parses page and page_size query params with sane bounds.
func pagination(r *http.Request) (page, pageSize int) {
	page = 1
	pageSize = 20

	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && v > 0 {
		page = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("page_size")); err == nil && v > 0 && v <= 100 {
		pageSize = v
	}
	return page, pageSize
}

func (h *CreditHandler) Balance(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	account, err := h.credits.GetOrCreateAccount(r.Context(), userID)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to get account", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toAccountDTO(account))
}

func (h *CreditHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	page, pageSize := pagination(r)
	txs, total, err := h.credits.History(r.Context(), userID, page, pageSize)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to get history", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, map[string]any{
		"transactions": toTransactionDTOs(txs),
		"total":        total,
		"page":         page,
		"page_size":    pageSize,
	})
}

func (h *CreditHandler) Summary(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	summary, err := h.credits.Summary(r.Context(), userID)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to get summary", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, map[string]any{
		"account":             toAccountDTO(summary.Account),
		"recent_transactions": toTransactionDTOs(summary.Recent),
	})
}

func (h *CreditHandler) Costs(w http.ResponseWriter, r *http.Request) {
	RespondSuccess(w, http.StatusOK, ledger.Costs())
}

type useCreditsRequest struct {
	SimulationType  string `json:"simulation_type"`
	SimulationID    string `json:"simulation_id"`
	DurationMinutes int    `json:"duration_minutes"`
}

func (r useCreditsRequest) Validate() []FieldError {
	var errs []FieldError

	if r.SimulationType == "" {
		errs = append(errs, FieldError{Field: "simulation_type", Message: "required"})
	}
	if r.SimulationID == "" {
		errs = append(errs, FieldError{Field: "simulation_id", Message: "required"})
	} else if _, err := uuid.Parse(r.SimulationID); err != nil {
		errs = append(errs, FieldError{Field: "simulation_id", Message: "must be a valid UUID"})
	}
	if r.DurationMinutes < 0 {
		errs = append(errs, FieldError{Field: "duration_minutes", Message: "must not be negative"})
	}

	return errs
}

func (h *CreditHandler) Use(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	var req useCreditsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	simulationID, _ := uuid.Parse(req.SimulationID)

	t, balance, err := h.credits.ChargeSimulation(r.Context(), userID, req.SimulationType, simulationID, req.DurationMinutes)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientCredits) {
			required, _ := ledger.SimulationCost(req.SimulationType, req.DurationMinutes)
			RespondAppError(w, ErrInsufficientCredits, map[string]int64{
				"balance":  balance,
				"required": required,
			})
			return
		}
		log.Warn("credit charge failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, map[string]any{
		"transaction": toTransactionDTO(t),
		"balance":     balance,
	})
}
