package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saphire-ai/backend/internal/auth"
	"github.com/saphire-ai/backend/internal/domain"
	"github.com/saphire-ai/backend/internal/service/ledger"
)

type mockCreditService struct {
	chargeErr     error
	chargeBalance int64
	chargeTx      *domain.CreditTransaction
}

func (m *mockCreditService) GetOrCreateAccount(_ context.Context, userID uuid.UUID) (*domain.CreditAccount, error) {
	return &domain.CreditAccount{UserID: userID, Balance: m.chargeBalance}, nil
}

func (m *mockCreditService) ChargeSimulation(_ context.Context, _ uuid.UUID, _ string, _ uuid.UUID, _ int) (*domain.CreditTransaction, int64, error) {
	return m.chargeTx, m.chargeBalance, m.chargeErr
}

func (m *mockCreditService) History(_ context.Context, _ uuid.UUID, _, _ int) ([]domain.CreditTransaction, int, error) {
	return nil, 0, nil
}

func (m *mockCreditService) Summary(_ context.Context, userID uuid.UUID) (*ledger.Summary, error) {
	return &ledger.Summary{Account: &domain.CreditAccount{UserID: userID}}, nil
}

func authedRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	ctx := auth.ContextWithUserID(req.Context(), uuid.New())
	return req.WithContext(ctx)
}

func TestCreditUse_InsufficientCreditsEnvelope(t *testing.T) {
	svc := &mockCreditService{
		chargeErr:     fmt.Errorf("ChargeSimulation: %w", domain.ErrInsufficientCredits),
		chargeBalance: 3,
	}
	h := NewCreditHandler(svc)

	body := fmt.Sprintf(`{"simulation_type":"interview","simulation_id":%q,"duration_minutes":0}`, uuid.NewString())
	rec := httptest.NewRecorder()
	h.Use(rec, authedRequest(http.MethodPost, "/api/v1/credits/use", body))

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INSUFFICIENT_CREDITS", resp.Error.Code)

	details, ok := resp.Error.Details.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(3), details["balance"])
	assert.Equal(t, float64(10), details["required"])
}

func TestCreditUse_ValidationFailures(t *testing.T) {
	h := NewCreditHandler(&mockCreditService{})

	tests := []struct {
		name string
		body string
	}{
		{"missing type", fmt.Sprintf(`{"simulation_id":%q}`, uuid.NewString())},
		{"missing id", `{"simulation_type":"interview"}`},
		{"bad uuid", `{"simulation_type":"interview","simulation_id":"not-a-uuid"}`},
		{"negative duration", fmt.Sprintf(`{"simulation_type":"presentation","simulation_id":%q,"duration_minutes":-5}`, uuid.NewString())},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Use(rec, authedRequest(http.MethodPost, "/api/v1/credits/use", tt.body))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), "VALIDATION_FAILED")
		})
	}
}

func TestCreditUse_UnknownSimulationType(t *testing.T) {
	svc := &mockCreditService{
		chargeErr: fmt.Errorf("ChargeSimulation: %w", domain.ErrInvalidSimulationType),
	}
	h := NewCreditHandler(svc)

	body := fmt.Sprintf(`{"simulation_type":"karaoke","simulation_id":%q}`, uuid.NewString())
	rec := httptest.NewRecorder()
	h.Use(rec, authedRequest(http.MethodPost, "/api/v1/credits/use", body))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_SIMULATION_TYPE")
}

func TestCreditUse_RequiresAuth(t *testing.T) {
	h := NewCreditHandler(&mockCreditService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/credits/use", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	h.Use(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
