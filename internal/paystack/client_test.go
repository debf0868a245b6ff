package paystack_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saphire-ai/backend/internal/domain"
	"github.com/saphire-ai/backend/internal/paystack"
)

func TestInitializeTransaction_HappyPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/transaction/initialize", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_secret", r.Header.Get("Authorization"))

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "buyer@test.com", payload["email"])
		assert.Equal(t, float64(500000), payload["amount"])
		assert.Equal(t, "saphire_abc123", payload["reference"])

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":  true,
			"message": "Authorization URL created",
			"data": map[string]string{
				"authorization_url": "https://checkout.paystack.com/xyz",
				"access_code":       "xyz",
				"reference":         "saphire_abc123",
			},
		})
	}))
	defer srv.Close()

	client := paystack.NewClient(srv.URL, "sk_test_secret")
	result, err := client.InitializeTransaction(context.Background(), paystack.InitializeRequest{
		Email:      "buyer@test.com",
		AmountKobo: 500000,
		Reference:  "saphire_abc123",
	})

	require.NoError(t, err)
	assert.Equal(t, "https://checkout.paystack.com/xyz", result.AuthorizationURL)
	assert.Equal(t, "xyz", result.AccessCode)
}

func TestInitializeTransaction_RejectedEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":  false,
			"message": "Invalid amount",
		})
	}))
	defer srv.Close()

	client := paystack.NewClient(srv.URL, "sk_test_secret")
	_, err := client.InitializeTransaction(context.Background(), paystack.InitializeRequest{
		Email:      "buyer@test.com",
		AmountKobo: -1,
		Reference:  "saphire_bad",
	})

	require.ErrorIs(t, err, domain.ErrGatewayRejected)
	assert.Contains(t, err.Error(), "Invalid amount")
}

func TestVerifyTransaction_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transaction/verify/saphire_abc123", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":  true,
			"message": "Verification successful",
			"data": map[string]any{
				"id":               4099260516,
				"status":           "success",
				"reference":        "saphire_abc123",
				"channel":          "card",
				"gateway_response": "Successful",
			},
		})
	}))
	defer srv.Close()

	client := paystack.NewClient(srv.URL, "sk_test_secret")
	result, err := client.VerifyTransaction(context.Background(), "saphire_abc123")

	require.NoError(t, err)
	assert.Equal(t, "success", result.Status)
	assert.Equal(t, "4099260516", result.TransactionID)
	assert.Equal(t, "card", result.Channel)
	assert.Equal(t, "Successful", result.GatewayResponse)
}

func TestVerifyTransaction_ServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := paystack.NewClient(srv.URL, "sk_test_secret")
	_, err := client.VerifyTransaction(context.Background(), "saphire_abc123")

	require.ErrorIs(t, err, domain.ErrGatewayTransient)
}

func TestVerifyTransaction_NetworkErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client := paystack.NewClient(srv.URL, "sk_test_secret")
	_, err := client.VerifyTransaction(context.Background(), "saphire_abc123")

	require.ErrorIs(t, err, domain.ErrGatewayTransient)
}

func TestVerifyTransaction_MalformedBodyIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer srv.Close()

	client := paystack.NewClient(srv.URL, "sk_test_secret")
	_, err := client.VerifyTransaction(context.Background(), "saphire_abc123")

	require.ErrorIs(t, err, domain.ErrGatewayTransient)
}

func TestVerifyTransaction_NotFoundIsRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":  false,
			"message": "Transaction reference not found",
		})
	}))
	defer srv.Close()

	client := paystack.NewClient(srv.URL, "sk_test_secret")
	_, err := client.VerifyTransaction(context.Background(), "saphire_nope")

	require.ErrorIs(t, err, domain.ErrGatewayRejected)
}
