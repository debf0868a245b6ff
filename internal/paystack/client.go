package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/saphire-ai/backend/internal/domain"
	"github.com/saphire-ai/backend/internal/logging"
)

// Client talks to the Paystack transaction API. It is constructed once in the
// process entry point and injected into the billing service.
type Client struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
}

func NewClient(baseURL, secretKey string) *Client {
	return &Client{
		baseURL:   baseURL,
		secretKey: secretKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type InitializeRequest struct {
	Email       string
	AmountKobo  int64
	Reference   string
	CallbackURL string
	Metadata    map[string]string
}

type InitializeResult struct {
	AuthorizationURL string
	AccessCode       string
}

type VerifyResult struct {
	Status          string
	TransactionID   string
	Channel         string
	GatewayResponse string
	Raw             json.RawMessage
}

type initializePayload struct {
	Email       string            `json:"email"`
	Amount      int64             `json:"amount"`
	Reference   string            `json:"reference"`
	CallbackURL string            `json:"callback_url,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type apiEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type initializeData struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type verifyData struct {
	ID              int64  `json:"id"`
	Status          string `json:"status"`
	Reference       string `json:"reference"`
	Amount          int64  `json:"amount"`
	Channel         string `json:"channel"`
	GatewayResponse string `json:"gateway_response"`
	PaidAt          string `json:"paid_at"`
}

// InitializeTransaction creates a remote charge tied to reference and returns
// the hosted checkout URL.
func (c *Client) InitializeTransaction(ctx context.Context, req InitializeRequest) (*InitializeResult, error) {
	payload := initializePayload{
		Email:       req.Email,
		Amount:      req.AmountKobo,
		Reference:   req.Reference,
		CallbackURL: req.CallbackURL,
		Metadata:    req.Metadata,
	}

	env, err := c.post(ctx, "/transaction/initialize", payload)
	if err != nil {
		return nil, fmt.Errorf("InitializeTransaction: %w", err)
	}

	var data initializeData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("InitializeTransaction: decode data: %w: %w", domain.ErrGatewayTransient, err)
	}

	return &InitializeResult{
		AuthorizationURL: data.AuthorizationURL,
		AccessCode:       data.AccessCode,
	}, nil
}

// VerifyTransaction asks the gateway for the authoritative charge status.
func (c *Client) VerifyTransaction(ctx context.Context, reference string) (*VerifyResult, error) {
	env, err := c.get(ctx, "/transaction/verify/"+reference)
	if err != nil {
		return nil, fmt.Errorf("VerifyTransaction: %w", err)
	}

	var data verifyData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("VerifyTransaction: decode data: %w: %w", domain.ErrGatewayTransient, err)
	}

	return &VerifyResult{
		Status:          data.Status,
		TransactionID:   fmt.Sprintf("%d", data.ID),
		Channel:         data.Channel,
		GatewayResponse: data.GatewayResponse,
		Raw:             env.Data,
	}, nil
}

func (c *Client) post(ctx context.Context, path string, payload any) (*apiEnvelope, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("post: marshal: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("post: build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.secretKey)
	httpReq.Header.Set("Content-Type", "application/json")

	return c.do(ctx, httpReq)
}

func (c *Client) get(ctx context.Context, path string) (*apiEnvelope, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("get: build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.secretKey)

	return c.do(ctx, httpReq)
}

// do maps transport and HTTP outcomes onto the gateway error taxonomy:
// network errors and 5xx are transient, 4xx and status:false envelopes are
// explicit rejections carrying the provider's message.
func (c *Client) do(ctx context.Context, req *http.Request) (*apiEnvelope, error) {
	log := logging.FromContext(ctx)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do: %w: %w", domain.ErrGatewayTransient, err)
	}
	defer resp.Body.Close()

	log.Debug("paystack response received",
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("do: read body: %w: %w", domain.ErrGatewayTransient, err)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("do: status %d: %w", resp.StatusCode, domain.ErrGatewayTransient)
	}

	var env apiEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("do: decode envelope: %w: %w", domain.ErrGatewayTransient, err)
	}

	if resp.StatusCode >= http.StatusBadRequest || !env.Status {
		msg := env.Message
		if msg == "" {
			msg = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("do: %s: %w", msg, domain.ErrGatewayRejected)
	}

	return &env, nil
}
