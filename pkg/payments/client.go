// Package payments is a thin HTTP client for the external payment processor
// that collects entry fees and moves prize money to founder connect accounts.
// The processor owns all account and money state; this API only records
// outcomes.
package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// TransferRequest describes one prize transfer to a connect account.
type TransferRequest struct {
	AccountID      string          `json:"account_id"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	IdempotencyKey string          `json:"-"`
	Description    string          `json:"description"`
}

// TransferResult is the processor's acknowledgement of a transfer.
type TransferResult struct {
	TransferID string `json:"transfer_id"`
	Status     string `json:"status"`
}

// ChargeRequest describes one entry-fee charge against a founder.
type ChargeRequest struct {
	CustomerRef    string          `json:"customer_ref"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	IdempotencyKey string          `json:"-"`
	Description    string          `json:"description"`
}

// ChargeResult is the processor's acknowledgement of a charge.
type ChargeResult struct {
	ChargeID string `json:"charge_id"`
	Status   string `json:"status"`
}

// AccountStatus reflects the processor's view of a connect account.
type AccountStatus struct {
	AccountID          string `json:"account_id"`
	OnboardingComplete bool   `json:"onboarding_complete"`
	PayoutsEnabled     bool   `json:"payouts_enabled"`
}

// Client talks to the payment processor's REST API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  zerolog.Logger
}

// New constructs a processor client.
func New(baseURL, apiKey string, logger zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 15 * time.Second},
		logger:  logger.With().Str("component", "payments").Logger(),
	}
}

// Transfer moves prize money to a connect account. The idempotency key makes
// retries safe: the processor returns the original transfer for a repeated key.
func (c *Client) Transfer(ctx context.Context, req TransferRequest) (TransferResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return TransferResult{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/transfers", bytes.NewReader(body))
	if err != nil {
		return TransferResult{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Idempotency-Key", req.IdempotencyKey)

	var result TransferResult
	if err := c.do(httpReq, &result); err != nil {
		return TransferResult{}, err
	}
	return result, nil
}

// Charge collects an entry fee from a founder. Retries with the same
// idempotency key return the original charge.
func (c *Client) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return ChargeResult{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/charges", bytes.NewReader(body))
	if err != nil {
		return ChargeResult{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Idempotency-Key", req.IdempotencyKey)

	var result ChargeResult
	if err := c.do(httpReq, &result); err != nil {
		return ChargeResult{}, err
	}
	return result, nil
}

// Account fetches the onboarding and payout state of a connect account.
func (c *Client) Account(ctx context.Context, accountID string) (AccountStatus, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/accounts/"+accountID, nil)
	if err != nil {
		return AccountStatus{}, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	var status AccountStatus
	if err := c.do(httpReq, &status); err != nil {
		return AccountStatus{}, err
	}
	return status, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("payment processor unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Message == "" {
			apiErr.Message = resp.Status
		}
		c.logger.Warn().
			Int("status", resp.StatusCode).
			Str("path", req.URL.Path).
			Msg("payment processor returned an error")
		return fmt.Errorf("payment processor error: %s", apiErr.Message)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
