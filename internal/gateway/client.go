// Package gateway is the HTTP client for the external payment gateway.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/courtledger/internal/metrics"
	"github.com/codr1/courtledger/internal/models"
)

// Gateway payment statuses.
const (
	StatusApproved    = "approved"
	StatusAuthorized  = "authorized"
	StatusPending     = "pending"
	StatusInProcess   = "in_process"
	StatusInMediation = "in_mediation"
	StatusRejected    = "rejected"
	StatusCancelled   = "cancelled"
	StatusRefunded    = "refunded"
	StatusChargedBack = "charged_back"
)

const maxResponseBytes = 1 << 20

type Client interface {
	CreatePreference(ctx context.Context, req PreferenceRequest) (Preference, error)
	GetPayment(ctx context.Context, paymentID string) (Payment, error)
	Refund(ctx context.Context, paymentID string, amountCents int64) (Refund, error)
}

type Config struct {
	BaseURL     string
	AccessToken string
	Timeout     time.Duration
}

type PreferenceItem struct {
	Title          string `json:"title"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	Currency       string `json:"currency_id"`
}

type PreferenceRequest struct {
	ExternalReference string           `json:"external_reference"`
	NotificationURL   string           `json:"notification_url,omitempty"`
	PayerEmail        string           `json:"payer_email,omitempty"`
	Items             []PreferenceItem `json:"items"`
	ExpiresAt         *time.Time       `json:"expiration_date_to,omitempty"`
}

type Preference struct {
	ID        string `json:"id"`
	InitPoint string `json:"init_point"`
}

// Payment is the gateway's canonical view of a payment. Raw keeps the full
// response body for the audit trail.
type Payment struct {
	ID                string          `json:"-"`
	Status            string          `json:"status"`
	StatusDetail      string          `json:"status_detail"`
	ExternalReference string          `json:"external_reference"`
	AmountCents       int64           `json:"transaction_amount_cents"`
	Currency          string          `json:"currency_id"`
	Raw               json.RawMessage `json:"-"`
}

type Refund struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	AmountCents int64  `json:"amount_cents"`
}

// StatusError is returned for non-2xx gateway responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("gateway responded %d: %s", e.Code, e.Body)
}

// Unwrap classifies the response: 404 means the gateway does not know the
// payment, 429 and 5xx mean it is unavailable.
func (e *StatusError) Unwrap() error {
	switch {
	case e.Code == http.StatusNotFound:
		return models.ErrUnknownReference
	case e.Code == http.StatusTooManyRequests || e.Code >= 500:
		return models.ErrGatewayUnavailable
	}
	return nil
}

type HTTPClient struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
	metrics     *metrics.Metrics
}

func NewHTTPClient(cfg Config, m *metrics.Metrics) (*HTTPClient, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("gateway base url is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &HTTPClient{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		accessToken: cfg.AccessToken,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		metrics: m,
	}, nil
}

func (c *HTTPClient) CreatePreference(ctx context.Context, req PreferenceRequest) (pref Preference, err error) {
	defer c.observe("create_preference", time.Now(), &err)

	body, err := c.do(ctx, http.MethodPost, "/checkout/preferences", req)
	if err != nil {
		return Preference{}, err
	}
	if err := json.Unmarshal(body, &pref); err != nil {
		return Preference{}, fmt.Errorf("decode preference: %w", err)
	}
	if pref.ID == "" || pref.InitPoint == "" {
		return Preference{}, fmt.Errorf("gateway returned an incomplete preference: %w", models.ErrGatewayUnavailable)
	}
	return pref, nil
}

func (c *HTTPClient) GetPayment(ctx context.Context, paymentID string) (payment Payment, err error) {
	defer c.observe("get_payment", time.Now(), &err)

	body, err := c.do(ctx, http.MethodGet, "/v1/payments/"+url.PathEscape(paymentID), nil)
	if err != nil {
		return Payment{}, err
	}
	if err := json.Unmarshal(body, &payment); err != nil {
		return Payment{}, fmt.Errorf("decode payment: %w", err)
	}
	payment.ID = paymentID
	payment.Raw = json.RawMessage(body)
	return payment, nil
}

func (c *HTTPClient) Refund(ctx context.Context, paymentID string, amountCents int64) (refund Refund, err error) {
	defer c.observe("refund", time.Now(), &err)

	payload := struct {
		AmountCents int64 `json:"amount_cents"`
	}{AmountCents: amountCents}
	body, err := c.do(ctx, http.MethodPost, "/v1/payments/"+url.PathEscape(paymentID)+"/refunds", payload)
	if err != nil {
		return Refund{}, err
	}
	if err := json.Unmarshal(body, &refund); err != nil {
		return Refund{}, fmt.Errorf("decode refund: %w", err)
	}
	return refund, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		jsonBody, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build gateway request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %v: %w", method, path, err, models.ErrGatewayUnavailable)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read gateway response: %v: %w", err, models.ErrGatewayUnavailable)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return body, nil
}

func (c *HTTPClient) observe(operation string, start time.Time, errp *error) {
	err := *errp
	c.metrics.ObserveGateway(operation, start, err)
	if err != nil {
		log.Warn().Err(err).Str("component", "payment_gateway").Str("operation", operation).Msg("Gateway call failed")
	}
}
