// Package hosted implements the checkout Provider against a remote
// hosted-checkout REST API.
package hosted

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/peakscale/tourbook/internal/payment"
	apperrors "github.com/peakscale/tourbook/pkg/errors"
	"github.com/peakscale/tourbook/pkg/httpclient"
)

const providerName = "hosted"

// Provider creates checkout sessions over HTTP. Calls go through a circuit
// breaker so a degraded provider fails fast instead of piling up requests.
type Provider struct {
	client  *httpclient.CircuitBreakerClient
	baseURL string
	apiKey  string
	logger  *slog.Logger
}

// Config holds the settings for the hosted checkout provider.
type Config struct {
	// BaseURL is the provider API root, e.g. "https://pay.example.com/api".
	BaseURL string
	// APIKey authenticates requests to the provider.
	APIKey string
	// Timeout bounds a single session-create call.
	Timeout time.Duration
}

// NewProvider creates a checkout provider backed by the remote API.
func NewProvider(cfg Config, logger *slog.Logger) *Provider {
	clientCfg := httpclient.DefaultConfig()
	if cfg.Timeout > 0 {
		clientCfg.Timeout = cfg.Timeout
	}
	client := httpclient.NewCircuitBreakerClient(
		httpclient.New(clientCfg),
		httpclient.DefaultCircuitBreakerConfig("checkout-provider"),
		logger,
	)
	return &Provider{
		client:  client,
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		logger:  logger,
	}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return providerName
}

type sessionRequest struct {
	Reference     string `json:"reference"`
	Description   string `json:"description"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
	CustomerEmail string `json:"customer_email"`
	SuccessURL    string `json:"success_url"`
	CancelURL     string `json:"cancel_url"`
}

type sessionResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// CreateCheckoutSession starts a hosted checkout for a booking.
func (p *Provider) CreateCheckoutSession(ctx context.Context, input *payment.CheckoutInput) (*payment.CheckoutSession, error) {
	body, err := json.Marshal(sessionRequest{
		Reference:     input.BookingID,
		Description:   input.TourName,
		Amount:        input.Amount,
		Currency:      input.Currency,
		CustomerEmail: input.CustomerEmail,
		SuccessURL:    input.SuccessURL,
		CancelURL:     input.CancelURL,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal session request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/checkout/sessions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create session request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(ctx, req)
	if err != nil {
		p.logger.ErrorContext(ctx, "checkout session create failed",
			slog.String("booking_id", input.BookingID),
			slog.String("error", err.Error()),
		)
		return nil, apperrors.Upstream(providerName, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, httpclient.ParseResponseError(resp, "checkout-provider")
	}

	var session sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, apperrors.Upstream(providerName, fmt.Errorf("decode session response: %w", err))
	}
	if session.ID == "" || session.URL == "" {
		return nil, apperrors.Upstream(providerName, fmt.Errorf("provider returned incomplete session"))
	}

	return &payment.CheckoutSession{
		SessionID: session.ID,
		URL:       session.URL,
	}, nil
}
