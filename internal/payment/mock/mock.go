package mock

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/peakscale/tourbook/internal/payment"
)

// Provider is a mock checkout provider that always succeeds.
// It is intended for development and testing purposes.
type Provider struct {
	// BaseURL is prepended to generated session URLs.
	BaseURL string
}

// NewProvider creates a new mock checkout provider.
func NewProvider(baseURL string) *Provider {
	return &Provider{BaseURL: baseURL}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "mock"
}

// CreateCheckoutSession returns a fake session pointing at the mock
// checkout page.
func (p *Provider) CreateCheckoutSession(_ context.Context, input *payment.CheckoutInput) (*payment.CheckoutSession, error) {
	sessionID := "mock_cs_" + uuid.New().String()
	return &payment.CheckoutSession{
		SessionID: sessionID,
		URL:       fmt.Sprintf("%s/mock-checkout/%s?booking=%s", p.BaseURL, sessionID, input.BookingID),
	}, nil
}
