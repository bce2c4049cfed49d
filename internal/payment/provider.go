// Package payment integrates with the hosted checkout provider.
package payment

import (
	"context"
)

// CheckoutInput holds the parameters for creating a hosted checkout session.
type CheckoutInput struct {
	BookingID     string
	TourName      string
	Amount        int64
	Currency      string
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
}

// CheckoutSession is the provider's handle for a started checkout.
type CheckoutSession struct {
	SessionID string
	URL       string
}

// Provider defines the interface for checkout provider integrations.
type Provider interface {
	// Name returns the provider name (e.g., "mock", "stripe").
	Name() string

	// CreateCheckoutSession starts a hosted checkout for a booking.
	CreateCheckoutSession(ctx context.Context, input *CheckoutInput) (*CheckoutSession, error)
}
