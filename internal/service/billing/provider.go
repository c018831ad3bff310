package billing

import (
	"context"

	"focus-billing/internal/infra/stripe"
)

// Provider is the billing provider surface the engine drives.
type Provider interface {
	CreateCheckoutSession(ctx context.Context, req stripe.CheckoutRequest) (*stripe.CheckoutSession, error)
	// CancelSubscription must return an ierr.ErrNotFound-marked error when
	// the provider no longer knows the subscription.
	CancelSubscription(ctx context.Context, providerSubscriptionID string) error
}
