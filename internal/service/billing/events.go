package billing

import (
	"time"

	"focus-billing/internal/domain/plans"
)

// CheckoutCompleted is a finished hosted checkout.
type CheckoutCompleted struct {
	EventID                string
	SessionID              string
	Kind                   plans.PurchaseKind
	UserID                 string
	CustomerID             string
	ProviderSubscriptionID string
	PaymentIntentID        string
	// Paid is false while an asynchronous payment method is still settling.
	Paid bool
}

// SubscriptionUpserted is a created or updated provider subscription.
type SubscriptionUpserted struct {
	EventID                string
	ProviderSubscriptionID string
	UserID                 string
	CustomerID             string
	PriceID                string
	Status                 string
	CurrentPeriodEnd       *time.Time
}

// SubscriptionCanceled is a provider subscription deletion.
type SubscriptionCanceled struct {
	EventID                string
	ProviderSubscriptionID string
	UserID                 string
	CustomerID             string
	PriceID                string
}

// Outcome names what a reconciler transition did. Outcomes are logged and
// counted; only errors trigger redelivery.
type Outcome string

const (
	OutcomeApplied           Outcome = "applied"
	OutcomeUpgraded          Outcome = "upgraded"
	OutcomeLinked            Outcome = "linked"
	OutcomeLifetimeGranted   Outcome = "lifetime_granted"
	OutcomeLifetimeExclusive Outcome = "lifetime_exclusive"
	OutcomeDuplicateTier     Outcome = "duplicate_tier"
	OutcomeDowngrade         Outcome = "downgrade"
	OutcomeUnknownPrice      Outcome = "unknown_price"
	OutcomeAlreadyCanceled   Outcome = "already_canceled"
	OutcomeCanceled          Outcome = "canceled"
	OutcomePaymentPending    Outcome = "payment_pending"
	OutcomeUnattributed      Outcome = "unattributed"
	OutcomeFailed            Outcome = "failed"
)
