package entitlements

import "context"

// Repository is the entitlement store. Every method is atomic on its own;
// lookups return an ierr.ErrNotFound-marked error when nothing matches.
type Repository interface {
	GetProfile(ctx context.Context, userID string) (*Profile, error)
	FindUserIDByCustomerID(ctx context.Context, customerID string) (string, error)
	LinkCustomer(ctx context.Context, userID, customerID string) error
	SaveSummary(ctx context.Context, summary Summary) error

	GetSubscription(ctx context.Context, providerSubscriptionID string) (*Subscription, error)
	ListSubscriptions(ctx context.Context, userID string) ([]Subscription, error)
	ListEntitlingSubscriptions(ctx context.Context, userID string) ([]Subscription, error)
	// UpsertSubscription inserts or updates by provider subscription id. A
	// stored canceled status is never overwritten.
	UpsertSubscription(ctx context.Context, sub *Subscription) error
	// MarkSubscriptionCanceled retires the row, inserting it as canceled when
	// it was never seen before.
	MarkSubscriptionCanceled(ctx context.Context, sub *Subscription) error

	GetLifetimeGrant(ctx context.Context, userID string) (*LifetimeGrant, error)
	// CreateLifetimeGrant returns false when a grant for the payment intent
	// or the user already exists.
	CreateLifetimeGrant(ctx context.Context, grant *LifetimeGrant) (bool, error)
}

// WebhookEventRepository persists the provider event ledger.
type WebhookEventRepository interface {
	RecordWebhookEvent(ctx context.Context, event *WebhookEvent) (bool, *WebhookEvent, error)
	MarkWebhookProcessed(ctx context.Context, id uint, processingError string) error
}
