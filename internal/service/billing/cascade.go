package billing

import (
	"context"

	"focus-billing/internal/domain/entitlements"
	ierr "focus-billing/internal/errors"
	"focus-billing/internal/logger"
	"focus-billing/internal/metrics"

	"github.com/cockroachdb/errors"
)

// Cascade cancels superseded subscriptions upstream, then locally.
type Cascade struct {
	provider Provider
	store    entitlements.Repository
	log      *logger.Logger
}

func NewCascade(provider Provider, store entitlements.Repository, log *logger.Logger) *Cascade {
	return &Cascade{provider: provider, store: store, log: log}
}

// Cancel is idempotent. The local row is only retired once the provider
// confirms the cancel or no longer knows the subscription; any other
// provider error is returned so the triggering event is redelivered.
func (c *Cascade) Cancel(ctx context.Context, sub entitlements.Subscription) error {
	log := logger.FromContext(ctx, c.log).With(
		"user_id", sub.UserID,
		"subscription_id", sub.ProviderSubscriptionID,
		"tier", sub.Tier,
	)

	err := c.provider.CancelSubscription(ctx, sub.ProviderSubscriptionID)
	switch {
	case err == nil:
		metrics.CascadeCancellations.WithLabelValues("canceled").Inc()
	case ierr.IsNotFound(err):
		metrics.CascadeCancellations.WithLabelValues("not_found").Inc()
		log.Infow("subscription already gone upstream")
	default:
		metrics.CascadeCancellations.WithLabelValues("failed").Inc()
		log.Warnw("provider cancel failed", "error", err)
		return ierr.WithError(err).
			WithMessagef("cancel subscription %s", sub.ProviderSubscriptionID).
			Mark(ierr.ErrProvider)
	}

	if err := c.store.MarkSubscriptionCanceled(ctx, &sub); err != nil {
		return err
	}
	log.Infow("subscription canceled by cascade")
	return nil
}

// CancelAll attempts every subscription and reports all failures together,
// so a redelivery only has the failed ones left to retry.
func (c *Cascade) CancelAll(ctx context.Context, subs []entitlements.Subscription) error {
	var combined error
	for _, sub := range subs {
		if err := c.Cancel(ctx, sub); err != nil {
			combined = errors.CombineErrors(combined, err)
		}
	}
	return combined
}
