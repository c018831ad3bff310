package billing

import (
	"context"

	"focus-billing/internal/domain/entitlements"
	"focus-billing/internal/domain/plans"
	ierr "focus-billing/internal/errors"
	"focus-billing/internal/infra/lock"
	"focus-billing/internal/logger"
	"focus-billing/internal/metrics"

	"github.com/samber/lo"
)

// Reconciler turns provider lifecycle events into subscription rows,
// lifetime grants and a recomputed summary. Every transition for a user runs
// under that user's lock and is safe to replay.
type Reconciler struct {
	catalog *plans.Catalog
	store   entitlements.Repository
	cascade *Cascade
	locker  lock.Locker
	log     *logger.Logger
}

func NewReconciler(catalog *plans.Catalog, store entitlements.Repository, cascade *Cascade, locker lock.Locker, log *logger.Logger) *Reconciler {
	return &Reconciler{catalog: catalog, store: store, cascade: cascade, locker: locker, log: log}
}

// HandleCheckoutCompleted links the customer and, for one-time purchases,
// grants lifetime access and retires every running subscription.
func (r *Reconciler) HandleCheckoutCompleted(ctx context.Context, ev CheckoutCompleted) (Outcome, error) {
	log := logger.FromContext(ctx, r.log).With("event_id", ev.EventID, "session_id", ev.SessionID, "mode", ev.Kind)

	userID, err := r.attribute(ctx, ev.UserID, ev.CustomerID)
	if err != nil {
		return r.finish(log, "checkout_completed", OutcomeUnattributed, err)
	}
	log = log.With("user_id", userID)

	outcome, err := r.withUserLock(ctx, userID, func(ctx context.Context) (Outcome, error) {
		if ev.CustomerID != "" {
			if err := r.store.LinkCustomer(ctx, userID, ev.CustomerID); err != nil {
				return OutcomeFailed, err
			}
		}
		if ev.Kind != plans.PurchaseOneTime {
			return OutcomeLinked, nil
		}
		if !ev.Paid {
			return OutcomePaymentPending, nil
		}

		key := lo.CoalesceOrEmpty(ev.PaymentIntentID, ev.SessionID)
		if key == "" {
			return OutcomeFailed, ierr.NewError("one-time checkout without payment reference").Mark(ierr.ErrValidation)
		}
		created, err := r.store.CreateLifetimeGrant(ctx, &entitlements.LifetimeGrant{UserID: userID, PaymentIntentID: key})
		if err != nil {
			return OutcomeFailed, err
		}
		if !created {
			log.Infow("lifetime grant already recorded", "payment_intent_id", key)
		}

		// Runs on redelivery too, so a partially failed first attempt converges.
		active, err := r.store.ListEntitlingSubscriptions(ctx, userID)
		if err != nil {
			return OutcomeFailed, err
		}
		if len(active) > 0 {
			log.Warnw("lifetime supersedes running subscriptions",
				"subscription_ids", lo.Map(active, func(s entitlements.Subscription, _ int) string { return s.ProviderSubscriptionID }))
		}
		if err := r.cascade.CancelAll(ctx, active); err != nil {
			return OutcomeFailed, err
		}

		if _, err := recompute(ctx, r.store, userID); err != nil {
			return OutcomeFailed, err
		}
		return OutcomeLifetimeGranted, nil
	})
	return r.finish(log, "checkout_completed", outcome, err)
}

// HandleSubscriptionUpserted applies the tier hierarchy to a created or
// updated subscription.
func (r *Reconciler) HandleSubscriptionUpserted(ctx context.Context, ev SubscriptionUpserted) (Outcome, error) {
	newTier := r.catalog.TierOf(ev.PriceID)
	log := logger.FromContext(ctx, r.log).With(
		"event_id", ev.EventID,
		"subscription_id", ev.ProviderSubscriptionID,
		"price_id", ev.PriceID,
		"tier", newTier.String(),
		"status", ev.Status,
	)

	userID, err := r.attributeSubscription(ctx, ev.ProviderSubscriptionID, ev.UserID, ev.CustomerID)
	if err != nil {
		return r.finish(log, "subscription_upserted", OutcomeUnattributed, err)
	}
	log = log.With("user_id", userID)

	outcome, err := r.withUserLock(ctx, userID, func(ctx context.Context) (Outcome, error) {
		incoming := entitlements.Subscription{
			ProviderSubscriptionID: ev.ProviderSubscriptionID,
			UserID:                 userID,
			CustomerID:             ev.CustomerID,
			PriceID:                ev.PriceID,
			Tier:                   newTier.String(),
			Status:                 ev.Status,
			CurrentPeriodEnd:       ev.CurrentPeriodEnd,
		}

		stored, err := r.store.GetSubscription(ctx, ev.ProviderSubscriptionID)
		if err != nil && !ierr.IsNotFound(err) {
			return OutcomeFailed, err
		}
		if stored != nil && stored.IsCanceled() {
			return OutcomeAlreadyCanceled, nil
		}

		if _, err := r.store.GetLifetimeGrant(ctx, userID); err == nil {
			if incoming.IsCanceled() {
				err = r.store.MarkSubscriptionCanceled(ctx, &incoming)
			} else {
				err = r.cascade.Cancel(ctx, incoming)
			}
			if err != nil {
				return OutcomeFailed, err
			}
			if _, err := recompute(ctx, r.store, userID); err != nil {
				return OutcomeFailed, err
			}
			return OutcomeLifetimeExclusive, nil
		} else if !ierr.IsNotFound(err) {
			return OutcomeFailed, err
		}

		var supersedes []entitlements.Subscription
		outcome := OutcomeApplied
		if incoming.IsEntitling() {
			all, err := r.store.ListEntitlingSubscriptions(ctx, userID)
			if err != nil {
				return OutcomeFailed, err
			}
			others := lo.Reject(all, func(s entitlements.Subscription, _ int) bool {
				return s.ProviderSubscriptionID == incoming.ProviderSubscriptionID
			})

			v := evaluateTier(newTier, false, plans.TierFree, others)
			switch v.reason {
			case "":
			case ReasonUnknownPrice:
				return OutcomeUnknownPrice, nil
			case ReasonDuplicateTier:
				return OutcomeDuplicateTier, nil
			default:
				return OutcomeDowngrade, nil
			}
			supersedes = v.supersedes
			if len(supersedes) > 0 {
				outcome = OutcomeUpgraded
			}
		} else if newTier == plans.TierUnknown {
			log.Warnw("non-entitling subscription with unknown price recorded")
		}

		if err := r.cascade.CancelAll(ctx, supersedes); err != nil {
			return OutcomeFailed, err
		}
		if err := r.store.UpsertSubscription(ctx, &incoming); err != nil {
			return OutcomeFailed, err
		}
		if _, err := recompute(ctx, r.store, userID); err != nil {
			return OutcomeFailed, err
		}
		return outcome, nil
	})
	return r.finish(log, "subscription_upserted", outcome, err)
}

// HandleSubscriptionCanceled retires the row and recomputes. Lifetime
// grants are never touched.
func (r *Reconciler) HandleSubscriptionCanceled(ctx context.Context, ev SubscriptionCanceled) (Outcome, error) {
	log := logger.FromContext(ctx, r.log).With("event_id", ev.EventID, "subscription_id", ev.ProviderSubscriptionID)

	userID, err := r.attributeSubscription(ctx, ev.ProviderSubscriptionID, ev.UserID, ev.CustomerID)
	if err != nil {
		return r.finish(log, "subscription_canceled", OutcomeUnattributed, err)
	}
	log = log.With("user_id", userID)

	outcome, err := r.withUserLock(ctx, userID, func(ctx context.Context) (Outcome, error) {
		sub := entitlements.Subscription{
			ProviderSubscriptionID: ev.ProviderSubscriptionID,
			UserID:                 userID,
			CustomerID:             ev.CustomerID,
			PriceID:                ev.PriceID,
			Tier:                   r.catalog.TierOf(ev.PriceID).String(),
			Status:                 entitlements.StatusCanceled,
		}
		if err := r.store.MarkSubscriptionCanceled(ctx, &sub); err != nil {
			return OutcomeFailed, err
		}
		if _, err := recompute(ctx, r.store, userID); err != nil {
			return OutcomeFailed, err
		}
		return OutcomeCanceled, nil
	})
	return r.finish(log, "subscription_canceled", outcome, err)
}

// Recompute rebuilds and stores one user's summary under the user's lock.
func (r *Reconciler) Recompute(ctx context.Context, userID string) (entitlements.Summary, error) {
	var summary entitlements.Summary
	_, err := r.withUserLock(ctx, userID, func(ctx context.Context) (Outcome, error) {
		var err error
		summary, err = recompute(ctx, r.store, userID)
		return OutcomeApplied, err
	})
	return summary, err
}

func (r *Reconciler) withUserLock(ctx context.Context, userID string, fn func(context.Context) (Outcome, error)) (Outcome, error) {
	unlock, err := r.locker.Lock(ctx, lock.UserKey(userID))
	if err != nil {
		return OutcomeFailed, err
	}
	defer unlock()
	return fn(ctx)
}

// attribute resolves the owning user from explicit metadata, then from the
// customer link.
func (r *Reconciler) attribute(ctx context.Context, userID, customerID string) (string, error) {
	if userID != "" {
		return userID, nil
	}
	if customerID != "" {
		id, err := r.store.FindUserIDByCustomerID(ctx, customerID)
		if err == nil {
			return id, nil
		}
		if !ierr.IsNotFound(err) {
			return "", err
		}
	}
	return "", ierr.NewError("event cannot be attributed to a user").
		WithReportableDetails(map[string]any{"customer_id": customerID}).
		Mark(ierr.ErrAttribution)
}

// attributeSubscription uses the owner of a row already stored for this
// subscription, since ownership never changes, and otherwise falls back to
// attribute.
func (r *Reconciler) attributeSubscription(ctx context.Context, providerSubscriptionID, userID, customerID string) (string, error) {
	if providerSubscriptionID != "" {
		stored, err := r.store.GetSubscription(ctx, providerSubscriptionID)
		switch {
		case err == nil:
			return stored.UserID, nil
		case !ierr.IsNotFound(err):
			return "", err
		}
	}
	return r.attribute(ctx, userID, customerID)
}

// finish logs and counts the transition. Attribution failures are terminal
// and swallowed; everything else that failed is returned for redelivery.
func (r *Reconciler) finish(log *logger.Logger, event string, outcome Outcome, err error) (Outcome, error) {
	if err != nil && ierr.Is(err, ierr.ErrAttribution) {
		outcome = OutcomeUnattributed
		err = nil
	}
	if err != nil {
		outcome = OutcomeFailed
	}
	metrics.ReconcilerTransitions.WithLabelValues(event, string(outcome)).Inc()

	switch outcome {
	case OutcomeFailed:
		log.Errorw("billing event failed", "error", err)
	case OutcomeUnattributed:
		log.Warnw("billing event could not be attributed to a user; dropped")
	case OutcomeDuplicateTier, OutcomeDowngrade, OutcomeUnknownPrice, OutcomeLifetimeExclusive:
		log.Warnw("billing transition rejected by hierarchy", "outcome", outcome)
	default:
		log.Infow("billing event reconciled", "outcome", outcome)
	}
	return outcome, err
}
