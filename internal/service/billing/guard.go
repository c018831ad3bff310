package billing

import (
	"context"
	"fmt"

	"focus-billing/internal/domain/entitlements"
	"focus-billing/internal/domain/plans"
	ierr "focus-billing/internal/errors"
	"focus-billing/internal/infra/stripe"
	"focus-billing/internal/logger"
	"focus-billing/internal/metrics"
)

// GuardConfig holds the redirect targets for hosted checkout.
type GuardConfig struct {
	SuccessURL string
	CancelURL  string
}

// Guard validates a purchase against the user's current entitlement before
// any money changes hands. It never mutates local state.
type Guard struct {
	catalog  *plans.Catalog
	store    entitlements.Repository
	provider Provider
	cfg      GuardConfig
	log      *logger.Logger
}

func NewGuard(catalog *plans.Catalog, store entitlements.Repository, provider Provider, cfg GuardConfig, log *logger.Logger) *Guard {
	return &Guard{catalog: catalog, store: store, provider: provider, cfg: cfg, log: log}
}

// AuthorizePurchase returns a checkout session for an allowed purchase, or a
// *Rejection (marked ierr.ErrValidation) describing why it is refused.
func (g *Guard) AuthorizePurchase(ctx context.Context, userID, priceID string, kind plans.PurchaseKind) (*stripe.CheckoutSession, error) {
	log := logger.FromContext(ctx, g.log).With("user_id", userID, "price_id", priceID, "purchase_kind", kind)

	if userID == "" {
		return nil, ierr.NewError("missing user id").Mark(ierr.ErrUnauthorized)
	}

	profile, err := g.store.GetProfile(ctx, userID)
	if err != nil && !ierr.IsNotFound(err) {
		return nil, err
	}

	if err := g.check(ctx, profile, userID, priceID, kind); err != nil {
		if r, ok := AsRejection(err); ok {
			metrics.CheckoutDecisions.WithLabelValues(string(r.Reason)).Inc()
			log.Infow("checkout rejected", "reason", r.Reason)
		}
		return nil, err
	}

	session, err := g.provider.CreateCheckoutSession(ctx, stripe.CheckoutRequest{
		UserID:     userID,
		PriceID:    priceID,
		Kind:       kind,
		CustomerID: profile.CustomerID(),
		SuccessURL: g.cfg.SuccessURL,
		CancelURL:  g.cfg.CancelURL,
	})
	if err != nil {
		metrics.CheckoutDecisions.WithLabelValues("provider_error").Inc()
		return nil, err
	}

	metrics.CheckoutDecisions.WithLabelValues("approved").Inc()
	log.Infow("checkout session created", "session_id", session.ID)
	return session, nil
}

func (g *Guard) check(ctx context.Context, profile *entitlements.Profile, userID, priceID string, kind plans.PurchaseKind) error {
	tier := g.catalog.TierOf(priceID)
	if tier == plans.TierUnknown {
		return reject(ReasonUnknownPrice, "This price is not available for purchase.")
	}
	if plans.KindFor(tier) != kind {
		return reject(ReasonPurchaseKindMismatch,
			fmt.Sprintf("The %s plan must be purchased as %s.", tier, plans.KindFor(tier)))
	}

	hasLifetime, floor, err := g.currentHoldings(ctx, profile, userID)
	if err != nil {
		return err
	}

	var others []entitlements.Subscription
	if kind == plans.PurchaseRecurring && !hasLifetime {
		others, err = g.store.ListEntitlingSubscriptions(ctx, userID)
		if err != nil {
			return err
		}
	}

	v := evaluateTier(tier, hasLifetime, floor, others)
	switch v.reason {
	case "":
		return nil
	case ReasonLifetimeOwned:
		return reject(v.reason, "You already own lifetime access.")
	case ReasonDuplicateTier:
		return reject(v.reason, fmt.Sprintf("You already have an active %s subscription.", tier))
	case ReasonDowngrade:
		return reject(v.reason, "Your current plan is higher than the one requested.")
	default:
		return reject(v.reason, "This purchase is not allowed.")
	}
}

// currentHoldings returns whether the user owns lifetime and the summary tier
// to use as a floor for recurring purchases.
func (g *Guard) currentHoldings(ctx context.Context, profile *entitlements.Profile, userID string) (bool, plans.PlanTier, error) {
	floor := profile.PlanTier()
	if floor == plans.TierLifetime {
		return true, floor, nil
	}

	_, err := g.store.GetLifetimeGrant(ctx, userID)
	switch {
	case err == nil:
		return true, plans.TierLifetime, nil
	case ierr.IsNotFound(err):
		return false, floor, nil
	default:
		return false, plans.TierFree, err
	}
}
