package billing

import (
	"context"

	"focus-billing/internal/domain/entitlements"
	"focus-billing/internal/domain/plans"
	ierr "focus-billing/internal/errors"
)

// recompute rebuilds the summary from every row the user owns and stores it.
// It is the only writer of profile tier fields.
func recompute(ctx context.Context, store entitlements.Repository, userID string) (entitlements.Summary, error) {
	subs, err := store.ListSubscriptions(ctx, userID)
	if err != nil {
		return entitlements.Summary{}, err
	}
	grant, err := store.GetLifetimeGrant(ctx, userID)
	if err != nil && !ierr.IsNotFound(err) {
		return entitlements.Summary{}, err
	}
	if ierr.IsNotFound(err) {
		grant = nil
	}

	summary := entitlements.ComputeSummary(userID, subs, grant)
	if err := store.SaveSummary(ctx, summary); err != nil {
		return entitlements.Summary{}, err
	}
	return summary, nil
}

// View is the stored entitlement of one user as last reconciled.
type View struct {
	Summary    entitlements.Summary
	CustomerID string
}

// LoadView reads the persisted summary without recomputing it. Users the
// engine has never seen are Free.
func LoadView(ctx context.Context, store entitlements.Repository, userID string) (View, error) {
	view := View{Summary: entitlements.Summary{UserID: userID}}

	profile, err := store.GetProfile(ctx, userID)
	if err != nil {
		if ierr.IsNotFound(err) {
			view.Summary = entitlements.ComputeSummary(userID, nil, nil)
			return view, nil
		}
		return view, err
	}

	view.CustomerID = profile.CustomerID()
	view.Summary.Tier = profile.PlanTier()
	view.Summary.IsPro = profile.IsPro
	view.Summary.HasLifetime = view.Summary.Tier == plans.TierLifetime

	if profile.SubscriptionID != nil && *profile.SubscriptionID != "" {
		sub, err := store.GetSubscription(ctx, *profile.SubscriptionID)
		switch {
		case err == nil:
			view.Summary.Effective = sub
		case !ierr.IsNotFound(err):
			return view, err
		}
	}
	return view, nil
}
