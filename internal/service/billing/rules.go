package billing

import (
	"focus-billing/internal/domain/entitlements"
	"focus-billing/internal/domain/plans"

	"github.com/samber/lo"
)

// verdict is the outcome of checking a proposed tier against what the user
// already holds. Guard and Reconciler both decide through evaluateTier.
type verdict struct {
	reason RejectionReason
	// supersedes are the entitling rows a successful upgrade cancels.
	supersedes []entitlements.Subscription
}

func (v verdict) ok() bool { return v.reason == "" }

// evaluateTier applies the hierarchy rules. floor is a tier the user holds
// outside of others (the stored summary for the guard, Free for the
// reconciler); others must not include the row being evaluated.
func evaluateTier(newTier plans.PlanTier, hasLifetime bool, floor plans.PlanTier, others []entitlements.Subscription) verdict {
	if hasLifetime {
		return verdict{reason: ReasonLifetimeOwned}
	}
	if newTier == plans.TierUnknown {
		return verdict{reason: ReasonUnknownPrice}
	}

	entitling := lo.Filter(others, func(s entitlements.Subscription, _ int) bool {
		return s.IsEntitling()
	})
	if lo.ContainsBy(entitling, func(s entitlements.Subscription) bool { return s.PlanTier() == newTier }) {
		return verdict{reason: ReasonDuplicateTier}
	}

	tiers := lo.Map(entitling, func(s entitlements.Subscription, _ int) plans.PlanTier { return s.PlanTier() })
	maxOther := plans.MaxTier(append(tiers, floor)...)
	if newTier < maxOther {
		return verdict{reason: ReasonDowngrade}
	}
	if newTier > maxOther {
		return verdict{supersedes: entitling}
	}
	return verdict{}
}
