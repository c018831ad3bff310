package entitlements

import (
	"focus-billing/internal/domain/plans"
)

// Summary is the per-user entitlement projection read by the rest of the app.
type Summary struct {
	UserID      string
	Tier        plans.PlanTier
	IsPro       bool
	HasLifetime bool
	// Effective is the entitling subscription that supplies Tier, if any.
	Effective *Subscription
}

// ComputeSummary derives the projection from the complete row set. It is the
// only place the effective tier is decided.
func ComputeSummary(userID string, subs []Subscription, grant *LifetimeGrant) Summary {
	s := Summary{UserID: userID, Tier: plans.TierFree}

	for i := range subs {
		sub := subs[i]
		if !sub.IsEntitling() {
			continue
		}
		t := sub.PlanTier()
		if t > s.Tier {
			s.Tier = t
			s.Effective = &sub
		}
	}

	if grant != nil {
		s.HasLifetime = true
		s.Tier = plans.TierLifetime
		s.Effective = nil
	}

	s.IsPro = s.Tier.IsPaid()
	return s
}
