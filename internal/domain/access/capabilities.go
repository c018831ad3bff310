package access

import (
	"focus-billing/internal/domain/plans"
)

func StateFor(tier plans.PlanTier) AccessState {
	if tier.IsPaid() {
		return AccessPro
	}
	return AccessFree
}

func CapabilitiesFor(state AccessState, tier plans.PlanTier) []string {
	if state != AccessPro {
		return []string{CapabilityTimer}
	}

	caps := []string{CapabilityTimer, CapabilityCustomDurations, CapabilityStatsHistory, CapabilityThemes}
	if tier == plans.TierLifetime {
		caps = append(caps, CapabilityLifetimeBadge)
	}
	return caps
}
