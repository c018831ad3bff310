package access

import (
	"testing"

	"focus-billing/internal/domain/entitlements"
	"focus-billing/internal/domain/plans"

	"github.com/stretchr/testify/assert"
)

func TestComputePolicy(t *testing.T) {
	free := ComputePolicy(entitlements.Summary{Tier: plans.TierFree})
	assert.Equal(t, AccessFree, free.State)
	assert.Equal(t, []string{CapabilityTimer}, free.Capabilities)

	monthly := ComputePolicy(entitlements.Summary{Tier: plans.TierMonthly, IsPro: true})
	assert.Equal(t, AccessPro, monthly.State)
	assert.Contains(t, monthly.Capabilities, CapabilityStatsHistory)
	assert.NotContains(t, monthly.Capabilities, CapabilityLifetimeBadge)

	lifetime := ComputePolicy(entitlements.Summary{Tier: plans.TierLifetime, IsPro: true})
	assert.Contains(t, lifetime.Capabilities, CapabilityLifetimeBadge)
}
