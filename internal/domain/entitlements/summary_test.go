package entitlements

import (
	"testing"

	"focus-billing/internal/domain/plans"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeSummary(t *testing.T) {
	monthly := Subscription{ProviderSubscriptionID: "sub_m", Tier: "monthly", Status: StatusActive}
	yearly := Subscription{ProviderSubscriptionID: "sub_y", Tier: "yearly", Status: StatusTrialing}
	canceledYearly := Subscription{ProviderSubscriptionID: "sub_y2", Tier: "yearly", Status: StatusCanceled}
	pastDue := Subscription{ProviderSubscriptionID: "sub_p", Tier: "yearly", Status: StatusPastDue}

	t.Run("no rows is free", func(t *testing.T) {
		s := ComputeSummary("u1", nil, nil)
		assert.Equal(t, plans.TierFree, s.Tier)
		assert.False(t, s.IsPro)
		assert.Nil(t, s.Effective)
	})

	t.Run("highest entitling row wins", func(t *testing.T) {
		s := ComputeSummary("u1", []Subscription{monthly, canceledYearly, yearly, pastDue}, nil)
		assert.Equal(t, plans.TierYearly, s.Tier)
		assert.True(t, s.IsPro)
		require.NotNil(t, s.Effective)
		assert.Equal(t, "sub_y", s.Effective.ProviderSubscriptionID)
	})

	t.Run("non entitling rows are ignored", func(t *testing.T) {
		s := ComputeSummary("u1", []Subscription{canceledYearly, pastDue}, nil)
		assert.Equal(t, plans.TierFree, s.Tier)
		assert.False(t, s.IsPro)
	})

	t.Run("lifetime dominates", func(t *testing.T) {
		s := ComputeSummary("u1", []Subscription{yearly}, &LifetimeGrant{UserID: "u1", PaymentIntentID: "pi_1"})
		assert.Equal(t, plans.TierLifetime, s.Tier)
		assert.True(t, s.IsPro)
		assert.True(t, s.HasLifetime)
		assert.Nil(t, s.Effective)
	})

	t.Run("unknown tier rows never entitle", func(t *testing.T) {
		s := ComputeSummary("u1", []Subscription{{ProviderSubscriptionID: "sub_x", Tier: "unknown", Status: StatusActive}}, nil)
		assert.Equal(t, plans.TierFree, s.Tier)
	})
}

func TestIsEntitlingStatus(t *testing.T) {
	for _, status := range []string{"active", "trialing", " ACTIVE "} {
		assert.True(t, IsEntitlingStatus(status), status)
	}
	for _, status := range []string{"canceled", "past_due", "incomplete", "paused", ""} {
		assert.False(t, IsEntitlingStatus(status), status)
	}
}
