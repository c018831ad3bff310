package plans

import (
	"testing"

	ierr "focus-billing/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := NewCatalog(
		Plan{PriceID: "price_lifetime", Tier: TierLifetime},
		Plan{PriceID: "price_monthly", Tier: TierMonthly, Name: "Monthly"},
		Plan{PriceID: "price_yearly", Tier: TierYearly},
	)
	require.NoError(t, err)
	return c
}

func TestCatalogTierOf(t *testing.T) {
	c := testCatalog(t)

	tests := []struct {
		priceID string
		want    PlanTier
	}{
		{priceID: "price_monthly", want: TierMonthly},
		{priceID: " price_yearly ", want: TierYearly},
		{priceID: "price_lifetime", want: TierLifetime},
		{priceID: "price_other", want: TierUnknown},
		{priceID: "", want: TierUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, c.TierOf(tt.priceID), "TierOf(%q)", tt.priceID)
	}
}

func TestCatalogPlansOrdered(t *testing.T) {
	c := testCatalog(t)
	got := c.Plans()
	require.Len(t, got, 3)
	assert.Equal(t, TierMonthly, got[0].Tier)
	assert.Equal(t, "Monthly", got[0].Name)
	assert.Equal(t, TierYearly, got[1].Tier)
	assert.Equal(t, "yearly", got[1].Name)
	assert.Equal(t, TierLifetime, got[2].Tier)
}

func TestNewCatalogRejectsBadEntries(t *testing.T) {
	_, err := NewCatalog(Plan{PriceID: "", Tier: TierMonthly})
	assert.True(t, ierr.Is(err, ierr.ErrValidation))

	_, err = NewCatalog(Plan{PriceID: "price_free", Tier: TierFree})
	assert.True(t, ierr.Is(err, ierr.ErrValidation))

	_, err = NewCatalog(
		Plan{PriceID: "price_a", Tier: TierMonthly},
		Plan{PriceID: "price_a", Tier: TierYearly},
	)
	assert.True(t, ierr.Is(err, ierr.ErrValidation))
}

func TestTierOrdering(t *testing.T) {
	assert.Less(t, TierUnknown, TierFree)
	assert.Less(t, TierFree, TierMonthly)
	assert.Less(t, TierMonthly, TierYearly)
	assert.Less(t, TierYearly, TierLifetime)

	assert.Equal(t, TierFree, MaxTier())
	assert.Equal(t, TierFree, MaxTier(TierUnknown))
	assert.Equal(t, TierYearly, MaxTier(TierMonthly, TierYearly, TierUnknown))
}

func TestParseTierRoundTrip(t *testing.T) {
	for _, tier := range []PlanTier{TierFree, TierMonthly, TierYearly, TierLifetime} {
		assert.Equal(t, tier, ParseTier(tier.String()))
	}
	assert.Equal(t, TierUnknown, ParseTier("platinum"))
}

func TestParsePurchaseKind(t *testing.T) {
	tests := []struct {
		in   string
		want PurchaseKind
		ok   bool
	}{
		{in: "recurring", want: PurchaseRecurring, ok: true},
		{in: "subscription", want: PurchaseRecurring, ok: true},
		{in: "one_time", want: PurchaseOneTime, ok: true},
		{in: "payment", want: PurchaseOneTime, ok: true},
		{in: "gift", ok: false},
	}
	for _, tt := range tests {
		got, ok := ParsePurchaseKind(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	assert.Equal(t, PurchaseOneTime, KindFor(TierLifetime))
	assert.Equal(t, PurchaseRecurring, KindFor(TierMonthly))
}
