package prices

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"focus-billing/internal/domain/plans"
	"focus-billing/internal/infra/stripe"
	"focus-billing/internal/logger"
	"focus-billing/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListPrices_AnnotatesAndCaches(t *testing.T) {
	gin.SetMode(gin.TestMode)
	provider := testutil.NewFakeProvider()
	provider.SetPrices(
		stripe.Price{ID: "price_monthly", ProductName: "Focus Pro", Currency: "eur", UnitAmount: 499, Interval: "month", Recurring: true},
		stripe.Price{ID: "price_lifetime", ProductName: "Focus Pro", Currency: "eur", UnitAmount: 9900},
		stripe.Price{ID: "price_other", ProductName: "Stickers", Currency: "eur", UnitAmount: 300},
	)
	catalog, err := plans.NewCatalog(
		plans.Plan{PriceID: "price_monthly", Tier: plans.TierMonthly},
		plans.Plan{PriceID: "price_lifetime", Tier: plans.TierLifetime},
	)
	require.NoError(t, err)

	r := gin.New()
	r.GET("/prices", NewHandler(provider, catalog, time.Minute, logger.NewNopLogger()).ListPrices)

	var body []PriceDTO
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/prices", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, cacheControl, rec.Header().Get("Cache-Control"))
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}

	assert.Equal(t, 1, provider.PriceCalls)
	require.Len(t, body, 3)
	assert.Equal(t, "monthly", body[0].Tier)
	assert.Equal(t, "recurring", body[0].PurchaseKind)
	assert.Equal(t, "lifetime", body[1].Tier)
	assert.Equal(t, "one_time", body[1].PurchaseKind)
	assert.Empty(t, body[2].Tier)
}
