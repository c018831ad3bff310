package prices

import (
	"context"
	"net/http"
	"time"

	"focus-billing/internal/domain/plans"
	ierr "focus-billing/internal/errors"
	"focus-billing/internal/infra/stripe"
	"focus-billing/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

const (
	cacheKey     = "active_prices"
	cacheControl = "public, s-maxage=3600, stale-while-revalidate=86400"
)

// Lister fetches active prices from the billing provider.
type Lister interface {
	ListActivePrices(ctx context.Context) ([]stripe.Price, error)
}

// Handler serves the purchasable price list. Provider responses are cached
// in-process and concurrent misses share one upstream call.
type Handler struct {
	lister  Lister
	catalog *plans.Catalog
	cache   *cache.Cache
	group   singleflight.Group
	log     *logger.Logger
}

func NewHandler(lister Lister, catalog *plans.Catalog, ttl time.Duration, log *logger.Logger) *Handler {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Handler{
		lister:  lister,
		catalog: catalog,
		cache:   cache.New(ttl, 2*ttl),
		log:     log,
	}
}

type PriceDTO struct {
	ID          string `json:"id"`
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Currency    string `json:"currency"`
	UnitAmount  int64  `json:"unit_amount"`
	Interval    string `json:"interval,omitempty"`
	Recurring   bool   `json:"recurring"`
	// Tier and PurchaseKind are empty for prices the engine does not sell.
	Tier         string `json:"tier,omitempty"`
	PurchaseKind string `json:"purchase_kind,omitempty"`
}

// ListPrices answers GET /prices.
func (h *Handler) ListPrices(c *gin.Context) {
	prices, err := h.load(c.Request.Context())
	if err != nil {
		logger.FromContext(c.Request.Context(), h.log).Errorw("failed to list prices", "error", err)
		ierr.RespondWithError(c, err)
		return
	}
	c.Header("Cache-Control", cacheControl)
	c.JSON(http.StatusOK, prices)
}

func (h *Handler) load(ctx context.Context) ([]PriceDTO, error) {
	if v, ok := h.cache.Get(cacheKey); ok {
		return v.([]PriceDTO), nil
	}

	v, err, _ := h.group.Do(cacheKey, func() (interface{}, error) {
		raw, err := h.lister.ListActivePrices(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]PriceDTO, 0, len(raw))
		for _, p := range raw {
			dto := PriceDTO{
				ID:          p.ID,
				ProductID:   p.ProductID,
				ProductName: p.ProductName,
				Currency:    p.Currency,
				UnitAmount:  p.UnitAmount,
				Interval:    p.Interval,
				Recurring:   p.Recurring,
			}
			if tier := h.catalog.TierOf(p.ID); tier.IsPaid() {
				dto.Tier = tier.String()
				dto.PurchaseKind = string(plans.KindFor(tier))
			}
			out = append(out, dto)
		}
		h.cache.SetDefault(cacheKey, out)
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]PriceDTO), nil
}
