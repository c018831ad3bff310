package plans

import (
	"sort"
	"strings"

	ierr "focus-billing/internal/errors"
)

// Plan is one purchasable price known to the engine.
type Plan struct {
	PriceID string   `json:"price_id"`
	Tier    PlanTier `json:"-"`
	Name    string   `json:"name"`
}

// Catalog is the static price -> tier mapping. It is immutable after
// construction and safe for concurrent use.
type Catalog struct {
	byPrice map[string]Plan
	ordered []Plan
}

// NewCatalog builds a catalog. Price ids must be unique and every plan must
// map to a paid tier.
func NewCatalog(entries ...Plan) (*Catalog, error) {
	c := &Catalog{byPrice: make(map[string]Plan, len(entries))}
	for _, p := range entries {
		p.PriceID = strings.TrimSpace(p.PriceID)
		if p.PriceID == "" {
			return nil, ierr.NewError("plan price id is empty").
				WithHintf("Configure a provider price id for the %s plan", p.Tier).
				Mark(ierr.ErrValidation)
		}
		if !p.Tier.IsPaid() {
			return nil, ierr.NewErrorf("plan %s has non-purchasable tier %s", p.PriceID, p.Tier).
				Mark(ierr.ErrValidation)
		}
		if _, dup := c.byPrice[p.PriceID]; dup {
			return nil, ierr.NewErrorf("price id %s configured twice", p.PriceID).
				Mark(ierr.ErrValidation)
		}
		if p.Name == "" {
			p.Name = p.Tier.String()
		}
		c.byPrice[p.PriceID] = p
		c.ordered = append(c.ordered, p)
	}
	sort.SliceStable(c.ordered, func(i, j int) bool { return c.ordered[i].Tier < c.ordered[j].Tier })
	return c, nil
}

// TierOf returns the tier for a provider price id, or TierUnknown.
func (c *Catalog) TierOf(priceID string) PlanTier {
	if p, ok := c.byPrice[strings.TrimSpace(priceID)]; ok {
		return p.Tier
	}
	return TierUnknown
}

// Plan looks up the catalog entry for a price id.
func (c *Catalog) Plan(priceID string) (Plan, bool) {
	p, ok := c.byPrice[strings.TrimSpace(priceID)]
	return p, ok
}

// Plans returns all entries ordered by tier.
func (c *Catalog) Plans() []Plan {
	out := make([]Plan, len(c.ordered))
	copy(out, c.ordered)
	return out
}
