package plans

import "strings"

// PurchaseKind distinguishes recurring subscriptions from one-time payments.
type PurchaseKind string

const (
	PurchaseRecurring PurchaseKind = "recurring"
	PurchaseOneTime   PurchaseKind = "one_time"
)

// ParsePurchaseKind accepts both the engine's names and the provider's
// checkout mode names ("subscription", "payment").
func ParsePurchaseKind(s string) (PurchaseKind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "recurring", "subscription":
		return PurchaseRecurring, true
	case "one_time", "onetime", "payment":
		return PurchaseOneTime, true
	default:
		return "", false
	}
}

// KindFor returns how a tier is sold: lifetime is a single payment,
// everything else renews.
func KindFor(t PlanTier) PurchaseKind {
	if t == TierLifetime {
		return PurchaseOneTime
	}
	return PurchaseRecurring
}
