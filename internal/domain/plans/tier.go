package plans

import "strings"

// PlanTier is the ordered entitlement level. Higher values outrank lower ones.
type PlanTier int

const (
	// TierUnknown is returned for price ids the catalog does not recognize.
	// It ranks below TierFree so it can never authorize anything.
	TierUnknown  PlanTier = -1
	TierFree     PlanTier = 0
	TierMonthly  PlanTier = 1
	TierYearly   PlanTier = 2
	TierLifetime PlanTier = 3
)

func (t PlanTier) String() string {
	switch t {
	case TierFree:
		return "free"
	case TierMonthly:
		return "monthly"
	case TierYearly:
		return "yearly"
	case TierLifetime:
		return "lifetime"
	default:
		return "unknown"
	}
}

// IsPaid reports whether the tier grants pro access.
func (t PlanTier) IsPaid() bool {
	return t > TierFree
}

// ParseTier maps a stored tier name back to a PlanTier.
func ParseTier(s string) PlanTier {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "free", "none", "":
		return TierFree
	case "monthly":
		return TierMonthly
	case "yearly":
		return TierYearly
	case "lifetime":
		return TierLifetime
	default:
		return TierUnknown
	}
}

// MaxTier returns the highest of the given tiers, never lower than TierFree.
func MaxTier(tiers ...PlanTier) PlanTier {
	best := TierFree
	for _, t := range tiers {
		if t > best {
			best = t
		}
	}
	return best
}
