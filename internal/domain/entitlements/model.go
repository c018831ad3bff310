package entitlements

import (
	"strings"
	"time"

	"focus-billing/internal/domain/plans"
)

const (
	StatusActive     = "active"
	StatusTrialing   = "trialing"
	StatusPastDue    = "past_due"
	StatusCanceled   = "canceled"
	StatusIncomplete = "incomplete"
	StatusPaused     = "paused"
)

// Subscription mirrors one provider subscription object. Rows are never
// deleted; canceled is terminal.
type Subscription struct {
	ID                     uint       `gorm:"primaryKey" json:"-"`
	ProviderSubscriptionID string     `gorm:"column:provider_subscription_id;type:varchar(191);not null;uniqueIndex:ux_subscriptions_provider_id" json:"id"`
	UserID                 string     `gorm:"column:user_id;type:varchar(191);not null;index" json:"-"`
	CustomerID             string     `gorm:"column:customer_id;type:varchar(191)" json:"-"`
	PriceID                string     `gorm:"column:price_id;type:varchar(191);not null" json:"price_id"`
	Tier                   string     `gorm:"column:tier;type:varchar(16);not null;default:'unknown'" json:"tier"`
	Status                 string     `gorm:"column:status;type:varchar(32);not null;index" json:"status"`
	CurrentPeriodEnd       *time.Time `gorm:"column:current_period_end" json:"current_period_end"`
	CreatedAt              time.Time  `gorm:"autoCreateTime" json:"-"`
	UpdatedAt              time.Time  `gorm:"autoUpdateTime" json:"-"`
}

func (Subscription) TableName() string { return "subscriptions" }

// PlanTier returns the tier stored on the row.
func (s Subscription) PlanTier() plans.PlanTier {
	return plans.ParseTier(s.Tier)
}

// IsEntitling reports whether the row currently grants its tier.
func (s Subscription) IsEntitling() bool {
	return IsEntitlingStatus(s.Status)
}

// IsCanceled reports whether the row is retired.
func (s Subscription) IsCanceled() bool {
	return strings.EqualFold(strings.TrimSpace(s.Status), StatusCanceled)
}

// LifetimeGrant is the permanent one-time upgrade to the lifetime tier.
type LifetimeGrant struct {
	ID              uint      `gorm:"primaryKey"`
	UserID          string    `gorm:"column:user_id;type:varchar(191);not null;uniqueIndex:ux_lifetime_grants_user"`
	PaymentIntentID string    `gorm:"column:payment_intent_id;type:varchar(191);not null;uniqueIndex:ux_lifetime_grants_payment_intent"`
	CreatedAt       time.Time `gorm:"autoCreateTime"`
}

func (LifetimeGrant) TableName() string { return "lifetime_grants" }

// Profile holds the provider customer linkage and the denormalized summary.
// Tier and IsPro are written only by summary recomputation.
type Profile struct {
	UserID           string    `gorm:"column:user_id;type:varchar(191);primaryKey"`
	StripeCustomerID *string   `gorm:"column:stripe_customer_id;type:varchar(191);uniqueIndex:ux_profiles_stripe_customer_id"`
	Tier             string    `gorm:"column:tier;type:varchar(16);not null;default:'free'"`
	IsPro            bool      `gorm:"column:is_pro;not null;default:false"`
	SubscriptionID   *string   `gorm:"column:subscription_id;type:varchar(191)"`
	CreatedAt        time.Time `gorm:"autoCreateTime"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime"`
}

func (Profile) TableName() string { return "profiles" }

// CustomerID returns the linked provider customer id or "".
func (p *Profile) CustomerID() string {
	if p == nil || p.StripeCustomerID == nil {
		return ""
	}
	return *p.StripeCustomerID
}

// PlanTier returns the summary tier stored on the profile.
func (p *Profile) PlanTier() plans.PlanTier {
	if p == nil {
		return plans.TierFree
	}
	return plans.ParseTier(p.Tier)
}

// IsEntitlingStatus reports whether a provider status grants the tier.
func IsEntitlingStatus(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case StatusActive, StatusTrialing:
		return true
	default:
		return false
	}
}
