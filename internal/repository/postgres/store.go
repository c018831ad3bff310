// Package postgres implements the entitlement store on gorm.
package postgres

import (
	"context"
	"errors"
	"time"

	"focus-billing/internal/domain/entitlements"
	ierr "focus-billing/internal/errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store implements entitlements.Repository and entitlements.WebhookEventRepository.
type Store struct {
	db *gorm.DB
}

// NewStore returns the gorm-backed entitlement store. The handle should
// be opened with TranslateError so constraint violations are recognizable.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

var (
	_ entitlements.Repository             = (*Store)(nil)
	_ entitlements.WebhookEventRepository = (*Store)(nil)
)

func (r *Store) GetProfile(ctx context.Context, userID string) (*entitlements.Profile, error) {
	var p entitlements.Profile
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error; err != nil {
		return nil, dbError(err, "get profile")
	}
	return &p, nil
}

func (r *Store) FindUserIDByCustomerID(ctx context.Context, customerID string) (string, error) {
	var p entitlements.Profile
	err := r.db.WithContext(ctx).
		Select("user_id").
		Where("stripe_customer_id = ?", customerID).
		First(&p).Error
	if err != nil {
		return "", dbError(err, "find user by customer")
	}
	return p.UserID, nil
}

func (r *Store) LinkCustomer(ctx context.Context, userID, customerID string) error {
	p := entitlements.Profile{UserID: userID, StripeCustomerID: &customerID}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"stripe_customer_id", "updated_at"}),
	}).Create(&p).Error
	return dbError(err, "link customer")
}

func (r *Store) SaveSummary(ctx context.Context, s entitlements.Summary) error {
	p := entitlements.Profile{
		UserID: s.UserID,
		Tier:   s.Tier.String(),
		IsPro:  s.IsPro,
	}
	if s.Effective != nil {
		id := s.Effective.ProviderSubscriptionID
		p.SubscriptionID = &id
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"tier", "is_pro", "subscription_id", "updated_at"}),
	}).Create(&p).Error
	return dbError(err, "save summary")
}

func (r *Store) GetSubscription(ctx context.Context, providerSubscriptionID string) (*entitlements.Subscription, error) {
	var s entitlements.Subscription
	err := r.db.WithContext(ctx).
		Where("provider_subscription_id = ?", providerSubscriptionID).
		First(&s).Error
	if err != nil {
		return nil, dbError(err, "get subscription")
	}
	return &s, nil
}

func (r *Store) ListSubscriptions(ctx context.Context, userID string) ([]entitlements.Subscription, error) {
	var subs []entitlements.Subscription
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("id").Find(&subs).Error
	return subs, dbError(err, "list subscriptions")
}

func (r *Store) ListEntitlingSubscriptions(ctx context.Context, userID string) ([]entitlements.Subscription, error) {
	var subs []entitlements.Subscription
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status IN ?", userID, []string{entitlements.StatusActive, entitlements.StatusTrialing}).
		Order("id").
		Find(&subs).Error
	return subs, dbError(err, "list entitling subscriptions")
}

// UpsertSubscription keys on the provider id. Ownership is fixed on first
// insert and a canceled status is sticky.
func (r *Store) UpsertSubscription(ctx context.Context, sub *entitlements.Subscription) error {
	set := clause.AssignmentColumns([]string{
		"customer_id",
		"price_id",
		"tier",
		"current_period_end",
		"updated_at",
	})
	set = append(set, clause.Assignment{
		Column: clause.Column{Name: "status"},
		Value: gorm.Expr("CASE WHEN subscriptions.status = ? THEN subscriptions.status ELSE excluded.status END",
			entitlements.StatusCanceled),
	})

	tx := r.db.WithContext(ctx)
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "provider_subscription_id"}},
		DoUpdates: set,
	}).Create(sub).Error; err != nil {
		return dbError(err, "upsert subscription")
	}

	err := tx.Where("provider_subscription_id = ?", sub.ProviderSubscriptionID).First(sub).Error
	return dbError(err, "reload subscription")
}

func (r *Store) MarkSubscriptionCanceled(ctx context.Context, sub *entitlements.Subscription) error {
	row := *sub
	row.ID = 0
	row.Status = entitlements.StatusCanceled

	tx := r.db.WithContext(ctx)
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "provider_subscription_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "updated_at"}),
	}).Create(&row).Error; err != nil {
		return dbError(err, "mark subscription canceled")
	}

	err := tx.Where("provider_subscription_id = ?", sub.ProviderSubscriptionID).First(sub).Error
	return dbError(err, "reload subscription")
}

func (r *Store) GetLifetimeGrant(ctx context.Context, userID string) (*entitlements.LifetimeGrant, error) {
	var g entitlements.LifetimeGrant
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&g).Error; err != nil {
		return nil, dbError(err, "get lifetime grant")
	}
	return &g, nil
}

// CreateLifetimeGrant ignores conflicts on either unique key.
func (r *Store) CreateLifetimeGrant(ctx context.Context, grant *entitlements.LifetimeGrant) (bool, error) {
	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(grant)
	if tx.Error != nil {
		return false, dbError(tx.Error, "create lifetime grant")
	}
	return tx.RowsAffected > 0, nil
}

func (r *Store) RecordWebhookEvent(ctx context.Context, event *entitlements.WebhookEvent) (bool, *entitlements.WebhookEvent, error) {
	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "provider"}, {Name: "provider_event_id"}},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, dbError(tx.Error, "record webhook event")
	}

	created := tx.RowsAffected > 0
	var stored entitlements.WebhookEvent
	if err := r.db.WithContext(ctx).
		Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		First(&stored).Error; err != nil {
		return false, nil, dbError(err, "load webhook event")
	}
	return created, &stored, nil
}

func (r *Store) MarkWebhookProcessed(ctx context.Context, id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	err := r.db.WithContext(ctx).Model(&entitlements.WebhookEvent{}).Where("id = ?", id).Updates(updates).Error
	return dbError(err, "mark webhook processed")
}

func dbError(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ierr.WithError(err).WithMessage(op).Mark(ierr.ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ierr.WithError(err).
			WithMessage(op).
			WithHint("A conflicting entitlement record already exists").
			Mark(ierr.ErrDatabase)
	default:
		return ierr.WithError(err).WithMessage(op).Mark(ierr.ErrDatabase)
	}
}
