package postgres

import (
	"context"
	"testing"
	"time"

	"focus-billing/database"
	"focus-billing/internal/domain/entitlements"
	"focus-billing/internal/domain/plans"
	ierr "focus-billing/internal/errors"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type StoreSuite struct {
	suite.Suite
	ctx   context.Context
	db    *gorm.DB
	store *Store
}

func TestStore(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) SetupTest() {
	s.ctx = context.Background()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	s.Require().NoError(err)
	sqlDB, err := db.DB()
	s.Require().NoError(err)
	sqlDB.SetMaxOpenConns(1)

	s.Require().NoError(database.Migrate(s.ctx, db))
	s.db = db
	s.store = NewStore(db)
}

func (s *StoreSuite) TearDownTest() {
	if sqlDB, err := s.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func (s *StoreSuite) sub(id, user string, tier plans.PlanTier, status string) *entitlements.Subscription {
	return &entitlements.Subscription{
		ProviderSubscriptionID: id,
		UserID:                 user,
		CustomerID:             "cus_" + user,
		PriceID:                "price_" + tier.String(),
		Tier:                   tier.String(),
		Status:                 status,
	}
}

func (s *StoreSuite) TestUpsertSubscription_IdempotentAndUpdates() {
	first := s.sub("sub_1", "u1", plans.TierMonthly, entitlements.StatusTrialing)
	s.Require().NoError(s.store.UpsertSubscription(s.ctx, first))
	s.NotZero(first.ID)

	end := time.Now().Add(30 * 24 * time.Hour).UTC().Truncate(time.Second)
	again := s.sub("sub_1", "u1", plans.TierMonthly, entitlements.StatusActive)
	again.CurrentPeriodEnd = &end
	s.Require().NoError(s.store.UpsertSubscription(s.ctx, again))
	s.Equal(first.ID, again.ID)
	s.Equal(entitlements.StatusActive, again.Status)

	all, err := s.store.ListSubscriptions(s.ctx, "u1")
	s.Require().NoError(err)
	s.Len(all, 1)
	s.Require().NotNil(all[0].CurrentPeriodEnd)
	s.True(end.Equal(all[0].CurrentPeriodEnd.UTC()))
}

func (s *StoreSuite) TestUpsertSubscription_CanceledIsSticky() {
	s.Require().NoError(s.store.UpsertSubscription(s.ctx, s.sub("sub_1", "u1", plans.TierMonthly, entitlements.StatusActive)))
	s.Require().NoError(s.store.MarkSubscriptionCanceled(s.ctx, s.sub("sub_1", "u1", plans.TierMonthly, entitlements.StatusActive)))

	late := s.sub("sub_1", "u1", plans.TierMonthly, entitlements.StatusActive)
	s.Require().NoError(s.store.UpsertSubscription(s.ctx, late))
	s.Equal(entitlements.StatusCanceled, late.Status)

	active, err := s.store.ListEntitlingSubscriptions(s.ctx, "u1")
	s.Require().NoError(err)
	s.Empty(active)
}

func (s *StoreSuite) TestUpsertSubscription_OwnershipFixed() {
	s.Require().NoError(s.store.UpsertSubscription(s.ctx, s.sub("sub_1", "u1", plans.TierMonthly, entitlements.StatusActive)))

	other := s.sub("sub_1", "u2", plans.TierMonthly, entitlements.StatusActive)
	s.Require().NoError(s.store.UpsertSubscription(s.ctx, other))
	s.Equal("u1", other.UserID)
}

func (s *StoreSuite) TestEntitlingIndexRejectsSecondRowAtSameTier() {
	s.Require().NoError(s.store.UpsertSubscription(s.ctx, s.sub("sub_1", "u1", plans.TierMonthly, entitlements.StatusActive)))

	err := s.store.UpsertSubscription(s.ctx, s.sub("sub_2", "u1", plans.TierMonthly, entitlements.StatusActive))
	s.Require().Error(err)
	s.True(ierr.Is(err, ierr.ErrDatabase))

	// A canceled row at the same tier is fine.
	s.Require().NoError(s.store.UpsertSubscription(s.ctx, s.sub("sub_3", "u1", plans.TierMonthly, entitlements.StatusCanceled)))
}

func (s *StoreSuite) TestMarkSubscriptionCanceled_InsertsUnknownRow() {
	s.Require().NoError(s.store.MarkSubscriptionCanceled(s.ctx, s.sub("sub_9", "u1", plans.TierYearly, entitlements.StatusActive)))

	got, err := s.store.GetSubscription(s.ctx, "sub_9")
	s.Require().NoError(err)
	s.Equal(entitlements.StatusCanceled, got.Status)
	s.Equal("yearly", got.Tier)
}

func (s *StoreSuite) TestGetSubscription_NotFound() {
	_, err := s.store.GetSubscription(s.ctx, "missing")
	s.True(ierr.IsNotFound(err))
}

func (s *StoreSuite) TestLifetimeGrant_AtMostOnePerUser() {
	created, err := s.store.CreateLifetimeGrant(s.ctx, &entitlements.LifetimeGrant{UserID: "u1", PaymentIntentID: "pi_1"})
	s.Require().NoError(err)
	s.True(created)

	created, err = s.store.CreateLifetimeGrant(s.ctx, &entitlements.LifetimeGrant{UserID: "u1", PaymentIntentID: "pi_1"})
	s.Require().NoError(err)
	s.False(created, "same payment intent redelivered")

	created, err = s.store.CreateLifetimeGrant(s.ctx, &entitlements.LifetimeGrant{UserID: "u1", PaymentIntentID: "pi_2"})
	s.Require().NoError(err)
	s.False(created, "second grant for the same user")

	g, err := s.store.GetLifetimeGrant(s.ctx, "u1")
	s.Require().NoError(err)
	s.Equal("pi_1", g.PaymentIntentID)

	_, err = s.store.GetLifetimeGrant(s.ctx, "u2")
	s.True(ierr.IsNotFound(err))
}

func (s *StoreSuite) TestProfile_LinkCustomerAndSummary() {
	_, err := s.store.GetProfile(s.ctx, "u1")
	s.True(ierr.IsNotFound(err))

	s.Require().NoError(s.store.LinkCustomer(s.ctx, "u1", "cus_1"))
	uid, err := s.store.FindUserIDByCustomerID(s.ctx, "cus_1")
	s.Require().NoError(err)
	s.Equal("u1", uid)

	sub := s.sub("sub_1", "u1", plans.TierYearly, entitlements.StatusActive)
	s.Require().NoError(s.store.SaveSummary(s.ctx, entitlements.Summary{
		UserID:    "u1",
		Tier:      plans.TierYearly,
		IsPro:     true,
		Effective: sub,
	}))

	p, err := s.store.GetProfile(s.ctx, "u1")
	s.Require().NoError(err)
	s.Equal("cus_1", p.CustomerID())
	s.Equal(plans.TierYearly, p.PlanTier())
	s.True(p.IsPro)
	s.Require().NotNil(p.SubscriptionID)
	s.Equal("sub_1", *p.SubscriptionID)

	s.Require().NoError(s.store.SaveSummary(s.ctx, entitlements.Summary{UserID: "u1", Tier: plans.TierFree}))
	p, err = s.store.GetProfile(s.ctx, "u1")
	s.Require().NoError(err)
	s.False(p.IsPro)
	s.Nil(p.SubscriptionID)
	s.Equal("cus_1", p.CustomerID(), "summary writes keep the customer link")

	_, err = s.store.FindUserIDByCustomerID(s.ctx, "cus_unknown")
	s.True(ierr.IsNotFound(err))
}

func (s *StoreSuite) TestWebhookLedger() {
	ev := &entitlements.WebhookEvent{
		Provider:        "stripe",
		ProviderEventID: "evt_1",
		EventType:       "customer.subscription.updated",
		PayloadJSON:     "{}",
	}
	created, stored, err := s.store.RecordWebhookEvent(s.ctx, ev)
	s.Require().NoError(err)
	s.True(created)
	s.False(stored.Succeeded())

	s.Require().NoError(s.store.MarkWebhookProcessed(s.ctx, stored.ID, "boom"))
	created, stored, err = s.store.RecordWebhookEvent(s.ctx, &entitlements.WebhookEvent{
		Provider:        "stripe",
		ProviderEventID: "evt_1",
		EventType:       "customer.subscription.updated",
		PayloadJSON:     "{}",
	})
	s.Require().NoError(err)
	s.False(created)
	s.False(stored.Succeeded())
	s.Equal("boom", stored.ProcessingError)

	s.Require().NoError(s.store.MarkWebhookProcessed(s.ctx, stored.ID, ""))
	_, stored, err = s.store.RecordWebhookEvent(s.ctx, &entitlements.WebhookEvent{
		Provider:        "stripe",
		ProviderEventID: "evt_1",
		EventType:       "customer.subscription.updated",
		PayloadJSON:     "{}",
	})
	s.Require().NoError(err)
	s.True(stored.Succeeded())
}
