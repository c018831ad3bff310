package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"focus-billing/internal/domain/entitlements"
	ierr "focus-billing/internal/errors"

	"github.com/samber/lo"
)

// InMemoryEntitlementStore implements entitlements.Repository and
// entitlements.WebhookEventRepository with the same constraints the SQL
// schema enforces.
type InMemoryEntitlementStore struct {
	mu       sync.RWMutex
	nextID   uint
	profiles map[string]*entitlements.Profile
	subs     map[string]*entitlements.Subscription // by provider subscription id
	grants   map[string]*entitlements.LifetimeGrant
	events   map[string]*entitlements.WebhookEvent // by provider/event id

	// FailNext, when set, is returned by the next write and then cleared.
	FailNext error
}

func NewInMemoryEntitlementStore() *InMemoryEntitlementStore {
	return &InMemoryEntitlementStore{
		profiles: make(map[string]*entitlements.Profile),
		subs:     make(map[string]*entitlements.Subscription),
		grants:   make(map[string]*entitlements.LifetimeGrant),
		events:   make(map[string]*entitlements.WebhookEvent),
	}
}

var (
	_ entitlements.Repository             = (*InMemoryEntitlementStore)(nil)
	_ entitlements.WebhookEventRepository = (*InMemoryEntitlementStore)(nil)
)

func (s *InMemoryEntitlementStore) id() uint {
	s.nextID++
	return s.nextID
}

func (s *InMemoryEntitlementStore) takeFailure() error {
	err := s.FailNext
	s.FailNext = nil
	return err
}

func (s *InMemoryEntitlementStore) GetProfile(_ context.Context, userID string) (*entitlements.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, ierr.NewErrorf("profile %s not found", userID).Mark(ierr.ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (s *InMemoryEntitlementStore) FindUserIDByCustomerID(_ context.Context, customerID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.profiles {
		if p.CustomerID() == customerID {
			return p.UserID, nil
		}
	}
	return "", ierr.NewErrorf("no profile for customer %s", customerID).Mark(ierr.ErrNotFound)
}

func (s *InMemoryEntitlementStore) profile(userID string) *entitlements.Profile {
	p, ok := s.profiles[userID]
	if !ok {
		p = &entitlements.Profile{UserID: userID, Tier: "free", CreatedAt: time.Now()}
		s.profiles[userID] = p
	}
	return p
}

func (s *InMemoryEntitlementStore) LinkCustomer(_ context.Context, userID, customerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return err
	}
	for _, other := range s.profiles {
		if other.UserID != userID && other.CustomerID() == customerID {
			return ierr.NewErrorf("customer %s already linked", customerID).Mark(ierr.ErrDatabase)
		}
	}
	p := s.profile(userID)
	p.StripeCustomerID = lo.ToPtr(customerID)
	p.UpdatedAt = time.Now()
	return nil
}

func (s *InMemoryEntitlementStore) SaveSummary(_ context.Context, sum entitlements.Summary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return err
	}
	p := s.profile(sum.UserID)
	p.Tier = sum.Tier.String()
	p.IsPro = sum.IsPro
	p.SubscriptionID = nil
	if sum.Effective != nil {
		p.SubscriptionID = lo.ToPtr(sum.Effective.ProviderSubscriptionID)
	}
	p.UpdatedAt = time.Now()
	return nil
}

func (s *InMemoryEntitlementStore) GetSubscription(_ context.Context, providerSubscriptionID string) (*entitlements.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.subs[providerSubscriptionID]
	if !ok {
		return nil, ierr.NewErrorf("subscription %s not found", providerSubscriptionID).Mark(ierr.ErrNotFound)
	}
	cp := *sub
	return &cp, nil
}

func (s *InMemoryEntitlementStore) list(userID string, keep func(*entitlements.Subscription) bool) []entitlements.Subscription {
	out := make([]entitlements.Subscription, 0)
	for _, sub := range s.subs {
		if sub.UserID == userID && keep(sub) {
			out = append(out, *sub)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *InMemoryEntitlementStore) ListSubscriptions(_ context.Context, userID string) ([]entitlements.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.list(userID, func(*entitlements.Subscription) bool { return true }), nil
}

func (s *InMemoryEntitlementStore) ListEntitlingSubscriptions(_ context.Context, userID string) ([]entitlements.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.list(userID, func(sub *entitlements.Subscription) bool { return sub.IsEntitling() }), nil
}

func (s *InMemoryEntitlementStore) UpsertSubscription(_ context.Context, sub *entitlements.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return err
	}

	next := *sub
	if existing, ok := s.subs[sub.ProviderSubscriptionID]; ok {
		next.ID = existing.ID
		next.UserID = existing.UserID
		next.CreatedAt = existing.CreatedAt
		if existing.IsCanceled() {
			next.Status = entitlements.StatusCanceled
		}
	} else {
		next.ID = s.id()
		next.CreatedAt = time.Now()
	}
	next.UpdatedAt = time.Now()

	if next.IsEntitling() {
		for _, other := range s.subs {
			if other.ProviderSubscriptionID != next.ProviderSubscriptionID &&
				other.UserID == next.UserID && other.Tier == next.Tier && other.IsEntitling() {
				return ierr.NewErrorf("user %s already has an entitling %s subscription", next.UserID, next.Tier).
					Mark(ierr.ErrDatabase)
			}
		}
	}

	s.subs[next.ProviderSubscriptionID] = &next
	*sub = next
	return nil
}

func (s *InMemoryEntitlementStore) MarkSubscriptionCanceled(_ context.Context, sub *entitlements.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return err
	}

	existing, ok := s.subs[sub.ProviderSubscriptionID]
	if !ok {
		row := *sub
		row.ID = s.id()
		row.CreatedAt = time.Now()
		existing = &row
		s.subs[row.ProviderSubscriptionID] = existing
	}
	existing.Status = entitlements.StatusCanceled
	existing.UpdatedAt = time.Now()
	*sub = *existing
	return nil
}

func (s *InMemoryEntitlementStore) GetLifetimeGrant(_ context.Context, userID string) (*entitlements.LifetimeGrant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.grants[userID]
	if !ok {
		return nil, ierr.NewErrorf("no lifetime grant for %s", userID).Mark(ierr.ErrNotFound)
	}
	cp := *g
	return &cp, nil
}

func (s *InMemoryEntitlementStore) CreateLifetimeGrant(_ context.Context, grant *entitlements.LifetimeGrant) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return false, err
	}
	if _, ok := s.grants[grant.UserID]; ok {
		return false, nil
	}
	for _, g := range s.grants {
		if g.PaymentIntentID == grant.PaymentIntentID {
			return false, nil
		}
	}
	g := *grant
	g.ID = s.id()
	g.CreatedAt = time.Now()
	s.grants[g.UserID] = &g
	*grant = g
	return true, nil
}

func (s *InMemoryEntitlementStore) RecordWebhookEvent(_ context.Context, event *entitlements.WebhookEvent) (bool, *entitlements.WebhookEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := event.Provider + "/" + event.ProviderEventID
	if stored, ok := s.events[key]; ok {
		cp := *stored
		return false, &cp, nil
	}
	e := *event
	e.ID = s.id()
	e.CreatedAt = time.Now()
	s.events[key] = &e
	cp := e
	return true, &cp, nil
}

func (s *InMemoryEntitlementStore) MarkWebhookProcessed(_ context.Context, id uint, processingError string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.events {
		if e.ID == id {
			now := time.Now()
			e.ProcessedAt = &now
			e.ProcessingError = processingError
			return nil
		}
	}
	return ierr.NewErrorf("webhook event %d not found", id).Mark(ierr.ErrNotFound)
}

// WebhookEvent returns the ledger entry for a provider event id.
func (s *InMemoryEntitlementStore) WebhookEvent(providerEventID string) (*entitlements.WebhookEvent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.events {
		if e.ProviderEventID == providerEventID {
			cp := *e
			return &cp, true
		}
	}
	return nil, false
}

// PutSubscription seeds a row directly, bypassing constraints.
func (s *InMemoryEntitlementStore) PutSubscription(sub entitlements.Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sub.ID == 0 {
		sub.ID = s.id()
	}
	s.subs[sub.ProviderSubscriptionID] = &sub
}
