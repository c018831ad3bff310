package testutil

import (
	"context"
	"fmt"
	"sync"

	ierr "focus-billing/internal/errors"
	"focus-billing/internal/infra/stripe"
)

// FakeProvider records calls made to the billing provider. Cancellation
// failures can be scripted per subscription id.
type FakeProvider struct {
	mu        sync.Mutex
	canceled  []string
	sessions  []stripe.CheckoutRequest
	cancelErr map[string]error
	prices    []stripe.Price

	// CheckoutErr is returned by CreateCheckoutSession when set.
	CheckoutErr error
	// PriceCalls counts ListActivePrices invocations.
	PriceCalls int
}

func NewFakeProvider() *FakeProvider {
	return &FakeProvider{cancelErr: make(map[string]error)}
}

// FailCancel makes every cancel of id return err until cleared with nil.
func (f *FakeProvider) FailCancel(id string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.cancelErr, id)
		return
	}
	f.cancelErr[id] = err
}

// MissingUpstream makes cancels of id report not-found.
func (f *FakeProvider) MissingUpstream(id string) {
	f.FailCancel(id, ierr.NewErrorf("no such subscription: %s", id).Mark(ierr.ErrNotFound))
}

func (f *FakeProvider) CancelSubscription(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.cancelErr[id]; ok {
		return err
	}
	f.canceled = append(f.canceled, id)
	return nil
}

func (f *FakeProvider) CreateCheckoutSession(_ context.Context, req stripe.CheckoutRequest) (*stripe.CheckoutSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CheckoutErr != nil {
		return nil, f.CheckoutErr
	}
	f.sessions = append(f.sessions, req)
	id := fmt.Sprintf("cs_test_%d", len(f.sessions))
	return &stripe.CheckoutSession{ID: id, URL: "https://checkout.stripe.test/" + id}, nil
}

func (f *FakeProvider) SetPrices(prices ...stripe.Price) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prices = prices
}

func (f *FakeProvider) ListActivePrices(context.Context) ([]stripe.Price, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.PriceCalls++
	out := make([]stripe.Price, len(f.prices))
	copy(out, f.prices)
	return out, nil
}

// Canceled returns the subscription ids successfully canceled, in order.
func (f *FakeProvider) Canceled() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.canceled...)
}

// Sessions returns the checkout requests made so far.
func (f *FakeProvider) Sessions() []stripe.CheckoutRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]stripe.CheckoutRequest(nil), f.sessions...)
}
