package stripewebhooks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"focus-billing/internal/domain/entitlements"
	"focus-billing/internal/domain/plans"
	"focus-billing/internal/infra/lock"
	"focus-billing/internal/logger"
	"focus-billing/internal/service/billing"
	"focus-billing/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	stripewebhook "github.com/stripe/stripe-go/v75/webhook"
)

const testSecret = "whsec_test_secret"

type recordingReconciler struct {
	mu        sync.Mutex
	checkouts []billing.CheckoutCompleted
	upserts   []billing.SubscriptionUpserted
	cancels   []billing.SubscriptionCanceled
	err       error
}

func (r *recordingReconciler) HandleCheckoutCompleted(_ context.Context, ev billing.CheckoutCompleted) (billing.Outcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkouts = append(r.checkouts, ev)
	return billing.OutcomeApplied, r.err
}

func (r *recordingReconciler) HandleSubscriptionUpserted(_ context.Context, ev billing.SubscriptionUpserted) (billing.Outcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upserts = append(r.upserts, ev)
	return billing.OutcomeApplied, r.err
}

func (r *recordingReconciler) HandleSubscriptionCanceled(_ context.Context, ev billing.SubscriptionCanceled) (billing.Outcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancels = append(r.cancels, ev)
	return billing.OutcomeApplied, r.err
}

func newRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/webhook", h.StripeWebhook)
	return r
}

func signedRequest(t *testing.T, secret, payload string) *http.Request {
	t.Helper()
	signed := stripewebhook.GenerateTestSignedPayload(&stripewebhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    secret,
		Timestamp: time.Now(),
		Scheme:    "v1",
	})
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(signed.Payload))
	req.Header.Set("Stripe-Signature", signed.Header)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func subscriptionEvent(eventID, eventType, subID, userID, priceID, status string) string {
	return fmt.Sprintf(`{"id":%q,"object":"event","type":%q,"data":{"object":{
		"id":%q,"object":"subscription","customer":"cus_1","status":%q,
		"current_period_end":1893456000,
		"metadata":{"user_id":%q},
		"items":{"object":"list","data":[{"id":"si_1","object":"subscription_item","price":{"id":%q,"object":"price"}}]}
	}}}`, eventID, eventType, subID, status, userID, priceID)
}

func TestWebhook_RejectsBadSignature(t *testing.T) {
	store := testutil.NewInMemoryEntitlementStore()
	rec := &recordingReconciler{}
	r := newRouter(NewHandler(testSecret, store, rec, logger.NewNopLogger()))

	body := subscriptionEvent("evt_1", "customer.subscription.updated", "sub_1", "u1", "price_monthly", "active")
	resp := serve(r, signedRequest(t, "whsec_wrong", body))

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Empty(t, rec.upserts)
	_, ok := store.WebhookEvent("evt_1")
	assert.False(t, ok, "nothing recorded before verification")
}

func TestWebhook_DecodesSubscriptionEvents(t *testing.T) {
	store := testutil.NewInMemoryEntitlementStore()
	rec := &recordingReconciler{}
	r := newRouter(NewHandler(testSecret, store, rec, logger.NewNopLogger()))

	resp := serve(r, signedRequest(t, testSecret,
		subscriptionEvent("evt_1", "customer.subscription.created", "sub_1", "u1", "price_monthly", "unpaid")))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	require.Len(t, rec.upserts, 1)
	ev := rec.upserts[0]
	assert.Equal(t, "evt_1", ev.EventID)
	assert.Equal(t, "sub_1", ev.ProviderSubscriptionID)
	assert.Equal(t, "u1", ev.UserID)
	assert.Equal(t, "cus_1", ev.CustomerID)
	assert.Equal(t, "price_monthly", ev.PriceID)
	assert.Equal(t, entitlements.StatusPastDue, ev.Status)
	require.NotNil(t, ev.CurrentPeriodEnd)
	assert.Equal(t, int64(1893456000), ev.CurrentPeriodEnd.Unix())

	resp = serve(r, signedRequest(t, testSecret,
		subscriptionEvent("evt_2", "customer.subscription.deleted", "sub_1", "", "price_monthly", "canceled")))
	require.Equal(t, http.StatusOK, resp.Code)
	require.Len(t, rec.cancels, 1)
	assert.Equal(t, "sub_1", rec.cancels[0].ProviderSubscriptionID)
	assert.Equal(t, "price_monthly", rec.cancels[0].PriceID)
}

func TestWebhook_DecodesCheckoutSession(t *testing.T) {
	store := testutil.NewInMemoryEntitlementStore()
	rec := &recordingReconciler{}
	r := newRouter(NewHandler(testSecret, store, rec, logger.NewNopLogger()))

	body := `{"id":"evt_cs","object":"event","type":"checkout.session.completed","data":{"object":{
		"id":"cs_1","object":"checkout.session","mode":"payment","payment_status":"paid",
		"client_reference_id":"u9","customer":"cus_9","payment_intent":"pi_9","metadata":{}
	}}}`
	resp := serve(r, signedRequest(t, testSecret, body))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	require.Len(t, rec.checkouts, 1)
	ev := rec.checkouts[0]
	assert.Equal(t, plans.PurchaseOneTime, ev.Kind)
	assert.Equal(t, "u9", ev.UserID)
	assert.Equal(t, "cus_9", ev.CustomerID)
	assert.Equal(t, "pi_9", ev.PaymentIntentID)
	assert.True(t, ev.Paid)
}

func TestWebhook_SucceededEventIsNotReprocessed(t *testing.T) {
	store := testutil.NewInMemoryEntitlementStore()
	rec := &recordingReconciler{}
	r := newRouter(NewHandler(testSecret, store, rec, logger.NewNopLogger()))
	body := subscriptionEvent("evt_1", "customer.subscription.updated", "sub_1", "u1", "price_monthly", "active")

	require.Equal(t, http.StatusOK, serve(r, signedRequest(t, testSecret, body)).Code)
	require.Equal(t, http.StatusOK, serve(r, signedRequest(t, testSecret, body)).Code)

	assert.Len(t, rec.upserts, 1)
	stored, ok := store.WebhookEvent("evt_1")
	require.True(t, ok)
	assert.True(t, stored.Succeeded())
}

func TestWebhook_FailedEventIsRetriedOnRedelivery(t *testing.T) {
	store := testutil.NewInMemoryEntitlementStore()
	rec := &recordingReconciler{err: errors.New("provider timeout")}
	r := newRouter(NewHandler(testSecret, store, rec, logger.NewNopLogger()))
	body := subscriptionEvent("evt_1", "customer.subscription.updated", "sub_1", "u1", "price_monthly", "active")

	assert.Equal(t, http.StatusInternalServerError, serve(r, signedRequest(t, testSecret, body)).Code)
	stored, ok := store.WebhookEvent("evt_1")
	require.True(t, ok)
	assert.Equal(t, "provider timeout", stored.ProcessingError)

	rec.err = nil
	assert.Equal(t, http.StatusOK, serve(r, signedRequest(t, testSecret, body)).Code)
	assert.Len(t, rec.upserts, 2)
	stored, _ = store.WebhookEvent("evt_1")
	assert.True(t, stored.Succeeded())
}

func TestWebhook_IgnoresUnhandledTypes(t *testing.T) {
	store := testutil.NewInMemoryEntitlementStore()
	rec := &recordingReconciler{}
	r := newRouter(NewHandler(testSecret, store, rec, logger.NewNopLogger()))

	body := `{"id":"evt_inv","object":"event","type":"invoice.paid","data":{"object":{"id":"in_1","object":"invoice"}}}`
	resp := serve(r, signedRequest(t, testSecret, body))
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "ignored")
}

func TestWebhook_MalformedSubscriptionIsRejected(t *testing.T) {
	store := testutil.NewInMemoryEntitlementStore()
	rec := &recordingReconciler{}
	r := newRouter(NewHandler(testSecret, store, rec, logger.NewNopLogger()))

	body := `{"id":"evt_bad","object":"event","type":"customer.subscription.updated","data":{"object":{"id":"sub_1","object":"subscription","status":"active"}}}`
	resp := serve(r, signedRequest(t, testSecret, body))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Empty(t, rec.upserts)
}

// End to end through the real reconciler: monthly, lifetime purchase, then
// the monthly deletion leaves the user on lifetime.
func TestWebhook_MonthlyThenLifetime(t *testing.T) {
	store := testutil.NewInMemoryEntitlementStore()
	provider := testutil.NewFakeProvider()
	log := logger.NewNopLogger()
	catalog, err := plans.NewCatalog(
		plans.Plan{PriceID: "price_monthly", Tier: plans.TierMonthly},
		plans.Plan{PriceID: "price_yearly", Tier: plans.TierYearly},
		plans.Plan{PriceID: "price_lifetime", Tier: plans.TierLifetime},
	)
	require.NoError(t, err)
	reconciler := billing.NewReconciler(catalog, store, billing.NewCascade(provider, store, log), lock.NewKeyedMutex(), log)
	r := newRouter(NewHandler(testSecret, store, reconciler, log))

	require.Equal(t, http.StatusOK, serve(r, signedRequest(t, testSecret,
		subscriptionEvent("evt_1", "customer.subscription.created", "sub_m", "u1", "price_monthly", "active"))).Code)

	checkout := `{"id":"evt_2","object":"event","type":"checkout.session.completed","data":{"object":{
		"id":"cs_1","object":"checkout.session","mode":"payment","payment_status":"paid",
		"customer":"cus_1","payment_intent":"pi_1","metadata":{"user_id":"u1"}
	}}}`
	require.Equal(t, http.StatusOK, serve(r, signedRequest(t, testSecret, checkout)).Code)
	assert.Equal(t, []string{"sub_m"}, provider.Canceled())

	require.Equal(t, http.StatusOK, serve(r, signedRequest(t, testSecret,
		subscriptionEvent("evt_3", "customer.subscription.deleted", "sub_m", "", "price_monthly", "canceled"))).Code)

	view, err := billing.LoadView(context.Background(), store, "u1")
	require.NoError(t, err)
	assert.Equal(t, plans.TierLifetime, view.Summary.Tier)
	assert.True(t, view.Summary.IsPro)
	assert.Equal(t, "cus_1", view.CustomerID)
}
