package stripewebhooks

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"focus-billing/internal/domain/entitlements"
	ierr "focus-billing/internal/errors"
	"focus-billing/internal/logger"
	"focus-billing/internal/metrics"
	"focus-billing/internal/service/billing"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v75"
	"github.com/stripe/stripe-go/v75/webhook"
)

const (
	webhookBodyLimit = 65536
	providerStripe   = "stripe"
)

// Reconciler is the part of the billing service the webhook drives.
type Reconciler interface {
	HandleCheckoutCompleted(ctx context.Context, ev billing.CheckoutCompleted) (billing.Outcome, error)
	HandleSubscriptionUpserted(ctx context.Context, ev billing.SubscriptionUpserted) (billing.Outcome, error)
	HandleSubscriptionCanceled(ctx context.Context, ev billing.SubscriptionCanceled) (billing.Outcome, error)
}

// Handler verifies, records and dispatches Stripe events. A non-2xx answer
// is the only way to make Stripe redeliver.
type Handler struct {
	secret     string
	ledger     entitlements.WebhookEventRepository
	reconciler Reconciler
	log        *logger.Logger
}

func NewHandler(secret string, ledger entitlements.WebhookEventRepository, reconciler Reconciler, log *logger.Logger) *Handler {
	return &Handler{secret: secret, ledger: ledger, reconciler: reconciler, log: log}
}

func (h *Handler) StripeWebhook(c *gin.Context) {
	start := time.Now()
	eventType := "unknown"
	status := http.StatusOK
	defer func() {
		metrics.WebhookRequestsTotal.WithLabelValues(eventType, strconv.Itoa(status)).Inc()
		metrics.WebhookDuration.WithLabelValues(eventType).Observe(time.Since(start).Seconds())
	}()

	respond := func(code int, body gin.H) {
		status = code
		c.JSON(code, body)
	}

	payload, err := readStripeBody(c, webhookBodyLimit)
	if err != nil {
		respond(http.StatusBadRequest, gin.H{"error": "Error reading request body"})
		return
	}

	event, err := webhook.ConstructEventWithOptions(
		payload,
		c.GetHeader("Stripe-Signature"),
		h.secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if err != nil {
		h.log.Warnw("stripe signature verification failed", "error", err)
		respond(http.StatusBadRequest, gin.H{"error": "Signature verification failed"})
		return
	}
	eventType = string(event.Type)

	ctx := c.Request.Context()
	log := logger.FromContext(ctx, h.log).With("event_id", event.ID, "event_type", eventType)
	ctx = logger.IntoContext(ctx, log)

	if !handles(eventType) {
		log.Debugw("stripe event ignored")
		respond(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	created, stored, err := h.ledger.RecordWebhookEvent(ctx, &entitlements.WebhookEvent{
		Provider:        providerStripe,
		ProviderEventID: event.ID,
		EventType:       eventType,
		PayloadJSON:     string(payload),
	})
	if err != nil {
		log.Errorw("failed to record webhook event", "error", err)
		respond(http.StatusInternalServerError, gin.H{"error": "Failed to record event"})
		return
	}
	if !created && stored.Succeeded() {
		respond(http.StatusOK, gin.H{"status": "duplicate"})
		return
	}

	if err := h.dispatch(ctx, &event); err != nil {
		h.markProcessed(ctx, log, stored.ID, err.Error())
		if ierr.Is(err, ierr.ErrValidation) {
			respond(http.StatusBadRequest, gin.H{"error": "Malformed event payload"})
			return
		}
		respond(http.StatusInternalServerError, gin.H{"error": "Processing failed"})
		return
	}

	h.markProcessed(ctx, log, stored.ID, "")
	respond(http.StatusOK, gin.H{"status": "received"})
}

func (h *Handler) markProcessed(ctx context.Context, log *logger.Logger, id uint, processingError string) {
	if err := h.ledger.MarkWebhookProcessed(ctx, id, processingError); err != nil {
		log.Warnw("failed to update webhook ledger", "error", err)
	}
}

func handles(t string) bool {
	switch t {
	case "checkout.session.completed",
		"checkout.session.async_payment_succeeded",
		"customer.subscription.created",
		"customer.subscription.updated",
		"customer.subscription.deleted":
		return true
	default:
		return false
	}
}

func (h *Handler) dispatch(ctx context.Context, event *stripe.Event) error {
	switch event.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return decodeError(err, "checkout session")
		}
		ev, ok := checkoutCompletedFrom(event.ID, &session)
		if !ok {
			return nil
		}
		_, err := h.reconciler.HandleCheckoutCompleted(ctx, ev)
		return err

	case "customer.subscription.created", "customer.subscription.updated":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return decodeError(err, "subscription")
		}
		ev, err := subscriptionUpsertedFrom(event.ID, &sub)
		if err != nil {
			return err
		}
		_, err = h.reconciler.HandleSubscriptionUpserted(ctx, ev)
		return err

	case "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return decodeError(err, "subscription")
		}
		if sub.ID == "" {
			return ierr.NewError("subscription missing id").Mark(ierr.ErrValidation)
		}
		_, err := h.reconciler.HandleSubscriptionCanceled(ctx, subscriptionCanceledFrom(event.ID, &sub))
		return err
	}
	return nil
}

func decodeError(err error, what string) error {
	return ierr.WithError(err).WithMessagef("decode %s", what).Mark(ierr.ErrValidation)
}

func readStripeBody(c *gin.Context, maxBytes int64) ([]byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
	return io.ReadAll(c.Request.Body)
}
