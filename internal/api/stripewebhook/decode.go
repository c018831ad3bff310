package stripewebhooks

import (
	"strings"
	"time"

	"focus-billing/internal/domain/plans"
	ierr "focus-billing/internal/errors"
	"focus-billing/internal/infra/stripe"
	"focus-billing/internal/service/billing"

	"github.com/samber/lo"
	stripelib "github.com/stripe/stripe-go/v75"
)

// userIDFromMetadata reads the id the checkout guard stamped on the object.
func userIDFromMetadata(md map[string]string) string {
	for _, k := range []string{stripe.MetadataUserID, "userId"} {
		if v := strings.TrimSpace(md[k]); v != "" {
			return v
		}
	}
	return ""
}

func checkoutCompletedFrom(eventID string, s *stripelib.CheckoutSession) (billing.CheckoutCompleted, bool) {
	kind, ok := plans.ParsePurchaseKind(string(s.Mode))
	if !ok {
		return billing.CheckoutCompleted{}, false
	}

	ev := billing.CheckoutCompleted{
		EventID:   eventID,
		SessionID: s.ID,
		Kind:      kind,
		UserID:    lo.CoalesceOrEmpty(userIDFromMetadata(s.Metadata), strings.TrimSpace(s.ClientReferenceID)),
		Paid: s.PaymentStatus == stripelib.CheckoutSessionPaymentStatusPaid ||
			s.PaymentStatus == stripelib.CheckoutSessionPaymentStatusNoPaymentRequired,
	}
	if s.Customer != nil {
		ev.CustomerID = s.Customer.ID
	}
	if s.Subscription != nil {
		ev.ProviderSubscriptionID = s.Subscription.ID
	}
	if s.PaymentIntent != nil {
		ev.PaymentIntentID = s.PaymentIntent.ID
	}
	return ev, true
}

func subscriptionUpsertedFrom(eventID string, sub *stripelib.Subscription) (billing.SubscriptionUpserted, error) {
	if sub.ID == "" || sub.Items == nil || len(sub.Items.Data) == 0 || sub.Items.Data[0].Price == nil {
		return billing.SubscriptionUpserted{}, ierr.NewError("subscription missing id/items/price").Mark(ierr.ErrValidation)
	}

	ev := billing.SubscriptionUpserted{
		EventID:                eventID,
		ProviderSubscriptionID: sub.ID,
		UserID:                 userIDFromMetadata(sub.Metadata),
		PriceID:                sub.Items.Data[0].Price.ID,
		Status:                 stripe.NormalizeStatus(string(sub.Status)),
	}
	if sub.Customer != nil {
		ev.CustomerID = sub.Customer.ID
	}
	if sub.CurrentPeriodEnd > 0 {
		ev.CurrentPeriodEnd = lo.ToPtr(time.Unix(sub.CurrentPeriodEnd, 0).UTC())
	}
	return ev, nil
}

func subscriptionCanceledFrom(eventID string, sub *stripelib.Subscription) billing.SubscriptionCanceled {
	ev := billing.SubscriptionCanceled{
		EventID:                eventID,
		ProviderSubscriptionID: sub.ID,
		UserID:                 userIDFromMetadata(sub.Metadata),
	}
	if sub.Customer != nil {
		ev.CustomerID = sub.Customer.ID
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		ev.PriceID = sub.Items.Data[0].Price.ID
	}
	return ev
}
