package stripe

import (
	"context"
	"errors"
	"net/http"
	"time"

	"focus-billing/internal/domain/plans"
	ierr "focus-billing/internal/errors"
	"focus-billing/internal/logger"

	stripelib "github.com/stripe/stripe-go/v75"
	"github.com/stripe/stripe-go/v75/client"
)

// MetadataUserID is the metadata key carrying our user id on sessions,
// subscriptions and payment intents.
const MetadataUserID = "user_id"

// Client is the Stripe adapter used by the checkout guard, the cancellation
// cascade and the price listing.
type Client struct {
	api     *client.API
	timeout time.Duration
	log     *logger.Logger
}

// NewClient builds a Stripe API client with a bounded per-request timeout.
func NewClient(secretKey string, timeout time.Duration, log *logger.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	backends := stripelib.NewBackendsWithConfig(&stripelib.BackendConfig{
		HTTPClient:    &http.Client{Timeout: timeout},
		LeveledLogger: log.SugaredLogger,
	})
	return &Client{
		api:     client.New(secretKey, backends),
		timeout: timeout,
		log:     log,
	}
}

// CheckoutRequest describes an approved purchase.
type CheckoutRequest struct {
	UserID     string
	PriceID    string
	Kind       plans.PurchaseKind
	CustomerID string
	SuccessURL string
	CancelURL  string
}

// CheckoutSession is the part of the provider session the caller needs.
type CheckoutSession struct {
	ID  string
	URL string
}

// CreateCheckoutSession creates a hosted checkout session tagged with the
// user id so webhook events can be attributed without trusting the client.
func (c *Client) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	meta := map[string]string{MetadataUserID: req.UserID}

	params := &stripelib.CheckoutSessionParams{
		Params:            stripelib.Params{Context: ctx},
		SuccessURL:        stripelib.String(req.SuccessURL),
		CancelURL:         stripelib.String(req.CancelURL),
		ClientReferenceID: stripelib.String(req.UserID),
		LineItems: []*stripelib.CheckoutSessionLineItemParams{
			{Price: stripelib.String(req.PriceID), Quantity: stripelib.Int64(1)},
		},
	}
	params.AddMetadata(MetadataUserID, req.UserID)

	switch req.Kind {
	case plans.PurchaseOneTime:
		params.Mode = stripelib.String(string(stripelib.CheckoutSessionModePayment))
		params.PaymentIntentData = &stripelib.CheckoutSessionPaymentIntentDataParams{Metadata: meta}
		if req.CustomerID == "" {
			params.CustomerCreation = stripelib.String("always")
		}
	default:
		params.Mode = stripelib.String(string(stripelib.CheckoutSessionModeSubscription))
		params.SubscriptionData = &stripelib.CheckoutSessionSubscriptionDataParams{Metadata: meta}
	}
	if req.CustomerID != "" {
		params.Customer = stripelib.String(req.CustomerID)
	}

	s, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, mapError(err, "create checkout session")
	}
	return &CheckoutSession{ID: s.ID, URL: s.URL}, nil
}

// CancelSubscription cancels immediately. A subscription the provider no
// longer knows comes back marked ierr.ErrNotFound.
func (c *Client) CancelSubscription(ctx context.Context, providerSubscriptionID string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	_, err := c.api.Subscriptions.Cancel(providerSubscriptionID, &stripelib.SubscriptionCancelParams{
		Params: stripelib.Params{Context: ctx},
	})
	if err != nil {
		return mapError(err, "cancel subscription "+providerSubscriptionID)
	}
	return nil
}

// Price is an active provider price with its product.
type Price struct {
	ID          string
	ProductID   string
	ProductName string
	Currency    string
	UnitAmount  int64
	Interval    string
	Recurring   bool
}

// ListActivePrices returns active prices whose product is also active.
func (c *Client) ListActivePrices(ctx context.Context) ([]Price, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := &stripelib.PriceListParams{}
	params.Context = ctx
	params.Active = stripelib.Bool(true)
	params.Limit = stripelib.Int64(100)
	params.AddExpand("data.product")

	it := c.api.Prices.List(params)

	var out []Price
	for it.Next() {
		p := it.Price()
		if !p.Active || p.Product == nil || !p.Product.Active {
			continue
		}
		price := Price{
			ID:          p.ID,
			ProductID:   p.Product.ID,
			ProductName: p.Product.Name,
			Currency:    string(p.Currency),
			UnitAmount:  p.UnitAmount,
		}
		if p.Recurring != nil {
			price.Recurring = true
			price.Interval = string(p.Recurring.Interval)
		}
		out = append(out, price)
	}
	if err := it.Err(); err != nil {
		return nil, mapError(err, "list prices")
	}
	return out, nil
}

func mapError(err error, op string) error {
	var serr *stripelib.Error
	if errors.As(err, &serr) {
		if serr.Code == stripelib.ErrorCodeResourceMissing || serr.HTTPStatusCode == http.StatusNotFound {
			return ierr.WithError(err).WithMessage(op).Mark(ierr.ErrNotFound)
		}
	}
	return ierr.WithError(err).WithMessage(op).Mark(ierr.ErrProvider)
}
