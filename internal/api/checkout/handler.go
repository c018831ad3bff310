package checkout

import (
	"context"
	"net/http"

	"focus-billing/internal/app/http/middleware"
	"focus-billing/internal/domain/plans"
	ierr "focus-billing/internal/errors"
	"focus-billing/internal/infra/stripe"
	"focus-billing/internal/service/billing"

	"github.com/gin-gonic/gin"
)

// Authorizer is the checkout guard.
type Authorizer interface {
	AuthorizePurchase(ctx context.Context, userID, priceID string, kind plans.PurchaseKind) (*stripe.CheckoutSession, error)
}

type Handler struct {
	guard Authorizer
}

func NewHandler(guard Authorizer) *Handler {
	return &Handler{guard: guard}
}

type createRequest struct {
	PriceID      string `json:"price_id" binding:"required"`
	PurchaseKind string `json:"purchase_kind" binding:"required"`
}

type createResponse struct {
	URL string `json:"url"`
}

type rejectionResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason"`
}

// CreateCheckout answers POST /checkout.
func (h *Handler) CreateCheckout(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not identified"})
		return
	}

	var body createRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid price_id / purchase_kind"})
		return
	}
	kind, ok := plans.ParsePurchaseKind(body.PurchaseKind)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "purchase_kind must be recurring or one_time"})
		return
	}

	session, err := h.guard.AuthorizePurchase(c.Request.Context(), userID, body.PriceID, kind)
	if err != nil {
		if r, ok := billing.AsRejection(err); ok {
			c.JSON(statusForRejection(r.Reason), rejectionResponse{Error: r.Message, Reason: string(r.Reason)})
			return
		}
		ierr.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, createResponse{URL: session.URL})
}

func statusForRejection(reason billing.RejectionReason) int {
	switch reason {
	case billing.ReasonUnknownPrice, billing.ReasonPurchaseKindMismatch:
		return http.StatusBadRequest
	default:
		return http.StatusConflict
	}
}
