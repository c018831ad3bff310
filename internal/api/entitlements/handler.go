package entitlements

import (
	"net/http"
	"time"

	"focus-billing/internal/app/http/middleware"
	"focus-billing/internal/domain/access"
	"focus-billing/internal/domain/entitlements"
	ierr "focus-billing/internal/errors"
	"focus-billing/internal/service/billing"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	store entitlements.Repository
}

func NewHandler(store entitlements.Repository) *Handler {
	return &Handler{store: store}
}

type EntitlementResponse struct {
	Tier         string           `json:"tier"`
	IsPro        bool             `json:"is_pro"`
	Lifetime     bool             `json:"lifetime"`
	Access       string           `json:"access"`
	CustomerID   *string          `json:"customer_id"`
	Subscription *SubscriptionDTO `json:"subscription,omitempty"`
	Capabilities []string         `json:"capabilities"`
}

type SubscriptionDTO struct {
	ID               string     `json:"id"`
	Tier             string     `json:"tier"`
	Status           string     `json:"status"`
	CurrentPeriodEnd *time.Time `json:"current_period_end"`
}

// GetEntitlement answers GET /me/entitlement from the last reconciled state.
func (h *Handler) GetEntitlement(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not identified"})
		return
	}

	view, err := billing.LoadView(c.Request.Context(), h.store, userID)
	if err != nil {
		ierr.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, buildResponse(view))
}

func buildResponse(view billing.View) EntitlementResponse {
	policy := access.ComputePolicy(view.Summary)
	resp := EntitlementResponse{
		Tier:         view.Summary.Tier.String(),
		IsPro:        view.Summary.IsPro,
		Lifetime:     view.Summary.HasLifetime,
		Access:       string(policy.State),
		Capabilities: policy.Capabilities,
	}
	if view.CustomerID != "" {
		id := view.CustomerID
		resp.CustomerID = &id
	}
	if s := view.Summary.Effective; s != nil {
		resp.Subscription = &SubscriptionDTO{
			ID:               s.ProviderSubscriptionID,
			Tier:             s.Tier,
			Status:           s.Status,
			CurrentPeriodEnd: s.CurrentPeriodEnd,
		}
	}
	return resp
}
