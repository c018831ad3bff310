package routes

import (
	"net/http"
	"time"

	"focus-billing/config"
	"focus-billing/internal/api/checkout"
	entitlementsapi "focus-billing/internal/api/entitlements"
	"focus-billing/internal/api/prices"
	stripewebhooks "focus-billing/internal/api/stripewebhook"
	"focus-billing/internal/app/http/middleware"
	"focus-billing/internal/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Webhook      *stripewebhooks.Handler
	Checkout     *checkout.Handler
	Entitlements *entitlementsapi.Handler
	Prices       *prices.Handler
}

// NewRouter builds the gin engine with middleware and routes.
func NewRouter(cfg *config.Configuration, log *logger.Logger, auth middleware.Authenticator, h Handlers) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)
	gin.DefaultWriter = log.GinWriter()

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestContext(log), middleware.AccessLog(log))

	if cfg.Server.CORSOrigin != "" {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     []string{cfg.Server.CORSOrigin},
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	RegisterRoutes(r, auth, h)
	return r
}

func RegisterRoutes(r *gin.Engine, auth middleware.Authenticator, h Handlers) {
	r.POST("/webhook", h.Webhook.StripeWebhook)
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/prices", h.Prices.ListPrices)

	// Authenticated
	authed := r.Group("/")
	authed.Use(middleware.AuthMiddleware(auth))
	authed.POST("/checkout", middleware.SanitizeJSON(), h.Checkout.CreateCheckout)
	authed.GET("/me/entitlement", h.Entitlements.GetEntitlement)
}
